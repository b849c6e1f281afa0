package live

import (
	"context"
	"log/slog"
)

// Watch emits load's result once immediately and again after every change to
// table accepted by match (nil accepts all). Load errors are logged and the
// snapshot is skipped. The channel closes when ctx is done.
func Watch[T any](
	ctx context.Context,
	b *Broker,
	table string,
	match func(Change) bool,
	load func(context.Context) (T, error),
	logger *slog.Logger,
) <-chan T {
	changes, cancel := b.Subscribe(ctx, table)
	out := make(chan T)

	go func() {
		defer close(out)
		defer cancel()

		emit := func() bool {
			v, err := load(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Error("live query failed", "table", table, "error", err)
				}
				return ctx.Err() == nil
			}
			select {
			case out <- v:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for c := range changes {
			if match != nil && !match(c) {
				continue
			}
			// Collapse a burst of changes into a single reload.
			drain(changes)
			if !emit() {
				return
			}
		}
	}()

	return out
}

func drain(ch <-chan Change) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
