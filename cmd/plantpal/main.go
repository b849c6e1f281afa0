package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/plantpal/internal/domain"
	"github.com/vbonduro/plantpal/internal/metrics"
	"github.com/vbonduro/plantpal/internal/reminder"
	"github.com/vbonduro/plantpal/internal/web"
	"github.com/vbonduro/plantpal/internal/web/templates"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine; the environment alone is enough.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:           "plantpal",
		Short:         "Houseplant watering tracker and reminder service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.AddCommand(serve, newSweepCmd(), newSeedCmd(), newWaterCmd(), newListCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI and the daily reminder scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	scheduler, err := reminder.NewScheduler(a.sweeper, reminder.SchedulerOptions{
		Location: loc,
		Policy:   a.cfg.RetryPolicy(),
		Clock:    a.clock,
		Recorder: a.recorder,
		Logger:   a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create reminder scheduler: %w", err)
	}
	a.service.SetReminder(scheduler)

	if err := scheduler.ScheduleDaily(a.cfg.ReminderHour); err != nil {
		return err
	}
	scheduler.Start()
	if next, err := scheduler.NextDailyRun(); err == nil {
		a.logger.Info("daily reminder scheduled", "next_run", next.Format(time.RFC3339))
	}
	scheduler.TriggerNow()

	server := web.NewServer(a.service, templates.FS, web.Options{
		Inbox:          a.inbox,
		MetricsHandler: metrics.HTTPHandler(a.registry),
		VisionEnabled:  a.cfg.VisionBackend != "",
	}, a.logger)
	httpServer := server.NewHTTPServer(a.cfg.ListenAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("server starting", "addr", a.cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpErr := httpServer.Shutdown(shutdownCtx)
		return errors.Join(httpErr, scheduler.Stop())
	})
	return g.Wait()
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one reminder sweep and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.sweeper.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checked %d plants, %d need water, %d notified, %d failed\n",
				res.Checked, res.NeedingWater, res.Notified, res.Failed)
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample plants unless they already exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if a.cfg.SeedOnStart {
				return nil
			}
			return a.seed(cmd.Context())
		},
	}
}

func newWaterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "water <id>",
		Short: "Mark a plant as watered now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid plant id %q", args[0])
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.service.GetPlant(cmd.Context(), id)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("plant %d not found", id)
			}
			if err := a.service.WaterPlant(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watered %s\n", p.Name)
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	var thirsty bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print plants with their watering status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			list := a.service.ListPlants
			if thirsty {
				list = a.service.PlantsNeedingWater
			}
			plants, err := list(cmd.Context())
			if err != nil {
				return err
			}

			now := a.service.Now()
			out := cmd.OutOrStdout()
			for _, p := range plants {
				fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Species, domain.ListStatusText(now, p))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&thirsty, "thirsty", false, "only show plants that need water")
	return cmd
}
