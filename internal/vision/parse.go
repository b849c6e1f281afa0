package vision

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/vbonduro/plantpal/internal/domain"
)

// ParseLine parses one "name | species | days | notes" line. Lines without a
// pipe are treated as preamble and yield nil.
func ParseLine(line string) *Identification {
	line = strings.TrimSpace(line)
	if !strings.Contains(line, "|") {
		return nil
	}

	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	id := &Identification{Name: strings.Trim(parts[0], "*- ")}
	if id.Name == "" {
		return nil
	}
	if len(parts) >= 2 {
		id.Species = parts[1]
	}
	if len(parts) >= 3 {
		id.WateringFrequencyDays = leadingInt(parts[2])
	}
	if len(parts) >= 4 {
		id.CareNotes = strings.Join(parts[3:], " | ")
		if r := []rune(id.CareNotes); len(r) > domain.MaxInstructionsLen {
			id.CareNotes = string(r[:domain.MaxInstructionsLen])
		}
	}
	return id
}

// ParseResponse returns the first parseable line of raw.
func ParseResponse(raw string) (*Identification, error) {
	for _, line := range strings.Split(raw, "\n") {
		if id := ParseLine(line); id != nil {
			id.RawResponse = raw
			return id, nil
		}
	}
	return nil, ErrNoIdentification
}

// leadingInt reads the first run of digits in s ("7 days", "about 10").
// It returns 0 when there is none.
func leadingInt(s string) int {
	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return 0
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0
	}
	return n
}
