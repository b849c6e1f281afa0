// Package vision suggests plant details from a photo using a vision model.
package vision

import (
	"context"
	"errors"
	"io"
)

// IdentifyPrompt is the shared prompt used by all vision adapters.
const IdentifyPrompt = `Identify the houseplant in this photo.
Respond with a single line in plain text, no preamble,
format: common name | botanical species | watering interval in days | short care notes
Example: Monstera | Monstera deliciosa | 7 | Bright indirect light, let the top soil dry out.`

// ErrNoIdentification is returned when the model reply has no usable line.
var ErrNoIdentification = errors.New("no plant identified")

type Identifier interface {
	Identify(ctx context.Context, r io.Reader, mimeType string) (*Identification, error)
}

// Identification is a suggestion for the add-plant form. Empty fields and a
// zero WateringFrequencyDays mean the model gave no usable value.
type Identification struct {
	Name                  string `json:"name"`
	Species               string `json:"species"`
	WateringFrequencyDays int    `json:"watering_frequency_days"`
	CareNotes             string `json:"care_notes"`
	RawResponse           string `json:"-"`
}
