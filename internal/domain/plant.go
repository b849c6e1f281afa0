package domain

import "time"

// MaxInstructionsLen is the longest care note the form accepts, in characters.
const MaxInstructionsLen = 600

type Plant struct {
	ID                    int64
	Name                  string
	Species               string
	WateringFrequencyDays int
	// LastWatered is milliseconds since the Unix epoch.
	LastWatered  int64
	PhotoURI     *string
	Instructions *string
	DisplayOrder int
}

// LastWateredTime returns LastWatered as a time.Time in the local zone.
func (p *Plant) LastWateredTime() time.Time {
	return time.UnixMilli(p.LastWatered)
}

// HasPhoto reports whether the plant references an image.
func (p *Plant) HasPhoto() bool {
	return p.PhotoURI != nil && *p.PhotoURI != ""
}

// Clone returns a copy of p that shares no pointers with it.
func (p *Plant) Clone() *Plant {
	c := *p
	if p.PhotoURI != nil {
		v := *p.PhotoURI
		c.PhotoURI = &v
	}
	if p.Instructions != nil {
		v := *p.Instructions
		c.Instructions = &v
	}
	return &c
}

// IndexOf returns the position of the plant with id in plants, or -1.
func IndexOf(plants []*Plant, id int64) int {
	for i, p := range plants {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// StringPtr returns nil for an empty string and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
