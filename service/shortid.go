package service

import gonanoid "github.com/matoous/go-nanoid/v2"

const shortIDSize = 6

// IDGenerator mints short identifiers for share links
type IDGenerator interface {
	New() (string, error)
}

// NanoID generates url-safe ids of Size characters
type NanoID struct {
	Size int
}

func (n NanoID) New() (string, error) {
	if n.Size <= 0 {
		return gonanoid.New(shortIDSize)
	}

	return gonanoid.New(n.Size)
}
