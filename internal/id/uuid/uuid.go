// Package uuid implements crawler.IDGenerator using random UUIDs.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator produces UUIDv4 run identifiers.
type Generator struct{}

// New returns a Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a fresh UUID string.
func (g *Generator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return id.String(), nil
}
