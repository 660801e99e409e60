package local

import (
	"context"

	"github.com/dukex/stepflow/pkg/protocol"
)

// StaticLocation reports a fixed position. The host process has no GPS; a
// deployment that needs real fixes wires its own provider.
type StaticLocation struct {
	Position protocol.Position
}

func NewStaticLocation(latitude, longitude float64) *StaticLocation {
	return &StaticLocation{
		Position: protocol.Position{Latitude: latitude, Longitude: longitude},
	}
}

func (s *StaticLocation) CurrentPosition(_ context.Context) (protocol.Position, error) {
	return s.Position, nil
}
