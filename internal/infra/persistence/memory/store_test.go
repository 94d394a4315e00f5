package memory

import (
	"testing"

	"streamcorpus/internal/catalog"
	"streamcorpus/internal/catalog/catalogtest"
)

func TestStoreConformance(t *testing.T) {
	catalogtest.Run(t, func(*testing.T) catalog.Store { return NewStore() })
}
