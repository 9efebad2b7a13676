package tile

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/google/hilbert"
)

// Order is the dispatch order of tiles. It never changes the output raster.
type Order uint8

const (
	RowMajor Order = iota
	Hilbert
)

func (o Order) String() string {
	switch o {
	case RowMajor:
		return "rowmajor"
	case Hilbert:
		return "hilbert"
	}
	return fmt.Sprintf("Order(%d)", uint8(o))
}

func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "rowmajor":
		return RowMajor, nil
	case "hilbert":
		return Hilbert, nil
	}
	return RowMajor, fmt.Errorf("unknown tile order %q", s)
}

// Ordered returns a copy of specs sorted for dispatch in the given order.
func Ordered(specs []Spec, order Order) []Spec {
	result := slices.Clone(specs)
	if order != Hilbert || len(result) < 2 {
		return result
	}

	side := 1
	for _, s := range result {
		for side <= max(s.ID.Row, s.ID.Col) {
			side <<= 1
		}
	}
	h, _ := hilbert.NewHilbert(side)

	codes := make(map[ID]int, len(result))
	for _, s := range result {
		code, _ := h.MapInverse(s.ID.Col, s.ID.Row)
		codes[s.ID] = code
	}
	slices.SortStableFunc(result, func(a, b Spec) int {
		return cmp.Compare(codes[a.ID], codes[b.ID])
	})
	return result
}
