package tile

import "iter"

// All returns an iterator over the tiles in slice order.
func All(specs []Spec) iter.Seq2[ID, Spec] {
	return func(yield func(ID, Spec) bool) {
		for _, s := range specs {
			if !yield(s.ID, s) {
				return
			}
		}
	}
}
