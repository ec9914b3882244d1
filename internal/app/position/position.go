// Package position computes dense integer orderings for queue and playlist partitions.
//
// Functions here are pure: they describe which records move where, and the
// caller applies the result to storage in the returned order.
package position

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// Base is the position of the first entry in a partition.
const Base = 0

// ErrOutOfRange is returned when a position or index lies outside the partition.
var ErrOutOfRange = errors.New("position out of range")

// Shift moves the record at From to To.
type Shift struct {
	From int
	To   int
}

// Next returns the position for a record appended to the partition.
func Next(positions []int) int {
	if len(positions) == 0 {
		return Base
	}
	highest := positions[0]
	for _, p := range positions[1:] {
		if p > highest {
			highest = p
		}
	}
	return highest + 1
}

// Sequence returns n consecutive positions starting at start.
func Sequence(start, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = start + i
	}
	return out
}

// CloseGap returns the shifts that repair the partition after the record at
// removed was deleted. Every position greater than removed moves down by one,
// lowest first.
func CloseGap(positions []int, removed int) []Shift {
	after := make([]int, 0, len(positions))
	for _, p := range positions {
		if p > removed {
			after = append(after, p)
		}
	}
	slices.Sort(after)

	shifts := make([]Shift, len(after))
	for i, p := range after {
		shifts[i] = Shift{From: p, To: p - 1}
	}
	return shifts
}

// Move returns the shifts that move the record at from to to. Records strictly
// between the two bounds, plus the one at to, slide one step toward the vacated
// slot. The moved record's own shift is always last.
func Move(positions []int, from, to int) ([]Shift, error) {
	if !slices.Contains(positions, from) {
		return nil, errors.Wrapf(ErrOutOfRange, "no record at position %d", from)
	}
	if from == to {
		return nil, nil
	}

	var between []int
	for _, p := range positions {
		if from < to && p > from && p <= to {
			between = append(between, p)
		}
		if from > to && p >= to && p < from {
			between = append(between, p)
		}
	}
	slices.Sort(between)

	shifts := make([]Shift, 0, len(between)+1)
	if from < to {
		// moving down: neighbours step up, lowest first
		for _, p := range between {
			shifts = append(shifts, Shift{From: p, To: p - 1})
		}
	} else {
		// moving up: neighbours step down, highest first
		for i := len(between) - 1; i >= 0; i-- {
			shifts = append(shifts, Shift{From: between[i], To: between[i] + 1})
		}
	}
	shifts = append(shifts, Shift{From: from, To: to})
	return shifts, nil
}

// MoveAmong moves the record at slot from to slot to, where records occupy
// only the given slots. Records between the two slide to the neighbouring
// occupied slot, so positions outside slots never change. The moved record's
// own shift is always last.
func MoveAmong(slots []int, from, to int) ([]Shift, error) {
	sorted := append([]int(nil), slots...)
	slices.Sort(sorted)
	i := slices.Index(sorted, from)
	if i < 0 {
		return nil, errors.Wrapf(ErrOutOfRange, "no record at position %d", from)
	}
	j := slices.Index(sorted, to)
	if j < 0 {
		return nil, errors.Wrapf(ErrOutOfRange, "position %d is not a movable slot", to)
	}
	if i == j {
		return nil, nil
	}

	shifts := make([]Shift, 0, abs(j-i)+1)
	if i < j {
		for k := i + 1; k <= j; k++ {
			shifts = append(shifts, Shift{From: sorted[k], To: sorted[k-1]})
		}
	} else {
		for k := i - 1; k >= j; k-- {
			shifts = append(shifts, Shift{From: sorted[k], To: sorted[k+1]})
		}
	}
	shifts = append(shifts, Shift{From: from, To: to})
	return shifts, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Contiguous reports whether positions, in any order, form start, start+1, ...
func Contiguous(positions []int, start int) bool {
	sorted := append([]int(nil), positions...)
	slices.Sort(sorted)
	for i, p := range sorted {
		if p != start+i {
			return false
		}
	}
	return true
}

// Splice removes the element at from and reinserts it at to.
func Splice[T any](items []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(items) {
		return nil, errors.Wrapf(ErrOutOfRange, "from index %d (len %d)", from, len(items))
	}
	if to < 0 || to >= len(items) {
		return nil, errors.Wrapf(ErrOutOfRange, "to index %d (len %d)", to, len(items))
	}

	out := make([]T, 0, len(items))
	moved := items[from]
	for i, it := range items {
		if i == from {
			continue
		}
		out = append(out, it)
	}
	return slices.Insert(out, to, moved), nil
}
