// Package interval merges and intersects closed time windows such as room
// and speaker availabilities.
package interval

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrMalformed is returned when a window starts after it ends.
var ErrMalformed = errors.New("interval start is after end")

// ErrNoOverlap is returned by MergeWith and IntersectWith for disjoint windows.
var ErrNoOverlap = errors.New("intervals do not overlap")

// Window is a closed interval [Start, End].
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AllDay reports whether the window covers whole days from midnight to midnight.
func (w Window) AllDay() bool {
	if !isMidnight(w.Start) || !isMidnight(w.End) {
		return false
	}
	return w.End.Sub(w.Start) >= 24*time.Hour
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

// Validate rejects any window whose start lies after its end.
func Validate(windows []Window) error {
	for i, w := range windows {
		if w.Start.After(w.End) {
			return fmt.Errorf("window %d: %w", i, ErrMalformed)
		}
	}
	return nil
}

// Merge collapses windows into the minimal sorted set of disjoint,
// non-touching windows covering the same points. The input is not modified.
func Merge(windows []Window) []Window {
	if len(windows) == 0 {
		return []Window{}
	}

	sorted := make([]Window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	result := make([]Window, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if !next.Start.After(current.End) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		result = append(result, current)
		current = next
	}
	return append(result, current)
}

// Overlaps reports whether a and b share points. With strict set, touching
// windows do not count.
func Overlaps(a, b Window, strict bool) bool {
	if strict {
		return a.Start.Before(b.End) && b.Start.Before(a.End)
	}
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}

// Contains reports whether inner lies completely within outer.
func Contains(outer, inner Window) bool {
	return !outer.Start.After(inner.Start) && !outer.End.Before(inner.End)
}

// MergeWith returns the window spanning both a and b, which must overlap or touch.
func MergeWith(a, b Window) (Window, error) {
	if !Overlaps(a, b, false) {
		return Window{}, ErrNoOverlap
	}
	return Window{Start: earliest(a.Start, b.Start), End: latest(a.End, b.End)}, nil
}

// IntersectWith returns the shared part of a and b, which must strictly overlap
// unless they are identical.
func IntersectWith(a, b Window) (Window, error) {
	if !Overlaps(a, b, true) && !(a.Start.Equal(b.Start) && a.End.Equal(b.End)) {
		return Window{}, ErrNoOverlap
	}
	return Window{Start: latest(a.Start, b.Start), End: earliest(a.End, b.End)}, nil
}

// Intersection returns the merged set of points present in every given set.
// No sets, or any empty set, yields an empty result.
func Intersection(sets ...[]Window) []Window {
	if len(sets) == 0 {
		return []Window{}
	}

	result := Merge(sets[0])
	for _, set := range sets[1:] {
		other := Merge(set)
		next := make([]Window, 0, len(result))
		for _, a := range result {
			for _, b := range other {
				if w, err := IntersectWith(a, b); err == nil {
					next = append(next, w)
				}
			}
		}
		result = Merge(next)
		if len(result) == 0 {
			return result
		}
	}
	return result
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
