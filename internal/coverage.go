package internal

import (
	"fmt"
	"sort"
)

// DateInterval is an inclusive range of calendar dates. A zero Start or End
// leaves that side open.
type DateInterval struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewDateInterval returns the interval [start, end], rejecting reversed bounds
func NewDateInterval(start, end Date) (DateInterval, error) {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return DateInterval{}, fmt.Errorf("interval end %s is before start %s", end, start)
	}
	return DateInterval{Start: start, End: end}, nil
}

// Bounded reports whether both endpoints are set
func (i DateInterval) Bounded() bool {
	return !i.Start.IsZero() && !i.End.IsZero()
}

// Contains reports whether d falls inside the interval, treating unset ends as open
func (i DateInterval) Contains(d Date) bool {
	if !i.Start.IsZero() && d.Before(i.Start) {
		return false
	}
	if !i.End.IsZero() && d.After(i.End) {
		return false
	}
	return true
}

func (i DateInterval) String() string {
	start, end := i.Start.String(), i.End.String()
	if start == "" {
		start = "…"
	}
	if end == "" {
		end = "…"
	}
	return start + ".." + end
}

// CoverageSet is a sorted list of non-overlapping, non-adjacent intervals.
// Build it only through MergeInterval.
type CoverageSet []DateInterval

// IsCovered reports whether a single interval of the set fully contains
// requested. A request that spans a gap between two intervals is not covered,
// even if the union of the set would cover it.
func IsCovered(requested DateInterval, set CoverageSet) bool {
	if !requested.Bounded() {
		return false
	}
	for _, existing := range set {
		if !existing.Start.After(requested.Start) && !existing.End.Before(requested.End) {
			return true
		}
	}
	return false
}

// MergeInterval returns a new minimal set containing set plus interval.
// Intervals that overlap or start within one day of the previous end are fused.
// The input set is not modified.
func MergeInterval(set CoverageSet, interval DateInterval) CoverageSet {
	all := make(CoverageSet, 0, len(set)+1)
	all = append(all, set...)
	all = append(all, interval)
	if len(all) <= 1 {
		return all
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Start.Before(all[j].Start)
	})

	merged := make(CoverageSet, 0, len(all))
	current := all[0]
	for _, next := range all[1:] {
		if !next.Start.After(current.End.AddDays(1)) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
