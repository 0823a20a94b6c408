package diagnostic

import "slices"

// Set is an ordered, duplicate-free collection of diagnostics.
// The zero value is ready to use. Not safe for concurrent writers.
type Set struct {
	items []Diagnostic
}

// NewSet returns a Set holding ds.
func NewSet(ds ...Diagnostic) *Set {
	s := &Set{}
	s.AddAll(ds)
	return s
}

// Add inserts d unless an equal diagnostic is present. It reports whether
// d was inserted.
func (s *Set) Add(d Diagnostic) bool {
	i, found := slices.BinarySearchFunc(s.items, d, Compare)
	if found {
		return false
	}
	s.items = slices.Insert(s.items, i, d)
	return true
}

// AddAll inserts every diagnostic and returns how many were new.
func (s *Set) AddAll(ds []Diagnostic) int {
	added := 0
	for _, d := range ds {
		if s.Add(d) {
			added++
		}
	}
	return added
}

// Contains reports whether an equal diagnostic is present.
func (s *Set) Contains(d Diagnostic) bool {
	_, found := slices.BinarySearchFunc(s.items, d, Compare)
	return found
}

// Items returns the diagnostics in order. The slice is a copy.
func (s *Set) Items() []Diagnostic {
	return slices.Clone(s.items)
}

func (s *Set) Len() int {
	return len(s.items)
}

// Count returns how many diagnostics have the given severity.
func (s *Set) Count(severity Severity) int {
	n := 0
	for _, d := range s.items {
		if d.Severity == severity {
			n++
		}
	}
	return n
}

// Reset empties the set.
func (s *Set) Reset() {
	s.items = nil
}
