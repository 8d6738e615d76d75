package domain

// DefaultExampleLimit caps the example keys kept per violated property.
const DefaultExampleLimit = 10

// ViolationStats counts the failures of one property and keeps the first
// few offending keys.
type ViolationStats struct {
	Count    uint64   `json:"count" yaml:"count"`
	Examples []string `json:"examples" yaml:"examples"`
}

// Record adds a violation, keeping key while fewer than limit examples are held.
func (s *ViolationStats) Record(key string, limit int) {
	s.Count++
	if len(s.Examples) < limit {
		s.Examples = append(s.Examples, key)
	}
}

// Witness returns the first recorded example, if any.
func (s *ViolationStats) Witness() (string, bool) {
	if len(s.Examples) == 0 {
		return "", false
	}
	return s.Examples[0], true
}

// Report maps a property name to its violations. Every checked property
// is present; one that holds has a zero count.
type Report map[string]*ViolationStats

// Violated returns the number of properties with at least one violation.
func (r Report) Violated() int {
	n := 0
	for _, s := range r {
		if s.Count > 0 {
			n++
		}
	}
	return n
}

// Total returns the number of violations across every property.
func (r Report) Total() uint64 {
	var n uint64
	for _, s := range r {
		n += s.Count
	}
	return n
}
