package traceindex

// orderedSet keeps unique values in order of first insertion.
type orderedSet struct {
	seen   map[string]struct{}
	values []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

// add inserts v unless it is empty or already present.
func (s *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.values = append(s.values, v)
}

// list returns a copy so callers cannot mutate the index.
func (s *orderedSet) list() []string {
	out := make([]string, len(s.values))
	copy(out, s.values)
	return out
}
