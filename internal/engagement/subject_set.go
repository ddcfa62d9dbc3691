package engagement

// SubjectSet is an immutable set of subject ids that keeps insertion
// order for stable storage. Add and Remove return a new set.
type SubjectSet struct {
	ids   []string
	index map[string]struct{}
}

// NewSubjectSet builds a set from ids, dropping duplicates and empty ids
func NewSubjectSet(ids ...string) SubjectSet {
	s := SubjectSet{
		ids:   make([]string, 0, len(ids)),
		index: make(map[string]struct{}, len(ids)),
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := s.index[id]; ok {
			continue
		}
		s.index[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	return s
}

// Has reports whether id is a member
func (s SubjectSet) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of members
func (s SubjectSet) Len() int {
	return len(s.ids)
}

// Equal reports whether s and o have the same members
func (s SubjectSet) Equal(o SubjectSet) bool {
	if s.Len() != o.Len() {
		return false
	}
	for _, id := range s.ids {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// Add returns a set that also contains id
func (s SubjectSet) Add(id string) SubjectSet {
	if s.Has(id) {
		return s
	}
	return NewSubjectSet(append(s.Slice(), id)...)
}

// Remove returns a set without id
func (s SubjectSet) Remove(id string) SubjectSet {
	if !s.Has(id) {
		return s
	}
	out := make([]string, 0, len(s.ids)-1)
	for _, member := range s.ids {
		if member != id {
			out = append(out, member)
		}
	}
	return NewSubjectSet(out...)
}

// Slice returns a copy of the members in insertion order. It never
// returns nil so stores write an empty array rather than NULL.
func (s SubjectSet) Slice() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}
