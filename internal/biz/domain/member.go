package domain

import "sort"

// Member is a group participant as reported by the gateway (value object)
type Member struct {
	ID     string // uuid when known, otherwise the phone number
	Number string
	Name   string
}

// ResolveID picks the stable identifier for a participant: uuid first, then number.
func ResolveID(uuid, number string) string {
	if uuid != "" {
		return uuid
	}
	return number
}

// Group is one entry of the gateway's group listing
type Group struct {
	ID      string
	Name    string
	Admins  []Member
	Members []Member
}

// Contact is one entry of the gateway's contact listing
type Contact struct {
	UUID   string
	Number string
	Name   string
}

// ContactNames folds a contact listing into an id -> name map.
// Both the uuid and the number of a named contact map to the same name.
func ContactNames(contacts []Contact) map[string]string {
	names := make(map[string]string, len(contacts)*2)
	for _, c := range contacts {
		if c.Name == "" {
			continue
		}
		if c.UUID != "" {
			names[c.UUID] = c.Name
		}
		if c.Number != "" {
			names[c.Number] = c.Name
		}
	}
	return names
}

// IDSet is a set of participant ids
type IDSet map[string]struct{}

// NewIDSet builds a set from the resolved ids of members
func NewIDSet(members []Member) IDSet {
	s := make(IDSet, len(members))
	for _, m := range members {
		if m.ID == "" {
			continue
		}
		s[m.ID] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Minus returns the sorted ids present in s but not in prev.
func (s IDSet) Minus(prev []string) []string {
	old := make(map[string]struct{}, len(prev))
	for _, id := range prev {
		old[id] = struct{}{}
	}
	var out []string
	for _, id := range s.Sorted() {
		if _, ok := old[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
