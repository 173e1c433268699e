package spec

import "strings"

// ConstraintSet is an ordered sequence of unique constraints. Insertion
// order is preserved and semantically significant: the extractor scans
// members in this order and tie-breaks between cores by member position.
// The zero value is an empty set. Sets are immutable; mutating operations
// return new sets.
type ConstraintSet struct {
	members []Constraint
}

// NewSet builds a set from constraints, dropping duplicates (by canonical
// String form) while keeping the first occurrence's position.
func NewSet(constraints ...Constraint) ConstraintSet {
	seen := make(map[string]struct{}, len(constraints))
	members := make([]Constraint, 0, len(constraints))
	for _, c := range constraints {
		key := c.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		members = append(members, c)
	}
	return ConstraintSet{members: members}
}

// ParseSet parses and deduplicates a sequence of spec strings.
func ParseSet(texts ...string) (ConstraintSet, error) {
	constraints := make([]Constraint, 0, len(texts))
	for _, t := range texts {
		c, err := Parse(t)
		if err != nil {
			return ConstraintSet{}, err
		}
		constraints = append(constraints, c)
	}
	return NewSet(constraints...), nil
}

// Len returns the number of members.
func (s ConstraintSet) Len() int { return len(s.members) }

// At returns the i-th member in insertion order.
func (s ConstraintSet) At(i int) Constraint { return s.members[i] }

// Members returns a copy of the members in insertion order.
func (s ConstraintSet) Members() []Constraint {
	out := make([]Constraint, len(s.members))
	copy(out, s.members)
	return out
}

// Strings returns the canonical form of every member in insertion order.
func (s ConstraintSet) Strings() []string {
	out := make([]string, len(s.members))
	for i, c := range s.members {
		out[i] = c.String()
	}
	return out
}

// IndexOf returns the position of c, or -1 when absent.
func (s ConstraintSet) IndexOf(c Constraint) int {
	key := c.String()
	for i, m := range s.members {
		if m.String() == key {
			return i
		}
	}
	return -1
}

// Contains reports membership by canonical form.
func (s ConstraintSet) Contains(c Constraint) bool { return s.IndexOf(c) >= 0 }

// Without returns a new set with the i-th member removed. Relative order of
// the remaining members is unchanged.
func (s ConstraintSet) Without(i int) ConstraintSet {
	members := make([]Constraint, 0, len(s.members)-1)
	members = append(members, s.members[:i]...)
	members = append(members, s.members[i+1:]...)
	return ConstraintSet{members: members}
}

// Exclude returns a new set dropping every member whose canonical form is in
// keys, preserving the order of the rest.
func (s ConstraintSet) Exclude(keys map[string]struct{}) ConstraintSet {
	members := make([]Constraint, 0, len(s.members))
	for _, c := range s.members {
		if _, drop := keys[c.String()]; drop {
			continue
		}
		members = append(members, c)
	}
	return ConstraintSet{members: members}
}

// Key returns a canonical cache key for the set. Member order is part of
// the key: the oracle answer does not depend on order, but deterministic
// replay does, and the extractor only ever re-queries sets it built in the
// same order.
func (s ConstraintSet) Key() string {
	return strings.Join(s.Strings(), "\x1f")
}

// String renders the members as a comma-separated list.
func (s ConstraintSet) String() string {
	return strings.Join(s.Strings(), ", ")
}
