package model

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// IDSet is a set of document identifiers.
// The zero value is not usable; create sets with NewIDSet.
type IDSet map[DocID]struct{}

// NewIDSet returns a set containing the valid identifiers among ids.
func NewIDSet(ids ...DocID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id. Invalid identifiers are ignored. Reports whether the set changed.
func (s IDSet) Add(id DocID) bool {
	if !id.Valid() {
		return false
	}
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Remove deletes id. Reports whether the set changed.
func (s IDSet) Remove(id DocID) bool {
	if _, ok := s[id]; !ok {
		return false
	}
	delete(s, id)
	return true
}

// Contains reports whether id is a member.
func (s IDSet) Contains(id DocID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of members.
func (s IDSet) Len() int { return len(s) }

// Slice returns the members in ascending order.
func (s IDSet) Slice() []DocID {
	out := make([]DocID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Minus returns the members of s that are not in other.
func (s IDSet) Minus(other IDSet) IDSet {
	out := make(IDSet)
	for id := range s {
		if !other.Contains(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Clone returns an independent copy of s.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same members.
func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// String returns the serialized form of the set (see FormatIDList).
func (s IDSet) String() string { return FormatIDList(s.Slice()) }

// ParseIDList parses a comma and/or whitespace separated list of identifiers.
//
// Entries that are not positive integers are dropped, as are duplicates.
// The first occurrence order is kept.
func ParseIDList(raw string) []DocID {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	seen := make(map[DocID]struct{}, len(fields))
	out := make([]DocID, 0, len(fields))
	for _, f := range fields {
		id, ok := ParseDocID(f)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ParseIDSet parses a serialized list into a set.
func ParseIDSet(raw string) IDSet {
	return NewIDSet(ParseIDList(raw)...)
}

// FormatIDList serializes identifiers as a comma-separated list, dropping
// invalid entries and duplicates.
func FormatIDList(ids []DocID) string {
	var b strings.Builder
	seen := make(map[DocID]struct{}, len(ids))
	for _, id := range ids {
		if !id.Valid() {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(int64(id), 10))
	}
	return b.String()
}
