// Package links stores the two directions of the link graph as
// per-document attributes.
//
// OutboundSet(id) lives in the attribute KeyLinkingTo of id and is replaced
// as a whole. InboundSet(id) lives in KeyLinkingHere of id and is edited one
// edge at a time on behalf of other documents. An empty set is never stored:
// the attribute is deleted instead, and an absent attribute reads as empty.
//
// The store does not validate identifiers; callers do.
package links

import (
	"fmt"

	"github.com/aidanlsb/wlh/internal/model"
)

// Attribute keys. Values are comma-separated id lists (model.FormatIDList).
const (
	KeyLinkingTo   = "_wlh_linking_to"
	KeyLinkingHere = "_wlh_linking_here"
)

// Attributes is per-document key/value storage.
type Attributes interface {
	GetAttribute(id model.DocID, key string) (string, bool, error)
	SetAttribute(id model.DocID, key, value string) error
	DeleteAttribute(id model.DocID, key string) error
}

// Store is the adjacency store.
type Store struct {
	attrs Attributes
}

// NewStore creates a Store backed by attrs.
func NewStore(attrs Attributes) *Store {
	return &Store{attrs: attrs}
}

// Outbound returns the documents id links to.
func (s *Store) Outbound(id model.DocID) (model.IDSet, error) {
	return s.read(id, KeyLinkingTo)
}

// Inbound returns the documents linking to id.
func (s *Store) Inbound(id model.DocID) (model.IDSet, error) {
	return s.read(id, KeyLinkingHere)
}

// SetOutbound replaces the outbound set of id. An empty set deletes the attribute.
func (s *Store) SetOutbound(id model.DocID, targets model.IDSet) error {
	return s.write(id, KeyLinkingTo, targets)
}

// AddInbound records that source links to target. Reports whether the
// inbound set of target changed; adding an existing edge writes nothing.
func (s *Store) AddInbound(target, source model.DocID) (bool, error) {
	return s.edit(target, KeyLinkingHere, func(set model.IDSet) bool { return set.Add(source) })
}

// RemoveInbound drops source from the inbound set of target.
// Reports whether the set changed.
func (s *Store) RemoveInbound(target, source model.DocID) (bool, error) {
	return s.edit(target, KeyLinkingHere, func(set model.IDSet) bool { return set.Remove(source) })
}

// RemoveOutbound drops target from the outbound set of source. Used when
// target is deleted. Reports whether the set changed.
func (s *Store) RemoveOutbound(source, target model.DocID) (bool, error) {
	return s.edit(source, KeyLinkingTo, func(set model.IDSet) bool { return set.Remove(target) })
}

// Purge deletes both attributes of id.
func (s *Store) Purge(id model.DocID) error {
	for _, key := range []string{KeyLinkingTo, KeyLinkingHere} {
		if err := s.attrs.DeleteAttribute(id, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) read(id model.DocID, key string) (model.IDSet, error) {
	raw, ok, err := s.attrs.GetAttribute(id, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s of %d: %w", key, id, err)
	}
	if !ok {
		return model.NewIDSet(), nil
	}
	return model.ParseIDSet(raw), nil
}

func (s *Store) write(id model.DocID, key string, set model.IDSet) error {
	var err error
	if set.Len() == 0 {
		err = s.attrs.DeleteAttribute(id, key)
	} else {
		err = s.attrs.SetAttribute(id, key, set.String())
	}
	if err != nil {
		return fmt.Errorf("failed to write %s of %d: %w", key, id, err)
	}
	return nil
}

// edit applies a read-modify-write to one attribute and persists only when
// mutate reports a change.
func (s *Store) edit(id model.DocID, key string, mutate func(model.IDSet) bool) (bool, error) {
	set, err := s.read(id, key)
	if err != nil {
		return false, err
	}
	if !mutate(set) {
		return false, nil
	}
	if err := s.write(id, key, set); err != nil {
		return false, err
	}
	return true, nil
}
