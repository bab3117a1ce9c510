package graph

import (
	"fmt"
	"sort"

	"github.com/aidanlsb/wlh/internal/model"
)

// Which half of an edge is missing.
const (
	MissingInbound  = "inbound"
	MissingOutbound = "outbound"
)

// Inconsistency is an edge recorded in only one direction.
//
// With Missing == MissingInbound, Target is in the outbound set of Source but
// Source is absent from the inbound set of Target. MissingOutbound is the
// mirror case.
type Inconsistency struct {
	Source  model.DocID `json:"source"`
	Target  model.DocID `json:"target"`
	Missing string      `json:"missing"`
}

func (i Inconsistency) String() string {
	if i.Missing == MissingInbound {
		return fmt.Sprintf("%d links to %d but is not in its inbound set", i.Source, i.Target)
	}
	return fmt.Sprintf("%d lists %d as inbound but %d does not link to it", i.Target, i.Source, i.Source)
}

// Involved returns every document taking part in one of the inconsistencies.
func Involved(found []Inconsistency) []model.DocID {
	set := model.NewIDSet()
	for _, inc := range found {
		set.Add(inc.Source)
		set.Add(inc.Target)
	}
	return set.Slice()
}

// Verify checks both directions of every edge stored on the given documents.
// The report is sorted by source, then target.
func (r *Reconciler) Verify(ids []model.DocID) ([]Inconsistency, error) {
	seen := make(map[Inconsistency]struct{})
	var found []Inconsistency
	report := func(inc Inconsistency) {
		if _, dup := seen[inc]; dup {
			return
		}
		seen[inc] = struct{}{}
		found = append(found, inc)
	}

	for _, id := range model.NewIDSet(ids...).Slice() {
		outbound, err := r.store.Outbound(id)
		if err != nil {
			return nil, err
		}
		for _, t := range outbound.Slice() {
			in, err := r.store.Inbound(t)
			if err != nil {
				return nil, err
			}
			if !in.Contains(id) {
				report(Inconsistency{Source: id, Target: t, Missing: MissingInbound})
			}
		}

		inbound, err := r.store.Inbound(id)
		if err != nil {
			return nil, err
		}
		for _, s := range inbound.Slice() {
			out, err := r.store.Outbound(s)
			if err != nil {
				return nil, err
			}
			if !out.Contains(id) {
				report(Inconsistency{Source: s, Target: id, Missing: MissingOutbound})
			}
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].Source != found[j].Source {
			return found[i].Source < found[j].Source
		}
		return found[i].Target < found[j].Target
	})
	return found, nil
}
