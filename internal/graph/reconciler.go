// Package graph applies outbound link changes to the adjacency store while
// keeping both directions of every edge in agreement.
package graph

import (
	"fmt"

	"github.com/aidanlsb/wlh/internal/hooks"
	"github.com/aidanlsb/wlh/internal/links"
	"github.com/aidanlsb/wlh/internal/logger"
	"github.com/aidanlsb/wlh/internal/model"
)

// Result describes the edits made by one reconciliation pass.
type Result struct {
	DocID model.DocID `json:"id"`

	// Targets is the new outbound set. Empty after Delete.
	Targets []model.DocID `json:"targets"`

	// Added and Removed are the outbound edges gained and lost.
	Added   []model.DocID `json:"added"`
	Removed []model.DocID `json:"removed"`

	Deleted bool `json:"deleted,omitempty"`
}

// Changed reports whether the pass added or removed any edge.
func (r Result) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

func (r Result) hookResult() hooks.ReconcileResult {
	return hooks.ReconcileResult{
		DocID:   r.DocID,
		Targets: r.Targets,
		Added:   r.Added,
		Removed: r.Removed,
		Deleted: r.Deleted,
	}
}

// Reconciler diffs outbound sets and applies the minimal inbound edits.
//
// It performs plain read-modify-write on each attribute with no transaction
// spanning them. Calls must be serialized by the caller.
type Reconciler struct {
	store *links.Store
	hooks *hooks.Hooks
	log   *logger.Logger
}

// New creates a Reconciler. h and log may be nil.
func New(store *links.Store, h *hooks.Hooks, log *logger.Logger) *Reconciler {
	return &Reconciler{store: store, hooks: h, log: logger.OrNop(log)}
}

// Update makes targets the outbound set of id.
//
// Inbound edges are removed from documents id no longer links to and added
// (idempotently) to every target, then the outbound set is replaced. An
// empty targets set clears every edge id owns. The first storage error
// aborts the pass.
func (r *Reconciler) Update(id model.DocID, targets model.IDSet) (Result, error) {
	if targets == nil {
		targets = model.NewIDSet()
	}

	previous, err := r.store.Outbound(id)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read outbound set of %d: %w", id, err)
	}
	removed := previous.Minus(targets)

	for _, t := range removed.Slice() {
		if _, err := r.store.RemoveInbound(t, id); err != nil {
			return Result{}, fmt.Errorf("failed to update inbound set of %d: %w", t, err)
		}
	}
	for _, t := range targets.Slice() {
		if _, err := r.store.AddInbound(t, id); err != nil {
			return Result{}, fmt.Errorf("failed to update inbound set of %d: %w", t, err)
		}
	}
	if err := r.store.SetOutbound(id, targets); err != nil {
		return Result{}, fmt.Errorf("failed to update outbound set of %d: %w", id, err)
	}

	res := Result{
		DocID:   id,
		Targets: targets.Slice(),
		Added:   targets.Minus(previous).Slice(),
		Removed: removed.Slice(),
	}
	r.log.Debug("reconciled document",
		"doc_id", id, "targets", len(res.Targets), "added", len(res.Added), "removed", len(res.Removed))
	r.hooks.NotifyReconciled(res.hookResult())
	return res, nil
}

// Delete removes every edge touching id: id leaves the inbound set of each
// document it linked to and the outbound set of each document linking to it.
// The two attributes of id itself are purged last.
func (r *Reconciler) Delete(id model.DocID) (Result, error) {
	outbound, err := r.store.Outbound(id)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read outbound set of %d: %w", id, err)
	}
	inbound, err := r.store.Inbound(id)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read inbound set of %d: %w", id, err)
	}

	for _, t := range outbound.Slice() {
		if _, err := r.store.RemoveInbound(t, id); err != nil {
			return Result{}, fmt.Errorf("failed to update inbound set of %d: %w", t, err)
		}
	}
	for _, s := range inbound.Slice() {
		if _, err := r.store.RemoveOutbound(s, id); err != nil {
			return Result{}, fmt.Errorf("failed to update outbound set of %d: %w", s, err)
		}
	}
	if err := r.store.Purge(id); err != nil {
		return Result{}, fmt.Errorf("failed to purge link sets of %d: %w", id, err)
	}

	res := Result{
		DocID:   id,
		Targets: []model.DocID{},
		Added:   []model.DocID{},
		Removed: outbound.Slice(),
		Deleted: true,
	}
	r.log.Debug("removed document edges",
		"doc_id", id, "outbound", outbound.Len(), "inbound", inbound.Len())
	r.hooks.NotifyReconciled(res.hookResult())
	return res, nil
}
