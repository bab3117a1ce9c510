// Package hooks defines the extension points of the link index.
//
// Every hook is optional. A nil hook leaves the value it would filter
// unchanged, so the zero Hooks value is a valid configuration.
package hooks

import "github.com/aidanlsb/wlh/internal/model"

// ReconcileResult is passed to the Reconciled hook after a document's edges
// were updated or removed.
type ReconcileResult struct {
	DocID   model.DocID
	Targets []model.DocID
	Added   []model.DocID
	Removed []model.DocID
	Deleted bool
}

// Hooks groups the callbacks invoked by the engine at fixed points.
type Hooks struct {
	// PostTypes overrides the allow-list of document types.
	PostTypes func(types []string) []string

	// Content filters a document body before link extraction.
	Content func(id model.DocID, body string) string

	// Links filters the raw references found in a body, after extraction.
	Links func(id model.DocID, links []string) []string

	// CheckLink overrides the base address internal links must match.
	CheckLink func(base string) string

	// Targets filters the resolved outbound set before it is persisted.
	Targets func(id model.DocID, targets model.IDSet) model.IDSet

	// Reconciled observes the outcome of a reconciliation pass.
	Reconciled func(result ReconcileResult)

	// QueueAdd and QueueRemove filter the pending queue contents before they
	// are persisted.
	QueueAdd    func(queue []model.DocID, id model.DocID) []model.DocID
	QueueRemove func(queue []model.DocID, id model.DocID) []model.DocID

	// Drained observes the batch processed by a queue drain.
	Drained func(batch []model.DocID)

	// FilterInbound and FilterOutbound filter the public query results.
	FilterInbound  func(id model.DocID, ids []model.DocID) []model.DocID
	FilterOutbound func(id model.DocID, ids []model.DocID) []model.DocID

	// ListOpen, ListItem and ListClose filter the pieces of a rendered list;
	// id is the document being described. ListOutput filters the whole list.
	ListOpen   func(markup string, id model.DocID) string
	ListItem   func(markup string, doc *model.Document) string
	ListClose  func(markup string, id model.DocID) string
	ListOutput func(markup string) string
}

func (h *Hooks) ApplyPostTypes(types []string) []string {
	if h == nil || h.PostTypes == nil {
		return types
	}
	return h.PostTypes(types)
}

func (h *Hooks) ApplyContent(id model.DocID, body string) string {
	if h == nil || h.Content == nil {
		return body
	}
	return h.Content(id, body)
}

func (h *Hooks) ApplyLinks(id model.DocID, links []string) []string {
	if h == nil || h.Links == nil {
		return links
	}
	return h.Links(id, links)
}

func (h *Hooks) ApplyCheckLink(base string) string {
	if h == nil || h.CheckLink == nil {
		return base
	}
	return h.CheckLink(base)
}

// ApplyTargets runs the Targets hook. A nil result from the hook is treated
// as an empty set.
func (h *Hooks) ApplyTargets(id model.DocID, targets model.IDSet) model.IDSet {
	if h == nil || h.Targets == nil {
		return targets
	}
	out := h.Targets(id, targets.Clone())
	if out == nil {
		return model.NewIDSet()
	}
	return out
}

func (h *Hooks) NotifyReconciled(result ReconcileResult) {
	if h == nil || h.Reconciled == nil {
		return
	}
	h.Reconciled(result)
}

func (h *Hooks) ApplyQueueAdd(queue []model.DocID, id model.DocID) []model.DocID {
	if h == nil || h.QueueAdd == nil {
		return queue
	}
	return h.QueueAdd(queue, id)
}

func (h *Hooks) ApplyQueueRemove(queue []model.DocID, id model.DocID) []model.DocID {
	if h == nil || h.QueueRemove == nil {
		return queue
	}
	return h.QueueRemove(queue, id)
}

func (h *Hooks) NotifyDrained(batch []model.DocID) {
	if h == nil || h.Drained == nil {
		return
	}
	h.Drained(batch)
}

func (h *Hooks) ApplyFilterInbound(id model.DocID, ids []model.DocID) []model.DocID {
	if h == nil || h.FilterInbound == nil {
		return ids
	}
	return h.FilterInbound(id, ids)
}

func (h *Hooks) ApplyFilterOutbound(id model.DocID, ids []model.DocID) []model.DocID {
	if h == nil || h.FilterOutbound == nil {
		return ids
	}
	return h.FilterOutbound(id, ids)
}

func (h *Hooks) ApplyListOpen(markup string, id model.DocID) string {
	if h == nil || h.ListOpen == nil {
		return markup
	}
	return h.ListOpen(markup, id)
}

func (h *Hooks) ApplyListItem(markup string, doc *model.Document) string {
	if h == nil || h.ListItem == nil {
		return markup
	}
	return h.ListItem(markup, doc)
}

func (h *Hooks) ApplyListClose(markup string, id model.DocID) string {
	if h == nil || h.ListClose == nil {
		return markup
	}
	return h.ListClose(markup, id)
}

func (h *Hooks) ApplyListOutput(markup string) string {
	if h == nil || h.ListOutput == nil {
		return markup
	}
	return h.ListOutput(markup)
}
