// Package engine wires the link extractor, resolver, reconciler and work
// queue into the entry points a host calls: document saved, document
// deleted, scheduler tick, and the "what links here" queries.
//
// The engine keeps no state of its own beyond its collaborators. Calls must
// be serialized by the host; see Serialized.
package engine

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/aidanlsb/wlh/internal/extract"
	"github.com/aidanlsb/wlh/internal/graph"
	"github.com/aidanlsb/wlh/internal/hooks"
	"github.com/aidanlsb/wlh/internal/links"
	"github.com/aidanlsb/wlh/internal/logger"
	"github.com/aidanlsb/wlh/internal/metrics"
	"github.com/aidanlsb/wlh/internal/model"
	"github.com/aidanlsb/wlh/internal/queue"
	"github.com/aidanlsb/wlh/internal/resolver"
)

// Version is the schema version written to OptionDBVersion on install.
const Version = "1.1.0"

// Well-known global option keys and the schedule name.
const (
	OptionDBVersion = "wlh_db_version"
	OptionInstall   = "wlh_install"
	OptionUninstall = "wlh_uninstall"
	ScheduleName    = "wlh_cron_job"
)

// DefaultInterval is the drain interval used when Config.Interval is zero.
const DefaultInterval = 7200 * time.Second

// DefaultPostTypes is the allow-list used when Config.PostTypes is empty.
var DefaultPostTypes = []string{"post", "page"}

// ErrNotInstalled is returned by RequireInstalled when no version marker is
// stored.
var ErrNotInstalled = errors.New("link index is not installed")

// Documents is the document store.
type Documents interface {
	// GetDocument returns the document, or nil, nil when it does not exist.
	GetDocument(id model.DocID) (*model.Document, error)
	URLToDocumentID(u *url.URL) (model.DocID, bool)
}

// Attributes is per-document key/value storage.
type Attributes interface {
	GetAttribute(id model.DocID, key string) (string, bool, error)
	SetAttribute(id model.DocID, key, value string) error
	DeleteAttribute(id model.DocID, key string) error
}

// Options is global key/value storage.
type Options interface {
	GetOption(key string) (string, bool, error)
	SetOption(key, value string) error
	// AddOption stores value only when key is absent.
	AddOption(key, value string) (bool, error)
	DeleteOption(key string) error
}

// Scheduler registers the periodic drain.
type Scheduler interface {
	Schedule(name string, interval time.Duration) error
	Unschedule(name string) error
	Scheduled(name string) (bool, error)
}

// Config holds everything New needs.
type Config struct {
	// BaseURL is the address the corpus is served from. Only links under it
	// are tracked.
	BaseURL string

	PostTypes     []string
	Interval      time.Duration
	AllowRelative bool
	Linkify       bool

	Documents  Documents
	Attributes Attributes
	Options    Options
	// Scheduler may be nil when the host triggers drains itself.
	Scheduler Scheduler

	Hooks   *hooks.Hooks
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Validate checks that the required collaborators are present.
func (c Config) Validate() error {
	switch {
	case c.Documents == nil:
		return fmt.Errorf("engine config: document store is required")
	case c.Attributes == nil:
		return fmt.Errorf("engine config: attribute store is required")
	case c.Options == nil:
		return fmt.Errorf("engine config: option store is required")
	case c.Interval < 0:
		return fmt.Errorf("engine config: interval must not be negative")
	}
	if _, err := resolver.ParseBase(c.BaseURL); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	return nil
}

// Engine is the link index.
type Engine struct {
	docs      Documents
	opts      Options
	sched     Scheduler
	hooks     *hooks.Hooks
	log       *logger.Logger
	metrics   *metrics.Metrics
	postTypes []string
	interval  time.Duration

	extractor *extract.Extractor
	resolver  *resolver.Resolver
	store     *links.Store
	graph     *graph.Reconciler
	queue     *queue.Queue
}

// New builds an Engine from cfg.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.OrNop(cfg.Logger)
	res, err := resolver.New(cfg.Hooks.ApplyCheckLink(cfg.BaseURL), cfg.Documents,
		resolver.Options{AllowRelative: cfg.AllowRelative})
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	e := &Engine{
		docs:      cfg.Documents,
		opts:      cfg.Options,
		sched:     cfg.Scheduler,
		hooks:     cfg.Hooks,
		log:       log,
		metrics:   cfg.Metrics,
		postTypes: slices.Clone(cfg.PostTypes),
		interval:  cfg.Interval,
		extractor: extract.New(extract.Options{Linkify: cfg.Linkify}),
		resolver:  res,
	}
	if len(e.postTypes) == 0 {
		e.postTypes = slices.Clone(DefaultPostTypes)
	}
	if e.interval == 0 {
		e.interval = DefaultInterval
	}

	e.store = links.NewStore(cfg.Attributes)
	e.graph = graph.New(e.store, cfg.Hooks, log)
	e.queue = queue.New(queue.Config{
		Options:  cfg.Options,
		Validate: e.Valid,
		Hooks:    cfg.Hooks,
		Logger:   log,
		Metrics:  cfg.Metrics,
	})
	return e, nil
}

// Interval returns the drain interval.
func (e *Engine) Interval() time.Duration { return e.interval }

// PostTypes returns the document types that participate in the graph.
func (e *Engine) PostTypes() []string {
	return e.hooks.ApplyPostTypes(slices.Clone(e.postTypes))
}

// Valid reports whether id names a published, allow-listed document that is
// not a revision.
func (e *Engine) Valid(id model.DocID) (bool, error) {
	doc, err := e.document(id)
	if err != nil || doc == nil {
		return false, err
	}
	return e.participates(doc), nil
}

func (e *Engine) participates(doc *model.Document) bool {
	if doc.Revision || !doc.IsPublished() {
		return false
	}
	return slices.Contains(e.PostTypes(), doc.DocumentType())
}

func (e *Engine) document(id model.DocID) (*model.Document, error) {
	if !id.Valid() {
		return nil, nil
	}
	doc, err := e.docs.GetDocument(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %d: %w", id, err)
	}
	return doc, nil
}

// DocumentSaved queues id for the next drain. Reports whether it was queued;
// invalid and already queued documents are not.
func (e *Engine) DocumentSaved(id model.DocID) (bool, error) {
	return e.queue.Enqueue(id)
}

// DocumentDeleted drops id from the queue and removes all of its edges.
// Call it before the document store forgets the document.
func (e *Engine) DocumentDeleted(id model.DocID) (graph.Result, error) {
	if _, err := e.queue.Remove(id); err != nil {
		return graph.Result{}, err
	}
	res, err := e.graph.Delete(id)
	if err != nil {
		e.metrics.ObserveReconcile(metrics.ResultFailed)
		return graph.Result{}, err
	}
	e.metrics.ObserveReconcile(metrics.ResultDeleted)
	e.log.Info("removed deleted document from link graph", "doc_id", id, "removed", len(res.Removed))
	return res, nil
}

// Outcome describes the processing of one document.
type Outcome struct {
	graph.Result

	// Skipped is set when the document failed validation; no edge was touched.
	Skipped bool `json:"skipped,omitempty"`

	// References counts the raw links found in the body.
	References int `json:"references"`

	// Rejected counts dropped references by reason.
	Rejected map[resolver.Rejection]int `json:"rejected,omitempty"`
}

// Process reconciles id now: extract, resolve, reconcile. A document that
// fails validation is skipped and keeps its edges.
func (e *Engine) Process(id model.DocID) (Outcome, error) {
	out := Outcome{Result: graph.Result{DocID: id}}

	doc, err := e.document(id)
	if err != nil {
		e.metrics.ObserveReconcile(metrics.ResultFailed)
		return out, err
	}
	if doc == nil || !e.participates(doc) {
		out.Skipped = true
		e.metrics.ObserveReconcile(metrics.ResultSkipped)
		e.log.Debug("skipping document", "doc_id", id)
		return out, nil
	}

	body := e.hooks.ApplyContent(id, doc.Body)
	raw := e.hooks.ApplyLinks(id, e.extractor.Extract(body, doc.BodyFormat()))
	out.References = len(raw)

	targets := model.NewIDSet()
	for _, ref := range raw {
		r := e.resolver.ResolveDetailed(ref)
		e.metrics.ObserveReference(string(r.Rejection))
		if !r.OK() {
			if out.Rejected == nil {
				out.Rejected = make(map[resolver.Rejection]int)
			}
			out.Rejected[r.Rejection]++
			e.log.Debug("dropped reference", "doc_id", id, "href", ref, "reason", string(r.Rejection))
			continue
		}
		targets.Add(r.ID)
	}
	targets = e.hooks.ApplyTargets(id, targets)

	res, err := e.graph.Update(id, targets)
	if err != nil {
		e.metrics.ObserveReconcile(metrics.ResultFailed)
		return out, err
	}
	out.Result = res
	e.metrics.ObserveReconcile(metrics.ResultUpdated)
	return out, nil
}

// Drain processes every queued document and empties the queue.
func (e *Engine) Drain() (queue.DrainReport, error) {
	return e.queue.Drain(func(id model.DocID) error {
		_, err := e.Process(id)
		return err
	})
}

// Pending returns the queued document ids.
func (e *Engine) Pending() ([]model.DocID, error) {
	return e.queue.Pending()
}

// LinkingHere returns the documents linking to id. A missing document has
// no inbound links.
func (e *Engine) LinkingHere(id model.DocID) ([]model.DocID, error) {
	doc, err := e.document(id)
	if err != nil || doc == nil {
		return []model.DocID{}, err
	}
	set, err := e.store.Inbound(id)
	if err != nil {
		return nil, err
	}
	return e.hooks.ApplyFilterInbound(id, set.Slice()), nil
}

// LinkingTo returns the documents id links to.
func (e *Engine) LinkingTo(id model.DocID) ([]model.DocID, error) {
	doc, err := e.document(id)
	if err != nil || doc == nil {
		return []model.DocID{}, err
	}
	set, err := e.store.Outbound(id)
	if err != nil {
		return nil, err
	}
	return e.hooks.ApplyFilterOutbound(id, set.Slice()), nil
}

// LinkingHereDocuments returns the published, allow-listed documents
// linking to id.
func (e *Engine) LinkingHereDocuments(id model.DocID) ([]*model.Document, error) {
	ids, err := e.LinkingHere(id)
	if err != nil {
		return nil, err
	}
	return e.Documents(ids)
}

// Documents loads the given documents, keeping only those that are
// published and of an allowed type.
func (e *Engine) Documents(ids []model.DocID) ([]*model.Document, error) {
	types := e.PostTypes()
	docs := make([]*model.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := e.document(id)
		if err != nil {
			return nil, err
		}
		if doc == nil || !doc.IsPublished() || !slices.Contains(types, doc.DocumentType()) {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Verify reports edges stored in only one direction among ids.
func (e *Engine) Verify(ids []model.DocID) ([]graph.Inconsistency, error) {
	return e.graph.Verify(ids)
}

// Repair fixes the edges reported by Verify. Outbound sets are
// authoritative: a missing inbound entry is restored and an inbound entry
// without a matching outbound edge is dropped. Every involved document is
// then queued so the next drain rewrites its edges; involved documents that
// no longer exist have their edges removed right away. Returns the ids
// queued.
func (e *Engine) Repair(found []graph.Inconsistency) ([]model.DocID, error) {
	for _, inc := range found {
		var err error
		switch inc.Missing {
		case graph.MissingInbound:
			_, err = e.store.AddInbound(inc.Target, inc.Source)
		case graph.MissingOutbound:
			_, err = e.store.RemoveInbound(inc.Target, inc.Source)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update inbound set of %d: %w", inc.Target, err)
		}
	}

	queued := []model.DocID{}
	for _, id := range graph.Involved(found) {
		doc, err := e.document(id)
		if err != nil {
			return queued, err
		}
		if doc == nil {
			if _, err := e.graph.Delete(id); err != nil {
				return queued, err
			}
			continue
		}
		ok, err := e.queue.Enqueue(id)
		if err != nil {
			return queued, err
		}
		if ok {
			queued = append(queued, id)
		}
	}
	return queued, nil
}
