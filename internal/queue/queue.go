// Package queue keeps the deduplicated list of documents waiting for
// reconciliation and drains it once per scheduler tick.
package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aidanlsb/wlh/internal/hooks"
	"github.com/aidanlsb/wlh/internal/logger"
	"github.com/aidanlsb/wlh/internal/metrics"
	"github.com/aidanlsb/wlh/internal/model"
)

// OptionKey is the global option holding the pending queue.
const OptionKey = "_wlh_cron_queue"

// Options is global key/value storage.
type Options interface {
	GetOption(key string) (string, bool, error)
	SetOption(key, value string) error
}

// Validator reports whether a document may be queued.
type Validator func(id model.DocID) (bool, error)

// Config holds the collaborators of a Queue.
type Config struct {
	Options  Options
	Validate Validator
	Hooks    *hooks.Hooks
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
}

// Queue is the pending work queue. Order of entries is insertion order, but
// nothing depends on it.
type Queue struct {
	opts     Options
	validate Validator
	hooks    *hooks.Hooks
	log      *logger.Logger
	metrics  *metrics.Metrics

	now func() time.Time
}

func New(cfg Config) *Queue {
	return &Queue{
		opts:     cfg.Options,
		validate: cfg.Validate,
		hooks:    cfg.Hooks,
		log:      logger.OrNop(cfg.Logger),
		metrics:  cfg.Metrics,
		now:      time.Now,
	}
}

// Pending returns the queued ids.
func (q *Queue) Pending() ([]model.DocID, error) {
	raw, _, err := q.opts.GetOption(OptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}
	return model.ParseIDList(raw), nil
}

// Enqueue adds id unless it is already queued or fails validation.
// Reports whether the queue changed.
func (q *Queue) Enqueue(id model.DocID) (bool, error) {
	if q.validate != nil {
		ok, err := q.validate(id)
		if err != nil {
			return false, err
		}
		if !ok {
			q.log.Debug("not queueing document", "doc_id", id)
			return false, nil
		}
	}

	pending, err := q.Pending()
	if err != nil {
		return false, err
	}
	if contains(pending, id) {
		return false, nil
	}

	pending = q.hooks.ApplyQueueAdd(append(pending, id), id)
	if err := q.store(pending); err != nil {
		return false, err
	}
	q.log.Debug("queued document", "doc_id", id, "pending", len(pending))
	return true, nil
}

// Remove drops id from the queue. Reports whether the queue changed.
func (q *Queue) Remove(id model.DocID) (bool, error) {
	pending, err := q.Pending()
	if err != nil {
		return false, err
	}
	idx := indexOf(pending, id)
	if idx < 0 {
		return false, nil
	}

	pending = append(pending[:idx:idx], pending[idx+1:]...)
	pending = q.hooks.ApplyQueueRemove(pending, id)
	if err := q.store(pending); err != nil {
		return false, err
	}
	q.log.Debug("dequeued document", "doc_id", id, "pending", len(pending))
	return true, nil
}

// DrainReport summarizes one drain.
type DrainReport struct {
	RunID    uuid.UUID             `json:"run_id"`
	Batch    []model.DocID         `json:"batch"`
	Failed   map[model.DocID]error `json:"-"`
	Duration time.Duration         `json:"duration"`
}

// FailedIDs returns the members whose processing failed, in batch order.
func (r DrainReport) FailedIDs() []model.DocID {
	out := make([]model.DocID, 0, len(r.Failed))
	for _, id := range r.Batch {
		if _, ok := r.Failed[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Drain hands every queued id to process, then empties the queue.
//
// The batch is read once. An error or panic from process is recorded in the
// report and the loop moves on; the queue is cleared regardless, so a failed
// document waits until it changes again. An empty queue writes nothing.
func (q *Queue) Drain(process func(model.DocID) error) (DrainReport, error) {
	report := DrainReport{
		RunID:  uuid.New(),
		Failed: make(map[model.DocID]error),
	}
	start := q.now()

	batch, err := q.Pending()
	if err != nil {
		return report, err
	}
	report.Batch = batch
	if len(batch) == 0 {
		return report, nil
	}

	log := q.log.With("run_id", report.RunID.String())
	log.Info("draining queue", "batch", len(batch))

	for _, id := range batch {
		if err := safeProcess(process, id); err != nil {
			report.Failed[id] = err
			log.Warn("failed to process document", "doc_id", id, "error", err)
		}
	}

	q.hooks.NotifyDrained(batch)

	clearErr := q.store(nil)
	report.Duration = q.now().Sub(start)
	q.metrics.ObserveDrain(len(batch), len(report.Failed), report.Duration)
	if clearErr != nil {
		return report, clearErr
	}

	log.Info("drained queue", "batch", len(batch), "failed", len(report.Failed), "duration", report.Duration)
	return report, nil
}

func safeProcess(process func(model.DocID) error, id model.DocID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing %d: %v", id, r)
		}
	}()
	return process(id)
}

func (q *Queue) store(pending []model.DocID) error {
	value := model.FormatIDList(pending)
	if err := q.opts.SetOption(OptionKey, value); err != nil {
		return fmt.Errorf("failed to write queue: %w", err)
	}
	q.metrics.SetQueueDepth(len(model.ParseIDList(value)))
	return nil
}

func contains(ids []model.DocID, id model.DocID) bool {
	return indexOf(ids, id) >= 0
}

func indexOf(ids []model.DocID, id model.DocID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
