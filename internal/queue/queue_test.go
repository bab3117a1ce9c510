package queue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aidanlsb/wlh/internal/hooks"
	"github.com/aidanlsb/wlh/internal/index"
	"github.com/aidanlsb/wlh/internal/logger"
	"github.com/aidanlsb/wlh/internal/model"
)

func openQueue(t *testing.T, validate Validator, h *hooks.Hooks) (*Queue, *index.Database) {
	t.Helper()
	db, err := index.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(Config{Options: db, Validate: validate, Hooks: h}), db
}

func allow(model.DocID) (bool, error) { return true, nil }

func TestEnqueueDedup(t *testing.T) {
	q, db := openQueue(t, allow, nil)

	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(7)
		require.NoError(t, err)
	}
	added, err := q.Enqueue(3)
	require.NoError(t, err)
	assert.True(t, added)

	pending, err := q.Pending()
	require.NoError(t, err)
	assert.Equal(t, []model.DocID{7, 3}, pending)

	raw, ok, err := db.GetOption(OptionKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "7,3", raw)
}

func TestEnqueueSkipsInvalidDocuments(t *testing.T) {
	validate := func(id model.DocID) (bool, error) { return id != 4, nil }
	q, _ := openQueue(t, validate, nil)

	added, err := q.Enqueue(4)
	require.NoError(t, err)
	assert.False(t, added)

	pending, err := q.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestEnqueueValidatorError(t *testing.T) {
	boom := errors.New("store offline")
	q, _ := openQueue(t, func(model.DocID) (bool, error) { return false, boom }, nil)

	_, err := q.Enqueue(1)
	assert.ErrorIs(t, err, boom)
}

func TestRemove(t *testing.T) {
	q, _ := openQueue(t, allow, nil)
	for _, id := range []model.DocID{1, 2, 3} {
		_, err := q.Enqueue(id)
		require.NoError(t, err)
	}

	removed, err := q.Remove(2)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = q.Remove(2)
	require.NoError(t, err)
	assert.False(t, removed, "second removal is a no-op")

	pending, err := q.Pending()
	require.NoError(t, err)
	assert.Equal(t, []model.DocID{1, 3}, pending)
}

func TestQueueHooks(t *testing.T) {
	var drained []model.DocID
	h := &hooks.Hooks{
		// Keep 99 queued whenever anything is added.
		QueueAdd: func(queue []model.DocID, id model.DocID) []model.DocID {
			return append(queue, 99)
		},
		QueueRemove: func(queue []model.DocID, id model.DocID) []model.DocID {
			return append(queue, id+100)
		},
		Drained: func(batch []model.DocID) { drained = batch },
	}
	q, _ := openQueue(t, allow, h)

	_, err := q.Enqueue(1)
	require.NoError(t, err)
	pending, _ := q.Pending()
	assert.Equal(t, []model.DocID{1, 99}, pending)

	_, err = q.Remove(1)
	require.NoError(t, err)
	pending, _ = q.Pending()
	assert.Equal(t, []model.DocID{99, 101}, pending)

	_, err = q.Drain(func(model.DocID) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, []model.DocID{99, 101}, drained)
}

func TestDrainClearsRegardlessOfFailures(t *testing.T) {
	q, db := openQueue(t, allow, nil)
	for _, id := range []model.DocID{1, 2, 3, 4} {
		_, err := q.Enqueue(id)
		require.NoError(t, err)
	}

	var seen []model.DocID
	report, err := q.Drain(func(id model.DocID) error {
		seen = append(seen, id)
		switch id {
		case 2:
			return errors.New("write failed")
		case 3:
			panic("corrupt body")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []model.DocID{1, 2, 3, 4}, seen, "every member is attempted")
	assert.Equal(t, []model.DocID{1, 2, 3, 4}, report.Batch)
	assert.Equal(t, []model.DocID{2, 3}, report.FailedIDs())
	assert.Contains(t, report.Failed[3].Error(), "corrupt body")
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", report.RunID.String())

	pending, err := q.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	raw, ok, err := db.GetOption(OptionKey)
	require.NoError(t, err)
	assert.True(t, ok, "queue option is kept as an empty list")
	assert.Equal(t, "", raw)
}

func TestDrainEmptyQueueIsNoop(t *testing.T) {
	q, db := openQueue(t, allow, nil)

	called := false
	report, err := q.Drain(func(model.DocID) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Empty(t, report.Batch)

	_, ok, err := db.GetOption(OptionKey)
	require.NoError(t, err)
	assert.False(t, ok, "nothing is written for an empty queue")
}

func TestDrainIsAtMostOncePerTick(t *testing.T) {
	q, _ := openQueue(t, allow, nil)
	_, err := q.Enqueue(8)
	require.NoError(t, err)

	count := 0
	process := func(model.DocID) error {
		count++
		return errors.New("transient")
	}
	_, err = q.Drain(process)
	require.NoError(t, err)
	_, err = q.Drain(process)
	require.NoError(t, err)

	assert.Equal(t, 1, count, "a failed item is not retried by the next drain")
}

func TestDrainLogsOnceWithRunID(t *testing.T) {
	db, err := index.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	core, logs := observer.New(zap.InfoLevel)
	q := New(Config{
		Options:  db,
		Validate: allow,
		Logger:   &logger.Logger{SugaredLogger: zap.New(core).Sugar()},
	})

	_, err = q.Enqueue(4)
	require.NoError(t, err)
	report, err := q.Drain(func(model.DocID) error { return nil })
	require.NoError(t, err)

	drained := logs.FilterMessage("drained queue").All()
	require.Len(t, drained, 1)
	fields := drained[0].ContextMap()
	assert.Equal(t, report.RunID.String(), fields["run_id"])
	assert.Equal(t, int64(1), fields["batch"])
}
