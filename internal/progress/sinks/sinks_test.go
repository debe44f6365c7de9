package sinks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/progress"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/store"
)

func progressEvent(kind progress.Kind, msg string, percent int) progress.Event {
	return progress.Event{RunID: 1, Kind: kind, Message: msg, Percent: percent, TS: time.Now()}
}

func TestMemorySinkBoundsTail(t *testing.T) {
	t.Parallel()
	sink := NewMemorySink(3)

	var batch []progress.Event
	for i := 1; i <= 5; i++ {
		batch = append(batch, progressEvent(progress.KindInfo, fmt.Sprintf("event %d", i), 0))
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	tail := sink.Tail()
	require.Len(t, tail, 3)
	assert.Equal(t, "event 3", tail[0].Message)
	assert.Equal(t, "event 5", tail[2].Message)
}

func TestMemorySinkTracksPercentAndResets(t *testing.T) {
	t.Parallel()
	sink := NewMemorySink(10)
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		progressEvent(progress.KindProgress, "1/4 페이지", 25),
		progressEvent(progress.KindSuccess, "저장 완료", 0),
		progressEvent(progress.KindProgress, "2/4 페이지", 50),
	}))
	assert.Equal(t, 50, sink.CurrentPercent())

	sink.Reset()
	assert.Zero(t, sink.CurrentPercent())
	assert.Empty(t, sink.Tail())
}

type recordingLogRepo struct {
	batches [][]store.LogRecord
	err     error
}

func (r *recordingLogRepo) Append(_ context.Context, batch []store.LogRecord) error {
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, batch)
	return nil
}

func (r *recordingLogRepo) Recent(context.Context, int) ([]store.LogRecord, error) {
	return nil, nil
}

func TestStoreSinkPersistsBatch(t *testing.T) {
	t.Parallel()
	repo := &recordingLogRepo{}
	sink := NewStoreSink(repo)

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		progressEvent(progress.KindProgress, "3/4 페이지", 75),
		progressEvent(progress.KindError, "로딩 시간 초과", 0),
	}))

	require.Len(t, repo.batches, 1)
	recs := repo.batches[0]
	require.Len(t, recs, 2)

	// progress percent survives only on progress-kind records
	require.NotNil(t, recs[0].Progress)
	assert.Equal(t, int32(75), *recs[0].Progress)
	assert.Nil(t, recs[1].Progress)
	assert.Equal(t, "error", recs[1].Kind)
}

func TestStoreSinkSurfacesRepoErrors(t *testing.T) {
	t.Parallel()
	repo := &recordingLogRepo{err: fmt.Errorf("connection reset")}
	sink := NewStoreSink(repo)

	err := sink.Consume(context.Background(), []progress.Event{
		progressEvent(progress.KindInfo, "msg", 0),
	})
	assert.Error(t, err)
}
