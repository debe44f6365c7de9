package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *collectSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	return nil
}

func (s *collectSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *collectSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func event(kind Kind, msg string, percent int) Event {
	return Event{RunID: 1, Kind: kind, Message: msg, Percent: percent, TS: time.Now()}
}

func TestHubDeliversAndDrainsOnClose(t *testing.T) {
	t.Parallel()
	sink := &collectSink{}
	hub := NewHub(Config{MaxBatchWait: 10 * time.Millisecond}, sink)

	hub.Emit(event(KindInfo, "크롤링을 시작합니다", 0))
	hub.Emit(event(KindProgress, "1/5 페이지 수집 중", 0))
	hub.Emit(event(KindSuccess, "완료", 0))

	require.NoError(t, hub.Close(context.Background()))

	got := sink.snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, KindInfo, got[0].Kind)
	assert.Equal(t, KindSuccess, got[2].Kind)
	assert.True(t, sink.closed)
}

func TestHubDiscardsInvalidEvents(t *testing.T) {
	t.Parallel()
	sink := &collectSink{}
	hub := NewHub(Config{}, sink)

	hub.Emit(Event{Kind: KindInfo})                         // no message, no ts
	hub.Emit(event(KindProgress, "over", 150))              // percent out of range
	hub.Emit(event(Kind("bogus"), "unknown kind", 0))       // unknown kind
	hub.Emit(event(KindWarning, "공고 저장 실패", 0)) // valid

	require.NoError(t, hub.Close(context.Background()))
	got := sink.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, KindWarning, got[0].Kind)
}

func TestHubEmitAfterCloseIsNoop(t *testing.T) {
	t.Parallel()
	sink := &collectSink{}
	hub := NewHub(Config{}, sink)
	require.NoError(t, hub.Close(context.Background()))

	hub.Emit(event(KindInfo, "too late", 0))
	assert.Empty(t, sink.snapshot())
}

func TestEventValidate(t *testing.T) {
	t.Parallel()
	valid := event(KindProgress, "halfway", 50)
	assert.NoError(t, valid.Validate())

	missingTS := Event{Kind: KindInfo, Message: "m"}
	assert.Error(t, missingTS.Validate())

	negative := event(KindProgress, "bad", -1)
	assert.Error(t, negative.Validate())

	// percent is ignored for non-progress kinds
	info := event(KindInfo, "fine", 400)
	assert.NoError(t, info.Validate())
}
