package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/store"
)

func TestLogStoreAppendPreservesOrder(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	ts := time.Now()
	pct := int32(25)
	batch := []store.LogRecord{
		{Kind: "info", Message: "크롤링을 시작합니다", TS: ts},
		{Kind: "progress", Message: "1/4 페이지 수집 중", TS: ts, Progress: &pct},
	}

	insertRe := regexp.QuoteMeta("INSERT INTO crawl_logs")
	mock.ExpectExec(insertRe).
		WithArgs(batch[0].Kind, batch[0].Message, ts, (*int32)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(insertRe).
		WithArgs(batch[1].Kind, batch[1].Message, ts, &pct).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewLogStore(mock).Append(context.Background(), batch))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogStoreRecent(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	now := time.Now()
	mock.ExpectQuery("SELECT .+ FROM crawl_logs").
		WithArgs(2).
		WillReturnRows(pgxmock.
			NewRows([]string{"id", "kind", "message", "ts", "progress"}).
			AddRow(int64(9), "success", "크롤링 완료", now, nil).
			AddRow(int64(8), "progress", "4/4 페이지 수집 중", now.Add(-time.Second), nil))

	logs, err := NewLogStore(mock).Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, int64(9), logs[0].ID)
	assert.Equal(t, "success", logs[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}
