package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/jobs"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/store"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestUpsertSummariesIsolatesRowFailures(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	batch := []jobs.Summary{
		{Link: "https://jobs.okky.kr/recruits/1", Title: "백엔드 개발자", Company: "에이사"},
		{Link: "https://jobs.okky.kr/recruits/2", Title: "프론트엔드 개발자", Company: "비사"},
		{Link: "https://jobs.okky.kr/recruits/3", Title: "데이터 엔지니어", Company: "씨사"},
	}

	upsertRe := regexp.QuoteMeta("INSERT INTO okky_jobs")
	mock.ExpectExec(upsertRe).
		WithArgs(batch[0].Link, batch[0].Title, batch[0].Company, "", "", "", "", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(upsertRe).
		WithArgs(batch[1].Link, batch[1].Title, batch[1].Company, "", "", "", "", "", "").
		WillReturnError(errors.New("value too long"))
	mock.ExpectExec(upsertRe).
		WithArgs(batch[2].Link, batch[2].Title, batch[2].Company, "", "", "", "", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res, err := NewJobStore(mock).UpsertSummaries(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Saved)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, batch[1].Link, res.Failed[0].Link)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSummariesRejectsMissingLink(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	res, err := NewJobStore(mock).UpsertSummaries(context.Background(), []jobs.Summary{{Title: "no link"}})
	require.NoError(t, err)
	assert.Zero(t, res.Saved)
	require.Len(t, res.Failed, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertContactSkipsEmpty(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	id, err := NewJobStore(mock).UpsertContact(context.Background(), jobs.Contact{})
	require.NoError(t, err)
	assert.Nil(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertContactDedupsOnTuple(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	c := jobs.Contact{Name: "김담당", Phone: "010-1234-5678", Email: "hr@example.com"}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO okky_job_contacts")).
		WithArgs(c.Name, c.Phone, c.Email).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := NewJobStore(mock).UpsertContact(context.Background(), c)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(7), *id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertDetail(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	d := jobs.Detail{
		Link:        "https://jobs.okky.kr/recruits/1",
		ViewCount:   120,
		Skill:       "Go, PostgreSQL",
		Description: "계약직 백엔드 포지션",
	}
	contactID := int64(7)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO okky_job_details")).
		WithArgs(d.Link, "", d.ViewCount, "", "", "", d.Skill, d.Description, &contactID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := NewJobStore(mock).UpsertDetail(context.Background(), d, &contactID)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	mock.ExpectQuery("SELECT .+ FROM okky_jobs j").
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	_, err := NewJobStore(mock).GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementViews(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE okky_job_details")).
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := NewJobStore(mock).IncrementViews(context.Background(), 42)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadlineStrings(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, []string{"01/30"}, deadlineStrings(jobs.DeadlineToday, now))
	assert.Equal(t,
		[]string{"01/30", "01/31", "02/01", "02/02"},
		deadlineStrings(jobs.DeadlineThreeDay, now))
	assert.Len(t, deadlineStrings(jobs.DeadlineOneMonth, now), 31)
}

func TestBuildSearchFilter(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)

	where, args := buildSearchFilter(jobs.SearchQuery{}, now)
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = buildSearchFilter(jobs.SearchQuery{
		Keyword:    "백엔드",
		Category:   "정규직",
		Experience: "3년차",
	}, now)
	assert.Contains(t, where, "j.title ILIKE $1 OR j.company ILIKE $1")
	assert.Contains(t, where, "j.category = $2")
	assert.Contains(t, where, "j.career = $3")
	assert.Equal(t, []any{"%백엔드%", "정규직", "3년차"}, args)
}
