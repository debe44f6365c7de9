package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/jobs"
)

func TestFilename(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 30, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "okky_jobs_20260830_140509.xlsx", Filename(now))
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()
	rows := []jobs.DetailRow{
		{
			SearchRow: jobs.SearchRow{
				ID: 1, Company: "에이사", Title: "백엔드 개발자",
				Link: "https://jobs.okky.kr/recruits/1",
			},
			Skill:   "Go, PostgreSQL",
			Contact: &jobs.Contact{Name: "김담당", Email: "hr@example.com"},
		},
		{
			SearchRow: jobs.SearchRow{ID: 2, Company: "비사", Title: "프론트엔드 개발자"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "회사명", got[0][1])
	assert.Equal(t, "에이사", got[1][1])
	assert.Equal(t, "김담당", got[1][14])
	assert.Equal(t, "비사", got[2][1])
}
