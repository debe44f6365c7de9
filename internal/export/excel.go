// Package export renders stored job rows as spreadsheet downloads.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/jobs"
)

const sheetName = "채용공고"

var headers = []string{
	"ID", "회사명", "제목", "카테고리", "지역", "경력", "마감일", "조회수",
	"등록일", "근무시작일", "근무지역", "급여지급일", "보유스킬", "상세내용",
	"담당자", "연락처", "이메일", "원본링크",
}

// Filename returns the timestamped download name for an export generated at
// now.
func Filename(now time.Time) string {
	return fmt.Sprintf("okky_jobs_%s.xlsx", now.Format("20060102_150405"))
}

// WriteXLSX streams rows as a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []jobs.DetailRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("name export sheet: %w", err)
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}

	for i, r := range rows {
		var name, phone, email string
		if r.Contact != nil {
			name, phone, email = r.Contact.Name, r.Contact.Phone, r.Contact.Email
		}
		cells := []any{
			r.ID, r.Company, r.Title, r.Category, r.Location, r.Experience,
			r.Deadline, r.Views, r.RegisteredAt, r.StartDate, r.WorkLocation,
			r.PayDate, r.Skill, r.Description, name, phone, email, r.Link,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("address export row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return fmt.Errorf("write export row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("stream workbook: %w", err)
	}
	return nil
}
