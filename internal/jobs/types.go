// Package jobs defines the core domain types shared across subsystems.
package jobs

import "time"

// Summary is a listing-page-level job entry. Link is the unique natural key;
// re-crawling the same link updates the stored row in place.
type Summary struct {
	Link     string `json:"link"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Deadline string `json:"deadline"`
	Category string `json:"category"`
	Position string `json:"position"`
	Location string `json:"location"`
	Career   string `json:"career"`
	Salary   string `json:"salary"`
}

// Detail is the item-page-level enrichment keyed by the same link as its
// Summary. Free-text fields default to "" when the source page omits them.
type Detail struct {
	Link         string `json:"link"`
	RegisteredAt string `json:"registered_at"`
	ViewCount    int64  `json:"view_count"`
	StartDate    string `json:"start_date"`
	WorkLocation string `json:"work_location"`
	PayDate      string `json:"pay_date"`
	Skill        string `json:"skill"`
	Description  string `json:"description"`
}

// Contact is deduplicated on the (Name, Phone, Email) tuple. A detail row
// without any contact information carries no Contact at all.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Empty reports whether all three contact fields are blank, in which case no
// contact row is persisted and the detail's contact reference stays NULL.
func (c Contact) Empty() bool {
	return c.Name == "" && c.Phone == "" && c.Email == ""
}

// SortKey selects the ordering of search results.
type SortKey string

// Supported search sort keys.
const (
	SortCreatedAt SortKey = "createdAt"
	SortCompany   SortKey = "company"
	SortDeadline  SortKey = "deadline"
	SortViews     SortKey = "views"
)

// DeadlineWindow filters listings whose deadline falls within a fixed
// horizon from today. Deadlines are stored and compared as literal date
// strings, not parsed dates.
type DeadlineWindow string

// Supported deadline windows.
const (
	DeadlineToday    DeadlineWindow = "today"
	DeadlineThreeDay DeadlineWindow = "3days"
	DeadlineOneWeek  DeadlineWindow = "1week"
	DeadlineOneMonth DeadlineWindow = "1month"
)

// Days returns the window length; unknown windows collapse to today.
func (w DeadlineWindow) Days() int {
	switch w {
	case DeadlineThreeDay:
		return 3
	case DeadlineOneWeek:
		return 7
	case DeadlineOneMonth:
		return 30
	default:
		return 0
	}
}

// SearchQuery carries the parametrized filters accepted by the search facade.
type SearchQuery struct {
	Keyword    string
	Category   string
	Location   string
	Experience string
	Deadline   DeadlineWindow
	Sort       SortKey
	Page       int
	Limit      int
}

// SearchRow is one joined summary row returned by the search facade.
type SearchRow struct {
	ID         int64     `json:"id"`
	Company    string    `json:"company"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Location   string    `json:"location"`
	Experience string    `json:"experience"`
	Deadline   string    `json:"deadline"`
	Views      int64     `json:"views"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Link       string    `json:"originalUrl"`
}

// DetailRow is the fully joined summary+detail+contact view returned by the
// detail endpoint and the spreadsheet export.
type DetailRow struct {
	SearchRow
	RegisteredAt string   `json:"registeredAt"`
	StartDate    string   `json:"startDate"`
	WorkLocation string   `json:"workLocation"`
	PayDate      string   `json:"payDate"`
	Skill        string   `json:"skill"`
	Description  string   `json:"description"`
	Contact      *Contact `json:"contact,omitempty"`
}

// Stats summarizes the stored corpus for the stats endpoint.
type Stats struct {
	TotalJobs     int64            `json:"totalJobs"`
	TodayJobs     int64            `json:"todayJobs"`
	LastUpdate    *time.Time       `json:"lastUpdate"`
	CategoryStats map[string]int64 `json:"categoryStats"`
}
