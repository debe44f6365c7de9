package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/jobs"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/store"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// JobStore implements store.JobRepository on Postgres.
type JobStore struct {
	db DB
}

// NewJobStore returns a JobStore bound to db.
func NewJobStore(db DB) *JobStore {
	return &JobStore{db: db}
}

const upsertSummarySQL = `
	INSERT INTO okky_jobs (link, title, company, deadline, category, position, location, career, salary)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (link) DO UPDATE SET
		title = EXCLUDED.title,
		company = EXCLUDED.company,
		deadline = EXCLUDED.deadline,
		category = EXCLUDED.category,
		position = EXCLUDED.position,
		location = EXCLUDED.location,
		career = EXCLUDED.career,
		salary = EXCLUDED.salary,
		updated_at = now()`

// UpsertSummaries writes each summary independently. A row that fails to
// persist is reported in the result and never blocks its siblings.
func (s *JobStore) UpsertSummaries(ctx context.Context, batch []jobs.Summary) (store.BatchResult, error) {
	var res store.BatchResult
	for _, sum := range batch {
		if sum.Link == "" {
			res.Failed = append(res.Failed, store.RowError{Link: sum.Link, Err: "missing link"})
			continue
		}
		_, err := s.db.Exec(ctx, upsertSummarySQL,
			sum.Link, sum.Title, sum.Company, sum.Deadline,
			sum.Category, sum.Position, sum.Location, sum.Career, sum.Salary)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed = append(res.Failed, store.RowError{Link: sum.Link, Err: err.Error()})
			continue
		}
		res.Saved++
	}
	return res, nil
}

const upsertContactSQL = `
	INSERT INTO okky_job_contacts (name, phone, email)
	VALUES ($1, $2, $3)
	ON CONFLICT (name, phone, email) DO UPDATE SET
		name = EXCLUDED.name,
		phone = EXCLUDED.phone,
		email = EXCLUDED.email,
		updated_at = now()
	RETURNING id`

// UpsertContact dedups on the full (name, phone, email) tuple. Empty contacts
// are not persisted and yield a nil id.
func (s *JobStore) UpsertContact(ctx context.Context, c jobs.Contact) (*int64, error) {
	if c.Empty() {
		return nil, nil
	}
	var id int64
	if err := s.db.QueryRow(ctx, upsertContactSQL, c.Name, c.Phone, c.Email).Scan(&id); err != nil {
		return nil, fmt.Errorf("upsert contact: %w", err)
	}
	return &id, nil
}

const upsertDetailSQL = `
	INSERT INTO okky_job_details (link, registered_at, view_count, start_date, work_location, pay_date, skill, description, contact_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (link) DO UPDATE SET
		registered_at = EXCLUDED.registered_at,
		view_count = EXCLUDED.view_count,
		start_date = EXCLUDED.start_date,
		work_location = EXCLUDED.work_location,
		pay_date = EXCLUDED.pay_date,
		skill = EXCLUDED.skill,
		description = EXCLUDED.description,
		contact_id = EXCLUDED.contact_id,
		updated_at = now()`

// UpsertDetail writes the detail row keyed by link. contactID may be nil when
// the source page carried no contact block.
func (s *JobStore) UpsertDetail(ctx context.Context, d jobs.Detail, contactID *int64) error {
	if d.Link == "" {
		return fmt.Errorf("upsert detail: missing link")
	}
	_, err := s.db.Exec(ctx, upsertDetailSQL,
		d.Link, d.RegisteredAt, d.ViewCount, d.StartDate,
		d.WorkLocation, d.PayDate, d.Skill, d.Description, contactID)
	if err != nil {
		return fmt.Errorf("upsert detail %s: %w", d.Link, err)
	}
	return nil
}

const searchColumns = `j.id, j.company, j.title, j.category, j.location, j.career, j.deadline,
	COALESCE(d.view_count, 0), j.created_at, j.updated_at, j.link`

// deadlineStrings returns the literal MM/DD strings covered by the window,
// today included. Deadlines are compared as stored text, never parsed.
func deadlineStrings(w jobs.DeadlineWindow, now time.Time) []string {
	days := w.Days()
	out := make([]string, 0, days+1)
	for i := 0; i <= days; i++ {
		out = append(out, now.AddDate(0, 0, i).Format("01/02"))
	}
	return out
}

func buildSearchFilter(q jobs.SearchQuery, now time.Time) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Keyword != "" {
		args = append(args, "%"+q.Keyword+"%")
		conds = append(conds, fmt.Sprintf("(j.title ILIKE $%d OR j.company ILIKE $%d)", len(args), len(args)))
	}
	if q.Category != "" {
		args = append(args, q.Category)
		conds = append(conds, fmt.Sprintf("j.category = $%d", len(args)))
	}
	if q.Location != "" {
		args = append(args, q.Location)
		conds = append(conds, fmt.Sprintf("j.location = $%d", len(args)))
	}
	if q.Experience != "" {
		args = append(args, q.Experience)
		conds = append(conds, fmt.Sprintf("j.career = $%d", len(args)))
	}
	if q.Deadline != "" {
		args = append(args, deadlineStrings(q.Deadline, now))
		conds = append(conds, fmt.Sprintf("j.deadline = ANY($%d)", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(k jobs.SortKey) string {
	switch k {
	case jobs.SortCompany:
		return " ORDER BY j.company ASC, j.id DESC"
	case jobs.SortDeadline:
		return " ORDER BY j.deadline ASC, j.id DESC"
	case jobs.SortViews:
		return " ORDER BY COALESCE(d.view_count, 0) DESC, j.id DESC"
	default:
		return " ORDER BY j.created_at DESC, j.id DESC"
	}
}

// Search returns one page of filtered rows plus the total match count.
func (s *JobStore) Search(ctx context.Context, q jobs.SearchQuery) ([]jobs.SearchRow, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = defaultSearchLimit
	}
	if q.Limit > maxSearchLimit {
		q.Limit = maxSearchLimit
	}
	where, args := buildSearchFilter(q, time.Now())

	var total int64
	countSQL := `SELECT count(*) FROM okky_jobs j LEFT JOIN okky_job_details d ON d.link = j.link` + where
	if err := s.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search results: %w", err)
	}

	query := `SELECT ` + searchColumns +
		` FROM okky_jobs j LEFT JOIN okky_job_details d ON d.link = j.link` +
		where + orderClause(q.Sort) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, q.Limit, (q.Page-1)*q.Limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search jobs: %w", err)
	}
	defer rows.Close()

	out := make([]jobs.SearchRow, 0, q.Limit)
	for rows.Next() {
		var r jobs.SearchRow
		if err := rows.Scan(&r.ID, &r.Company, &r.Title, &r.Category, &r.Location,
			&r.Experience, &r.Deadline, &r.Views, &r.CreatedAt, &r.UpdatedAt, &r.Link); err != nil {
			return nil, 0, fmt.Errorf("scan search row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate search rows: %w", err)
	}
	return out, total, nil
}

// Stats aggregates corpus totals for the stats endpoint.
func (s *JobStore) Stats(ctx context.Context) (jobs.Stats, error) {
	var st jobs.Stats
	err := s.db.QueryRow(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE created_at >= date_trunc('day', now())),
			max(updated_at)
		FROM okky_jobs`).Scan(&st.TotalJobs, &st.TodayJobs, &st.LastUpdate)
	if err != nil {
		return jobs.Stats{}, fmt.Errorf("aggregate stats: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT category, count(*)
		FROM okky_jobs
		WHERE category <> ''
		GROUP BY category
		ORDER BY count(*) DESC`)
	if err != nil {
		return jobs.Stats{}, fmt.Errorf("aggregate category stats: %w", err)
	}
	defer rows.Close()

	st.CategoryStats = make(map[string]int64)
	for rows.Next() {
		var (
			cat string
			n   int64
		)
		if err := rows.Scan(&cat, &n); err != nil {
			return jobs.Stats{}, fmt.Errorf("scan category stat: %w", err)
		}
		st.CategoryStats[cat] = n
	}
	if err := rows.Err(); err != nil {
		return jobs.Stats{}, fmt.Errorf("iterate category stats: %w", err)
	}
	return st, nil
}

const detailColumns = searchColumns + `,
	COALESCE(d.registered_at, ''), COALESCE(d.start_date, ''), COALESCE(d.work_location, ''),
	COALESCE(d.pay_date, ''), COALESCE(d.skill, ''), COALESCE(d.description, ''),
	c.name, c.phone, c.email`

const detailJoin = ` FROM okky_jobs j
	LEFT JOIN okky_job_details d ON d.link = j.link
	LEFT JOIN okky_job_contacts c ON c.id = d.contact_id`

func scanDetailRow(row pgx.Row) (jobs.DetailRow, error) {
	var (
		r                    jobs.DetailRow
		cname, cphone, cmail *string
	)
	err := row.Scan(&r.ID, &r.Company, &r.Title, &r.Category, &r.Location,
		&r.Experience, &r.Deadline, &r.Views, &r.CreatedAt, &r.UpdatedAt, &r.Link,
		&r.RegisteredAt, &r.StartDate, &r.WorkLocation, &r.PayDate, &r.Skill, &r.Description,
		&cname, &cphone, &cmail)
	if err != nil {
		return jobs.DetailRow{}, err
	}
	if cname != nil || cphone != nil || cmail != nil {
		c := jobs.Contact{}
		if cname != nil {
			c.Name = *cname
		}
		if cphone != nil {
			c.Phone = *cphone
		}
		if cmail != nil {
			c.Email = *cmail
		}
		r.Contact = &c
	}
	return r, nil
}

// GetByID loads the fully joined view for one listing.
func (s *JobStore) GetByID(ctx context.Context, id int64) (jobs.DetailRow, error) {
	row := s.db.QueryRow(ctx, `SELECT `+detailColumns+detailJoin+` WHERE j.id = $1`, id)
	r, err := scanDetailRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return jobs.DetailRow{}, store.ErrNotFound
	}
	if err != nil {
		return jobs.DetailRow{}, fmt.Errorf("get job %d: %w", id, err)
	}
	return r, nil
}

// IncrementViews durably bumps the stored view counter. Listings without a
// detail row are left untouched.
func (s *JobStore) IncrementViews(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE okky_job_details d SET view_count = d.view_count + 1, updated_at = now()
		FROM okky_jobs j WHERE j.link = d.link AND j.id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment views for job %d: %w", id, err)
	}
	return nil
}

// ExportRows returns every joined row matching the optional keyword, newest
// first, for the spreadsheet export.
func (s *JobStore) ExportRows(ctx context.Context, keyword string) ([]jobs.DetailRow, error) {
	query := `SELECT ` + detailColumns + detailJoin
	var args []any
	if keyword != "" {
		query += ` WHERE j.title ILIKE $1 OR j.company ILIKE $1 OR COALESCE(d.description, '') ILIKE $1`
		args = append(args, "%"+keyword+"%")
	}
	query += ` ORDER BY j.created_at DESC, j.id DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query export rows: %w", err)
	}
	defer rows.Close()

	var out []jobs.DetailRow
	for rows.Next() {
		r, err := scanDetailRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export rows: %w", err)
	}
	return out, nil
}

// Counts reports stored row totals for the readiness and status surfaces.
func (s *JobStore) Counts(ctx context.Context) (int64, int64, *time.Time, error) {
	var (
		master, detail int64
		last           *time.Time
	)
	err := s.db.QueryRow(ctx, `
		SELECT (SELECT count(*) FROM okky_jobs),
			(SELECT count(*) FROM okky_job_details),
			(SELECT max(updated_at) FROM okky_jobs)`).Scan(&master, &detail, &last)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("count stored rows: %w", err)
	}
	return master, detail, last, nil
}
