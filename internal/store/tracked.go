package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobpulse-engine/internal/domain"
	"jobpulse-engine/internal/logging"
)

var (
	ErrNotFound       = errors.New("store: tracked job not found")
	ErrInvalidStatus  = errors.New("store: invalid status")
	ErrInvalidListing = errors.New("store: invalid listing")
)

type ListOptions struct {
	Status    domain.Status // empty means all
	OrderBy   string        // updated | created | title
	Ascending bool
	Limit     int // <= 0 means no limit
}

// DashboardData is a consistent read of everything the dashboard needs.
type DashboardData struct {
	Counts  map[domain.Status]int
	Recent  []domain.TrackedJob
	Changes []domain.StatusChange
}

// Tracker owns the tracked_jobs and status_log tables. Each operation runs
// in one transaction.
type Tracker struct {
	db  *sql.DB
	now func() time.Time
	log *logging.Logger
}

type TrackerOption func(*Tracker)

func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

func WithLogger(l *logging.Logger) TrackerOption {
	return func(t *Tracker) { t.log = l.Named("store") }
}

func NewTracker(db *DB, opts ...TrackerOption) *Tracker {
	t := &Tracker{db: db.Pool, now: time.Now, log: logging.NewNop()}
	for _, o := range opts {
		o(t)
	}
	return t
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const jobColumns = `id, listing, status, notes, created_at, updated_at`

// Save starts tracking l. Saving an already tracked listing returns the
// existing record untouched; created reports whether a row was inserted.
func (t *Tracker) Save(ctx context.Context, l domain.JobListing) (job domain.TrackedJob, created bool, err error) {
	l.ExternalID = strings.TrimSpace(l.ExternalID)
	if l.ExternalID == "" {
		return domain.TrackedJob{}, false, fmt.Errorf("%w: missing external id", ErrInvalidListing)
	}
	snapshot, err := json.Marshal(l)
	if err != nil {
		return domain.TrackedJob{}, false, fmt.Errorf("store: encode listing: %w", err)
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.TrackedJob{}, false, fmt.Errorf("store: save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := t.now().UTC().UnixNano()
	if _, err := tx.ExecContext(ctx, `
INSERT INTO tracked_jobs (external_id, title, company, listing, status, notes, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, '', ?, ?)
ON CONFLICT(external_id) DO NOTHING;`,
		l.ExternalID, l.Title, l.Company, string(snapshot), domain.StatusInterested, now, now,
	); err != nil {
		return domain.TrackedJob{}, false, fmt.Errorf("store: insert tracked job: %w", err)
	}

	var changes int
	if err := tx.QueryRowContext(ctx, `SELECT changes();`).Scan(&changes); err != nil {
		return domain.TrackedJob{}, false, fmt.Errorf("store: save: %w", err)
	}

	job, err = getOne(ctx, tx, `external_id = ?`, l.ExternalID)
	if err != nil {
		return domain.TrackedJob{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return domain.TrackedJob{}, false, fmt.Errorf("store: save: %w", err)
	}

	if changes > 0 {
		t.log.Info("job tracked", "id", job.ID, "external_id", l.ExternalID)
	}
	return job, changes > 0, nil
}

func (t *Tracker) Get(ctx context.Context, id int64) (domain.TrackedJob, error) {
	return getOne(ctx, t.db, `id = ?`, id)
}

func (t *Tracker) GetByExternalID(ctx context.Context, externalID string) (domain.TrackedJob, error) {
	return getOne(ctx, t.db, `external_id = ?`, strings.TrimSpace(externalID))
}

// UpdateStatus moves job id to s. Any known status may follow any other.
// UpdatedAt always moves forward, even when the clock does not.
func (t *Tracker) UpdateStatus(ctx context.Context, id int64, s domain.Status) (domain.TrackedJob, error) {
	if !s.Valid() {
		return domain.TrackedJob{}, fmt.Errorf("%w: %w", ErrInvalidStatus, &domain.InvalidStatusError{Value: string(s)})
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.TrackedJob{}, fmt.Errorf("store: update status: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	job, err := getOne(ctx, tx, `id = ?`, id)
	if err != nil {
		return domain.TrackedJob{}, err
	}
	if err := domain.ValidateTransition(job.Status, s); err != nil {
		return domain.TrackedJob{}, fmt.Errorf("%w: %w", ErrInvalidStatus, err)
	}

	from := job.Status
	job.Status = s
	job.UpdatedAt = t.advance(job.UpdatedAt)

	if _, err := tx.ExecContext(ctx,
		`UPDATE tracked_jobs SET status = ?, updated_at = ? WHERE id = ?;`,
		s, job.UpdatedAt.UnixNano(), id,
	); err != nil {
		return domain.TrackedJob{}, fmt.Errorf("store: update status: %w", err)
	}

	if from != s {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO status_log (tracked_job_id, from_status, to_status, at) VALUES (?, ?, ?, ?);`,
			id, from, s, job.UpdatedAt.UnixNano(),
		); err != nil {
			return domain.TrackedJob{}, fmt.Errorf("store: append status log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.TrackedJob{}, fmt.Errorf("store: update status: %w", err)
	}
	t.log.Info("status changed", "id", id, "from", from, "to", s)
	return job, nil
}

// SetNotes replaces the notes of job id.
func (t *Tracker) SetNotes(ctx context.Context, id int64, notes string) (domain.TrackedJob, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.TrackedJob{}, fmt.Errorf("store: set notes: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	job, err := getOne(ctx, tx, `id = ?`, id)
	if err != nil {
		return domain.TrackedJob{}, err
	}
	job.Notes = notes
	job.UpdatedAt = t.advance(job.UpdatedAt)

	if _, err := tx.ExecContext(ctx,
		`UPDATE tracked_jobs SET notes = ?, updated_at = ? WHERE id = ?;`,
		notes, job.UpdatedAt.UnixNano(), id,
	); err != nil {
		return domain.TrackedJob{}, fmt.Errorf("store: set notes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.TrackedJob{}, fmt.Errorf("store: set notes: %w", err)
	}
	return job, nil
}

// List returns tracked jobs, most recently updated first unless opts say otherwise.
func (t *Tracker) List(ctx context.Context, opts ListOptions) ([]domain.TrackedJob, error) {
	// whitelist sort columns (prevents SQL injection)
	sortCol := map[string]string{
		"":        "updated_at",
		"updated": "updated_at",
		"created": "created_at",
		"title":   "title COLLATE NOCASE",
	}[opts.OrderBy]
	if sortCol == "" {
		return nil, fmt.Errorf("store: unknown sort %q", opts.OrderBy)
	}
	dir := "DESC"
	if opts.Ascending {
		dir = "ASC"
	}

	where := ""
	var args []any
	if opts.Status != "" {
		if !opts.Status.Valid() {
			return nil, fmt.Errorf("%w: %w", ErrInvalidStatus, &domain.InvalidStatusError{Value: string(opts.Status)})
		}
		where = "WHERE status = ?"
		args = append(args, opts.Status)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT %s
FROM tracked_jobs
%s
ORDER BY %s %s, id %s
LIMIT ?;
`, jobColumns, where, sortCol, dir, dir)

	return queryJobs(ctx, t.db, query, args...)
}

// Delete removes job id and its history.
func (t *Tracker) Delete(ctx context.Context, id int64) error {
	res, err := t.db.ExecContext(ctx, `DELETE FROM tracked_jobs WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	t.log.Info("job untracked", "id", id)
	return nil
}

// History returns the status changes of job id, oldest first.
func (t *Tracker) History(ctx context.Context, id int64) ([]domain.StatusChange, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := getOne(ctx, tx, `id = ?`, id); err != nil {
		return nil, err
	}
	out, err := queryChanges(ctx, tx, `
SELECT l.id, l.tracked_job_id, j.title, j.company, l.from_status, l.to_status, l.at
FROM status_log l JOIN tracked_jobs j ON j.id = l.tracked_job_id
WHERE l.tracked_job_id = ?
ORDER BY l.id ASC;`, id)
	if err != nil {
		return nil, err
	}
	return out, tx.Commit()
}

// DashboardData reads per-status counts, the k most recently updated jobs
// and the k most recent status changes in one transaction.
func (t *Tracker) DashboardData(ctx context.Context, k int) (DashboardData, error) {
	if k <= 0 {
		k = 10
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return DashboardData{}, fmt.Errorf("store: dashboard: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	counts := make(map[domain.Status]int, len(domain.AllStatuses))
	for _, s := range domain.AllStatuses {
		counts[s] = 0
	}
	rows, err := tx.QueryContext(ctx, `SELECT status, COUNT(*) FROM tracked_jobs GROUP BY status;`)
	if err != nil {
		return DashboardData{}, fmt.Errorf("store: dashboard counts: %w", err)
	}
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			rows.Close()
			return DashboardData{}, fmt.Errorf("store: dashboard counts: %w", err)
		}
		counts[domain.Status(s)] = n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return DashboardData{}, fmt.Errorf("store: dashboard counts: %w", err)
	}
	rows.Close()

	recent, err := queryJobs(ctx, tx, fmt.Sprintf(`
SELECT %s FROM tracked_jobs ORDER BY updated_at DESC, id DESC LIMIT ?;`, jobColumns), k)
	if err != nil {
		return DashboardData{}, err
	}

	changes, err := queryChanges(ctx, tx, `
SELECT l.id, l.tracked_job_id, j.title, j.company, l.from_status, l.to_status, l.at
FROM status_log l JOIN tracked_jobs j ON j.id = l.tracked_job_id
ORDER BY l.at DESC, l.id DESC
LIMIT ?;`, k)
	if err != nil {
		return DashboardData{}, err
	}

	if err := tx.Commit(); err != nil {
		return DashboardData{}, fmt.Errorf("store: dashboard: %w", err)
	}
	return DashboardData{Counts: counts, Recent: recent, Changes: changes}, nil
}

// advance returns the current time, or prev+1ns when the clock has not
// moved past prev.
func (t *Tracker) advance(prev time.Time) time.Time {
	now := t.now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

func getOne(ctx context.Context, q queryer, where string, arg any) (domain.TrackedJob, error) {
	row := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM tracked_jobs WHERE %s;`, jobColumns, where), arg)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TrackedJob{}, ErrNotFound
	}
	return job, err
}

func queryJobs(ctx context.Context, q queryer, query string, args ...any) ([]domain.TrackedJob, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	out := []domain.TrackedJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return out, nil
}

func queryChanges(ctx context.Context, q queryer, query string, args ...any) ([]domain.StatusChange, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: status log: %w", err)
	}
	defer rows.Close()

	out := []domain.StatusChange{}
	for rows.Next() {
		var c domain.StatusChange
		var from, to string
		var at int64
		if err := rows.Scan(&c.ID, &c.TrackedJobID, &c.Title, &c.Company, &from, &to, &at); err != nil {
			return nil, fmt.Errorf("store: status log: %w", err)
		}
		c.From, c.To = domain.Status(from), domain.Status(to)
		c.At = time.Unix(0, at).UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: status log: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (domain.TrackedJob, error) {
	var (
		job              domain.TrackedJob
		listing, status  string
		created, updated int64
	)
	if err := s.Scan(&job.ID, &listing, &status, &job.Notes, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TrackedJob{}, err
		}
		return domain.TrackedJob{}, fmt.Errorf("store: scan tracked job: %w", err)
	}
	if err := json.Unmarshal([]byte(listing), &job.Listing); err != nil {
		return domain.TrackedJob{}, fmt.Errorf("store: decode listing of job %d: %w", job.ID, err)
	}
	job.Status = domain.Status(status)
	job.CreatedAt = time.Unix(0, created).UTC()
	job.UpdatedAt = time.Unix(0, updated).UTC()
	return job, nil
}
