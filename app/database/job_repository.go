package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/lysyi3m/jobs-comb/app/scraped"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var _ JobRepository = (*SQLiteJobRepository)(nil)

const jobColumns = `id, url, apply_url, title, company_name, company_url, description_html,
	source, remote, locations_raw, employment_types, source_urls, boards_ids, extra,
	first_seen_on, last_seen_on, created_at, updated_at`

// SQLiteJobRepository handles database operations for jobs
type SQLiteJobRepository struct {
	db *DB
}

func NewJobRepository(db *DB) *SQLiteJobRepository {
	return &SQLiteJobRepository{db: db}
}

// Create inserts a new job built from item. It returns ErrDuplicate when a
// job with the same URL already exists.
func (r *SQLiteJobRepository) Create(ctx context.Context, item scraped.Item) (*Job, error) {
	job, err := NewJobFromItem(item)
	if err != nil {
		return nil, err
	}

	cols, err := encodeColumns(job)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (
			url, apply_url, title, company_name, company_url, description_html,
			source, remote, locations_raw, employment_types, source_urls, boards_ids, extra,
			first_seen_on, last_seen_on, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.URL, job.ApplyURL, job.Title, job.CompanyName, job.CompanyURL, job.DescriptionHTML,
		job.Source, nullBool(job.Remote), cols.locationsRaw, cols.employmentTypes, cols.sourceURLs, cols.boardsIDs, cols.extra,
		formatDate(job.FirstSeenOn), formatDate(job.LastSeenOn), formatTimestamp(now), formatTimestamp(now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	job.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get job id: %w", err)
	}

	return job, nil
}

// GetByKey looks a job up by the item's deduplication key.
func (r *SQLiteJobRepository) GetByKey(ctx context.Context, item scraped.Item) (*Job, error) {
	url := item.String(scraped.KeyURL)
	if url == "" {
		return nil, fmt.Errorf("item has no %s", scraped.KeyURL)
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE url = ?`, url)
	return scanJob(row)
}

func (r *SQLiteJobRepository) Get(ctx context.Context, id int64) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// Save overwrites the stored job with the given state.
func (r *SQLiteJobRepository) Save(ctx context.Context, job *Job) error {
	cols, err := encodeColumns(job)
	if err != nil {
		return err
	}

	job.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET
			url = ?, apply_url = ?, title = ?, company_name = ?, company_url = ?,
			description_html = ?, source = ?, remote = ?, locations_raw = ?,
			employment_types = ?, source_urls = ?, boards_ids = ?, extra = ?,
			first_seen_on = ?, last_seen_on = ?, updated_at = ?
		WHERE id = ?
	`, job.URL, job.ApplyURL, job.Title, job.CompanyName, job.CompanyURL,
		job.DescriptionHTML, job.Source, nullBool(job.Remote), cols.locationsRaw,
		cols.employmentTypes, cols.sourceURLs, cols.boardsIDs, cols.extra,
		formatDate(job.FirstSeenOn), formatDate(job.LastSeenOn), formatTimestamp(job.UpdatedAt),
		job.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to save job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check saved rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a job. Deleting a job that is already gone is not an error.
func (r *SQLiteJobRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// IterateIDs streams the ids of all stored jobs in ascending order.
func (r *SQLiteJobRepository) IterateIDs(ctx context.Context) iter.Seq2[int64, error] {
	return func(yield func(int64, error) bool) {
		rows, err := r.db.QueryContext(ctx, `SELECT id FROM jobs ORDER BY id`)
		if err != nil {
			yield(0, fmt.Errorf("failed to query job ids: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				yield(0, fmt.Errorf("failed to scan job id: %w", err))
				return
			}
			if !yield(id, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(0, fmt.Errorf("error iterating job ids: %w", err))
		}
	}
}

func (r *SQLiteJobRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get job count: %w", err)
	}
	return count, nil
}

func (r *SQLiteJobRepository) Stats(ctx context.Context) (*JobStats, error) {
	stats := &JobStats{}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN remote = 1 THEN 1 ELSE 0 END), 0)
		FROM jobs
	`).Scan(&stats.Total, &stats.Remote)
	if err != nil {
		return nil, fmt.Errorf("failed to get job stats: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT source, COUNT(*) FROM jobs
		GROUP BY source
		ORDER BY COUNT(*) DESC, source
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get job stats by source: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.Source, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan source stats row: %w", err)
		}
		stats.BySource = append(stats.BySource, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source stats rows: %w", err)
	}

	return stats, nil
}

// ListRecent returns the most recently seen jobs first.
func (r *SQLiteJobRepository) ListRecent(ctx context.Context, limit int) ([]Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs
		ORDER BY last_seen_on DESC, first_seen_on DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}

	return jobs, nil
}

// LatestLastSeenOn returns the newest last_seen_on in the store, or the
// zero time for an empty store.
func (r *SQLiteJobRepository) LatestLastSeenOn(ctx context.Context) (time.Time, error) {
	var raw sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(last_seen_on) FROM jobs`).Scan(&raw); err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest last_seen_on: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, nil
	}
	return scraped.ParseDate(raw.String)
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*Job, error) {
	var (
		job                           Job
		remote                        sql.NullBool
		locationsRaw, employmentTypes string
		sourceURLs, boardsIDs, extra  string
		firstSeenOn, lastSeenOn       string
		createdAt, updatedAt          string
	)

	err := row.Scan(
		&job.ID, &job.URL, &job.ApplyURL, &job.Title, &job.CompanyName, &job.CompanyURL,
		&job.DescriptionHTML, &job.Source, &remote, &locationsRaw, &employmentTypes,
		&sourceURLs, &boardsIDs, &extra, &firstSeenOn, &lastSeenOn, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job row: %w", err)
	}

	if remote.Valid {
		job.Remote = &remote.Bool
	}
	if err := decodeJSON(locationsRaw, &job.LocationsRaw); err != nil {
		return nil, err
	}
	if err := decodeJSON(employmentTypes, &job.EmploymentTypes); err != nil {
		return nil, err
	}
	if err := decodeJSON(sourceURLs, &job.SourceURLs); err != nil {
		return nil, err
	}
	if err := decodeJSON(boardsIDs, &job.BoardsIDs); err != nil {
		return nil, err
	}
	if err := decodeJSON(extra, &job.Extra); err != nil {
		return nil, err
	}
	if job.Extra == nil {
		job.Extra = make(map[string]any)
	}

	if job.FirstSeenOn, err = scraped.ParseDate(firstSeenOn); err != nil {
		return nil, fmt.Errorf("invalid first_seen_on of job %d: %w", job.ID, err)
	}
	if job.LastSeenOn, err = scraped.ParseDate(lastSeenOn); err != nil {
		return nil, fmt.Errorf("invalid last_seen_on of job %d: %w", job.ID, err)
	}
	job.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	job.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return &job, nil
}

type encodedColumns struct {
	locationsRaw    string
	employmentTypes string
	sourceURLs      string
	boardsIDs       string
	extra           string
}

func encodeColumns(job *Job) (*encodedColumns, error) {
	var cols encodedColumns
	var err error

	if cols.locationsRaw, err = encodeList(job.LocationsRaw); err != nil {
		return nil, err
	}
	if cols.employmentTypes, err = encodeList(job.EmploymentTypes); err != nil {
		return nil, err
	}
	if cols.sourceURLs, err = encodeList(job.SourceURLs); err != nil {
		return nil, err
	}
	if cols.boardsIDs, err = encodeList(job.BoardsIDs); err != nil {
		return nil, err
	}

	extra := job.Extra
	if extra == nil {
		extra = map[string]any{}
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extra fields: %w", err)
	}
	cols.extra = string(data)

	return &cols, nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

func decodeJSON(raw string, dst any) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	return nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	default:
		return false
	}
}
