package requests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"requestarr/internal/config"
	"requestarr/internal/services"
)

// Store manages request and sync log persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the request database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Add inserts a new request in pending state and returns the stored row.
func (s *Store) Add(ctx context.Context, req *Request) (*Request, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, services.Wrap(services.ErrValidation, "requests", "add", "title is required", nil)
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	status := req.Status
	if status == "" {
		status = StatusPending
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO requests (
            title, author, narrator, cover_url, isbn, asin, source, requester,
            status, user_note, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(req.Title),
		nullableString(req.Author),
		nullableString(req.Narrator),
		nullableString(req.CoverURL),
		nullableString(req.ISBN),
		nullableString(req.ASIN),
		nullableString(req.Source),
		nullableString(req.Requester),
		status,
		nullableString(req.UserNote),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a request by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Request, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// List returns requests filtered by status set (or all requests when no status
// is provided), ordered by identifier ascending.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Request, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + requestColumns + ` FROM requests`
	orderClause := ` ORDER BY id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var items []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, req)
	}
	return items, rows.Err()
}

// ListEligible returns requests open for automatic resolution, ordered by
// identifier ascending so sync runs process them deterministically.
func (s *Store) ListEligible(ctx context.Context) ([]*Request, error) {
	return s.List(ctx, EligibleStatuses()...)
}

// Update persists changes to an existing request.
func (s *Store) Update(ctx context.Context, req *Request) error {
	if req == nil {
		return errors.New("request is nil")
	}
	req.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE requests
         SET title = ?, author = ?, narrator = ?, cover_url = ?, isbn = ?, asin = ?,
             source = ?, requester = ?, status = ?, user_note = ?, manager_note = ?,
             fulfilled_by_sync = ?, matched_title = ?, matched_author = ?, match_score = ?,
             last_sync_checked_at = ?, updated_at = ?
         WHERE id = ?`,
		req.Title,
		nullableString(req.Author),
		nullableString(req.Narrator),
		nullableString(req.CoverURL),
		nullableString(req.ISBN),
		nullableString(req.ASIN),
		nullableString(req.Source),
		nullableString(req.Requester),
		req.Status,
		nullableString(req.UserNote),
		nullableString(req.ManagerNote),
		boolToInt(req.FulfilledBySync),
		nullableString(req.MatchedTitle),
		nullableString(req.MatchedAuthor),
		nullableFloat(req.MatchScore),
		nullableTime(req.LastSyncCheckedAt),
		req.UpdatedAt.Format(time.RFC3339Nano),
		req.ID,
	)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	return nil
}

// SetStatus applies a manual manager transition, validating the state machine.
// An empty managerNote leaves the stored note untouched.
func (s *Store) SetStatus(ctx context.Context, id int64, to Status, managerNote string) (*Request, error) {
	req, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, services.Wrap(services.ErrNotFound, "requests", "set status", fmt.Sprintf("request %d", id), nil)
	}
	if !CanTransition(req.Status, to) {
		return nil, services.Wrap(services.ErrValidation, "requests", "set status",
			fmt.Sprintf("cannot move request %d from %s to %s", id, req.Status, to), nil)
	}

	req.Status = to
	if strings.TrimSpace(managerNote) != "" {
		req.ManagerNote = strings.TrimSpace(managerNote)
	}
	if err := s.Update(ctx, req); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Remove deletes a request by identifier. Deletion is a manager action, not
// part of the sync lifecycle.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats returns a count of requests grouped by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("request stats: %w", err)
	}
	defer rows.Close()

	stats := make(Stats)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

const requestColumns = "id, title, author, narrator, cover_url, isbn, asin, source, requester, status, user_note, manager_note, fulfilled_by_sync, matched_title, matched_author, match_score, last_sync_checked_at, created_at, updated_at"

func scanRequest(scanner interface{ Scan(dest ...any) error }) (*Request, error) {
	var (
		id            int64
		title         string
		author        sql.NullString
		narrator      sql.NullString
		coverURL      sql.NullString
		isbn          sql.NullString
		asin          sql.NullString
		source        sql.NullString
		requester     sql.NullString
		statusStr     string
		userNote      sql.NullString
		managerNote   sql.NullString
		fulfilled     sql.NullInt64
		matchedTitle  sql.NullString
		matchedAuthor sql.NullString
		matchScore    sql.NullFloat64
		lastSyncRaw   sql.NullString
		createdRaw    string
		updatedRaw    string
	)

	if err := scanner.Scan(
		&id,
		&title,
		&author,
		&narrator,
		&coverURL,
		&isbn,
		&asin,
		&source,
		&requester,
		&statusStr,
		&userNote,
		&managerNote,
		&fulfilled,
		&matchedTitle,
		&matchedAuthor,
		&matchScore,
		&lastSyncRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	req := &Request{
		ID:            id,
		Title:         title,
		Author:        author.String,
		Narrator:      narrator.String,
		CoverURL:      coverURL.String,
		ISBN:          isbn.String,
		ASIN:          asin.String,
		Source:        source.String,
		Requester:     requester.String,
		Status:        Status(statusStr),
		UserNote:      userNote.String,
		ManagerNote:   managerNote.String,
		MatchedTitle:  matchedTitle.String,
		MatchedAuthor: matchedAuthor.String,
		MatchScore:    matchScore.Float64,
	}
	if fulfilled.Valid {
		req.FulfilledBySync = fulfilled.Int64 != 0
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		req.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		req.UpdatedAt = updated
	}
	if lastSyncRaw.Valid {
		if checked, err := parseTimeString(lastSyncRaw.String); err == nil {
			req.LastSyncCheckedAt = &checked
		}
	}
	return req, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value float64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
