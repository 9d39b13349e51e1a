package requests

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// AppendSyncLog inserts a completed sync log. Sync logs are append-only; the
// assigned identifier is written back to log.ID.
func (s *Store) AppendSyncLog(ctx context.Context, log *SyncLog) error {
	if log == nil {
		return errors.New("sync log is nil")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sync log tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertSyncLog(ctx, tx, log); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sync log: %w", err)
	}
	return nil
}

// CommitSyncRun applies one run's request mutations and its sync log in a
// single transaction, so a run's outcome is either fully recorded or not at
// all. The assigned log identifier is written back to log.ID.
func (s *Store) CommitSyncRun(ctx context.Context, updates []SyncUpdate, log *SyncLog) error {
	if log == nil {
		return errors.New("sync log is nil")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sync run tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, update := range updates {
		checked := update.CheckedAt.UTC().Format(time.RFC3339Nano)
		if update.HasMatch {
			_, err = tx.ExecContext(
				ctx,
				`UPDATE requests
                 SET status = ?, matched_title = ?, matched_author = ?, match_score = ?,
                     fulfilled_by_sync = ?, last_sync_checked_at = ?, updated_at = ?
                 WHERE id = ?`,
				update.Status,
				nullableString(update.MatchedTitle),
				nullableString(update.MatchedAuthor),
				update.MatchScore,
				boolToInt(update.FulfilledBySync),
				checked,
				now,
				update.RequestID,
			)
		} else {
			_, err = tx.ExecContext(
				ctx,
				`UPDATE requests SET last_sync_checked_at = ?, updated_at = ? WHERE id = ?`,
				checked,
				now,
				update.RequestID,
			)
		}
		if err != nil {
			return fmt.Errorf("apply sync update for request %d: %w", update.RequestID, err)
		}
	}

	if err := insertSyncLog(ctx, tx, log); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sync run: %w", err)
	}
	return nil
}

func insertSyncLog(ctx context.Context, tx *sql.Tx, log *SyncLog) error {
	var detailsJSON any
	if len(log.Details) > 0 {
		data, err := json.Marshal(log.Details)
		if err != nil {
			return fmt.Errorf("marshal sync details: %w", err)
		}
		detailsJSON = string(data)
	}

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO sync_logs (
            run_id, triggered_by, started_at, finished_at, outcome,
            requests_checked, certain_matches, possible_matches, no_matches,
            skipped_items, error_message, details_json
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.RunID,
		log.TriggeredBy,
		log.StartedAt.UTC().Format(time.RFC3339Nano),
		nullableTime(log.FinishedAt),
		log.Outcome,
		log.RequestsChecked,
		log.CertainMatches,
		log.PossibleMatches,
		log.NoMatches,
		log.SkippedItems,
		nullableString(log.ErrorMessage),
		detailsJSON,
	)
	if err != nil {
		return fmt.Errorf("insert sync log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sync log insert id: %w", err)
	}
	log.ID = id
	return nil
}

// GetSyncLog fetches one sync log by identifier. Returns nil when absent.
func (s *Store) GetSyncLog(ctx context.Context, id int64) (*SyncLog, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+syncLogColumns+` FROM sync_logs WHERE id = ?`, id)
	log, err := scanSyncLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync log: %w", err)
	}
	return log, nil
}

// ListSyncLogs returns sync logs newest first, up to limit (0 = no limit).
func (s *Store) ListSyncLogs(ctx context.Context, limit int) ([]*SyncLog, error) {
	query := `SELECT ` + syncLogColumns + ` FROM sync_logs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sync logs: %w", err)
	}
	defer rows.Close()

	var logs []*SyncLog
	for rows.Next() {
		log, err := scanSyncLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

const syncLogColumns = "id, run_id, triggered_by, started_at, finished_at, outcome, requests_checked, certain_matches, possible_matches, no_matches, skipped_items, error_message, details_json"

func scanSyncLog(scanner interface{ Scan(dest ...any) error }) (*SyncLog, error) {
	var (
		id          int64
		runID       string
		triggeredBy string
		startedRaw  string
		finishedRaw sql.NullString
		outcome     string
		checked     int
		certain     int
		possible    int
		none        int
		skipped     int
		errMessage  sql.NullString
		detailsRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&runID,
		&triggeredBy,
		&startedRaw,
		&finishedRaw,
		&outcome,
		&checked,
		&certain,
		&possible,
		&none,
		&skipped,
		&errMessage,
		&detailsRaw,
	); err != nil {
		return nil, err
	}

	log := &SyncLog{
		ID:              id,
		RunID:           runID,
		TriggeredBy:     TriggerKind(triggeredBy),
		Outcome:         Outcome(outcome),
		RequestsChecked: checked,
		CertainMatches:  certain,
		PossibleMatches: possible,
		NoMatches:       none,
		SkippedItems:    skipped,
		ErrorMessage:    errMessage.String,
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		log.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			log.FinishedAt = &finished
		}
	}
	if detailsRaw.Valid && detailsRaw.String != "" {
		if err := json.Unmarshal([]byte(detailsRaw.String), &log.Details); err != nil {
			return nil, fmt.Errorf("decode sync details: %w", err)
		}
	}
	return log, nil
}
