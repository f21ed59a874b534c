package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/mandalnilabja/drawgate/internal/storage"
	"github.com/mandalnilabja/drawgate/internal/storage/models"
)

// LogRequest stores a request log entry
func (s *Storage) LogRequest(ctx context.Context, log *models.RequestLog) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return storage.ErrStorageClosed
	}

	if log.ID == "" {
		log.ID = generateID("log")
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO request_logs (id, request_id, model, prompt_tokens, has_reference,
			status_code, error_kind, error_message, upstream_status, strategy,
			image_key, image_bytes, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), log.ID, log.RequestID, log.Model, log.PromptTokens, boolToInt(log.HasReference),
		log.StatusCode, log.ErrorKind, log.ErrorMessage, log.UpstreamStatus, log.Strategy,
		log.ImageKey, log.ImageBytes, log.DurationMs, log.CreatedAt)

	return err
}

// GetRequestLogs retrieves request logs with filtering
func (s *Storage) GetRequestLogs(ctx context.Context, filter models.LogFilter) ([]*models.RequestLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStorageClosed
	}

	query := `SELECT id, request_id, model, prompt_tokens, has_reference,
		COALESCE(status_code, 0), COALESCE(error_kind, ''), COALESCE(error_message, ''),
		COALESCE(upstream_status, 0), COALESCE(strategy, ''), COALESCE(image_key, ''),
		COALESCE(image_bytes, 0), COALESCE(duration_ms, 0), created_at
		FROM request_logs WHERE 1=1`

	var args []interface{}

	if filter.ErrorKind != "" {
		query += " AND error_kind = ?"
		args = append(args, filter.ErrorKind)
	}
	if filter.Model != "" {
		query += " AND model = ?"
		args = append(args, filter.Model)
	}
	if filter.StartDate != nil {
		query += " AND created_at >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		query += " AND created_at <= ?"
		args = append(args, filter.EndDate.UTC())
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.RequestLog
	for rows.Next() {
		var log models.RequestLog
		var hasReference int

		err := rows.Scan(&log.ID, &log.RequestID, &log.Model, &log.PromptTokens, &hasReference,
			&log.StatusCode, &log.ErrorKind, &log.ErrorMessage, &log.UpstreamStatus,
			&log.Strategy, &log.ImageKey, &log.ImageBytes, &log.DurationMs, &log.CreatedAt)
		if err != nil {
			return nil, err
		}

		log.HasReference = hasReference == 1
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

// DeleteRequestLogs removes logs created before the given date (YYYY-MM-DD)
func (s *Storage) DeleteRequestLogs(ctx context.Context, olderThan string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, storage.ErrStorageClosed
	}

	cutoff, err := time.Parse("2006-01-02", olderThan)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM request_logs WHERE created_at < ?"), cutoff.UTC())
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
