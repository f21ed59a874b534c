package sqldb

import (
	"context"

	"github.com/mandalnilabja/drawgate/internal/storage"
	"github.com/mandalnilabja/drawgate/internal/storage/models"
)

// GetUsageStats aggregates all request logs
func (s *Storage) GetUsageStats(ctx context.Context) (*models.UsageStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStorageClosed
	}

	stats := &models.UsageStats{
		ByErrorKind: make(map[string]int),
		ByStrategy:  make(map[string]int),
	}

	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN COALESCE(error_kind, '') = '' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(image_bytes), 0)
		FROM request_logs`).Scan(&stats.TotalRequests, &stats.SuccessCount, &stats.TotalImageBytes)
	if err != nil {
		return nil, err
	}
	stats.ErrorCount = stats.TotalRequests - stats.SuccessCount

	if err := s.groupCount(ctx, "error_kind", stats.ByErrorKind); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, "strategy", stats.ByStrategy); err != nil {
		return nil, err
	}

	return stats, nil
}

// groupCount counts non-empty values of column into dst.
func (s *Storage) groupCount(ctx context.Context, column string, dst map[string]int) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+column+`, COUNT(*) FROM request_logs
		WHERE COALESCE(`+column+`, '') <> '' GROUP BY `+column)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return err
		}
		dst[name] = count
	}
	return rows.Err()
}
