package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/mandalnilabja/drawgate/internal/storage"
	"github.com/mandalnilabja/drawgate/internal/storage/models"
)

// LogRequest stores a request log document
func (s *Storage) LogRequest(ctx context.Context, log *models.RequestLog) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	if log.ID == "" {
		log.ID = "log_" + uuid.New().String()[:8]
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	_, err := s.logs.InsertOne(ctx, log)
	return err
}

// GetRequestLogs retrieves request logs with filtering, newest first
func (s *Storage) GetRequestLogs(ctx context.Context, filter models.LogFilter) ([]*models.RequestLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := bson.D{}
	if filter.ErrorKind != "" {
		query = append(query, bson.E{Key: "error_kind", Value: filter.ErrorKind})
	}
	if filter.Model != "" {
		query = append(query, bson.E{Key: "model", Value: filter.Model})
	}
	created := bson.D{}
	if filter.StartDate != nil {
		created = append(created, bson.E{Key: "$gte", Value: filter.StartDate.UTC()})
	}
	if filter.EndDate != nil {
		created = append(created, bson.E{Key: "$lte", Value: filter.EndDate.UTC()})
	}
	if len(created) > 0 {
		query = append(query, bson.E{Key: "created_at", Value: created})
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cursor, err := s.logs.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	var logs []*models.RequestLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// DeleteRequestLogs removes logs created before the given date (YYYY-MM-DD)
func (s *Storage) DeleteRequestLogs(ctx context.Context, olderThan string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	cutoff, err := time.Parse("2006-01-02", olderThan)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	res, err := s.logs.DeleteMany(ctx, bson.D{{Key: "created_at", Value: bson.D{{Key: "$lt", Value: cutoff.UTC()}}}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// GetUsageStats aggregates all request logs
func (s *Storage) GetUsageStats(ctx context.Context) (*models.UsageStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	total, err := s.logs.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	failed, err := s.logs.CountDocuments(ctx, bson.D{{Key: "error_kind", Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: ""}}}})
	if err != nil {
		return nil, err
	}

	stats := &models.UsageStats{
		TotalRequests: int(total),
		ErrorCount:    int(failed),
		SuccessCount:  int(total - failed),
		ByErrorKind:   make(map[string]int),
		ByStrategy:    make(map[string]int),
	}

	sum, err := s.logs.Aggregate(ctx, []bson.D{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "bytes", Value: bson.D{{Key: "$sum", Value: "$image_bytes"}}},
		}}},
	})
	if err != nil {
		return nil, err
	}
	var totals []struct {
		Bytes int64 `bson:"bytes"`
	}
	if err := sum.All(ctx, &totals); err != nil {
		return nil, err
	}
	if len(totals) > 0 {
		stats.TotalImageBytes = totals[0].Bytes
	}

	if err := s.groupCount(ctx, "error_kind", stats.ByErrorKind); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, "strategy", stats.ByStrategy); err != nil {
		return nil, err
	}
	return stats, nil
}

// groupCount counts non-empty values of field into dst.
func (s *Storage) groupCount(ctx context.Context, field string, dst map[string]int) error {
	cursor, err := s.logs.Aggregate(ctx, []bson.D{
		{{Key: "$match", Value: bson.D{{Key: field, Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: ""}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return err
	}

	var groups []struct {
		ID    string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return err
	}
	for _, g := range groups {
		dst[g.ID] = g.Count
	}
	return nil
}
