package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"FinCast/internal/domain/models"
	applogger "FinCast/pkg/logger"
)

const (
	accuracyRecordsKey  = "fincast:accuracy:records"
	accuracyCountersKey = "fincast:accuracy:counters"

	// recent history kept for inspection; counters are unaffected by the trim
	accuracyHistoryCap = 10000
)

// RedisAccuracyStore keeps validation outcomes in Redis: a capped list of
// raw records plus a hash of monotonic counters that Summary reads
// directly. Counters only ever grow, so a summary never goes backwards.
type RedisAccuracyStore struct {
	client *redis.Client
	l      *applogger.Logger
}

func NewRedisAccuracyStore(client *redis.Client, l *applogger.Logger) *RedisAccuracyStore {
	return &RedisAccuracyStore{client: client, l: l}
}

func (s *RedisAccuracyStore) Record(ctx context.Context, rec models.ValidationRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal validation record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, accuracyRecordsKey, b)
	pipe.LTrim(ctx, accuracyRecordsKey, 0, accuracyHistoryCap-1)
	pipe.HIncrBy(ctx, accuracyCountersKey, "total", 1)
	if rec.DirectionCorrect {
		pipe.HIncrBy(ctx, accuracyCountersKey, "direction_correct", 1)
	}
	pipe.HIncrByFloat(ctx, accuracyCountersKey, "err_sum:"+rec.ModelName, rec.ErrorPct)
	pipe.HIncrBy(ctx, accuracyCountersKey, "err_count:"+rec.ModelName, 1)

	if _, err := pipe.Exec(ctx); err != nil {
		s.l.Error("accuracy record failed",
			applogger.String("model", rec.ModelName),
			applogger.Error(err),
		)
		return fmt.Errorf("record validation: %w", err)
	}
	return nil
}

func (s *RedisAccuracyStore) Summary(ctx context.Context) (models.AccuracySummary, error) {
	fields, err := s.client.HGetAll(ctx, accuracyCountersKey).Result()
	if err != nil {
		return models.AccuracySummary{}, fmt.Errorf("read accuracy counters: %w", err)
	}

	summary := models.AccuracySummary{AvgErrorPct: make(map[string]float64)}

	total, _ := strconv.ParseInt(fields["total"], 10, 64)
	correct, _ := strconv.ParseInt(fields["direction_correct"], 10, 64)
	summary.TotalValidations = total
	if total > 0 {
		summary.DirectionalAccuracyPct = float64(correct) / float64(total) * 100
	}

	for field, raw := range fields {
		if len(field) <= len("err_sum:") || field[:len("err_sum:")] != "err_sum:" {
			continue
		}
		model := field[len("err_sum:"):]
		sum, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		count, _ := strconv.ParseInt(fields["err_count:"+model], 10, 64)
		if count > 0 {
			summary.AvgErrorPct[model] = sum / float64(count)
		}
	}
	return summary, nil
}

// MemoryAccuracyStore is an in-memory AccuracyStore with the same
// counter semantics, used in tests.
type MemoryAccuracyStore struct {
	mu      sync.Mutex
	records []models.ValidationRecord
	total   int64
	correct int64
	errSum  map[string]float64
	errCnt  map[string]int64
}

func NewMemoryAccuracyStore() *MemoryAccuracyStore {
	return &MemoryAccuracyStore{
		errSum: make(map[string]float64),
		errCnt: make(map[string]int64),
	}
}

func (s *MemoryAccuracyStore) Record(_ context.Context, rec models.ValidationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	s.total++
	if rec.DirectionCorrect {
		s.correct++
	}
	s.errSum[rec.ModelName] += rec.ErrorPct
	s.errCnt[rec.ModelName]++
	return nil
}

func (s *MemoryAccuracyStore) Summary(_ context.Context) (models.AccuracySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := models.AccuracySummary{
		TotalValidations: s.total,
		AvgErrorPct:      make(map[string]float64),
	}
	if s.total > 0 {
		summary.DirectionalAccuracyPct = float64(s.correct) / float64(s.total) * 100
	}
	for model, sum := range s.errSum {
		if s.errCnt[model] > 0 {
			summary.AvgErrorPct[model] = sum / float64(s.errCnt[model])
		}
	}
	return summary, nil
}
