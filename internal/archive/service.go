package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Hakomatsu/fit2go-dashboard/internal/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type Service struct {
	db     db.Pool
	logger *zap.Logger
}

func NewService(pool db.Pool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: pool, logger: logger}
}

// ImportBatch reconciles sessions collected while the device was offline.
// Items are processed independently in input order: a corrupt item is
// reported and skipped without discarding the rest of the upload. All
// successful items share one final commit; if that commit fails they roll
// back together and the call fails.
func (s *Service) ImportBatch(ctx context.Context, deviceID string, sessions []SessionPayload) ([]Outcome, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	outcomes := make([]Outcome, 0, len(sessions))
	for i, payload := range sessions {
		outcomes = append(outcomes, s.importOne(ctx, tx, deviceID, i, payload))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// importOne validates and persists a single session under a savepoint so
// a mid-item persistence failure cannot poison the shared transaction.
func (s *Service) importOne(ctx context.Context, tx pgx.Tx, deviceID string, index int, payload SessionPayload) Outcome {
	failure := func(err error) Outcome {
		s.logger.Warn("bulk import item failed",
			zap.String("device_id", deviceID),
			zap.Int("index", index),
			zap.Error(err))
		return Outcome{Status: StatusError, Error: err.Error(), StartTime: payload.StartTime}
	}

	start, err := parseISOTime(payload.StartTime)
	if err != nil {
		return failure(fmt.Errorf("start_time: %w", err))
	}
	end, err := parseISOTime(payload.EndTime)
	if err != nil {
		return failure(fmt.Errorf("end_time: %w", err))
	}
	if end.Before(start) {
		return failure(errors.New("end_time before start_time"))
	}

	timestamps := make([]time.Time, len(payload.DataPoints))
	for j, p := range payload.DataPoints {
		ts, err := parseISOTime(p.Timestamp)
		if err != nil {
			return failure(fmt.Errorf("data_points[%d].timestamp: %w", j, err))
		}
		timestamps[j] = ts
	}

	sp := fmt.Sprintf("import_item_%d", index)
	if _, err := tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
		return failure(err)
	}

	raw, _ := json.Marshal(payload)
	sessionID := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO fitness_sessions (id, device_id, start_time, end_time, total_time_seconds, total_distance_km, total_calories_kcal, average_speed_kmh, average_rpm, average_mets, raw_data)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, sessionID, deviceID, start, end, payload.TotalTimeSeconds, payload.TotalDistanceKm,
		payload.TotalCaloriesKcal, payload.AverageSpeedKmh, payload.AverageRPM, payload.AverageMets, raw)
	if err == nil {
		for j, p := range payload.DataPoints {
			if _, err = tx.Exec(ctx, `
				INSERT INTO data_points (session_id, timestamp, speed_kmh, rpm, distance_km, calories_kcal, time_seconds, mets)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			`, sessionID, timestamps[j], p.SpeedKmh, p.RPM, p.DistanceKm, p.CaloriesKcal, p.TimeSeconds, p.Mets); err != nil {
				break
			}
		}
	}
	if err != nil {
		if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
			return failure(rbErr)
		}
		return failure(err)
	}
	if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
		return failure(err)
	}

	return Outcome{Status: StatusSuccess, SessionID: sessionID, StartTime: start.Format(time.RFC3339)}
}

// parseISOTime accepts RFC 3339 as well as the zone-less ISO form the
// device firmware writes.
func parseISOTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", value)
}
