package fitsync

import (
	"context"
	"errors"
	"time"

	"github.com/Hakomatsu/fit2go-dashboard/internal/db"
	"github.com/Hakomatsu/fit2go-dashboard/internal/telemetry"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// Target receives a finished session for delivery to an external service.
type Target interface {
	Name() string
	Upload(ctx context.Context, session telemetry.Session, points []telemetry.DataPoint) error
}

type TargetResult struct {
	Target  string `json:"target"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type Service struct {
	db      db.Querier
	targets []Target
	logger  *zap.Logger
}

func NewService(q db.Querier, targets []Target, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: q, targets: targets, logger: logger}
}

// CloseSession stamps end_time on the session. Closing an already-closed
// session keeps its stored end and returns it unchanged.
func (s *Service) CloseSession(ctx context.Context, sessionID string) (telemetry.Session, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE fitness_sessions
		SET end_time = COALESCE(end_time, GREATEST(now(), start_time))
		WHERE id = $1
		RETURNING id, device_id, start_time, end_time, total_time_seconds, total_distance_km, total_calories_kcal, average_speed_kmh, average_rpm, average_mets
	`, sessionID)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return telemetry.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return telemetry.Session{}, err
	}
	return session, nil
}

// Dispatch delivers the session to every registered target. Delivery is
// best-effort; failures are reported per target and never touch the store.
func (s *Service) Dispatch(ctx context.Context, sessionID string) ([]TargetResult, error) {
	session, points, err := s.sessionWithPoints(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	results := make([]TargetResult, 0, len(s.targets))
	for _, target := range s.targets {
		result := TargetResult{Target: target.Name()}
		if err := target.Upload(ctx, session, points); err != nil {
			result.Error = err.Error()
			s.logger.Warn("sync target failed",
				zap.String("target", target.Name()),
				zap.String("session_id", sessionID),
				zap.Error(err))
		} else {
			result.Success = true
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Service) sessionWithPoints(ctx context.Context, sessionID string) (telemetry.Session, []telemetry.DataPoint, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, device_id, start_time, end_time, total_time_seconds, total_distance_km, total_calories_kcal, average_speed_kmh, average_rpm, average_mets
		FROM fitness_sessions
		WHERE id = $1
	`, sessionID)
	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return telemetry.Session{}, nil, ErrSessionNotFound
	}
	if err != nil {
		return telemetry.Session{}, nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, timestamp, speed_kmh, rpm, distance_km, calories_kcal, time_seconds, mets
		FROM data_points
		WHERE session_id = $1
		ORDER BY timestamp
	`, sessionID)
	if err != nil {
		return telemetry.Session{}, nil, err
	}
	defer rows.Close()

	var points []telemetry.DataPoint
	for rows.Next() {
		var p telemetry.DataPoint
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Timestamp, &p.SpeedKmh, &p.RPM, &p.DistanceKm, &p.CaloriesKcal, &p.TimeSeconds, &p.Mets); err != nil {
			return telemetry.Session{}, nil, err
		}
		points = append(points, p)
	}
	return session, points, rows.Err()
}

func scanSession(row pgx.Row) (telemetry.Session, error) {
	var session telemetry.Session
	var end *time.Time
	err := row.Scan(&session.ID, &session.DeviceID, &session.StartTime, &end,
		&session.TotalTimeSeconds, &session.TotalDistanceKm, &session.TotalCaloriesKcal,
		&session.AverageSpeedKmh, &session.AverageRPM, &session.AverageMets)
	if err != nil {
		return telemetry.Session{}, err
	}
	session.EndTime = end
	return session, nil
}
