package stats

import (
	"context"
	"errors"
	"time"

	"github.com/Hakomatsu/fit2go-dashboard/internal/db"
	"github.com/Hakomatsu/fit2go-dashboard/internal/telemetry"
	"github.com/jackc/pgx/v5"
)

const (
	bucketWidth   = 15 * time.Minute
	bucketsPerDay = 96
)

var (
	ErrNoActiveSession = errors.New("no active session")
	ErrSessionNotFound = errors.New("session not found")
)

type Service struct {
	db  db.Querier
	loc *time.Location
}

func NewService(q db.Querier, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{db: q, loc: loc}
}

// DailyBuckets aggregates the given local day into 96 contiguous
// 15-minute buckets, ascending, zero-filling intervals without samples.
func (s *Service) DailyBuckets(ctx context.Context, date time.Time) ([]Bucket, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.Add(24 * time.Hour)

	buckets := make([]Bucket, bucketsPerDay)
	for i := range buckets {
		buckets[i].Time = dayStart.Add(time.Duration(i) * bucketWidth)
	}

	rows, err := s.db.Query(ctx, `
		SELECT date_trunc('hour', timestamp) + floor(date_part('minute', timestamp) / 15) * interval '15 minutes' AS bucket,
		       COALESCE(AVG(speed_kmh), 0), COALESCE(AVG(rpm), 0),
		       COALESCE(SUM(distance_km), 0), COALESCE(SUM(calories_kcal), 0), COUNT(id)
		FROM data_points
		WHERE timestamp >= $1 AND timestamp < $2
		GROUP BY 1
		ORDER BY 1
	`, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var bucketTime time.Time
		var avgSpeed, avgRPM, distance, calories float64
		var count int64
		if err := rows.Scan(&bucketTime, &avgSpeed, &avgRPM, &distance, &calories, &count); err != nil {
			return nil, err
		}

		idx := int(bucketTime.Sub(dayStart) / bucketWidth)
		if idx < 0 || idx >= bucketsPerDay {
			continue
		}
		buckets[idx].AvgSpeedKmh = avgSpeed
		buckets[idx].AvgRPM = avgRPM
		buckets[idx].TotalDistance = distance
		buckets[idx].TotalCalories = calories
		buckets[idx].PointCount = count
	}
	return buckets, rows.Err()
}

// CumulativeTotals sums time, distance and calories over every session
// ever recorded, server-wide.
func (s *Service) CumulativeTotals(ctx context.Context) (Totals, error) {
	var totals Totals
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_time_seconds), 0), COALESCE(SUM(total_distance_km), 0), COALESCE(SUM(total_calories_kcal), 0)
		FROM fitness_sessions
	`).Scan(&totals.TotalTimeSeconds, &totals.TotalDistanceKm, &totals.TotalCaloriesKcal)
	if err != nil {
		return Totals{}, err
	}
	return totals, nil
}

// CurrentSession returns the newest open session with its latest point's
// instantaneous values. A session without points yet reports zeros.
func (s *Service) CurrentSession(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.db.QueryRow(ctx, `
		SELECT id, start_time, total_time_seconds, total_distance_km, total_calories_kcal
		FROM fitness_sessions
		WHERE end_time IS NULL
		ORDER BY start_time DESC
		LIMIT 1
	`).Scan(&snap.SessionID, &snap.StartTime, &snap.TotalTimeSeconds, &snap.TotalDistanceKm, &snap.TotalCaloriesKcal)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrNoActiveSession
	}
	if err != nil {
		return Snapshot{}, err
	}

	err = s.db.QueryRow(ctx, `
		SELECT speed_kmh, rpm, mets
		FROM data_points
		WHERE session_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`, snap.SessionID).Scan(&snap.CurrentSpeedKmh, &snap.CurrentRPM, &snap.CurrentMets)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, err
	}
	return snap, nil
}

// SessionDetail returns one session and its points ascending by time.
func (s *Service) SessionDetail(ctx context.Context, sessionID string) (telemetry.Session, []telemetry.DataPoint, error) {
	session, err := s.scanSession(ctx, sessionID)
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

// History lists sessions whose start falls within the trailing window,
// newest first.
func (s *Service) History(ctx context.Context, window time.Duration) ([]telemetry.Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, device_id, start_time, end_time, total_time_seconds, total_distance_km, total_calories_kcal, average_speed_kmh, average_rpm, average_mets
		FROM fitness_sessions
		WHERE start_time >= $1
		ORDER BY start_time DESC
	`, time.Now().Add(-window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []telemetry.Session
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *Service) scanSession(ctx context.Context, sessionID string) (telemetry.Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, device_id, start_time, end_time, total_time_seconds, total_distance_km, total_calories_kcal, average_speed_kmh, average_rpm, average_mets
		FROM fitness_sessions
		WHERE id = $1
	`, sessionID)
	session, err := scanSessionRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return telemetry.Session{}, ErrSessionNotFound
	}
	return session, err
}

func scanSessionRow(row pgx.Row) (telemetry.Session, error) {
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
