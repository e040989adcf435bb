package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Hakomatsu/fit2go-dashboard/internal/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var ErrDeviceRequired = errors.New("device_id is required")

type Service struct {
	db     db.Pool
	logger *zap.Logger

	mu      sync.Mutex
	devices map[string]*sync.Mutex
}

func NewService(pool db.Pool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:      pool,
		logger:  logger,
		devices: map[string]*sync.Mutex{},
	}
}

// deviceLock serializes session lookup+create per device so two racing
// packets cannot both observe "no active session".
func (s *Service) deviceLock(deviceID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.devices[deviceID]
	if !ok {
		lock = &sync.Mutex{}
		s.devices[deviceID] = lock
	}
	return lock
}

// Ingest reconciles one packet into the device's active session, creating
// a session if none is open, appends a data point, and overwrites the
// session aggregates with the packet's self-reported totals. The whole
// operation runs in a single transaction; any failure leaves no partial
// state.
func (s *Service) Ingest(ctx context.Context, packet Packet, raw []byte) (string, bool, error) {
	if packet.DeviceID == "" {
		return "", false, ErrDeviceRequired
	}

	lock := s.deviceLock(packet.DeviceID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sessionID, created, err := s.resolveSession(ctx, tx, packet)
	if err != nil {
		return "", false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO data_points (session_id, timestamp, speed_kmh, rpm, distance_km, calories_kcal, time_seconds, mets)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, sessionID, pointTime(packet), packet.SpeedKmh, packet.RPM, packet.DistanceKm, packet.CaloriesKcal, packet.TimeSeconds, packet.Mets)
	if err != nil {
		return "", false, err
	}

	// Last write wins: each packet carries the device's authoritative
	// running totals, so they replace the stored aggregates.
	_, err = tx.Exec(ctx, `
		UPDATE fitness_sessions
		SET total_time_seconds=$2, total_distance_km=$3, total_calories_kcal=$4,
		    average_speed_kmh=$5, average_rpm=$6, average_mets=$7, raw_data=$8
		WHERE id=$1
	`, sessionID, packet.TotalTimeSeconds, packet.TotalDistanceKm, packet.TotalCaloriesKcal,
		packet.AverageSpeedKmh, packet.AverageRPM, packet.AverageMets, raw)
	if err != nil {
		return "", false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", false, err
	}
	return sessionID, created, nil
}

// resolveSession finds the device's open session or creates one. Creation
// inserts through the partial unique index on (device_id, open): a
// concurrent writer that wins the race makes the insert a no-op, and we
// collapse onto the winning row instead of surfacing the conflict.
func (s *Service) resolveSession(ctx context.Context, tx pgx.Tx, packet Packet) (string, bool, error) {
	var sessionID string
	err := tx.QueryRow(ctx, `
		SELECT id FROM fitness_sessions
		WHERE device_id=$1 AND end_time IS NULL
	`, packet.DeviceID).Scan(&sessionID)
	if err == nil {
		return sessionID, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO fitness_sessions (id, device_id, start_time, total_time_seconds, total_distance_km, total_calories_kcal, average_speed_kmh, average_rpm, average_mets)
		VALUES ($1,$2,now(),$3,$4,$5,$6,$7,$8)
		ON CONFLICT (device_id) WHERE end_time IS NULL DO NOTHING
		RETURNING id
	`, uuid.NewString(), packet.DeviceID, packet.TotalTimeSeconds, packet.TotalDistanceKm,
		packet.TotalCaloriesKcal, packet.AverageSpeedKmh, packet.AverageRPM, packet.AverageMets).Scan(&sessionID)
	if err == nil {
		return sessionID, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, err
	}

	s.logger.Debug("active session race collapsed onto winner",
		zap.String("device_id", packet.DeviceID))

	err = tx.QueryRow(ctx, `
		SELECT id FROM fitness_sessions
		WHERE device_id=$1 AND end_time IS NULL
	`, packet.DeviceID).Scan(&sessionID)
	if err != nil {
		return "", false, err
	}
	return sessionID, false, nil
}

// pointTime prefers the device-supplied epoch milliseconds over server
// time. Missing or malformed values never fail the request.
func pointTime(packet Packet) time.Time {
	if packet.TimestampMS != "" {
		if ms, err := packet.TimestampMS.Int64(); err == nil && ms > 0 {
			return time.UnixMilli(ms).UTC()
		}
	}
	return time.Now().UTC()
}
