package archive

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

type exportRow struct {
	sessionID string
	deviceID  string
	payload   SessionPayload
}

// Export returns all sessions starting within [from, to), grouped by
// device, each with its points in timestamp order. The payload shape is
// the bulk-upload shape, so an export re-imports losslessly.
func (s *Service) Export(ctx context.Context, from, to time.Time, deviceID string) ([]DeviceExport, error) {
	// Only finished sessions are exported: the archive format requires an
	// end_time, and a still-open session would not re-import.
	query := `
		SELECT id, device_id, start_time, end_time, total_time_seconds, total_distance_km, total_calories_kcal, average_speed_kmh, average_rpm, average_mets
		FROM fitness_sessions
		WHERE start_time >= $1 AND start_time < $2 AND end_time IS NOT NULL`
	args := []any{from, to}
	if deviceID != "" {
		query += ` AND device_id = $3`
		args = append(args, deviceID)
	}
	query += ` ORDER BY device_id, start_time`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []exportRow
	for rows.Next() {
		var row exportRow
		var start, end time.Time
		if err := rows.Scan(&row.sessionID, &row.deviceID, &start, &end,
			&row.payload.TotalTimeSeconds, &row.payload.TotalDistanceKm, &row.payload.TotalCaloriesKcal,
			&row.payload.AverageSpeedKmh, &row.payload.AverageRPM, &row.payload.AverageMets); err != nil {
			return nil, err
		}
		row.payload.StartTime = start.UTC().Format(time.RFC3339)
		row.payload.EndTime = end.UTC().Format(time.RFC3339)
		sessions = append(sessions, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sessions {
		points, err := s.exportPoints(ctx, sessions[i].sessionID)
		if err != nil {
			return nil, err
		}
		sessions[i].payload.DataPoints = points
	}

	var exports []DeviceExport
	for _, row := range sessions {
		if len(exports) == 0 || exports[len(exports)-1].DeviceID != row.deviceID {
			exports = append(exports, DeviceExport{DeviceID: row.deviceID})
		}
		last := &exports[len(exports)-1]
		last.Sessions = append(last.Sessions, row.payload)
	}
	return exports, nil
}

func (s *Service) exportPoints(ctx context.Context, sessionID string) ([]PointPayload, error) {
	rows, err := s.db.Query(ctx, `
		SELECT timestamp, speed_kmh, rpm, distance_km, calories_kcal, time_seconds, mets
		FROM data_points
		WHERE session_id = $1
		ORDER BY timestamp
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []PointPayload
	for rows.Next() {
		var p PointPayload
		var ts time.Time
		if err := rows.Scan(&ts, &p.SpeedKmh, &p.RPM, &p.DistanceKm, &p.CaloriesKcal, &p.TimeSeconds, &p.Mets); err != nil {
			return nil, err
		}
		p.Timestamp = ts.UTC().Format(time.RFC3339)
		points = append(points, p)
	}
	return points, rows.Err()
}

var sessionCSVHeader = []string{
	"device_id", "start_time", "end_time", "total_time_seconds", "total_distance_km",
	"total_calories_kcal", "average_speed_kmh", "average_rpm", "average_mets", "point_count",
}

var pointCSVHeader = []string{
	"device_id", "session_start_time", "timestamp", "speed_kmh", "rpm",
	"distance_km", "calories_kcal", "time_seconds", "mets",
}

// WriteZIP packages an export as sessions.csv plus data_points.csv, with
// points correlated to their session by (device_id, session_start_time).
func WriteZIP(w io.Writer, exports []DeviceExport) error {
	zw := zip.NewWriter(w)

	sessionsFile, err := zw.Create("sessions.csv")
	if err != nil {
		return err
	}
	sw := csv.NewWriter(sessionsFile)
	if err := sw.Write(sessionCSVHeader); err != nil {
		return err
	}
	for _, exp := range exports {
		for _, sess := range exp.Sessions {
			record := []string{
				exp.DeviceID, sess.StartTime, sess.EndTime,
				strconv.FormatInt(sess.TotalTimeSeconds, 10),
				formatFloat(sess.TotalDistanceKm),
				formatFloat(sess.TotalCaloriesKcal),
				formatFloat(sess.AverageSpeedKmh),
				formatFloat(sess.AverageRPM),
				formatFloat(sess.AverageMets),
				strconv.Itoa(len(sess.DataPoints)),
			}
			if err := sw.Write(record); err != nil {
				return err
			}
		}
	}
	sw.Flush()
	if err := sw.Error(); err != nil {
		return err
	}

	pointsFile, err := zw.Create("data_points.csv")
	if err != nil {
		return err
	}
	pw := csv.NewWriter(pointsFile)
	if err := pw.Write(pointCSVHeader); err != nil {
		return err
	}
	for _, exp := range exports {
		for _, sess := range exp.Sessions {
			for _, p := range sess.DataPoints {
				record := []string{
					exp.DeviceID, sess.StartTime, p.Timestamp,
					formatFloat(p.SpeedKmh),
					formatFloat(p.RPM),
					formatFloat(p.DistanceKm),
					formatFloat(p.CaloriesKcal),
					strconv.FormatInt(p.TimeSeconds, 10),
					formatFloat(p.Mets),
				}
				if err := pw.Write(record); err != nil {
					return err
				}
			}
		}
	}
	pw.Flush()
	if err := pw.Error(); err != nil {
		return err
	}

	return zw.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
