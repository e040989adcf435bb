package telemetry

import (
	"encoding/json"
	"time"
)

// Packet is one telemetry report from the device. The total_* and average_*
// fields carry the device's own running values for the whole session, not
// deltas; the device is the source of truth for session aggregates.
type Packet struct {
	DeviceID string `json:"device_id"`

	SpeedKmh     float64 `json:"speed_kmh"`
	RPM          float64 `json:"rpm"`
	DistanceKm   float64 `json:"distance_km"`
	CaloriesKcal float64 `json:"calories_kcal"`
	TimeSeconds  int64   `json:"time_seconds"`
	Mets         float64 `json:"mets"`

	TotalTimeSeconds  int64   `json:"total_time_seconds"`
	TotalDistanceKm   float64 `json:"total_distance_km"`
	TotalCaloriesKcal float64 `json:"total_calories_kcal"`
	AverageSpeedKmh   float64 `json:"average_speed_kmh"`
	AverageRPM        float64 `json:"average_rpm"`
	AverageMets       float64 `json:"average_mets"`

	// TimestampMS optionally overrides the server-assigned point time with
	// a device epoch in milliseconds. Values that fail to convert fall back
	// to server time rather than failing the request.
	TimestampMS json.Number `json:"timestamp_ms,omitempty"`
}

type Session struct {
	ID                string     `json:"id"`
	DeviceID          string     `json:"device_id"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	TotalTimeSeconds  int64      `json:"total_time_seconds"`
	TotalDistanceKm   float64    `json:"total_distance_km"`
	TotalCaloriesKcal float64    `json:"total_calories_kcal"`
	AverageSpeedKmh   float64    `json:"average_speed_kmh"`
	AverageRPM        float64    `json:"average_rpm"`
	AverageMets       float64    `json:"average_mets"`
}

type DataPoint struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"session_id"`
	Timestamp    time.Time `json:"timestamp"`
	SpeedKmh     float64   `json:"speed_kmh"`
	RPM          float64   `json:"rpm"`
	DistanceKm   float64   `json:"distance_km"`
	CaloriesKcal float64   `json:"calories_kcal"`
	TimeSeconds  int64     `json:"time_seconds"`
	Mets         float64   `json:"mets"`
}
