package stats

import "time"

// Bucket is one fixed 15-minute aggregation interval. A day is always
// reported as 96 contiguous buckets; intervals without samples stay
// zero-valued.
type Bucket struct {
	Time          time.Time `json:"time"`
	AvgSpeedKmh   float64   `json:"avg_speed"`
	AvgRPM        float64   `json:"avg_rpm"`
	TotalDistance float64   `json:"total_distance"`
	TotalCalories float64   `json:"total_calories"`
	PointCount    int64     `json:"point_count"`
}

// Totals are the lifetime sums across every recorded session, open or
// closed.
type Totals struct {
	TotalTimeSeconds  int64   `json:"total_time_seconds"`
	TotalDistanceKm   float64 `json:"total_distance_km"`
	TotalCaloriesKcal float64 `json:"total_calories_kcal"`
}

// Snapshot describes the currently running session for the dashboard:
// the stored running totals plus the newest point's instantaneous values.
type Snapshot struct {
	SessionID         string    `json:"session_id"`
	StartTime         time.Time `json:"start_time"`
	TotalTimeSeconds  int64     `json:"total_time_seconds"`
	TotalDistanceKm   float64   `json:"total_distance_km"`
	TotalCaloriesKcal float64   `json:"total_calories_kcal"`
	CurrentSpeedKmh   float64   `json:"current_speed_kmh"`
	CurrentRPM        float64   `json:"current_rpm"`
	CurrentMets       float64   `json:"current_mets"`
}
