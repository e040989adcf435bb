package archive

// PointPayload is the wire form of a data point in bulk uploads and
// exports. Timestamps are ISO-8601 strings exactly as the device writes
// them to its SD card.
type PointPayload struct {
	Timestamp    string  `json:"timestamp"`
	SpeedKmh     float64 `json:"speed_kmh"`
	RPM          float64 `json:"rpm"`
	DistanceKm   float64 `json:"distance_km"`
	CaloriesKcal float64 `json:"calories_kcal"`
	TimeSeconds  int64   `json:"time_seconds"`
	Mets         float64 `json:"mets"`
}

// SessionPayload is the wire form of one already-finished session. The
// same shape is produced by export so that exported data re-imports
// without loss.
type SessionPayload struct {
	StartTime         string         `json:"start_time"`
	EndTime           string         `json:"end_time"`
	TotalTimeSeconds  int64          `json:"total_time_seconds"`
	TotalDistanceKm   float64        `json:"total_distance_km"`
	TotalCaloriesKcal float64        `json:"total_calories_kcal"`
	AverageSpeedKmh   float64        `json:"average_speed_kmh"`
	AverageRPM        float64        `json:"average_rpm"`
	AverageMets       float64        `json:"average_mets"`
	DataPoints        []PointPayload `json:"data_points"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Outcome reports the fate of one session in a bulk upload. Failures keep
// the original start_time string so the device can correlate them.
type Outcome struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	Error     string `json:"error,omitempty"`
}

type UploadRequest struct {
	DeviceID string           `json:"device_id"`
	Sessions []SessionPayload `json:"sessions"`
}

type DeviceExport struct {
	DeviceID string           `json:"device_id"`
	Sessions []SessionPayload `json:"sessions"`
}
