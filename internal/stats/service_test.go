package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

var errStats = errors.New("stats error")

func newStatsMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func bucketRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"bucket", "avg_speed", "avg_rpm", "distance", "calories", "count"})
}

func TestDailyBucketsEmptyDay(t *testing.T) {
	mock := newStatsMock(t)
	mock.ExpectQuery(`SELECT date_trunc`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(bucketRows())

	svc := NewService(mock, time.UTC)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	buckets, err := svc.DailyBuckets(context.Background(), day)
	if err != nil {
		t.Fatalf("daily buckets: %v", err)
	}
	if len(buckets) != 96 {
		t.Fatalf("expected 96 buckets, got %d", len(buckets))
	}
	for i, b := range buckets {
		want := day.Add(time.Duration(i) * 15 * time.Minute)
		if !b.Time.Equal(want) {
			t.Fatalf("bucket %d: expected %v, got %v", i, want, b.Time)
		}
		if b.PointCount != 0 || b.AvgSpeedKmh != 0 {
			t.Fatalf("bucket %d: expected zero values, got %+v", i, b)
		}
	}
}

func TestDailyBucketsFillsMatchingInterval(t *testing.T) {
	mock := newStatsMock(t)
	loc := time.FixedZone("JST", 9*3600)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)

	// 07:30 local falls into bucket index 30.
	mock.ExpectQuery(`SELECT date_trunc`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(bucketRows().AddRow(day.Add(7*time.Hour+30*time.Minute).UTC(), 22.5, 78.0, 1.4, 31.0, int64(18)))

	svc := NewService(mock, loc)
	buckets, err := svc.DailyBuckets(context.Background(), day)
	if err != nil {
		t.Fatalf("daily buckets: %v", err)
	}
	got := buckets[30]
	if got.AvgSpeedKmh != 22.5 || got.AvgRPM != 78.0 || got.TotalDistance != 1.4 || got.TotalCalories != 31.0 || got.PointCount != 18 {
		t.Fatalf("unexpected bucket values: %+v", got)
	}
	if buckets[29].PointCount != 0 || buckets[31].PointCount != 0 {
		t.Fatalf("neighbouring buckets should stay zero")
	}
}

func TestDailyBucketsIgnoresOutOfRangeRow(t *testing.T) {
	mock := newStatsMock(t)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT date_trunc`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(bucketRows().AddRow(day.Add(25*time.Hour), 10.0, 60.0, 0.5, 12.0, int64(3)))

	svc := NewService(mock, time.UTC)
	buckets, err := svc.DailyBuckets(context.Background(), day)
	if err != nil {
		t.Fatalf("daily buckets: %v", err)
	}
	for i, b := range buckets {
		if b.PointCount != 0 {
			t.Fatalf("bucket %d: expected zero, got %+v", i, b)
		}
	}
}

func TestCumulativeTotals(t *testing.T) {
	mock := newStatsMock(t)
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(total_time_seconds`).
		WillReturnRows(pgxmock.NewRows([]string{"time", "distance", "calories"}).
			AddRow(int64(7200), 45.6, 980.0))

	svc := NewService(mock, time.UTC)
	totals, err := svc.CumulativeTotals(context.Background())
	if err != nil {
		t.Fatalf("cumulative totals: %v", err)
	}
	if totals.TotalTimeSeconds != 7200 || totals.TotalDistanceKm != 45.6 || totals.TotalCaloriesKcal != 980.0 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestCurrentSessionWithLatestPoint(t *testing.T) {
	mock := newStatsMock(t)
	started := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, start_time`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "start_time", "time", "distance", "calories"}).
			AddRow("session-1", started, int64(600), 4.1, 88.0))
	mock.ExpectQuery(`SELECT speed_kmh, rpm, mets`).
		WithArgs("session-1").
		WillReturnRows(pgxmock.NewRows([]string{"speed", "rpm", "mets"}).AddRow(25.2, 84.0, 6.8))

	svc := NewService(mock, time.UTC)
	snap, err := svc.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if snap.SessionID != "session-1" || snap.CurrentSpeedKmh != 25.2 || snap.CurrentRPM != 84.0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestCurrentSessionWithoutPoints(t *testing.T) {
	mock := newStatsMock(t)
	mock.ExpectQuery(`SELECT id, start_time`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "start_time", "time", "distance", "calories"}).
			AddRow("session-1", time.Now(), int64(0), 0.0, 0.0))
	mock.ExpectQuery(`SELECT speed_kmh, rpm, mets`).
		WithArgs("session-1").
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(mock, time.UTC)
	snap, err := svc.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if snap.CurrentSpeedKmh != 0 || snap.CurrentRPM != 0 || snap.CurrentMets != 0 {
		t.Fatalf("expected zero instantaneous values, got %+v", snap)
	}
}

func TestCurrentSessionNoneActive(t *testing.T) {
	mock := newStatsMock(t)
	mock.ExpectQuery(`SELECT id, start_time`).
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(mock, time.UTC)
	_, err := svc.CurrentSession(context.Background())
	if !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected no-active-session error, got %v", err)
	}
}

func TestSessionDetailNotFound(t *testing.T) {
	mock := newStatsMock(t)
	mock.ExpectQuery(`SELECT id, device_id`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(mock, time.UTC)
	_, _, err := svc.SessionDetail(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestSessionDetailReturnsPoints(t *testing.T) {
	mock := newStatsMock(t)
	started := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	ended := started.Add(20 * time.Minute)

	mock.ExpectQuery(`SELECT id, device_id`).
		WithArgs("session-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "device_id", "start", "end", "time", "distance", "calories", "speed", "rpm", "mets"}).
			AddRow("session-1", "m5stack-01", started, &ended, int64(1200), 8.3, 176.0, 24.9, 81.0, 6.4))
	mock.ExpectQuery(`SELECT id, session_id, timestamp`).
		WithArgs("session-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "ts", "speed", "rpm", "distance", "calories", "time", "mets"}).
			AddRow(int64(1), "session-1", started, 23.0, 80.0, 0.4, 9.0, int64(60), 6.1).
			AddRow(int64(2), "session-1", started.Add(time.Minute), 25.0, 82.0, 0.8, 18.0, int64(120), 6.6))

	svc := NewService(mock, time.UTC)
	session, points, err := svc.SessionDetail(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("session detail: %v", err)
	}
	if session.ID != "session-1" || session.EndTime == nil || !session.EndTime.Equal(ended) {
		t.Fatalf("unexpected session: %+v", session)
	}
	if len(points) != 2 || points[1].TimeSeconds != 120 {
		t.Fatalf("unexpected points: %+v", points)
	}
}

func TestHistoryWindow(t *testing.T) {
	mock := newStatsMock(t)
	started := time.Now().Add(-2 * time.Hour)
	mock.ExpectQuery(`SELECT id, device_id`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "device_id", "start", "end", "time", "distance", "calories", "speed", "rpm", "mets"}).
			AddRow("session-2", "m5stack-01", started, (*time.Time)(nil), int64(300), 2.0, 44.0, 24.0, 80.0, 6.0))

	svc := NewService(mock, time.UTC)
	sessions, err := svc.History(context.Background(), 7*24*time.Hour)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "session-2" || sessions[0].EndTime != nil {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
}

func TestHistoryQueryError(t *testing.T) {
	mock := newStatsMock(t)
	mock.ExpectQuery(`SELECT id, device_id`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(errStats)

	svc := NewService(mock, time.UTC)
	if _, err := svc.History(context.Background(), 24*time.Hour); err == nil {
		t.Fatalf("expected query error")
	}
}
