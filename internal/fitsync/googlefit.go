package fitsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Hakomatsu/fit2go-dashboard/internal/telemetry"
)

const googleFitProvider = "google_fit"

// GoogleFit uploads a finished session to the Google Fit REST API as a
// dataset patch on an application-owned raw data source.
type GoogleFit struct {
	apiBase string
	appID   string
	tokens  TokenStore
	client  *http.Client
}

func NewGoogleFit(apiBase, appID string, tokens TokenStore) *GoogleFit {
	if apiBase == "" {
		apiBase = "https://www.googleapis.com/fitness/v1"
	}
	return &GoogleFit{
		apiBase: apiBase,
		appID:   appID,
		tokens:  tokens,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *GoogleFit) Name() string { return googleFitProvider }

type fitValue struct {
	FpVal float64 `json:"fpVal"`
}

type fitPoint struct {
	StartTimeNanos int64      `json:"startTimeNanos"`
	EndTimeNanos   int64      `json:"endTimeNanos"`
	DataTypeName   string     `json:"dataTypeName"`
	Value          []fitValue `json:"value"`
}

type fitDataset struct {
	DataSourceID   string     `json:"dataSourceId"`
	MinStartTimeNs int64      `json:"minStartTimeNs"`
	MaxEndTimeNs   int64      `json:"maxEndTimeNs"`
	Point          []fitPoint `json:"point"`
}

func (g *GoogleFit) Upload(ctx context.Context, session telemetry.Session, points []telemetry.DataPoint) error {
	if len(points) == 0 {
		return fmt.Errorf("no data points recorded for session %s", session.ID)
	}

	token, err := g.tokens.Load(ctx, googleFitProvider)
	if err != nil {
		return err
	}

	end := time.Now().UTC()
	if session.EndTime != nil {
		end = *session.EndTime
	}
	startNanos := session.StartTime.UnixNano()
	endNanos := end.UnixNano()

	sourceID := fmt.Sprintf("raw:com.cycling:fit2go_dashboard:%s:cycling", g.appID)
	dataset := fitDataset{
		DataSourceID:   sourceID,
		MinStartTimeNs: startNanos,
		MaxEndTimeNs:   endNanos,
	}
	for _, p := range points {
		nanos := p.Timestamp.UnixNano()
		dataset.Point = append(dataset.Point,
			fitPoint{
				StartTimeNanos: nanos,
				EndTimeNanos:   nanos + int64(time.Second),
				DataTypeName:   "com.google.cycling.wheel_revolution.rpm",
				Value:          []fitValue{{FpVal: p.RPM}},
			},
			fitPoint{
				StartTimeNanos: nanos,
				EndTimeNanos:   nanos + int64(time.Second),
				DataTypeName:   "com.google.speed",
				Value:          []fitValue{{FpVal: p.SpeedKmh / 3.6}},
			})
		if p.CaloriesKcal > 0 {
			dataset.Point = append(dataset.Point, fitPoint{
				StartTimeNanos: nanos,
				EndTimeNanos:   nanos + int64(time.Second),
				DataTypeName:   "com.google.calories.expended",
				Value:          []fitValue{{FpVal: p.CaloriesKcal}},
			})
		}
	}

	body, err := json.Marshal(dataset)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/me/dataSources/%s/datasets/%d-%d",
		g.apiBase, url.PathEscape(sourceID), startNanos, endNanos)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("patch dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("google fit returned status %d", resp.StatusCode)
	}
	return nil
}
