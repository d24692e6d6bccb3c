package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"
)

// Exporter delivers daily summaries to an external system.
type Exporter interface {
	Export(ctx context.Context, data DailySummary) error
	Flush(ctx context.Context) error
}

// HTTPExporter batches summaries and posts them as JSON.
type HTTPExporter struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	buffer     []DailySummary
	batchSize  int
}

func NewHTTPExporter(endpoint, apiKey string, batchSize int) *HTTPExporter {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &HTTPExporter{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		buffer:     make([]DailySummary, 0, batchSize),
		batchSize:  batchSize,
	}
}

func (e *HTTPExporter) Export(ctx context.Context, data DailySummary) error {
	e.buffer = append(e.buffer, data)
	if len(e.buffer) >= e.batchSize {
		return e.Flush(ctx)
	}
	return nil
}

func (e *HTTPExporter) Flush(ctx context.Context) error {
	if len(e.buffer) == 0 {
		return nil
	}
	payload, err := json.Marshal(e.buffer)
	if err != nil {
		return fmt.Errorf("marshal analytics batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create export request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send analytics batch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("analytics export failed with status %d: %s", resp.StatusCode, string(body))
	}
	e.buffer = e.buffer[:0]
	return nil
}

// WriteCSV renders every recorded day as CSV, oldest first.
func WriteCSV(w io.Writer, agg *Aggregator) error {
	days := agg.Days()
	sort.Strings(days)

	cw := csv.NewWriter(w)
	header := []string{"day", "active_learners", "lessons_completed", "xp_awarded",
		"level_ups", "achievements_unlocked", "challenges_completed", "streaks_extended"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, day := range days {
		s := agg.Summary(day)
		row := []string{
			s.Day,
			strconv.Itoa(s.ActiveLearners),
			strconv.FormatInt(s.LessonsCompleted, 10),
			strconv.FormatInt(s.XPAwarded, 10),
			strconv.FormatInt(s.LevelUps, 10),
			strconv.FormatInt(s.AchievementsUnlocked, 10),
			strconv.FormatInt(s.ChallengesCompleted, 10),
			strconv.FormatInt(s.StreaksExtended, 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
