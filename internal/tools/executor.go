package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/usecases"
	"github.com/cleitonmarx/symbiont/depend"
	"github.com/toon-format/toon-go"
)

// MetricEntry is one stored measurement.
type MetricEntry struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
	Date  string  `json:"date"`
}

// MetricStore is the in-memory backing of the reference executor, keyed by
// user so concurrent conversations never see each other's data. Real hosts
// replace the whole executor with their own domain logic.
type MetricStore struct {
	mu      sync.Mutex
	entries map[string][]MetricEntry
}

// NewMetricStore creates an empty store.
func NewMetricStore() *MetricStore {
	return &MetricStore{entries: map[string][]MetricEntry{}}
}

// Handlers builds the handler map backing the reference executor.
func (s *MetricStore) Handlers() map[string]usecases.ToolHandler {
	return map[string]usecases.ToolHandler{
		"fetch_metrics":   s.fetchMetrics,
		"analyze_context": s.analyzeContext,
		"record_metric":   s.recordMetric,
		"delete_metric":   s.deleteMetric,
	}
}

func (s *MetricStore) fetchMetrics(ctx context.Context, args map[string]any, execCtx domain.ToolExecutionContext) (any, error) {
	metricType, _ := args["type"].(string)

	from, err := parseDateArg(args, "from", time.Time{})
	if err != nil {
		return nil, err
	}
	to, err := parseDateArg(args, "to", time.Time{})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []MetricEntry
	for _, entry := range s.entries[execCtx.UserID] {
		if metricType != "" && entry.Type != metricType {
			continue
		}
		entryDate, parseErr := dateparse.ParseAny(entry.Date)
		if parseErr == nil {
			if !from.IsZero() && entryDate.Before(from) {
				continue
			}
			if !to.IsZero() && entryDate.After(to) {
				continue
			}
		}
		matched = append(matched, entry)
	}

	if len(matched) == 0 {
		return "No metrics recorded for the given filters.", nil
	}
	return toon.MarshalString(matched, toon.WithLengthMarkers(true))
}

func (s *MetricStore) analyzeContext(ctx context.Context, args map[string]any, execCtx domain.ToolExecutionContext) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userEntries := s.entries[execCtx.UserID]
	if len(userEntries) == 0 {
		return "No metrics recorded yet.", nil
	}

	byType := map[string][]MetricEntry{}
	for _, entry := range userEntries {
		byType[entry.Type] = append(byType[entry.Type], entry)
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	summary := map[string]any{}
	for _, t := range types {
		entries := byType[t]
		total := 0.0
		for _, e := range entries {
			total += e.Value
		}
		summary[t] = map[string]any{
			"count":  len(entries),
			"latest": entries[len(entries)-1],
			"mean":   total / float64(len(entries)),
		}
	}
	return toon.MarshalString(summary, toon.WithLengthMarkers(true))
}

func (s *MetricStore) recordMetric(ctx context.Context, args map[string]any, execCtx domain.ToolExecutionContext) (any, error) {
	metricType, _ := args["type"].(string)
	if metricType == "" {
		return nil, domain.NewToolValidationErr("record_metric", "type is required")
	}
	value, ok := args["value"].(float64)
	if !ok {
		return nil, domain.NewToolValidationErr("record_metric", "value must be a number")
	}
	unit, _ := args["unit"].(string)

	date, err := parseDateArg(args, "date", time.Now())
	if err != nil {
		return nil, err
	}

	entry := MetricEntry{
		Type:  metricType,
		Value: value,
		Unit:  unit,
		Date:  date.Format("2006-01-02"),
	}

	s.mu.Lock()
	s.entries[execCtx.UserID] = append(s.entries[execCtx.UserID], entry)
	s.mu.Unlock()

	return toon.MarshalString(map[string]any{"recorded": entry}, toon.WithLengthMarkers(true))
}

func (s *MetricStore) deleteMetric(ctx context.Context, args map[string]any, execCtx domain.ToolExecutionContext) (any, error) {
	metricType, _ := args["type"].(string)
	if metricType == "" {
		return nil, domain.NewToolValidationErr("delete_metric", "type is required")
	}
	date, err := parseDateArg(args, "date", time.Time{})
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, domain.NewToolValidationErr("delete_metric", "date is required")
	}
	day := date.Format("2006-01-02")

	s.mu.Lock()
	defer s.mu.Unlock()

	userEntries := s.entries[execCtx.UserID]
	for i, entry := range userEntries {
		if entry.Type == metricType && entry.Date == day {
			s.entries[execCtx.UserID] = append(userEntries[:i], userEntries[i+1:]...)
			return fmt.Sprintf("Deleted %s entry from %s.", metricType, day), nil
		}
	}
	return nil, domain.NewToolExecutionErr("delete_metric", fmt.Sprintf("no %s entry found for %s", metricType, day))
}

// parseDateArg reads an optional date argument in any common format.
// "today" and "yesterday" are resolved relative to the current day.
func parseDateArg(args map[string]any, key string, fallback time.Time) (time.Time, error) {
	raw, _ := args[key].(string)
	switch raw {
	case "":
		return fallback, nil
	case "today":
		return time.Now(), nil
	case "yesterday":
		return time.Now().AddDate(0, 0, -1), nil
	}

	parsed, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, domain.NewToolValidationErr(key, fmt.Sprintf("cannot parse %s date %q", key, raw))
	}
	return parsed, nil
}

// InitToolExecutor is the initializer for the reference tool executor.
type InitToolExecutor struct{}

// Initialize registers the executor in the dependency container under the
// domain.ToolExecutor port.
func (i InitToolExecutor) Initialize(ctx context.Context) (context.Context, error) {
	store := NewMetricStore()
	depend.Register(store)
	depend.Register[domain.ToolExecutor](usecases.NewSimpleExecutor(store.Handlers(), RequiresConfirmation))
	return ctx, nil
}
