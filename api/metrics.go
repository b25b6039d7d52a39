package api

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// RequestTrace tracks timing for a single request
type RequestTrace struct {
	RequestID     string        `json:"requestId"`
	Method        string        `json:"method"`
	Path          string        `json:"path"`
	Status        int           `json:"status"`
	StartTime     time.Time     `json:"startTime"`
	TotalDuration time.Duration `json:"totalDuration"`
	Error         string        `json:"error,omitempty"`
}

// RouteMetrics aggregates metrics for a specific route
type RouteMetrics struct {
	Method      string        `json:"method"`
	Path        string        `json:"path"`
	Count       int64         `json:"count"`
	ErrorCount  int64         `json:"errorCount"`
	TotalTime   time.Duration `json:"totalTime"`
	AvgTime     time.Duration `json:"avgTime"`
	MinTime     time.Duration `json:"minTime"`
	MaxTime     time.Duration `json:"maxTime"`
	LastRequest time.Time     `json:"lastRequest"`
}

// Summary is the overall view returned by the metrics endpoint
type Summary struct {
	TotalRequests int64                    `json:"totalRequests"`
	TotalErrors   int64                    `json:"totalErrors"`
	ErrorRate     float64                  `json:"errorRate"`
	WindowStart   time.Time                `json:"windowStart"`
	TraceCount    int                      `json:"traceCount"`
	Routes        map[string]*RouteMetrics `json:"routes"`
}

// MetricsCollector aggregates request traces in the background. Recording
// never blocks a request: traces are dropped when the queue is full.
type MetricsCollector struct {
	mu            sync.RWMutex
	traces        []RequestTrace
	maxTraces     int
	routeMetrics  map[string]*RouteMetrics
	windowStart   time.Time
	totalRequests int64
	totalErrors   int64

	traceChan chan RequestTrace
	done      chan struct{}
}

// NewMetrics starts a collector keeping at most maxTraces recent traces. It
// stops when ctx is cancelled.
func NewMetrics(ctx context.Context, maxTraces int) *MetricsCollector {
	mc := &MetricsCollector{
		traces:       make([]RequestTrace, 0, maxTraces),
		maxTraces:    maxTraces,
		routeMetrics: make(map[string]*RouteMetrics),
		windowStart:  time.Now(),
		traceChan:    make(chan RequestTrace, 1000),
		done:         make(chan struct{}),
	}
	go mc.processTraces(ctx)
	return mc
}

// Done is closed once the collector has stopped
func (mc *MetricsCollector) Done() <-chan struct{} {
	return mc.done
}

// RecordTrace queues a trace without blocking
func (mc *MetricsCollector) RecordTrace(trace RequestTrace) {
	select {
	case mc.traceChan <- trace:
	default:
	}
}

func (mc *MetricsCollector) processTraces(ctx context.Context) {
	defer close(mc.done)
	for {
		select {
		case trace := <-mc.traceChan:
			mc.processTrace(trace)
		case <-ctx.Done():
			return
		}
	}
}

func (mc *MetricsCollector) processTrace(trace RequestTrace) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if len(mc.traces) >= mc.maxTraces && len(mc.traces) > 0 {
		mc.traces = mc.traces[1:]
	}
	mc.traces = append(mc.traces, trace)

	path := normalizeRoutePath(trace.Path)
	routeKey := trace.Method + " " + path
	metrics, exists := mc.routeMetrics[routeKey]
	if !exists {
		metrics = &RouteMetrics{
			Method:  trace.Method,
			Path:    path,
			MinTime: trace.TotalDuration,
		}
		mc.routeMetrics[routeKey] = metrics
	}

	metrics.Count++
	metrics.TotalTime += trace.TotalDuration
	metrics.AvgTime = metrics.TotalTime / time.Duration(metrics.Count)
	metrics.LastRequest = trace.StartTime
	if trace.TotalDuration < metrics.MinTime {
		metrics.MinTime = trace.TotalDuration
	}
	if trace.TotalDuration > metrics.MaxTime {
		metrics.MaxTime = trace.TotalDuration
	}
	if trace.Status >= 400 {
		metrics.ErrorCount++
		mc.totalErrors++
	}
	mc.totalRequests++
}

// GetTraces returns up to limit of the most recent traces, oldest first
func (mc *MetricsCollector) GetTraces(limit int) []RequestTrace {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	start := len(mc.traces) - limit
	if start < 0 {
		start = 0
	}
	out := make([]RequestTrace, len(mc.traces)-start)
	copy(out, mc.traces[start:])
	return out
}

// GetSummary returns overall counters and a copy of the per-route metrics
func (mc *MetricsCollector) GetSummary() Summary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	routes := make(map[string]*RouteMetrics, len(mc.routeMetrics))
	for k, v := range mc.routeMetrics {
		m := *v
		routes[k] = &m
	}
	var errorRate float64
	if mc.totalRequests > 0 {
		errorRate = float64(mc.totalErrors) / float64(mc.totalRequests)
	}
	return Summary{
		TotalRequests: mc.totalRequests,
		TotalErrors:   mc.totalErrors,
		ErrorRate:     errorRate,
		WindowStart:   mc.windowStart,
		TraceCount:    len(mc.traces),
		Routes:        routes,
	}
}

// GetSlowestRoutes returns the routes with the highest average time
func (mc *MetricsCollector) GetSlowestRoutes(limit int) []RouteMetrics {
	summary := mc.GetSummary()
	routes := make([]RouteMetrics, 0, len(summary.Routes))
	for _, m := range summary.Routes {
		routes = append(routes, *m)
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].AvgTime > routes[j].AvgTime })
	if limit < len(routes) {
		routes = routes[:limit]
	}
	return routes
}

var (
	objectIDPattern = regexp.MustCompile(`/[0-9a-fA-F]{24}(/|$)`)
	uuidPattern     = regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}(/|$)`)
)

// normalizeRoutePath replaces id segments with {id}, e.g.
// /api/v1/reports/507f1f77bcf86cd799439011/sightings -> /api/v1/reports/{id}/sightings
func normalizeRoutePath(path string) string {
	path = objectIDPattern.ReplaceAllString(path, "/{id}$1")
	path = uuidPattern.ReplaceAllString(path, "/{id}$1")
	path = strings.ReplaceAll(path, "//", "/")
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}
