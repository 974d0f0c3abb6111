package metrics

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AlertLevel is the urgency of a quota alert, adapted from the teacher's
// internal/cost/budget.go AlertLevel but driven off Metrics/BudgetFlag
// instead of a per-issue hourly tracker.
type AlertLevel int

const (
	// AlertGreen: projected time-to-exhaustion is comfortable.
	AlertGreen AlertLevel = iota
	// AlertYellow: 15-30 minutes to exhaustion at the current burn rate.
	AlertYellow
	// AlertOrange: 5-15 minutes to exhaustion.
	AlertOrange
	// AlertRed: under 5 minutes to exhaustion.
	AlertRed
)

func (a AlertLevel) String() string {
	switch a {
	case AlertGreen:
		return "GREEN"
	case AlertYellow:
		return "YELLOW"
	case AlertOrange:
		return "ORANGE"
	case AlertRed:
		return "RED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(a))
	}
}

var (
	redThreshold    = 5 * time.Minute
	orangeThreshold = 15 * time.Minute
	yellowThreshold = 30 * time.Minute
)

// QuotaSnapshot is a point-in-time sample of accumulated cost, taken by
// QuotaMonitor.Sample.
type QuotaSnapshot struct {
	Timestamp       time.Time
	AccumulatedCost float64
}

// BurnRate is the projected cost consumption rate and estimated time to
// exhaust a budget ceiling.
type BurnRate struct {
	CostPerMinute        float64
	EstimatedTimeToLimit time.Duration
	Confidence           float64
	AlertLevel           AlertLevel
}

// QuotaAlert is emitted when the burn rate crosses into a higher
// AlertLevel than previously reported (escalate-only throttling,
// matching the teacher's checkAndEmitQuotaAlert).
type QuotaAlert struct {
	Level    AlertLevel
	Message  string
	BurnRate BurnRate
}

// QuotaMonitor layers burn-rate estimation and escalate-only alerting on
// top of a Metrics accumulator and a budget ceiling. It is the
// SPEC_FULL.md §3a enrichment grounded on internal/cost/budget.go's
// quota-monitoring apparatus, with "issue" concepts stripped since this
// domain has no issue tracker.
type QuotaMonitor struct {
	mu             sync.Mutex
	metrics        *Metrics
	maxCost        float64
	snapshots      []QuotaSnapshot
	lastAlertLevel AlertLevel
	window         time.Duration

	// limiter caps how often Sample actually recomputes the regression;
	// callers (e.g. a per-step hook) may call Sample far more often than
	// the burn rate can meaningfully change.
	limiter *rate.Limiter
}

// NewQuotaMonitor returns a monitor tracking metrics against maxCost,
// using the trailing window duration for burn-rate regression. Sampling
// is throttled to once per second regardless of caller frequency.
func NewQuotaMonitor(m *Metrics, maxCost float64, window time.Duration) *QuotaMonitor {
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &QuotaMonitor{
		metrics: m,
		maxCost: maxCost,
		window:  window,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Sample takes a snapshot of the current accumulated cost and, if the
// resulting burn rate escalates the alert level, returns a QuotaAlert.
// Returns nil when there is nothing new to report, or when called faster
// than the sampling rate limit allows.
func (q *QuotaMonitor) Sample() *QuotaAlert {
	if !q.limiter.Allow() {
		return nil
	}

	now := time.Now()
	cost := q.metrics.AccumulatedCost()

	q.mu.Lock()
	defer q.mu.Unlock()

	q.snapshots = append(q.snapshots, QuotaSnapshot{Timestamp: now, AccumulatedCost: cost})
	cutoff := now.Add(-q.window)
	var recent []QuotaSnapshot
	for _, s := range q.snapshots {
		if s.Timestamp.After(cutoff) {
			recent = append(recent, s)
		}
	}
	q.snapshots = recent

	rate := q.burnRateLocked(now, recent)
	if rate.AlertLevel <= q.lastAlertLevel {
		return nil
	}
	q.lastAlertLevel = rate.AlertLevel

	return &QuotaAlert{
		Level:    rate.AlertLevel,
		Message:  fmt.Sprintf("budget burn rate projects exhaustion in %s", rate.EstimatedTimeToLimit),
		BurnRate: rate,
	}
}

// burnRateLocked performs a simple linear regression of accumulated cost
// over time across recent snapshots, grounded on the teacher's
// calculateBurnRate.
func (q *QuotaMonitor) burnRateLocked(now time.Time, recent []QuotaSnapshot) BurnRate {
	if len(recent) < 2 || q.maxCost <= 0 {
		return BurnRate{AlertLevel: AlertGreen}
	}

	first, last := recent[0], recent[len(recent)-1]
	elapsed := last.Timestamp.Sub(first.Timestamp)
	if elapsed <= 0 {
		return BurnRate{AlertLevel: AlertGreen}
	}
	deltaCost := last.AccumulatedCost - first.AccumulatedCost
	costPerMinute := deltaCost / elapsed.Minutes()
	if costPerMinute <= 0 {
		return BurnRate{AlertLevel: AlertGreen}
	}

	remaining := q.maxCost - last.AccumulatedCost
	if remaining <= 0 {
		return BurnRate{CostPerMinute: costPerMinute, AlertLevel: AlertRed, EstimatedTimeToLimit: 0, Confidence: 1}
	}
	timeToLimit := time.Duration(remaining/costPerMinute) * time.Minute

	confidence := float64(len(recent)) / 10
	if confidence > 1 {
		confidence = 1
	}

	level := AlertGreen
	switch {
	case timeToLimit < redThreshold:
		level = AlertRed
	case timeToLimit < orangeThreshold:
		level = AlertOrange
	case timeToLimit < yellowThreshold:
		level = AlertYellow
	}

	return BurnRate{
		CostPerMinute:        costPerMinute,
		EstimatedTimeToLimit: timeToLimit,
		Confidence:           confidence,
		AlertLevel:           level,
	}
}
