package models

import "time"

// Refresh cycles
const (
	CycleBitcoin  = "bitcoin"
	CycleStocks   = "stocks"
	CycleHoldings = "holdings"
)

// Refresh event types
const (
	RefreshStarted   = "refresh_started"
	RefreshCompleted = "refresh_completed"
	RefreshFailed    = "refresh_failed"
)

// Refresh triggers
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// RefreshEvent is broadcast to websocket clients as cycles run.
type RefreshEvent struct {
	Type      string        `json:"type"`
	Cycle     string        `json:"cycle"`
	Trigger   string        `json:"trigger"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration_ns,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
