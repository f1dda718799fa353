package infra

import (
	"sync/atomic"
)

// Metrics provides lightweight observability without external
// dependencies. Uses atomic operations for thread-safety: sessions run
// concurrently and all record into the same instance.
type Metrics struct {
	// Counters
	messagesProcessed atomic.Uint64
	publishes         atomic.Uint64
	publishErrors     atomic.Uint64
	badFrames         atomic.Uint64
	sessionsTotal     atomic.Uint64

	// Gauges
	activeSessions atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// SessionStarted records a newly accepted session.
func (m *Metrics) SessionStarted() {
	m.sessionsTotal.Add(1)
	m.activeSessions.Add(1)
}

// SessionEnded records a terminated session.
func (m *Metrics) SessionEnded() {
	m.activeSessions.Add(-1)
}

// RecordMessage records one dispatched upstream message.
func (m *Metrics) RecordMessage() {
	m.messagesProcessed.Add(1)
}

// RecordPublish records one successful downstream push.
func (m *Metrics) RecordPublish() {
	m.publishes.Add(1)
}

// RecordPublishError records a failed downstream push.
func (m *Metrics) RecordPublishError() {
	m.publishErrors.Add(1)
}

// RecordBadFrame records one undecodable upstream frame.
func (m *Metrics) RecordBadFrame() {
	m.badFrames.Add(1)
}

// StatsSnapshot is a point-in-time copy of all counters.
type StatsSnapshot struct {
	ActiveSessions    int32  `json:"active_sessions"`
	SessionsTotal     uint64 `json:"sessions_total"`
	MessagesProcessed uint64 `json:"messages_processed"`
	Publishes         uint64 `json:"publishes"`
	PublishErrors     uint64 `json:"publish_errors"`
	BadFrames         uint64 `json:"bad_frames"`
}

// Snapshot returns a consistent-enough view of the counters.
func (m *Metrics) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		ActiveSessions:    m.activeSessions.Load(),
		SessionsTotal:     m.sessionsTotal.Load(),
		MessagesProcessed: m.messagesProcessed.Load(),
		Publishes:         m.publishes.Load(),
		PublishErrors:     m.publishErrors.Load(),
		BadFrames:         m.badFrames.Load(),
	}
}

// Reset zeroes all counters. Test helper.
func (m *Metrics) Reset() {
	m.messagesProcessed.Store(0)
	m.publishes.Store(0)
	m.publishErrors.Store(0)
	m.badFrames.Store(0)
	m.sessionsTotal.Store(0)
	m.activeSessions.Store(0)
}
