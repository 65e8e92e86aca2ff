package services

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	invalidTokenWindow    = 10 * time.Minute
	invalidTokenThreshold = 5
	alertCooldown         = time.Hour
	maxAlerts             = 100
)

// SecurityEventMonitor counts rejected access tokens per source address and
// raises an alert when one address crosses the threshold
type SecurityEventMonitor struct {
	mu            sync.Mutex
	invalidTokens map[string][]time.Time
	alerted       map[string]time.Time
	alerts        []SecurityAlert
	now           func() time.Time
}

// SecurityAlert represents a triggered security alert
type SecurityAlert struct {
	Timestamp     time.Time `json:"timestamp"`
	SourceAddress string    `json:"sourceAddress"`
	Reason        string    `json:"reason"`
	Level         string    `json:"level"`
}

// Monitor is the process wide monitor. Nil disables tracking.
var Monitor *SecurityEventMonitor

// NewSecurityEventMonitor creates an empty monitor
func NewSecurityEventMonitor() *SecurityEventMonitor {
	return &SecurityEventMonitor{
		invalidTokens: make(map[string][]time.Time),
		alerted:       make(map[string]time.Time),
		alerts:        make([]SecurityAlert, 0),
		now:           time.Now,
	}
}

// InitSecurityMonitor initializes the global monitor
func InitSecurityMonitor() {
	Monitor = NewSecurityEventMonitor()
}

// TrackInvalidToken records a rejected token from addr and reports whether
// it raised an alert
func (m *SecurityEventMonitor) TrackInvalidToken(addr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)

	windowStart := now.Add(-invalidTokenWindow)
	recent := []time.Time{}
	for _, t := range m.invalidTokens[addr] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	m.invalidTokens[addr] = recent

	if len(recent) < invalidTokenThreshold {
		return false
	}
	return m.triggerAlertLocked(now, addr, "Repeated invalid access tokens")
}

// triggerAlertLocked stores and logs an alert, at most one per address per cooldown
func (m *SecurityEventMonitor) triggerAlertLocked(now time.Time, addr, reason string) bool {
	if last, ok := m.alerted[addr]; ok && now.Sub(last) < alertCooldown {
		return false
	}
	m.alerted[addr] = now

	alert := SecurityAlert{Timestamp: now, SourceAddress: addr, Reason: reason, Level: "CRITICAL"}
	// Newest first
	m.alerts = append([]SecurityAlert{alert}, m.alerts...)
	if len(m.alerts) > maxAlerts {
		m.alerts = m.alerts[:maxAlerts]
	}

	log.Warn().Str("sourceAddress", addr).Str("reason", reason).Msg("[SECURITY ALERT]")
	return true
}

// sweepLocked drops addresses with no recent failures and expired cooldowns
func (m *SecurityEventMonitor) sweepLocked(now time.Time) {
	for addr, attempts := range m.invalidTokens {
		if len(attempts) == 0 || now.Sub(attempts[len(attempts)-1]) > invalidTokenWindow {
			delete(m.invalidTokens, addr)
		}
	}
	for addr, last := range m.alerted {
		if now.Sub(last) > alertCooldown {
			delete(m.alerted, addr)
		}
	}
}

// GetRecentAlerts returns a copy of recent alerts, newest first
func (m *SecurityEventMonitor) GetRecentAlerts() []SecurityAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	alertsCopy := make([]SecurityAlert, len(m.alerts))
	copy(alertsCopy, m.alerts)
	return alertsCopy
}
