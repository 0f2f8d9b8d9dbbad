package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/Ambuj00/conversational-db/internal/observability"
)

type SweepSummary struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
}

// Sweep closes every session idle longer than the configured TTL and
// reports what it did.
func (m *Manager) Sweep() SweepSummary {
	cutoff := m.now().Add(-m.cfg.IdleTTL)

	m.mu.Lock()
	summary := SweepSummary{Scanned: len(m.sessions)}
	expired := make([]*Session, 0)
	for id, sess := range m.sessions {
		sess.mu.Lock()
		idle := sess.lastUsed.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			expired = append(expired, sess)
		}
	}
	observability.SetActiveSessions(len(m.sessions))
	m.mu.Unlock()

	for _, sess := range expired {
		sess.mu.Lock()
		if err := sess.store.Close(); err != nil {
			m.cfg.Logger.Warn("close expired session store",
				slog.String("session_id", sess.id),
				slog.Any("error", err),
			)
		}
		sess.mu.Unlock()
		summary.Expired++
		m.cfg.Logger.Info("session expired", slog.String("session_id", sess.id))
	}
	observability.ObserveSessionsExpired(summary.Expired)
	return summary
}

// RunJanitor sweeps on the given interval until ctx is cancelled.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close shuts every session down. Used at process exit.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, sess := range m.sessions {
		sessions = append(sessions, sess)
		delete(m.sessions, id)
	}
	observability.SetActiveSessions(0)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.mu.Lock()
		_ = sess.store.Close()
		sess.mu.Unlock()
	}
}
