package alerts

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tollgate-hq/tollgate/pkg/meter/ledger"
)

// Level is the severity of a budget alert.
type Level string

const (
	// LevelWarning fires when usage crosses the warning threshold.
	LevelWarning Level = "warning"

	// LevelCritical fires when usage crosses the critical threshold.
	LevelCritical Level = "critical"
)

// Alert is a single threshold-crossing notification.
type Alert struct {
	ID           string
	UserID       string
	Scope        ledger.Scope
	Level        Level
	ThresholdPct float64
	CurrentValue float64
	LimitValue   float64
	CreatedAt    time.Time
	Acknowledged bool
}

// slotKey identifies the dedup slot for unacknowledged alerts.
type slotKey struct {
	userID string
	scope  ledger.Scope
	level  Level
}

// Manager creates, deduplicates, and retains budget alerts.
type Manager struct {
	mu sync.RWMutex

	// alerts holds every retained alert by ID, acknowledged or not.
	alerts map[string]*Alert

	// open maps dedup slots to the ID of the unacknowledged alert
	// occupying them.
	open map[slotKey]string

	now func() time.Time
}

// NewManager creates an alert manager. A nil clock defaults to time.Now.
func NewManager(clock func() time.Time) *Manager {
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		alerts: make(map[string]*Alert),
		open:   make(map[slotKey]string),
		now:    clock,
	}
}

// levelFor computes the crossed severity for a usage percentage, or ""
// when no threshold was crossed. Thresholds of zero are disabled.
func levelFor(pct, warningPct, criticalPct float64) (Level, float64) {
	if criticalPct > 0 && pct >= criticalPct {
		return LevelCritical, criticalPct
	}
	if warningPct > 0 && pct >= warningPct {
		return LevelWarning, warningPct
	}
	return "", 0
}

// Observe evaluates one scope's usage against its limit and creates an
// alert when a threshold is crossed and no unacknowledged alert already
// occupies the (user, scope, level) slot. Returns the created alert, or
// nil when nothing fired.
func (m *Manager) Observe(userID string, scope ledger.Scope, current, limit, warningPct, criticalPct float64) *Alert {
	if limit <= 0 {
		return nil
	}

	pct := current / limit * 100
	level, threshold := levelFor(pct, warningPct, criticalPct)
	if level == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := slotKey{userID: userID, scope: scope, level: level}
	if _, occupied := m.open[key]; occupied {
		return nil
	}

	a := &Alert{
		ID:           uuid.New().String(),
		UserID:       userID,
		Scope:        scope,
		Level:        level,
		ThresholdPct: threshold,
		CurrentValue: current,
		LimitValue:   limit,
		CreatedAt:    m.now(),
	}
	m.alerts[a.ID] = a
	m.open[key] = a.ID

	copy := *a
	return &copy
}

// Acknowledge marks an alert acknowledged, freeing its dedup slot.
// It is idempotent; unknown IDs report false.
func (m *Manager) Acknowledge(alertID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alerts[alertID]
	if !ok {
		return false
	}
	if !a.Acknowledged {
		a.Acknowledged = true
		delete(m.open, slotKey{userID: a.UserID, scope: a.Scope, level: a.Level})
	}
	return true
}

// ClearScope releases the unacknowledged alerts for one user and scope.
// Called when the scope's window resets: the condition that fired the
// alert no longer exists, so the next crossing should alert again.
func (m *Manager) ClearScope(userID string, scope ledger.Scope) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, level := range []Level{LevelWarning, LevelCritical} {
		key := slotKey{userID: userID, scope: scope, level: level}
		if id, ok := m.open[key]; ok {
			if a, ok := m.alerts[id]; ok {
				a.Acknowledged = true
			}
			delete(m.open, key)
		}
	}
}

// List returns copies of retained alerts, newest first. An empty userID
// returns alerts for every user.
func (m *Manager) List(userID string) []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		if userID != "" && a.UserID != userID {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Unacknowledged returns copies of currently open alerts for a user.
func (m *Manager) Unacknowledged(userID string) []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Alert
	for _, id := range m.open {
		a := m.alerts[id]
		if a == nil {
			continue
		}
		if userID != "" && a.UserID != userID {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// PruneBefore drops alerts created before the cutoff and returns how many
// were removed. Open slots whose alert is pruned are released as well.
func (m *Manager) PruneBefore(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for id, a := range m.alerts {
		if !a.CreatedAt.Before(cutoff) {
			continue
		}
		delete(m.alerts, id)
		key := slotKey{userID: a.UserID, scope: a.Scope, level: a.Level}
		if openID, ok := m.open[key]; ok && openID == id {
			delete(m.open, key)
		}
		pruned++
	}
	return pruned
}
