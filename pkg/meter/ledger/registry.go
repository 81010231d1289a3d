package ledger

import (
	"sync"
	"time"
)

// Snapshot is a read-only copy of one user's ledger. Mutating a snapshot
// has no effect on engine state.
type Snapshot struct {
	UserID   string
	Daily    Window
	Monthly  Window
	Minute   Window
	Hour     Window
	Status   BudgetStatus
	Reserved float64
}

// userLedger is the mutable per-user state. All fields are guarded by mu.
type userLedger struct {
	mu sync.Mutex

	userID   string
	daily    Window
	monthly  Window
	minute   Window
	hour     Window
	status   BudgetStatus
	reserved float64
}

// refresh resets stale windows and returns the scopes that were reset.
// Caller must hold the ledger lock.
func (u *userLedger) refresh(now time.Time) []Scope {
	var reset []Scope
	if u.daily.refresh(ScopeDaily, now) {
		reset = append(reset, ScopeDaily)
	}
	if u.monthly.refresh(ScopeMonthly, now) {
		reset = append(reset, ScopeMonthly)
	}
	if u.minute.refresh(ScopeMinute, now) {
		reset = append(reset, ScopeMinute)
	}
	if u.hour.refresh(ScopeHour, now) {
		reset = append(reset, ScopeHour)
	}
	return reset
}

// snapshot copies the ledger. Caller must hold the ledger lock.
func (u *userLedger) snapshot() Snapshot {
	return Snapshot{
		UserID:   u.userID,
		Daily:    u.daily,
		Monthly:  u.monthly,
		Minute:   u.minute,
		Hour:     u.hour,
		Status:   u.status,
		Reserved: u.reserved,
	}
}

// add accumulates usage into all four windows. Caller must hold the lock.
func (u *userLedger) add(cost float64, requests, tokens int64) {
	u.daily.add(cost, requests, tokens)
	u.monthly.add(cost, requests, tokens)
	u.minute.add(cost, requests, tokens)
	u.hour.add(cost, requests, tokens)
}

// Registry holds every user ledger, creating each lazily on first use.
// Ledgers are never proactively destroyed; eviction is an external concern.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*userLedger
	now   func() time.Time
}

// NewRegistry creates an empty ledger registry. The clock may be nil, in
// which case time.Now is used; tests inject a fake clock to cross window
// boundaries deterministically.
func NewRegistry(clock func() time.Time) *Registry {
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		users: make(map[string]*userLedger),
		now:   clock,
	}
}

// get returns the ledger for a user, creating it on first reference.
func (r *Registry) get(userID string) *userLedger {
	r.mu.RLock()
	u, ok := r.users[userID]
	r.mu.RUnlock()
	if ok {
		return u
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok = r.users[userID]; ok {
		return u
	}
	u = &userLedger{userID: userID, status: StatusHealthy}
	r.users[userID] = u
	return u
}

// Snapshot refreshes stale windows for a user and returns a copy of the
// ledger plus the scopes that were reset. It never increments counters.
func (r *Registry) Snapshot(userID string) (Snapshot, []Scope) {
	u := r.get(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	reset := u.refresh(r.now())
	return u.snapshot(), reset
}

// Apply refreshes stale windows and accumulates actual usage into all four
// windows. Returns the post-update snapshot and any scopes that reset.
func (r *Registry) Apply(userID string, cost float64, requests, tokens int64) (Snapshot, []Scope) {
	u := r.get(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	reset := u.refresh(r.now())
	u.add(cost, requests, tokens)
	return u.snapshot(), reset
}

// Reserve pre-charges an estimated cost and one request into every window.
// The reservation must later be settled with Commit or unwound with Release.
func (r *Registry) Reserve(userID string, estCost float64) (Snapshot, []Scope) {
	u := r.get(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	reset := u.refresh(r.now())
	u.add(estCost, 1, 0)
	u.reserved += estCost
	return u.snapshot(), reset
}

// ReserveIf atomically evaluates allow against the refreshed ledger and,
// when it returns true, applies the reservation. The callback runs with
// the user's ledger lock held, so concurrent reservations for one user
// cannot both pass a check against the same snapshot.
func (r *Registry) ReserveIf(userID string, estCost float64, allow func(Snapshot) bool) (Snapshot, []Scope, bool) {
	u := r.get(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	reset := u.refresh(r.now())
	if !allow(u.snapshot()) {
		return u.snapshot(), reset, false
	}
	u.add(estCost, 1, 0)
	u.reserved += estCost
	return u.snapshot(), reset, true
}

// Commit settles a reservation: it charges the difference between actual
// and estimated cost plus the actual token count. The request itself was
// already counted by Reserve.
func (r *Registry) Commit(userID string, estCost, actualCost float64, tokens int64) (Snapshot, []Scope) {
	u := r.get(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	reset := u.refresh(r.now())
	u.add(actualCost-estCost, 0, tokens)
	u.reserved -= estCost
	if u.reserved < 0 {
		u.reserved = 0
	}
	return u.snapshot(), reset
}

// Release unwinds a reservation whose provider call never completed.
func (r *Registry) Release(userID string, estCost float64) {
	u := r.get(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	u.refresh(r.now())
	u.add(-estCost, -1, 0)
	u.reserved -= estCost
	if u.reserved < 0 {
		u.reserved = 0
	}
}

// SetStatus records the budget status derived from the latest usage.
func (r *Registry) SetStatus(userID string, status BudgetStatus) {
	u := r.get(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status = status
}

// Len returns the number of tracked users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
