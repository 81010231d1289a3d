package retention

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeEngine records the cutoffs it was asked to prune with.
type fakeEngine struct {
	alertCutoff   time.Time
	historyCutoff time.Time
	storeCutoff   time.Time

	alertsPruned   int
	historyTrimmed int
	storeDeleted   int
	storeErr       error
}

func (f *fakeEngine) PruneAlertsBefore(cutoff time.Time) int {
	f.alertCutoff = cutoff
	return f.alertsPruned
}

func (f *fakeEngine) TrimHistoryBefore(cutoff time.Time) int {
	f.historyCutoff = cutoff
	return f.historyTrimmed
}

func (f *fakeEngine) CleanupStore(ctx context.Context, olderThan time.Time) (int, error) {
	f.storeCutoff = olderThan
	return f.storeDeleted, f.storeErr
}

func TestSweeper_Sweep(t *testing.T) {
	engine := &fakeEngine{alertsPruned: 2, historyTrimmed: 10, storeDeleted: 7}
	sweeper := NewSweeper(engine, &Config{
		RecordRetentionDays: 90,
		AlertRetentionDays:  30,
	})
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }

	removed, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 19 {
		t.Errorf("removed = %d, want 19", removed)
	}

	wantAlert := now.AddDate(0, 0, -30)
	if !engine.alertCutoff.Equal(wantAlert) {
		t.Errorf("alert cutoff = %v, want %v", engine.alertCutoff, wantAlert)
	}
	wantRecord := now.AddDate(0, 0, -90)
	if !engine.historyCutoff.Equal(wantRecord) {
		t.Errorf("history cutoff = %v, want %v", engine.historyCutoff, wantRecord)
	}
	if !engine.storeCutoff.Equal(wantRecord) {
		t.Errorf("store cutoff = %v, want %v", engine.storeCutoff, wantRecord)
	}
}

func TestSweeper_ZeroRetentionKeepsForever(t *testing.T) {
	engine := &fakeEngine{alertsPruned: 5, historyTrimmed: 5, storeDeleted: 5}
	sweeper := NewSweeper(engine, &Config{})

	removed, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d with zero retention, want 0", removed)
	}
	if !engine.alertCutoff.IsZero() || !engine.historyCutoff.IsZero() {
		t.Error("nothing should be pruned with zero retention")
	}
}

func TestSweeper_StoreErrorSurfaces(t *testing.T) {
	boom := errors.New("db locked")
	engine := &fakeEngine{historyTrimmed: 3, storeErr: boom}
	sweeper := NewSweeper(engine, &Config{RecordRetentionDays: 30})

	removed, err := sweeper.Sweep(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped %v", err, boom)
	}
	// partial progress is still reported
	if removed != 3 {
		t.Errorf("removed = %d, want 3 from the history trim", removed)
	}
}

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{
			name:        "valid daily schedule",
			schedule:    "0 3 * * *",
			wantRunning: true,
			wantError:   false,
		},
		{
			name:        "valid hourly schedule",
			schedule:    "0 * * * *",
			wantRunning: true,
			wantError:   false,
		},
		{
			name:        "empty schedule - no error, not running",
			schedule:    "",
			wantRunning: false,
			wantError:   false,
		},
		{
			name:        "invalid schedule",
			schedule:    "invalid cron",
			wantRunning: false,
			wantError:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sweeper := NewSweeper(&fakeEngine{}, &Config{
				RecordRetentionDays: 90,
				Schedule:            tt.schedule,
			})
			scheduler := sweeper.Scheduler()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := scheduler.Start(ctx)
			if tt.wantError && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantError && err != nil {
				t.Fatalf("Start: %v", err)
			}
			if scheduler.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning = %v, want %v", scheduler.IsRunning(), tt.wantRunning)
			}

			if tt.wantRunning {
				if next := scheduler.NextRun(); next == nil || next.IsZero() {
					t.Error("expected a next run time")
				}
				scheduler.Stop()
				if scheduler.IsRunning() {
					t.Error("still running after Stop")
				}
			}
		})
	}
}

func TestScheduler_StopIdempotent(t *testing.T) {
	sweeper := NewSweeper(&fakeEngine{}, nil)
	scheduler := sweeper.Scheduler()

	scheduler.Stop()
	scheduler.Stop()
	if scheduler.IsRunning() {
		t.Error("scheduler should not be running")
	}
}
