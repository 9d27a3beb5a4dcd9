package browsecache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/apatil/browsecache-go/internal/store"
)

// MaintenanceReport summarizes one maintenance cycle across both tiers.
type MaintenanceReport struct {
	// Skipped is true when the cycle did not run because another one was
	// already in progress.
	Skipped bool

	Scanned        int
	RemovedExpired int
	RemovedCorrupt int
	Valid          int

	// EntriesBefore and EntriesAfter are the summed tier entry counts
	// captured around the sweep; their difference is the net removal.
	EntriesBefore int
	EntriesAfter  int

	Duration time.Duration
}

// sweeper is the slice of the store contract maintenance needs.
type sweeper interface {
	PerformMaintenance() store.MaintenanceReport
}

// maintenanceManager runs periodic maintenance sweeps against a store. A
// reentrancy flag guarantees at most one cycle at a time; a cycle requested
// while another runs is skipped, not queued.
type maintenanceManager struct {
	target sweeper
	logger Logger
	hooks  *Hooks

	// size reports the current entry count; may be nil.
	size func() int
	// completed runs after every finished cycle, scheduled or explicit,
	// so both paths publish statistics identically. May be nil.
	completed func(MaintenanceReport)

	running atomic.Bool

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newMaintenanceManager(target sweeper, size func() int, completed func(MaintenanceReport), logger Logger, hooks *Hooks) *maintenanceManager {
	return &maintenanceManager{
		target:    target,
		size:      size,
		completed: completed,
		logger:    logger,
		hooks:     hooks,
		stopCh:    make(chan struct{}),
	}
}

// start launches the periodic scheduler. A non-positive interval disables it.
func (m *maintenanceManager) start(interval time.Duration) {
	if interval <= 0 {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.perform()
			case <-m.stopCh:
				return
			}
		}
	}()
}

// perform runs one maintenance cycle, or skips it if one is in flight.
func (m *maintenanceManager) perform() MaintenanceReport {
	if !m.running.CompareAndSwap(false, true) {
		m.logger.Debug("maintenance already in progress, skipping")
		return MaintenanceReport{Skipped: true}
	}
	defer m.running.Store(false)

	m.hooks.invokeMaintenanceStart()
	before := m.entryCount()

	start := time.Now()
	r := m.target.PerformMaintenance()
	report := MaintenanceReport{
		Scanned:        r.Scanned,
		RemovedExpired: r.RemovedExpired,
		RemovedCorrupt: r.RemovedCorrupt,
		Valid:          r.Valid,
		EntriesBefore:  before,
		EntriesAfter:   m.entryCount(),
		Duration:       time.Since(start),
	}

	if m.completed != nil {
		m.completed(report)
	}
	m.logger.Info("maintenance cycle complete",
		F("scanned", report.Scanned),
		F("removedExpired", report.RemovedExpired),
		F("removedCorrupt", report.RemovedCorrupt),
		F("valid", report.Valid),
		F("removedEntries", report.EntriesBefore-report.EntriesAfter),
		F("duration", report.Duration),
	)
	m.hooks.invokeMaintenance(report)
	return report
}

func (m *maintenanceManager) entryCount() int {
	if m.size == nil {
		return 0
	}
	return m.size()
}

// deepCleanup clears the target store under the same exclusivity discipline
// as a regular cycle.
func (m *maintenanceManager) deepCleanup(clear func() error) error {
	if !m.running.CompareAndSwap(false, true) {
		m.logger.Debug("maintenance in progress, deep cleanup skipped")
		return nil
	}
	defer m.running.Store(false)

	start := time.Now()
	err := clear()
	m.logger.Info("deep cleanup complete",
		F("duration", time.Since(start)),
		F("error", err),
	)
	return err
}

// stop shuts down the scheduler and waits for an in-flight cycle to finish.
func (m *maintenanceManager) stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}
