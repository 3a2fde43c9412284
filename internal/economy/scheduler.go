package economy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Bo-sung/mineconomy/internal/catalog"
	"github.com/Bo-sung/mineconomy/internal/store"
	"github.com/Bo-sung/mineconomy/pkg/metrics"
)

// State is the scheduler's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateBackoff:
		return "backoff"
	default:
		return "idle"
	}
}

// SchedulerConfig tunes the recomputation loop.
type SchedulerConfig struct {
	Interval         time.Duration
	PreflightRetries int
	PreflightDelay   time.Duration
	Workers          int
	// WriteEpsilon is the smallest price delta worth republishing.
	WriteEpsilon decimal.Decimal
}

// DefaultSchedulerConfig matches the live tuning: a 10-minute cycle, three
// pre-flight attempts 30 seconds apart, four workers, and a one-cent
// republish threshold.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:         10 * time.Minute,
		PreflightRetries: 3,
		PreflightDelay:   30 * time.Second,
		Workers:          4,
		WriteEpsilon:     decimal.RequireFromString("0.01"),
	}
}

// Scheduler periodically recomputes every active item's price. Each cycle
// snapshots the active item set and the correction factors once, then fans
// items out to a small worker pool. Per-item failures are contained; only a
// failed pre-flight health check aborts a cycle, and even that never kills
// the scheduler itself.
//
// Price writes are last-write-wins: a manual ForceRecompute may race the
// scheduled cycle on the same item, and whichever write lands last sticks.
// One cycle of staleness is tolerated.
type Scheduler struct {
	cfg     SchedulerConfig
	store   store.Store
	catalog catalog.Catalog
	window  *VolumeWindow
	engine  *Engine
	limiter *Limiter
	factors *Calculator
	book    *Book
	logger  *zap.Logger
	now     func() time.Time

	state     atomic.Int32
	lastPurge atomic.Int64 // unix hour boundary of the last purge

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewScheduler(
	cfg SchedulerConfig,
	st store.Store,
	cat catalog.Catalog,
	window *VolumeWindow,
	engine *Engine,
	limiter *Limiter,
	factors *Calculator,
	book *Book,
	logger *zap.Logger,
) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Scheduler{
		cfg:     cfg,
		store:   st,
		catalog: cat,
		window:  window,
		engine:  engine,
		limiter: limiter,
		factors: factors,
		book:    book,
		logger:  logger,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// SetClock replaces the scheduler's clock. Test hook.
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }

// State returns the scheduler's current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Start launches the periodic driver. Cycle failures are logged and the
// next tick proceeds regardless.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run()
	})
}

// Stop signals shutdown and waits for the in-flight cycle to finish its
// current item.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("price recomputation scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Int("workers", s.cfg.Workers),
	)

	for {
		select {
		case <-s.stopCh:
			s.logger.Info("price recomputation scheduler stopped")
			return
		case <-ticker.C:
			if err := s.RunCycle(context.Background()); err != nil {
				s.logger.Error("recomputation cycle failed", zap.Error(err))
			}
		}
	}
}

// RunCycle executes one full recomputation cycle: pre-flight health check
// with bounded retries, one shared factor computation, then per-item
// recomputation across the worker pool. Also serves as the "recompute all
// now" admin entry point.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	cycleID := uuid.NewString()
	started := s.now()

	s.state.Store(int32(StateRunning))
	defer s.state.Store(int32(StateIdle))

	if err := s.preflight(ctx, cycleID); err != nil {
		metrics.CyclesRun.WithLabelValues("failed").Inc()
		return err
	}

	items, err := s.catalog.ActiveItems(ctx)
	if err != nil {
		metrics.CyclesRun.WithLabelValues("failed").Inc()
		return fmt.Errorf("cycle %s: failed to fetch active items: %w", cycleID, err)
	}

	// One factor computation per cycle, shared read-only by every item.
	cf := s.factors.CycleFactors(ctx)

	s.maybePurge(ctx, cycleID)

	var updated, skipped, failed atomic.Int64

	jobs := make(chan catalog.Item)
	var workers sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for item := range jobs {
				switch err := s.recomputeItem(ctx, cycleID, item, cf); {
				case err == nil:
					updated.Add(1)
				case errors.Is(err, errPriceUnchanged):
					skipped.Add(1)
				default:
					failed.Add(1)
					metrics.ItemFailures.Inc()
					s.logger.Warn("item recomputation failed",
						zap.String("cycle", cycleID),
						zap.String("item", item.ID),
						zap.Error(err),
					)
				}
			}
		}()
	}

dispatch:
	for _, item := range items {
		// Shutdown lands between items, never mid-item.
		select {
		case <-s.stopCh:
			break dispatch
		case <-ctx.Done():
			break dispatch
		case jobs <- item:
		}
	}
	close(jobs)
	workers.Wait()

	elapsed := s.now().Sub(started)
	metrics.CyclesRun.WithLabelValues("ok").Inc()
	metrics.CycleDuration.Observe(elapsed.Seconds())
	metrics.ItemsRepriced.Add(float64(updated.Load()))
	metrics.ItemsSkipped.Add(float64(skipped.Load()))

	s.logger.Info("recomputation cycle complete",
		zap.String("cycle", cycleID),
		zap.Int("items", len(items)),
		zap.Int64("updated", updated.Load()),
		zap.Int64("skipped", skipped.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Float64("population_factor", cf.Population),
		zap.Float64("time_factor", cf.TimeOfDay),
		zap.Int("online", cf.OnlineCount),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

// ForceRecompute runs the pressure-limiter pipeline for a single item right
// now, outside the cycle. Intended for urgent manual correction.
func (s *Scheduler) ForceRecompute(ctx context.Context, itemID string) error {
	cycleID := "manual-" + uuid.NewString()

	item, err := s.catalog.Item(ctx, itemID)
	if err != nil {
		return fmt.Errorf("cycle %s: %w", cycleID, err)
	}
	if !item.Active {
		return fmt.Errorf("cycle %s: item %s is not active", cycleID, itemID)
	}

	cf := s.factors.CycleFactors(ctx)
	if err := s.recomputeItem(ctx, cycleID, item, cf); err != nil && !errors.Is(err, errPriceUnchanged) {
		return err
	}
	return nil
}

// errPriceUnchanged marks the idempotent skip path: the recomputed price
// was within epsilon of the stored one, so nothing was written.
var errPriceUnchanged = errors.New("price unchanged")

func (s *Scheduler) recomputeItem(ctx context.Context, cycleID string, item catalog.Item, cf CycleFactors) error {
	current, err := s.book.Price(ctx, item.ID)
	first := errors.Is(err, store.ErrNotFound)
	if err != nil && !first {
		return fmt.Errorf("cycle %s item %s stage price-read: %w", cycleID, item.ID, err)
	}

	pressure, err := s.engine.MarketPressure(ctx, item.ID)
	if err != nil {
		// An unreachable bucket read degrades to "no signal" for this
		// item; the cycle moves on.
		if !errors.Is(err, ErrStoreUnavailable) {
			return fmt.Errorf("cycle %s item %s stage pressure: %w", cycleID, item.ID, err)
		}
		s.logger.Warn("pressure read failed, treating as no signal",
			zap.String("cycle", cycleID),
			zap.String("item", item.ID),
			zap.Error(err),
		)
		pressure = PressureRecord{ItemID: item.ID, OnlineCount: cf.OnlineCount, ComputedAt: s.now()}
	}

	var final decimal.Decimal
	if first {
		// First price ever: seed with the base price, swing clamp exempt.
		final = item.BasePrice.Round(priceScale)
	} else {
		candidate, cerr := s.engine.CandidatePrice(item.BasePrice, pressure.Net, cf.Population, cf.TimeOfDay)
		if cerr != nil {
			s.logger.Error("invalid candidate price, keeping current",
				zap.String("cycle", cycleID),
				zap.String("item", item.ID),
				zap.Float64("net_pressure", pressure.Net),
				zap.Error(cerr),
			)
			final = s.limiter.Fallback(current.Price)
		} else {
			final = s.limiter.Apply(item.ID, candidate, current.Price, item.BasePrice)
		}
	}

	if !first && final.Sub(current.Price).Abs().LessThanOrEqual(s.cfg.WriteEpsilon) {
		return errPriceUnchanged
	}

	if err := s.book.PutPrice(ctx, PriceRecord{
		ItemID:    item.ID,
		Price:     final,
		BasePrice: item.BasePrice,
		UpdatedAt: s.now(),
	}); err != nil {
		return fmt.Errorf("cycle %s item %s stage price-write: %w", cycleID, item.ID, err)
	}
	if err := s.book.PutPressure(ctx, pressure); err != nil {
		return fmt.Errorf("cycle %s item %s stage pressure-write: %w", cycleID, item.ID, err)
	}
	return nil
}

// maybePurge runs the bucket purge on the first cycle after each hour
// boundary.
func (s *Scheduler) maybePurge(ctx context.Context, cycleID string) {
	hour := s.now().Truncate(time.Hour).Unix()
	last := s.lastPurge.Load()
	if last == hour || !s.lastPurge.CompareAndSwap(last, hour) {
		return
	}
	n, err := s.window.PurgeExpired(ctx)
	if err != nil {
		s.logger.Warn("bucket purge failed", zap.String("cycle", cycleID), zap.Error(err))
		return
	}
	metrics.BucketsPurged.Add(float64(n))
	if n > 0 {
		s.logger.Info("purged expired volume buckets",
			zap.String("cycle", cycleID), zap.Int("count", n))
	}
}

// preflight verifies the store is reachable before touching any item,
// retrying the whole check a bounded number of times.
func (s *Scheduler) preflight(ctx context.Context, cycleID string) error {
	attempts := s.cfg.PreflightRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := s.store.Ping(ctx); err == nil {
			s.state.Store(int32(StateRunning))
			return nil
		} else {
			lastErr = err
		}

		if attempt == attempts {
			break
		}
		s.state.Store(int32(StateBackoff))
		s.logger.Warn("pre-flight health check failed, backing off",
			zap.String("cycle", cycleID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", s.cfg.PreflightDelay),
			zap.Error(lastErr),
		)
		select {
		case <-s.stopCh:
			return fmt.Errorf("cycle %s: shutdown during pre-flight backoff", cycleID)
		case <-ctx.Done():
			return fmt.Errorf("cycle %s: %w", cycleID, ctx.Err())
		case <-time.After(s.cfg.PreflightDelay):
		}
	}
	return fmt.Errorf("cycle %s: %w after %d attempts: %s", cycleID, ErrStoreUnavailable, attempts, lastErr)
}
