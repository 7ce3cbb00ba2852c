package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mselser95/ordersync/internal/notify"
	"github.com/mselser95/ordersync/internal/orders"
	"github.com/mselser95/ordersync/internal/state"
	"github.com/mselser95/ordersync/internal/strategy"
	"github.com/mselser95/ordersync/pkg/types"
	"go.uber.org/zap"
)

const (
	defaultSyncInterval = 30 * time.Second
	defaultPageSize     = 20
	defaultSortBy       = "createdAt"
	defaultSortDir      = "desc"
)

// ErrNoOwner is returned by Refresh while no owner is set.
var ErrNoOwner = errors.New("no owner set")

// Phase is the current step of a sync cycle.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseFetching  Phase = "fetching"
	PhaseEnriching Phase = "enriching"
	PhaseDiffing   Phase = "diffing"
)

// PageFetcher returns one deduplicated page of orders.
type PageFetcher interface {
	Fetch(ctx context.Context, q types.OrderQuery) (*types.OrdersPage, error)
}

// PageEnricher turns a page of orders into display orders.
type PageEnricher interface {
	EnrichAll(ctx context.Context, orders []types.Order) []types.DisplayOrder
}

// Config holds reconciler settings.
type Config struct {
	SyncInterval time.Duration
	Query        types.OrderQuery
	Logger       *zap.Logger

	// OnCycle, if set, is called after every cycle that was not discarded.
	OnCycle func(err error)
}

// Reconciler keeps the store in sync with the order service. It runs a
// cycle (fetch, enrich, diff) every SyncInterval while an owner is set.
// The interval is a delay measured from the end of the last cycle.
type Reconciler struct {
	fetcher  PageFetcher
	enricher PageEnricher
	store    *state.Store
	notifier notify.Notifier
	grouper  *strategy.Grouper
	interval time.Duration
	onCycle  func(error)
	logger   *zap.Logger

	mu         sync.Mutex
	query      types.OrderQuery
	phase      Phase
	phaseEpoch uint64

	trigger chan struct{}
	reset   chan struct{}
	wakeups atomic.Int64
}

// New creates a Reconciler.
func New(cfg Config, fetcher PageFetcher, enricher PageEnricher, store *state.Store, notifier notify.Notifier, grouper *strategy.Grouper) *Reconciler {
	interval := cfg.SyncInterval
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	return &Reconciler{
		fetcher:  fetcher,
		enricher: enricher,
		store:    store,
		notifier: notifier,
		grouper:  grouper,
		interval: interval,
		onCycle:  cfg.OnCycle,
		logger:   cfg.Logger,
		query:    normalize(cfg.Query),
		phase:    PhaseIdle,
		trigger:  make(chan struct{}, 1),
		reset:    make(chan struct{}, 1),
	}
}

func normalize(q types.OrderQuery) types.OrderQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.SortBy == "" {
		q.SortBy = defaultSortBy
	}
	if q.SortDir == "" {
		q.SortDir = defaultSortDir
	}
	return q
}

// Run drives scheduled cycles until ctx is cancelled. A cycle starts
// immediately if an owner is already set. The timer is stopped while no
// owner is set.
func (r *Reconciler) Run(ctx context.Context) {
	r.logger.Info("reconciler-starting", zap.Duration("interval", r.interval))

	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	if r.Query().Owner != "" {
		r.kick(r.trigger)
	} else {
		timer.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			r.store.Invalidate()
			r.logger.Info("reconciler-stopped")
			return

		case <-timer.C:
			r.wakeups.Add(1)
			r.scheduled(ctx)
			r.rearm(timer)

		case <-r.trigger:
			r.scheduled(ctx)
			r.rearm(timer)

		case <-r.reset:
			r.rearm(timer)
		}
	}
}

func (r *Reconciler) scheduled(ctx context.Context) {
	if ctx.Err() != nil || r.Query().Owner == "" {
		return
	}
	_ = r.cycle(ctx)
}

// rearm restarts the timer for a full interval, or leaves it stopped if
// there is no owner.
func (r *Reconciler) rearm(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	if r.Query().Owner != "" {
		t.Reset(r.interval)
	}
}

func (r *Reconciler) kick(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Refresh runs a cycle now, outside the schedule, and pushes the next
// scheduled cycle to a full interval after it completes.
func (r *Reconciler) Refresh(ctx context.Context) error {
	if r.Query().Owner == "" {
		return ErrNoOwner
	}
	err := r.cycle(ctx)
	r.kick(r.reset)
	return err
}

// cycle fetches, enriches and diffs one page. Results of a cycle that is no
// longer the latest dispatched one are dropped.
//
// The cycle does not inherit cancellation from ctx: a caller that goes away
// leaves the fetch running, bounded by the client timeout, and its result is
// applied or discarded like any other.
func (r *Reconciler) cycle(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	q := r.Query()
	epoch := r.store.NextEpoch()
	start := time.Now()
	defer r.setPhase(epoch, PhaseIdle)

	r.setPhase(epoch, PhaseFetching)
	page, err := r.fetcher.Fetch(ctx, q)
	if err != nil {
		if !r.store.Fail(epoch, err) {
			r.discard(epoch, "fetch-error")
			return nil
		}
		CyclesTotal.WithLabelValues("error").Inc()
		r.logger.Error("sync-cycle-failed",
			zap.String("owner", q.Owner),
			zap.Int("page", q.Page),
			zap.Error(err))
		r.finish(err)
		return err
	}

	r.setPhase(epoch, PhaseEnriching)
	displays := r.enricher.EnrichAll(ctx, page.Data)

	r.setPhase(epoch, PhaseDiffing)
	prev, committed, ok := r.store.Commit(epoch, displays, page.Pagination)
	if !ok {
		r.discard(epoch, "commit")
		return nil
	}

	events := orders.DetectTransitions(prev, committed, time.Now())
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		r.notifier.Notify(ctx, ev)
		ids = append(ids, ev.Order.ID)
	}
	r.store.MarkRecent(ids)

	CycleDuration.Observe(time.Since(start).Seconds())
	CyclesTotal.WithLabelValues("ok").Inc()
	r.logger.Debug("sync-cycle-complete",
		zap.Uint64("epoch", epoch),
		zap.Int("orders", len(committed)),
		zap.Int("transitions", len(events)),
		zap.Duration("duration", time.Since(start)))

	r.finish(nil)
	return nil
}

func (r *Reconciler) discard(epoch uint64, stage string) {
	StaleDiscardsTotal.Inc()
	r.logger.Debug("stale-cycle-discarded",
		zap.Uint64("epoch", epoch),
		zap.String("stage", stage))
}

func (r *Reconciler) finish(err error) {
	if r.onCycle != nil {
		r.onCycle(err)
	}
}

// setPhase records p for the cycle dispatched at epoch. Cycles older than the
// latest one to report a phase are ignored.
func (r *Reconciler) setPhase(epoch uint64, p Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if epoch < r.phaseEpoch {
		return
	}
	r.phaseEpoch = epoch
	r.phase = p
}

// Phase returns the step the most recently dispatched cycle is in.
func (r *Reconciler) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Query returns the current listing parameters.
func (r *Reconciler) Query() types.OrderQuery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.query
}

// SetOwner switches to another owner's orders. An empty owner suspends
// syncing and clears the store; in-flight cycles become stale.
func (r *Reconciler) SetOwner(owner string) {
	r.mu.Lock()
	changed := r.query.Owner != owner
	r.query.Owner = owner
	if changed {
		r.query.Page = 1
	}
	r.mu.Unlock()

	if !changed {
		return
	}

	r.store.Reset()
	r.logger.Info("owner-changed", zap.String("owner", owner))
	if owner != "" {
		r.kick(r.trigger)
	} else {
		r.kick(r.reset)
	}
}

// SetQuery changes filters, search, sort or page size. The page resets to 1
// when the selected result set changes. The owner is not affected.
func (r *Reconciler) SetQuery(q types.OrderQuery) {
	r.mu.Lock()
	q.Owner = r.query.Owner
	q = normalize(q)
	if q.SameFilter(r.query) {
		r.mu.Unlock()
		return
	}
	q.Page = 1
	r.query = q
	r.mu.Unlock()

	r.kick(r.trigger)
}

// SetPage moves to another page of the same result set.
func (r *Reconciler) SetPage(page int) {
	if page < 1 {
		page = 1
	}

	r.mu.Lock()
	changed := r.query.Page != page
	r.query.Page = page
	r.mu.Unlock()

	if changed {
		r.kick(r.trigger)
	}
}

// Strategies groups the current snapshot into strategies.
func (r *Reconciler) Strategies() []types.Strategy {
	snap := r.store.Snapshot()
	return r.grouper.Group(snap.Orders, orders.TokenMap(snap.Orders))
}
