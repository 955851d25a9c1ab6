package worklist

import (
	"context"
	"errors"
	"sync"
	"time"

	"radiology-worklist/internal/models"
	"radiology-worklist/internal/pacs"

	"go.uber.org/zap"
)

// Querier runs worklist searches. *pacs.Client satisfies it.
type Querier interface {
	QueryWorklist(ctx context.Context, start, end time.Time, modalities []string) (*pacs.StudyResult, error)
}

// Snapshot is a consistent copy of a View for rendering.
type Snapshot struct {
	Seq        uint64
	Stale      bool // a newer query superseded the one that produced this call
	Filters    models.FetchFilters
	Client     models.ClientFilters
	Rows       []models.Study
	Total      int
	Status     Status
	Loading    bool
	Modalities []models.Modality
	Today      time.Time // upper bound for entered dates
}

// View is one session's worklist. Queries may overlap; each is tagged with a
// sequence number and only the latest issued one may write the result set.
// Issuing a query cancels the one in flight.
type View struct {
	mu sync.Mutex

	bar     *QueryBar
	querier Querier
	policy  AbsentPolicy
	logger  *zap.Logger

	client  models.ClientFilters
	studies []models.Study
	gen     uint64 // bumped whenever studies is replaced
	status  Status
	memo    Memo

	seq     uint64 // last issued query
	applied uint64 // query whose result is in studies
	cancel  context.CancelFunc

	lastUsed time.Time
}

type ViewConfig struct {
	Modalities []string
	Location   *time.Location
	Policy     AbsentPolicy
	Now        func() time.Time
}

func NewView(q Querier, cfg ViewConfig, logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	order := cfg.Modalities
	if len(order) == 0 {
		order = models.DefaultModalities
	}
	bar := NewQueryBar(order, cfg.Now, cfg.Location)
	return &View{
		bar:      bar,
		querier:  q,
		policy:   cfg.Policy,
		logger:   logger,
		lastUsed: bar.now(),
	}
}

// Refresh re-runs the query for the current fetch filters.
func (v *View) Refresh(ctx context.Context) Snapshot {
	v.mu.Lock()
	return v.issueLocked(ctx)
}

// ApplyRelativeRange applies a date shortcut and queries.
func (v *View) ApplyRelativeRange(ctx context.Context, label RangeLabel) (Snapshot, error) {
	v.mu.Lock()
	if _, err := v.bar.ApplyRelativeRange(label); err != nil {
		v.mu.Unlock()
		return Snapshot{}, err
	}
	return v.issueLocked(ctx), nil
}

// SetExplicitRange applies entered dates and queries.
func (v *View) SetExplicitRange(ctx context.Context, start, end time.Time) Snapshot {
	v.mu.Lock()
	v.bar.SetExplicitRange(start, end)
	return v.issueLocked(ctx)
}

// ToggleModality flips one modality and queries.
func (v *View) ToggleModality(ctx context.Context, code string) Snapshot {
	v.mu.Lock()
	v.bar.ToggleModality(code)
	return v.issueLocked(ctx)
}

// SelectAllModalities clears the modality restriction and queries.
func (v *View) SelectAllModalities(ctx context.Context) Snapshot {
	v.mu.Lock()
	v.bar.SelectAllModalities()
	return v.issueLocked(ctx)
}

// SetClientFilters replaces the column filters. It never queries.
func (v *View) SetClientFilters(cf models.ClientFilters) Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.client = cf
	v.touchLocked()
	return v.snapshotLocked()
}

// Snapshot returns the current state without querying.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Loaded reports whether the rows belong to the current fetch filters, or a
// query for them is still running. It is false before the first query and
// after the latest one was abandoned by its caller.
func (v *View) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.applied > 0 && (v.applied == v.seq || v.cancel != nil)
}

// Close cancels any query in flight.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

func (v *View) LastUsed() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastUsed
}

// issueLocked is entered with mu held and releases it while the query runs.
func (v *View) issueLocked(parent context.Context) Snapshot {
	v.touchLocked()
	if v.cancel != nil {
		v.cancel()
	}
	v.seq++
	seq := v.seq
	ctx, cancel := context.WithCancel(parent)
	v.cancel = cancel
	f := v.bar.Filters()
	mods := v.bar.Modalities()
	v.mu.Unlock()

	res, err := v.querier.QueryWorklist(ctx, f.StartDate, f.EndDate, mods)

	v.mu.Lock()
	defer v.mu.Unlock()
	cancel()
	if seq != v.seq {
		v.logger.Debug("discarding superseded worklist result",
			zap.Uint64("seq", seq),
			zap.Uint64("latest", v.seq),
		)
		snap := v.snapshotLocked()
		snap.Seq = seq
		snap.Stale = true
		return snap
	}
	v.cancel = nil

	if err != nil && errors.Is(err, context.Canceled) && parent.Err() != nil {
		// The caller went away; keep what we had. Loaded turns false so the
		// next page load re-runs the query for the current filters.
		snap := v.snapshotLocked()
		snap.Seq = seq
		snap.Stale = true
		return snap
	}

	v.applied = seq
	v.gen++
	v.status = StatusOf(res, err)
	if err != nil {
		v.logger.Warn("worklist query failed", zap.Error(err))
		v.studies = nil
	} else {
		v.studies = res.Studies
	}
	return v.snapshotLocked()
}

func (v *View) touchLocked() {
	v.lastUsed = v.bar.now()
}

func (v *View) snapshotLocked() Snapshot {
	rows := v.memo.Rows(v.gen, v.studies, v.client, v.policy)
	f := v.bar.Filters()
	return Snapshot{
		Seq:        v.seq,
		Filters:    f,
		Client:     v.client,
		Rows:       rows,
		Total:      len(v.studies),
		Status:     v.status,
		Loading:    v.applied != v.seq,
		Modalities: models.ModalityButtons(v.bar.Order(), f),
		Today:      v.bar.Today(),
	}
}
