package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-console/internal/gateway"
	"github.com/noah-isme/lms-admin-console/internal/models"
	appErrors "github.com/noah-isme/lms-admin-console/pkg/errors"
)

// ConsoleServiceConfig tunes console session behaviour.
type ConsoleServiceConfig struct {
	DefaultPageSize  int
	MaxPageSize      int
	SnapshotPageSize int
	IdleTTL          time.Duration
	SweepInterval    time.Duration
}

type consoleKey struct {
	operatorID string
	kind       models.Kind
}

type sessionGauge interface {
	ConsoleMounted(delta int)
}

// ConsoleService owns console sessions keyed by (operator, kind). A console
// fetches an unfiltered snapshot from the platform on mount and serves every
// view-parameter edit locally through the derivation pipeline; a reload
// refetches the snapshot. The two strategies are never mixed for one render.
type ConsoleService struct {
	gateway gateway.Service
	logger  *zap.Logger
	cfg     ConsoleServiceConfig
	now     func() time.Time

	sessions sessionGauge

	mu       sync.Mutex
	consoles map[consoleKey]*Console
}

// SetSessionGauge wires the mounted-sessions gauge. Optional.
func (s *ConsoleService) SetSessionGauge(g sessionGauge) {
	s.sessions = g
}

// Count returns the number of mounted consoles.
func (s *ConsoleService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.consoles)
}

// NewConsoleService constructs the console session manager.
func NewConsoleService(gw gateway.Service, cfg ConsoleServiceConfig, logger *zap.Logger) *ConsoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 10
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.SnapshotPageSize <= 0 {
		cfg.SnapshotPageSize = 500
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	return &ConsoleService{
		gateway:  gw,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		consoles: make(map[consoleKey]*Console),
	}
}

// Mount creates (or resets) the operator's console for a kind and loads the
// first snapshot. Remounting invalidates any response still in flight for the
// previous incarnation via the generation counter.
func (s *ConsoleService) Mount(ctx context.Context, operatorID string, kind models.Kind) (*Console, models.DerivedView, error) {
	desc, ok := models.DescriptorFor(kind)
	if !ok {
		return nil, models.DerivedView{}, appErrors.Clone(appErrors.ErrValidation, "unknown console kind")
	}

	s.mu.Lock()
	key := consoleKey{operatorID: operatorID, kind: kind}
	console, exists := s.consoles[key]
	if !exists {
		console = &Console{
			kind:       kind,
			desc:       desc,
			operatorID: operatorID,
			selection:  make(map[string]struct{}),
			inflight:   make(map[string]struct{}),
		}
		s.consoles[key] = console
	}
	s.mu.Unlock()
	if !exists && s.sessions != nil {
		s.sessions.ConsoleMounted(1)
	}

	console.mu.Lock()
	console.generation++
	console.params = models.ViewParameters{}.Normalize(s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	console.records = nil
	console.selection = make(map[string]struct{})
	console.pendingAction = ""
	console.pendingUndo = nil
	console.touch(s.now())
	console.mu.Unlock()

	if err := s.loadSnapshot(ctx, console); err != nil {
		return nil, models.DerivedView{}, err
	}

	console.mu.Lock()
	view := Derive(console.records, console.params, console.desc)
	console.mu.Unlock()
	return console, view, nil
}

// Get returns the mounted console for the operator and kind.
func (s *ConsoleService) Get(operatorID string, kind models.Kind) (*Console, error) {
	s.mu.Lock()
	console, ok := s.consoles[consoleKey{operatorID: operatorID, kind: kind}]
	s.mu.Unlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "console is not mounted")
	}
	console.mu.Lock()
	console.touch(s.now())
	console.mu.Unlock()
	return console, nil
}

// Unmount drops the console; responses still in flight for it are discarded.
func (s *ConsoleService) Unmount(operatorID string, kind models.Kind) {
	s.mu.Lock()
	key := consoleKey{operatorID: operatorID, kind: kind}
	console, ok := s.consoles[key]
	if ok {
		delete(s.consoles, key)
	}
	s.mu.Unlock()
	if ok {
		console.mu.Lock()
		console.generation++
		console.mu.Unlock()
		if s.sessions != nil {
			s.sessions.ConsoleMounted(-1)
		}
	}
}

// UpdateView applies new view parameters and derives the visible slice. The
// page is clamped to the derived total, so filter edits that shrink the
// result set never leave the console past the end.
func (s *ConsoleService) UpdateView(ctx context.Context, operatorID string, kind models.Kind, params models.ViewParameters) (models.DerivedView, models.ViewParameters, error) {
	console, err := s.Get(operatorID, kind)
	if err != nil {
		return models.DerivedView{}, models.ViewParameters{}, err
	}

	params = params.Normalize(s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	if !models.ValidSortKey(params.SortKey) {
		return models.DerivedView{}, models.ViewParameters{}, appErrors.Clone(appErrors.ErrValidation, "unknown sort key")
	}
	if params.StatusFilter != models.StatusFilterAll && !console.desc.HasStatus(models.Status(params.StatusFilter)) {
		return models.DerivedView{}, models.ViewParameters{}, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
	}

	console.mu.Lock()
	defer console.mu.Unlock()
	view := Derive(console.records, params, console.desc)
	if clamped := ClampPage(params.Page, view.TotalPages); clamped != params.Page {
		params.Page = clamped
		view = Derive(console.records, params, console.desc)
	}
	console.params = params
	console.touch(s.now())
	return view, params, nil
}

// View derives the visible slice for the console's current parameters.
func (s *ConsoleService) View(operatorID string, kind models.Kind) (models.DerivedView, models.ViewParameters, error) {
	console, err := s.Get(operatorID, kind)
	if err != nil {
		return models.DerivedView{}, models.ViewParameters{}, err
	}
	console.mu.Lock()
	defer console.mu.Unlock()
	view := Derive(console.records, console.params, console.desc)
	return view, console.params, nil
}

// UpdateSelection adds and removes record ids. Only ids backed by a loaded
// record may enter the selection; unknown ids are reported back, not added.
func (s *ConsoleService) UpdateSelection(operatorID string, kind models.Kind, add, remove []string) (int, []string, error) {
	console, err := s.Get(operatorID, kind)
	if err != nil {
		return 0, nil, err
	}
	console.mu.Lock()
	defer console.mu.Unlock()

	var unknown []string
	for _, id := range add {
		if console.findRecord(id) == nil {
			unknown = append(unknown, id)
			continue
		}
		console.selection[id] = struct{}{}
	}
	for _, id := range remove {
		delete(console.selection, id)
	}
	console.touch(s.now())
	return len(console.selection), unknown, nil
}

// Refresh refetches the snapshot, pruning selected ids whose records were
// deleted remotely.
func (s *ConsoleService) Refresh(ctx context.Context, operatorID string, kind models.Kind) (models.DerivedView, error) {
	console, err := s.Get(operatorID, kind)
	if err != nil {
		return models.DerivedView{}, err
	}
	if err := s.loadSnapshot(ctx, console); err != nil {
		return models.DerivedView{}, err
	}
	console.mu.Lock()
	defer console.mu.Unlock()
	view := Derive(console.records, console.params, console.desc)
	if clamped := ClampPage(console.params.Page, view.TotalPages); clamped != console.params.Page {
		console.params.Page = clamped
		view = Derive(console.records, console.params, console.desc)
	}
	return view, nil
}

// Reload refetches a console's snapshot; the bulk orchestrator calls this
// after a successful batched action instead of reconciling incrementally.
func (s *ConsoleService) Reload(ctx context.Context, console *Console) error {
	return s.loadSnapshot(ctx, console)
}

// Run sweeps idle consoles until the context is cancelled.
func (s *ConsoleService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *ConsoleService) sweep() {
	cutoff := s.now().Add(-s.cfg.IdleTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, console := range s.consoles {
		console.mu.Lock()
		idle := console.lastTouched.Before(cutoff)
		if idle {
			console.generation++
		}
		console.mu.Unlock()
		if idle {
			delete(s.consoles, key)
			if s.sessions != nil {
				s.sessions.ConsoleMounted(-1)
			}
			s.logger.Debug("console swept",
				zap.String("operator_id", key.operatorID),
				zap.String("kind", string(key.kind)),
			)
		}
	}
}

// loadSnapshot fetches the unfiltered working set. The generation captured
// before the call guards against applying a response to a console that was
// remounted or unmounted while the request was in flight.
func (s *ConsoleService) loadSnapshot(ctx context.Context, console *Console) error {
	console.mu.Lock()
	generation := console.generation
	kind := console.kind
	console.mu.Unlock()

	records, _, err := s.gateway.ListRecords(ctx, kind, models.ViewParameters{
		Page:         1,
		PageSize:     s.cfg.SnapshotPageSize,
		StatusFilter: models.StatusFilterAll,
		SortKey:      models.SortNewest,
	})
	if err != nil {
		return err
	}

	console.mu.Lock()
	defer console.mu.Unlock()
	if console.generation != generation {
		return appErrors.Clone(appErrors.ErrStaleResponse, "")
	}
	console.records = records
	console.pruneSelection()
	console.touch(s.now())
	return nil
}
