package deduplication

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/taxon/internal/types"
)

// Engine maintains the derived duplicate views of a tag set.
//
// Exact duplicates and orphans are recomputed synchronously on every
// Update. The pairwise passes run in the background, debounced, chunked and
// tagged with a generation id; only the latest generation ever publishes.
type Engine struct {
	cfg       Config
	logger    zerolog.Logger
	debouncer *Debouncer
	latest    atomic.Uint64

	// pubMu serializes publishes so hooks observe snapshots in order
	pubMu sync.Mutex

	mu       sync.RWMutex
	results  Results
	cancel   context.CancelFunc
	settled  uint64
	lastErr  error
	errGen   uint64
	changed  chan struct{}
	closed   bool
	hooks    []func(Results)
	yieldFor func(gen uint64)
	validate func(*Results) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithPublishHook registers fn to receive every published snapshot.
// Hooks run on the publishing goroutine and must not call Update or
// ForceRefresh.
func WithPublishHook(fn func(Results)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.hooks = append(e.hooks, fn)
		}
	}
}

// NewEngine creates an engine with an empty result set.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{
		cfg:       cfg,
		logger:    zerolog.Nop(),
		debouncer: NewDebouncer(cfg.DebounceDelay),
		changed:   make(chan struct{}),
		validate:  (*Results).Validate,
	}
	e.results = Results{UpdatedAt: time.Now()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Update publishes fresh exact-duplicate and orphan views for in and
// schedules the pairwise passes after the debounce delay. It returns the
// generation id assigned to this input.
func (e *Engine) Update(in Input) uint64 {
	return e.refresh(in, true)
}

// ForceRefresh is Update without the debounce delay.
func (e *Engine) ForceRefresh(in Input) uint64 {
	return e.refresh(in, false)
}

// Results returns the latest published snapshot.
func (e *Engine) Results() Results {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.results
}

// Latest returns the most recently assigned generation id.
func (e *Engine) Latest() uint64 {
	return e.latest.Load()
}

// Wait blocks until generation gen has either published or failed, or a
// newer generation has settled, and returns the snapshot at that point.
// The error is the generation's own failure, if any.
func (e *Engine) Wait(ctx context.Context, gen uint64) (Results, error) {
	for {
		e.mu.RLock()
		settled := e.settled
		results := e.results
		lastErr, errGen := e.lastErr, e.errGen
		changed := e.changed
		closed := e.closed
		e.mu.RUnlock()

		if settled >= gen {
			if errGen == gen {
				return results, lastErr
			}
			return results, nil
		}
		if closed {
			return results, fmt.Errorf("engine closed before generation %d settled", gen)
		}

		select {
		case <-ctx.Done():
			return results, ctx.Err()
		case <-changed:
		}
	}
}

// Close stops the debounce timer and cancels in-flight work. Results stay
// readable; later updates are ignored.
func (e *Engine) Close() {
	e.debouncer.Stop()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.notifyLocked()
}

func (e *Engine) refresh(in Input, debounce bool) uint64 {
	snapshot, skipped := sanitizeInput(in.clone(), e.logger)
	exact := FindExactDuplicates(snapshot.Tags)
	orphans := FindOrphans(snapshot.Tags)

	e.pubMu.Lock()
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.pubMu.Unlock()
		return e.latest.Load()
	}

	gen := e.latest.Add(1)
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	r := e.results
	r.DuplicateParentTags = exact
	r.OrphanedTags = orphans
	r.IsCalculating = true
	r.SkippedTags = skipped
	r.UpdatedAt = time.Now()
	e.results = r
	e.notifyLocked()
	e.mu.Unlock()
	e.publish(r)

	// Scheduling stays under pubMu so runs reach the debouncer in
	// generation order. Neither path calls compute synchronously.
	run := func() { e.compute(ctx, gen, snapshot) }
	if debounce {
		e.debouncer.Trigger(run)
	} else {
		e.debouncer.Cancel()
		go run()
	}
	e.pubMu.Unlock()

	e.logger.Debug().
		Uint64("generation", gen).
		Int("tags", len(snapshot.Tags)).
		Int("exact_groups", len(exact)).
		Int("orphans", len(orphans)).
		Bool("debounced", debounce).
		Msg("taxonomy updated")
	return gen
}

// compute runs both pairwise passes for one generation and publishes them
// if the generation is still the latest.
func (e *Engine) compute(ctx context.Context, gen uint64, in Input) {
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	yield := e.yield(gctx, gen)

	var (
		semantic []types.SemanticDuplicate
		children []types.SimilarChildGroup
	)
	g.Go(func() error {
		return safeCompute("semantic_duplicates", func() error {
			var err error
			semantic, err = FindSemanticDuplicates(in.Tags, e.cfg, yield)
			return err
		})
	})
	g.Go(func() error {
		return safeCompute("similar_children", func() error {
			var err error
			children, err = FindSimilarChildren(in, e.cfg, yield)
			return err
		})
	})
	err := g.Wait()

	if err == nil {
		pairwise := Results{
			SemanticDuplicates:        semantic,
			SimilarChildTagsPerParent: children,
		}
		if verr := e.validate(&pairwise); verr != nil {
			err = fmt.Errorf("invalid results: %w", verr)
		}
	}

	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	e.mu.Lock()

	if e.closed || gen != e.latest.Load() {
		e.mu.Unlock()
		e.logger.Debug().Uint64("generation", gen).Msg("discarding superseded generation")
		return
	}

	e.cancel = nil
	if err != nil {
		e.results.IsCalculating = false
		r := e.results
		e.mu.Unlock()
		e.logger.Error().Err(err).Uint64("generation", gen).Msg("similarity computation failed")
		e.publish(r)
		e.settle(gen, err)
		return
	}

	r := e.results
	r.Generation = gen
	r.SemanticDuplicates = semantic
	r.SimilarChildTagsPerParent = children
	r.IsCalculating = false
	r.UpdatedAt = time.Now()
	e.results = r
	e.mu.Unlock()

	e.logger.Info().
		Uint64("generation", gen).
		Int("semantic_pairs", len(semantic)).
		Int("child_groups", len(children)).
		Dur("elapsed", time.Since(start)).
		Msg("similarity computation published")
	e.publish(r)
	e.settle(gen, err)
}

// settle marks gen as finished once its hooks have run. Caller must hold
// e.pubMu.
func (e *Engine) settle(gen uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settled = gen
	if err != nil {
		e.lastErr = err
		e.errGen = gen
	}
	e.notifyLocked()
}

func (e *Engine) yield(ctx context.Context, gen uint64) YieldFunc {
	return func() error {
		if e.yieldFor != nil {
			e.yieldFor(gen)
		}
		runtime.Gosched()
		return ctx.Err()
	}
}

func (e *Engine) publish(r Results) {
	for _, hook := range e.hooks {
		hook(r)
	}
}

// notifyLocked wakes Wait callers. Caller must hold e.mu.
func (e *Engine) notifyLocked() {
	close(e.changed)
	e.changed = make(chan struct{})
}

// safeCompute executes fn and converts a panic into an error.
func safeCompute(phase string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v\n%s", phase, r, debug.Stack())
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", phase, err)
	}
	return nil
}
