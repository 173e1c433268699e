package oracle

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rmcgibbo/conda-hint/internal/spec"
)

// ErrBudgetExceeded marks runs aborted because the query or time budget ran
// out. Distinct from an oracle failure: "we don't know" rather than "the
// oracle broke".
var ErrBudgetExceeded = errors.New("oracle query budget exceeded")

// BudgetError reports how far a run got before hitting its budget.
type BudgetError struct {
	Queries int
	Limit   int
}

func (e *BudgetError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("oracle query budget exceeded after %d of %d queries", e.Queries, e.Limit)
	}
	return fmt.Sprintf("oracle time budget exceeded after %d queries", e.Queries)
}

func (e *BudgetError) Unwrap() error { return ErrBudgetExceeded }

// Config bounds a single run through the adapter.
type Config struct {
	// MaxQueries caps delegated oracle queries; 0 means unlimited. Cache
	// hits and the empty-set convention do not count against the cap.
	MaxQueries int
}

// Adapter wraps an Oracle with per-run memoization keyed by the exact
// (set, platform) pair. One adapter per run, one goroutine per adapter:
// the deletion algorithm is strictly sequential, so no locking is needed.
type Adapter struct {
	oracle Oracle
	cfg    Config
	log    *zap.Logger

	cache   map[string]Result
	queries int
	hits    int
}

// NewAdapter builds an adapter around an oracle. A nil logger is replaced
// with a nop logger.
func NewAdapter(o Oracle, cfg Config, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		oracle: o,
		cfg:    cfg,
		log:    log,
		cache:  make(map[string]Result),
	}
}

// Query answers from the cache when possible and otherwise delegates to the
// oracle. The empty set is satisfiable by convention without consulting the
// oracle. Oracle errors propagate unmodified; retry policy belongs to the
// oracle's own boundary. A context deadline expiring mid-run surfaces as a
// *BudgetError so callers can tell a bounded run from a broken oracle.
func (a *Adapter) Query(ctx context.Context, set spec.ConstraintSet, platform spec.Platform) (Result, error) {
	if set.Len() == 0 {
		return Result{Satisfiable: true}, nil
	}

	key := string(platform) + "\x1e" + set.Key()
	if res, ok := a.cache[key]; ok {
		a.hits++
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return Result{}, a.budgetOrErr(err)
	}
	if a.cfg.MaxQueries > 0 && a.queries >= a.cfg.MaxQueries {
		return Result{}, &BudgetError{Queries: a.queries, Limit: a.cfg.MaxQueries}
	}

	a.queries++
	res, err := a.oracle.Query(ctx, set, platform)
	if err != nil {
		return Result{}, a.budgetOrErr(err)
	}

	a.log.Debug("oracle query",
		zap.String("platform", string(platform)),
		zap.Int("size", set.Len()),
		zap.Bool("satisfiable", res.Satisfiable),
		zap.Int("queries", a.queries))

	a.cache[key] = res
	return res, nil
}

func (a *Adapter) budgetOrErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &BudgetError{Queries: a.queries}
	}
	return err
}

// Queries returns the number of delegated (non-cached) oracle queries.
// Tests use it to bound algorithmic complexity.
func (a *Adapter) Queries() int { return a.queries }

// CacheHits returns how many queries were answered from the cache.
func (a *Adapter) CacheHits() int { return a.hits }
