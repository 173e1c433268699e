package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmcgibbo/conda-hint/internal/spec"
)

// fakeOracle reports a set unsatisfiable when it contains every member of
// any configured conflict group.
type fakeOracle struct {
	conflicts [][]string
	calls     int
	err       error
}

func (f *fakeOracle) Query(ctx context.Context, set spec.ConstraintSet, platform spec.Platform) (Result, error) {
	f.calls++
	if f.err != nil {
		return Result{}, f.err
	}
	members := make(map[string]bool, set.Len())
	for _, s := range set.Strings() {
		members[s] = true
	}
	for _, group := range f.conflicts {
		all := true
		for _, s := range group {
			if !members[s] {
				all = false
				break
			}
		}
		if all {
			return Result{}, nil
		}
	}
	return Result{Satisfiable: true}, nil
}

func mustSet(t *testing.T, texts ...string) spec.ConstraintSet {
	t.Helper()
	set, err := spec.ParseSet(texts...)
	require.NoError(t, err)
	return set
}

func TestAdapterMemoizes(t *testing.T) {
	fake := &fakeOracle{conflicts: [][]string{{"a", "b"}}}
	adapter := NewAdapter(fake, Config{}, nil)
	set := mustSet(t, "a", "b")

	first, err := adapter.Query(context.Background(), set, spec.Linux64)
	require.NoError(t, err)
	second, err := adapter.Query(context.Background(), set, spec.Linux64)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, 1, adapter.Queries())
	assert.Equal(t, 1, adapter.CacheHits())
}

func TestAdapterEmptySetConvention(t *testing.T) {
	fake := &fakeOracle{}
	adapter := NewAdapter(fake, Config{}, nil)

	res, err := adapter.Query(context.Background(), spec.ConstraintSet{}, spec.Linux64)
	require.NoError(t, err)
	assert.True(t, res.Satisfiable)
	assert.Zero(t, fake.calls, "empty set must not reach the oracle")
	assert.Zero(t, adapter.Queries())
}

func TestAdapterQueryBudget(t *testing.T) {
	fake := &fakeOracle{}
	adapter := NewAdapter(fake, Config{MaxQueries: 2}, nil)

	for _, s := range []string{"a", "b"} {
		_, err := adapter.Query(context.Background(), mustSet(t, s), spec.Linux64)
		require.NoError(t, err)
	}

	_, err := adapter.Query(context.Background(), mustSet(t, "c"), spec.Linux64)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBudgetExceeded))
	var budgetErr *BudgetError
	require.True(t, errors.As(err, &budgetErr))
	assert.Equal(t, 2, budgetErr.Queries)
	assert.Equal(t, 2, budgetErr.Limit)

	// cached answers stay available after the budget is spent
	res, err := adapter.Query(context.Background(), mustSet(t, "a"), spec.Linux64)
	require.NoError(t, err)
	assert.True(t, res.Satisfiable)
}

func TestAdapterPropagatesOracleErrors(t *testing.T) {
	oracleErr := errors.New("index fetch failed")
	fake := &fakeOracle{err: oracleErr}
	adapter := NewAdapter(fake, Config{}, nil)

	_, err := adapter.Query(context.Background(), mustSet(t, "a"), spec.Linux64)
	assert.Same(t, oracleErr, err, "oracle errors must propagate unmodified")
	assert.Equal(t, 1, fake.calls, "no retries at this layer")
}

func TestAdapterDeadlineBecomesBudgetError(t *testing.T) {
	fake := &fakeOracle{}
	adapter := NewAdapter(fake, Config{}, nil)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := adapter.Query(ctx, mustSet(t, "a"), spec.Linux64)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBudgetExceeded),
		"deadline expiry is a budget condition, not an oracle failure")
	assert.Zero(t, fake.calls)
}
