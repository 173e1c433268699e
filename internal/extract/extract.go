// Package extract finds locally-minimal unsatisfiable subsets (conflict
// cores) of a constraint set by driving repeated oracle queries on
// shrinking subsets.
package extract

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/rmcgibbo/conda-hint/internal/oracle"
	"github.com/rmcgibbo/conda-hint/internal/spec"
)

// DefaultMaxCores bounds how many independent cores a run surfaces.
const DefaultMaxCores = 3

// PreconditionError reports that the extractor was invoked on a satisfiable
// set. That is a contract violation by the caller, not a property of the
// input worth explaining.
type PreconditionError struct {
	Set      spec.ConstraintSet
	Platform spec.Platform
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("extractor invoked on satisfiable set [%s] for %s", e.Set, e.Platform)
}

// Core is one locally-minimal unsatisfiable subset of the input: the core
// alone is unsatisfiable, and removing any single member makes the
// remainder satisfiable.
type Core struct {
	// Members preserves the input set's relative order.
	Members spec.ConstraintSet
	// Positions are each member's index in the original input set, used for
	// deterministic tie-breaking between cores.
	Positions []int
	// Conflict is the structured reason from the core's own unsatisfiable
	// query, when the oracle supplied one.
	Conflict *oracle.Conflict
}

// Extractor shrinks unsatisfiable sets to minimal cores through one
// adapter, whose cache it owns for the run.
type Extractor struct {
	adapter  *oracle.Adapter
	maxCores int
	log      *zap.Logger
}

// New builds an extractor. maxCores <= 0 selects DefaultMaxCores. A nil
// logger is replaced with a nop logger.
func New(adapter *oracle.Adapter, maxCores int, log *zap.Logger) *Extractor {
	if maxCores <= 0 {
		maxCores = DefaultMaxCores
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{adapter: adapter, maxCores: maxCores, log: log}
}

// Cores returns up to maxCores disjoint minimal cores of input, in
// discovery order. The full input must be unsatisfiable; a satisfiable
// input is a *PreconditionError. Identical input and platform always yield
// the identical core sequence: scanning follows insertion order and the
// search never iterates an unordered structure.
func (e *Extractor) Cores(ctx context.Context, input spec.ConstraintSet, platform spec.Platform) ([]Core, error) {
	res, err := e.adapter.Query(ctx, input, platform)
	if err != nil {
		return nil, err
	}
	if res.Satisfiable {
		return nil, &PreconditionError{Set: input, Platform: platform}
	}

	var cores []Core
	used := make(map[string]struct{})
	working := input
	first := res
	for len(cores) < e.maxCores {
		core, err := e.shrink(ctx, input, working, platform, first)
		if err != nil {
			return nil, err
		}
		cores = append(cores, core)
		e.log.Debug("found conflict core",
			zap.Strings("members", core.Members.Strings()),
			zap.Int("queries", e.adapter.Queries()))

		// Subsequent searches exclude every element of every found core:
		// "independent" means disjoint.
		for _, s := range core.Members.Strings() {
			used[s] = struct{}{}
		}
		working = input.Exclude(used)
		if working.Len() == 0 {
			break
		}
		res, err := e.adapter.Query(ctx, working, platform)
		if err != nil {
			return nil, err
		}
		if res.Satisfiable {
			break
		}
		first = res
	}
	return cores, nil
}

// shrink runs the deletion algorithm on w, already known unsatisfiable with
// result last. Members are scanned in insertion order; every successful
// removal restarts the scan, since a removal can make a previously
// necessary member redundant. A full pass removing nothing proves local
// minimality.
func (e *Extractor) shrink(ctx context.Context, input, w spec.ConstraintSet, platform spec.Platform, last oracle.Result) (Core, error) {
scan:
	for i := 0; i < w.Len(); i++ {
		candidate := w.Without(i)
		res, err := e.adapter.Query(ctx, candidate, platform)
		if err != nil {
			return Core{}, err
		}
		if !res.Satisfiable {
			w = candidate
			last = res
			goto scan
		}
	}

	positions := make([]int, w.Len())
	for i := 0; i < w.Len(); i++ {
		positions[i] = input.IndexOf(w.At(i))
	}
	return Core{Members: w, Positions: positions, Conflict: last.Conflict}, nil
}

// SortCores orders cores for presentation: smaller cores first (more
// actionable), ties broken by the input position of the first differing
// member. The order is total for cores drawn from one input set, so the
// sort is deterministic.
func SortCores(cores []Core) {
	sort.SliceStable(cores, func(i, j int) bool {
		return lessCore(cores[i], cores[j])
	})
}

func lessCore(a, b Core) bool {
	if a.Members.Len() != b.Members.Len() {
		return a.Members.Len() < b.Members.Len()
	}
	for i := range a.Positions {
		if a.Positions[i] != b.Positions[i] {
			return a.Positions[i] < b.Positions[i]
		}
	}
	return false
}
