package index

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/rmcgibbo/conda-hint/internal/oracle"
	"github.com/rmcgibbo/conda-hint/internal/spec"
)

// Resolver decides satisfiability of a constraint set against a loaded
// index. It implements oracle.Oracle: candidate pruning first (which also
// yields the structured exclusion reasons the renderer prints), then a
// backtracking search for a concrete assignment.
type Resolver struct {
	ix       *Index
	platform spec.Platform
	log      *zap.Logger
}

// NewResolver wraps an index loaded for the given platform.
func NewResolver(ix *Index, platform spec.Platform, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{ix: ix, platform: platform, log: log}
}

// Query implements oracle.Oracle.
func (r *Resolver) Query(ctx context.Context, set spec.ConstraintSet, platform spec.Platform) (oracle.Result, error) {
	if platform != r.platform {
		return oracle.Result{}, fmt.Errorf("resolver index loaded for %s, queried for %s", r.platform, platform)
	}
	if err := ctx.Err(); err != nil {
		return oracle.Result{}, err
	}

	st, err := r.implicate(set)
	if err != nil {
		return oracle.Result{}, err
	}
	if res, done, err := r.prune(ctx, set, st); done || err != nil {
		return res, err
	}

	chosen := make(map[string]string)
	ok, err := r.search(ctx, st, set.Members(), chosen)
	if err != nil {
		return oracle.Result{}, err
	}
	if !ok {
		// Pruning converged with every required package still holding
		// candidates, yet no joint assignment exists. Fall back to the raw
		// core listing: report the most recent exclusion if one was seen.
		return oracle.Result{Satisfiable: false, Conflict: st.lastReason}, nil
	}

	witness := make([]string, 0, len(chosen))
	for _, fn := range chosen {
		witness = append(witness, fn)
	}
	sort.Strings(witness)
	return oracle.Result{Satisfiable: true, Witness: witness}, nil
}

// resolveState tracks the candidate universe for one query.
type resolveState struct {
	// valid maps each implicated package name to its surviving candidate
	// filenames, newest first.
	valid map[string][]string
	// order is the deterministic discovery order of names.
	order []string
	// required marks names the input set constrains directly.
	required map[string]bool
	// reasons records, per name, why its candidate list emptied.
	reasons    map[string]*oracle.Conflict
	lastReason *oracle.Conflict
}

// implicate walks the dependency graph from the input constraints and
// collects every package name reachable from them, with its candidate
// builds. Multiple input constraints on one name intersect.
func (r *Resolver) implicate(set spec.ConstraintSet) (*resolveState, error) {
	st := &resolveState{
		valid:    make(map[string][]string),
		required: make(map[string]bool),
		reasons:  make(map[string]*oracle.Conflict),
	}

	byName := make(map[string][]spec.Constraint)
	for _, c := range set.Members() {
		byName[c.Name] = append(byName[c.Name], c)
		st.required[c.Name] = true
	}

	var queue []string
	seen := make(map[string]bool)
	enqueue := func(name string) {
		if !seen[name] {
			seen[name] = true
			queue = append(queue, name)
		}
	}
	for _, c := range set.Members() {
		enqueue(c.Name)
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		st.order = append(st.order, name)

		cons := byName[name]
		if len(cons) == 0 {
			cons = []spec.Constraint{{Name: name}}
		}
		candidates := r.ix.FindMatches(cons[0])
		for _, c := range cons[1:] {
			candidates = filterMatches(r.ix, candidates, c)
		}
		st.valid[name] = candidates
		if len(candidates) == 0 {
			st.recordEmpty(name, nil)
			continue
		}
		for _, fn := range candidates {
			deps, err := r.ix.Depends(fn)
			if err != nil {
				return nil, err
			}
			for _, d := range deps {
				enqueue(d.Name)
			}
		}
	}
	return st, nil
}

// prune runs the arc-consistency fixpoint: a candidate survives only while
// each of its dependency specs has at least one surviving candidate. When a
// required package's candidate list empties, the set is unsatisfiable and
// the recorded exclusion reason becomes the result's Conflict. done is true
// when prune alone decided the query.
func (r *Resolver) prune(ctx context.Context, set spec.ConstraintSet, st *resolveState) (oracle.Result, bool, error) {
	if res, done := st.requiredEmpty(); done {
		return res, true, nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return oracle.Result{}, false, err
		}
		removed := false
		for _, name := range st.order {
			fns := st.valid[name]
			if len(fns) == 0 {
				continue
			}
			var kept []string
			var examined []oracle.Candidate
			for _, fn := range fns {
				deps, err := r.ix.Depends(fn)
				if err != nil {
					return oracle.Result{}, false, err
				}
				ok := true
				statuses := make([]oracle.DependencyStatus, 0, len(deps))
				for _, d := range deps {
					sat := anySatisfies(r.ix, st.valid[d.Name], d)
					statuses = append(statuses, oracle.DependencyStatus{Spec: d.String(), Satisfiable: sat})
					if !sat {
						ok = false
					}
				}
				examined = append(examined, oracle.Candidate{Filename: fn, Depends: statuses})
				if ok {
					kept = append(kept, fn)
				}
			}
			if len(kept) < len(fns) {
				removed = true
				st.valid[name] = kept
				if len(kept) == 0 {
					st.recordEmpty(name, examined)
				}
			}
		}
		if res, done := st.requiredEmpty(); done {
			return res, true, nil
		}
		if !removed {
			return oracle.Result{}, false, nil
		}
	}
}

// search looks for a concrete assignment satisfying pending constraints.
// Candidates are tried newest first, so the witness is the solution conda
// itself would prefer.
func (r *Resolver) search(ctx context.Context, st *resolveState, pending []spec.Constraint, chosen map[string]string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(pending) == 0 {
		return true, nil
	}
	c, rest := pending[0], pending[1:]

	if fn, ok := chosen[c.Name]; ok {
		rec, _ := r.ix.Record(fn)
		if !constraintAllows(c, rec) {
			return false, nil
		}
		return r.search(ctx, st, rest, chosen)
	}

	for _, fn := range filterMatches(r.ix, st.valid[c.Name], c) {
		deps, err := r.ix.Depends(fn)
		if err != nil {
			return false, err
		}
		chosen[c.Name] = fn
		next := make([]spec.Constraint, 0, len(rest)+len(deps))
		next = append(next, rest...)
		next = append(next, deps...)
		ok, err := r.search(ctx, st, next, chosen)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		delete(chosen, c.Name)
	}
	return false, nil
}

func (st *resolveState) recordEmpty(name string, examined []oracle.Candidate) {
	if _, dup := st.reasons[name]; dup {
		return
	}
	// Newest candidate first in the printout, matching the original's
	// reverse-sorted filename listing.
	sort.Slice(examined, func(i, j int) bool {
		return examined[i].Filename > examined[j].Filename
	})
	c := &oracle.Conflict{Package: name, Candidates: examined}
	st.reasons[name] = c
	st.lastReason = c
}

// requiredEmpty reports unsatisfiability as soon as a directly-required
// package has no surviving candidate.
func (st *resolveState) requiredEmpty() (oracle.Result, bool) {
	for _, name := range st.order {
		if st.required[name] && len(st.valid[name]) == 0 {
			return oracle.Result{Satisfiable: false, Conflict: st.reasons[name]}, true
		}
	}
	return oracle.Result{}, false
}

func anySatisfies(ix *Index, fns []string, c spec.Constraint) bool {
	for _, fn := range fns {
		rec, ok := ix.Record(fn)
		if ok && constraintAllows(c, rec) {
			return true
		}
	}
	return false
}

func filterMatches(ix *Index, fns []string, c spec.Constraint) []string {
	var out []string
	for _, fn := range fns {
		rec, ok := ix.Record(fn)
		if ok && constraintAllows(c, rec) {
			out = append(out, fn)
		}
	}
	return out
}

func constraintAllows(c spec.Constraint, rec Record) bool {
	if c.Channel != "" && c.Channel != rec.Channel {
		return false
	}
	return c.Matches(rec.Version, rec.Build)
}
