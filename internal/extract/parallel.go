package extract

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rmcgibbo/conda-hint/internal/oracle"
	"github.com/rmcgibbo/conda-hint/internal/spec"
)

// ParallelCores searches for additional cores concurrently. The first core
// comes from a sequential search; then every subset obtained by dropping
// one member of that core is probed in its own goroutine. Each probe owns a
// fresh adapter cache over the shared oracle, which must therefore be safe
// for concurrent queries. Results are merged deterministically: candidates
// are ordered by the same rule as SortCores, then accepted only while
// disjoint from everything accepted before, up to maxCores.
func ParallelCores(ctx context.Context, o oracle.Oracle, cfg oracle.Config, input spec.ConstraintSet, platform spec.Platform, maxCores int, log *zap.Logger) ([]Core, error) {
	if maxCores <= 0 {
		maxCores = DefaultMaxCores
	}
	if log == nil {
		log = zap.NewNop()
	}

	seq := New(oracle.NewAdapter(o, cfg, log), 1, log)
	firstCores, err := seq.Cores(ctx, input, platform)
	if err != nil {
		return nil, err
	}
	first := firstCores[0]
	if maxCores == 1 {
		return firstCores, nil
	}

	candidates := make([]*Core, first.Members.Len())
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < first.Members.Len(); i++ {
		i := i
		g.Go(func() error {
			adapter := oracle.NewAdapter(o, cfg, log)
			probe := input.Exclude(keySet(first.Members.At(i)))
			if probe.Len() == 0 {
				return nil
			}
			res, err := adapter.Query(gctx, probe, platform)
			if err != nil {
				return err
			}
			if res.Satisfiable {
				return nil
			}
			ex := New(adapter, 1, log)
			cores, err := ex.Cores(gctx, probe, platform)
			if err != nil {
				return err
			}
			// Positions were computed against the probe subset; remap to
			// the original input before merging.
			core := cores[0]
			for j := range core.Positions {
				core.Positions[j] = input.IndexOf(core.Members.At(j))
			}
			candidates[i] = &core
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var found []Core
	for _, c := range candidates {
		if c != nil {
			found = append(found, *c)
		}
	}
	SortCores(found)

	out := []Core{first}
	used := make(map[string]struct{})
	for _, s := range first.Members.Strings() {
		used[s] = struct{}{}
	}
	for _, c := range found {
		if len(out) >= maxCores {
			break
		}
		if overlaps(c.Members, used) {
			continue
		}
		out = append(out, c)
		for _, s := range c.Members.Strings() {
			used[s] = struct{}{}
		}
	}
	SortCores(out)
	return out, nil
}

func keySet(c spec.Constraint) map[string]struct{} {
	return map[string]struct{}{c.String(): {}}
}

func overlaps(members spec.ConstraintSet, used map[string]struct{}) bool {
	for _, s := range members.Strings() {
		if _, ok := used[s]; ok {
			return true
		}
	}
	return false
}
