// Package oracle defines the capability interface to the external
// satisfiability decision procedure and the memoizing adapter the extractor
// drives it through. The adapter is the only mutable shared state in a run
// and is owned by exactly one run; it is never persisted.
package oracle

import (
	"context"

	"github.com/rmcgibbo/conda-hint/internal/spec"
)

// Oracle decides whether a constraint set is satisfiable on a platform.
// Any conforming implementation is substitutable; tests use an in-memory
// fake, the CLI uses the repodata-backed resolver. The oracle is total over
// the finite package universe: there is no "unknown" outcome, only an error
// when the procedure itself fails.
type Oracle interface {
	Query(ctx context.Context, set spec.ConstraintSet, platform spec.Platform) (Result, error)
}

// Result is a satisfiability verdict.
type Result struct {
	Satisfiable bool
	// Witness carries the chosen package filenames when Satisfiable. The
	// extractor treats it as opaque; the CLI prints it.
	Witness []string
	// Conflict optionally carries structured conflict information when
	// unsatisfiable. Nil is a documented fallback, not an error: the
	// renderer then lists the raw core.
	Conflict *Conflict
}

// Conflict explains why a package ran out of installation candidates.
type Conflict struct {
	// Package is the name that has no valid installation candidate.
	Package string
	// Candidates lists every rejected candidate with the status of each of
	// its dependency specs at the moment of rejection.
	Candidates []Candidate
}

// Candidate is one rejected build of the conflicting package.
type Candidate struct {
	Filename string
	Depends  []DependencyStatus
}

// DependencyStatus records whether one dependency spec of a candidate still
// had any satisfiable installation candidate.
type DependencyStatus struct {
	Spec        string
	Satisfiable bool
}
