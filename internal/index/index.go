// Package index models the conda package index (repodata) and provides a
// repodata-backed resolver that implements the oracle capability. The index
// is read-only after loading; nothing here persists between runs.
package index

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rmcgibbo/conda-hint/internal/spec"
)

// Record is one package build as published in repodata.json.
type Record struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Build       string   `json:"build"`
	BuildNumber int      `json:"build_number"`
	Depends     []string `json:"depends"`
	Subdir      string   `json:"subdir"`

	// Channel is the channel the record was loaded from; set by the loader,
	// not part of repodata.
	Channel string `json:"-"`
	// Filename is the record's key in repodata ("numpy-1.9.2-py35_0.tar.bz2").
	Filename string `json:"-"`
}

type repodata struct {
	Packages      map[string]Record `json:"packages"`
	PackagesConda map[string]Record `json:"packages.conda"`
}

// Index holds the merged package universe for one run. Loading (Add/Merge)
// is single-threaded; afterwards lookups are safe for concurrent use. The
// mutex guards the lazily-built sort order and dependency cache, which are
// the only post-load mutations.
type Index struct {
	records map[string]Record
	byName  map[string][]string

	mu       sync.Mutex
	depCache map[string][]spec.Constraint
	sorted   bool
}

// New returns an empty index.
func New() *Index {
	return &Index{
		records:  make(map[string]Record),
		byName:   make(map[string][]string),
		depCache: make(map[string][]spec.Constraint),
	}
}

// Add registers a record under filename. Later additions win when channels
// republish the same filename, matching channel priority order.
func (ix *Index) Add(filename string, r Record) {
	r.Filename = filename
	if _, exists := ix.records[filename]; !exists {
		ix.byName[r.Name] = append(ix.byName[r.Name], filename)
	}
	ix.records[filename] = r
	ix.sorted = false
}

// Merge decodes a repodata.json document into the index.
func (ix *Index) Merge(data []byte, channel string) error {
	var doc repodata
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode repodata: %w", err)
	}
	for fn, rec := range doc.Packages {
		rec.Channel = channel
		ix.Add(fn, rec)
	}
	for fn, rec := range doc.PackagesConda {
		rec.Channel = channel
		ix.Add(fn, rec)
	}
	return nil
}

// Len returns the number of records.
func (ix *Index) Len() int { return len(ix.records) }

// Record looks up a record by filename.
func (ix *Index) Record(filename string) (Record, bool) {
	r, ok := ix.records[filename]
	return r, ok
}

// HasPackage reports whether any build of name exists at all.
func (ix *Index) HasPackage(name string) bool {
	return len(ix.byName[name]) > 0
}

// FindMatches returns the filenames of every record satisfying the
// constraint, newest version first. The order is deterministic: version
// descending, then build number descending, then filename.
func (ix *Index) FindMatches(c spec.Constraint) []string {
	ix.mu.Lock()
	ix.ensureSorted()
	ix.mu.Unlock()
	var out []string
	for _, fn := range ix.byName[c.Name] {
		rec := ix.records[fn]
		if c.Channel != "" && c.Channel != rec.Channel {
			continue
		}
		if c.Matches(rec.Version, rec.Build) {
			out = append(out, fn)
		}
	}
	return out
}

// Depends parses a record's dependency lines into constraints, memoized per
// filename.
func (ix *Index) Depends(filename string) ([]spec.Constraint, error) {
	ix.mu.Lock()
	if deps, ok := ix.depCache[filename]; ok {
		ix.mu.Unlock()
		return deps, nil
	}
	ix.mu.Unlock()

	rec, ok := ix.records[filename]
	if !ok {
		return nil, fmt.Errorf("no record for %q", filename)
	}
	deps := make([]spec.Constraint, 0, len(rec.Depends))
	for _, line := range rec.Depends {
		c, err := spec.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", filename, err)
		}
		deps = append(deps, c)
	}

	ix.mu.Lock()
	ix.depCache[filename] = deps
	ix.mu.Unlock()
	return deps, nil
}

func (ix *Index) ensureSorted() {
	if ix.sorted {
		return
	}
	for name, fns := range ix.byName {
		sort.Slice(fns, func(i, j int) bool {
			a, b := ix.records[fns[i]], ix.records[fns[j]]
			if c := spec.CompareVersions(a.Version, b.Version); c != 0 {
				return c > 0
			}
			if a.BuildNumber != b.BuildNumber {
				return a.BuildNumber > b.BuildNumber
			}
			return fns[i] < fns[j]
		})
		ix.byName[name] = fns
	}
	ix.sorted = true
}

// DisplayName strips the archive suffix for printouts, as conda does.
func DisplayName(filename string) string {
	if strings.HasSuffix(filename, ".tar.bz2") {
		return strings.TrimSuffix(filename, ".tar.bz2")
	}
	return strings.TrimSuffix(filename, ".conda")
}
