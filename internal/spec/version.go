package spec

import (
	"fmt"
	"strconv"
	"strings"
)

// MatchKind enumerates the version matcher forms the grammar accepts.
type MatchKind int

const (
	// MatchAny accepts every version (no version field in the spec).
	MatchAny MatchKind = iota
	// MatchExact accepts exactly one version string.
	MatchExact
	// MatchWildcard accepts versions with a given prefix ("1.9*").
	MatchWildcard
	// MatchRange accepts versions satisfying comparison clauses (">=1.9,<2").
	MatchRange
)

// VersionMatcher matches candidate version strings. The zero value is
// MatchAny. Values are immutable.
type VersionMatcher struct {
	kind    MatchKind
	exact   string
	prefix  string
	clauses []rangeClause
}

type rangeClause struct {
	op      string // ">=", ">", "<=", "<", "==", "!="
	version string
}

// ParseVersionMatcher parses the version field of a spec.
func ParseVersionMatcher(text string) (VersionMatcher, error) {
	if text == "" || text == "*" {
		return VersionMatcher{}, nil
	}
	if strings.ContainsAny(text, "<>=!") {
		parts := strings.Split(text, ",")
		clauses := make([]rangeClause, 0, len(parts))
		for _, part := range parts {
			cl, err := parseRangeClause(part)
			if err != nil {
				return VersionMatcher{}, err
			}
			clauses = append(clauses, cl)
		}
		return VersionMatcher{kind: MatchRange, clauses: clauses}, nil
	}
	if strings.HasSuffix(text, "*") {
		prefix := strings.TrimRight(text, "*")
		if strings.Contains(prefix, "*") {
			return VersionMatcher{}, fmt.Errorf("bad version %q: '*' only allowed as suffix", text)
		}
		return VersionMatcher{kind: MatchWildcard, prefix: prefix}, nil
	}
	if !validVersion(text) {
		return VersionMatcher{}, fmt.Errorf("bad version %q", text)
	}
	return VersionMatcher{kind: MatchExact, exact: text}, nil
}

func parseRangeClause(text string) (rangeClause, error) {
	for _, op := range []string{">=", "<=", "==", "!=", ">", "<"} {
		if strings.HasPrefix(text, op) {
			ver := text[len(op):]
			if !validVersion(ver) {
				return rangeClause{}, fmt.Errorf("bad version in clause %q", text)
			}
			return rangeClause{op: op, version: ver}, nil
		}
	}
	return rangeClause{}, fmt.Errorf("bad range clause %q", text)
}

// Kind returns the matcher form.
func (m VersionMatcher) Kind() MatchKind { return m.kind }

// Match reports whether version satisfies the matcher.
func (m VersionMatcher) Match(version string) bool {
	switch m.kind {
	case MatchAny:
		return true
	case MatchExact:
		return CompareVersions(version, m.exact) == 0
	case MatchWildcard:
		return strings.HasPrefix(version, m.prefix)
	case MatchRange:
		for _, cl := range m.clauses {
			cmp := CompareVersions(version, cl.version)
			var ok bool
			switch cl.op {
			case ">=":
				ok = cmp >= 0
			case ">":
				ok = cmp > 0
			case "<=":
				ok = cmp <= 0
			case "<":
				ok = cmp < 0
			case "==":
				ok = cmp == 0
			case "!=":
				ok = cmp != 0
			}
			if !ok {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the matcher back into spec syntax; MatchAny renders empty.
func (m VersionMatcher) String() string {
	switch m.kind {
	case MatchExact:
		return m.exact
	case MatchWildcard:
		return m.prefix + "*"
	case MatchRange:
		parts := make([]string, len(m.clauses))
		for i, cl := range m.clauses {
			parts[i] = cl.op + cl.version
		}
		return strings.Join(parts, ",")
	}
	return ""
}

func validVersion(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r == '.' || r == '_' || r == '-' || r == '+':
		default:
			return false
		}
	}
	return true
}

// CompareVersions orders conda version strings. Versions are compared
// dot-segment by dot-segment; each segment is split into alternating numeric
// and alphabetic runs, numeric runs compare numerically and alphabetic runs
// lexically. A purely numeric run sorts after an alphabetic one at the same
// position, so "1.0" > "1.0b2". Missing segments compare as zero.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		var sa, sb string
		if i < len(as) {
			sa = as[i]
		}
		if i < len(bs) {
			sb = bs[i]
		}
		if c := compareSegment(sa, sb); c != 0 {
			return c
		}
	}
	return 0
}

func compareSegment(a, b string) int {
	ar := splitRuns(a)
	br := splitRuns(b)
	n := len(ar)
	if len(br) > n {
		n = len(br)
	}
	for i := 0; i < n; i++ {
		va, vb := "0", "0"
		if i < len(ar) {
			va = ar[i]
		}
		if i < len(br) {
			vb = br[i]
		}
		na, aerr := strconv.Atoi(va)
		nb, berr := strconv.Atoi(vb)
		switch {
		case aerr == nil && berr == nil:
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		case aerr == nil:
			// numeric sorts after alphabetic: 1.0 > 1.0b2
			return 1
		case berr == nil:
			return -1
		default:
			if va != vb {
				if va < vb {
					return -1
				}
				return 1
			}
		}
	}
	return 0
}

// splitRuns breaks "0b2" into ["0", "b", "2"].
func splitRuns(s string) []string {
	if s == "" {
		return nil
	}
	var runs []string
	start := 0
	digit := isDigit(rune(s[0]))
	for i, r := range s {
		if isDigit(r) != digit {
			runs = append(runs, s[start:i])
			start = i
			digit = isDigit(r)
		}
	}
	runs = append(runs, s[start:])
	return runs
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
