// Package spec parses textual conda package specifications into structured,
// immutable constraints and provides the ordered constraint sets the rest of
// the pipeline operates on.
//
// The accepted grammar is the space-separated MatchSpec form:
//
//	[channel::]name[ version[ build]]
//
// where version may be exact ("1.9.3"), a trailing-star wildcard ("1.9*"),
// a comparison range (">=1.9,<2.0"), or absent (any version).
package spec

import (
	"fmt"
	"strings"
)

// ParseError reports a spec string that does not match the grammar.
type ParseError struct {
	Spec   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid spec %q: %s", e.Spec, e.Reason)
}

// Constraint is a single parsed package specification. Treat values as
// immutable: every transformation returns a new Constraint.
type Constraint struct {
	// Name is the normalized (lowercased) package name.
	Name string
	// Channel is the optional channel qualifier from "channel::name".
	Channel string
	// Version matches candidate versions. The zero value matches anything.
	Version VersionMatcher
	// Build is the optional exact build string, e.g. "py35_0".
	Build string
}

// Parse converts a textual spec into a Constraint. It fails with a
// *ParseError when the text does not match the grammar.
func Parse(text string) (Constraint, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Constraint{}, &ParseError{Spec: text, Reason: "empty spec"}
	}

	var channel string
	rest := trimmed
	if idx := strings.Index(rest, "::"); idx >= 0 {
		channel = rest[:idx]
		rest = rest[idx+2:]
		if channel == "" {
			return Constraint{}, &ParseError{Spec: text, Reason: "empty channel before '::'"}
		}
		if strings.Contains(rest, "::") {
			return Constraint{}, &ParseError{Spec: text, Reason: "multiple '::' separators"}
		}
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return Constraint{}, &ParseError{Spec: text, Reason: "missing package name"}
	}
	if len(fields) > 3 {
		return Constraint{}, &ParseError{Spec: text, Reason: "too many fields (want name[ version[ build]])"}
	}

	name := strings.ToLower(fields[0])
	if !validName(name) {
		return Constraint{}, &ParseError{Spec: text, Reason: fmt.Sprintf("bad package name %q", fields[0])}
	}

	c := Constraint{Name: name, Channel: channel}
	if len(fields) >= 2 {
		vm, err := ParseVersionMatcher(fields[1])
		if err != nil {
			return Constraint{}, &ParseError{Spec: text, Reason: err.Error()}
		}
		c.Version = vm
	}
	if len(fields) == 3 {
		c.Build = fields[2]
	}
	return c, nil
}

// MustParse is Parse for test fixtures and constants; it panics on error.
func MustParse(text string) Constraint {
	c, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the canonical spec form. Two constraints are considered the
// same member of a set exactly when their String values are equal.
func (c Constraint) String() string {
	var b strings.Builder
	if c.Channel != "" {
		b.WriteString(c.Channel)
		b.WriteString("::")
	}
	b.WriteString(c.Name)
	if v := c.Version.String(); v != "" {
		b.WriteByte(' ')
		b.WriteString(v)
	}
	if c.Build != "" {
		b.WriteByte(' ')
		b.WriteString(c.Build)
	}
	return b.String()
}

// Matches reports whether a concrete (version, build) candidate satisfies
// this constraint. Channel filtering happens at the index layer, which knows
// each record's channel.
func (c Constraint) Matches(version, build string) bool {
	if !c.Version.Match(version) {
		return false
	}
	if c.Build != "" && c.Build != build {
		return false
	}
	return true
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == '+':
		default:
			return false
		}
	}
	return true
}
