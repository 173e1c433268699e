package spec

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("bare name", func(t *testing.T) {
		c, err := Parse("numpy")
		require.NoError(t, err)
		assert.Equal(t, "numpy", c.Name)
		assert.Equal(t, MatchAny, c.Version.Kind())
		assert.Empty(t, c.Build)
		assert.Empty(t, c.Channel)
	})

	t.Run("name is lowercased", func(t *testing.T) {
		c, err := Parse("NumPy")
		require.NoError(t, err)
		assert.Equal(t, "numpy", c.Name)
	})

	t.Run("wildcard version", func(t *testing.T) {
		c, err := Parse("numpy 1.9*")
		require.NoError(t, err)
		assert.Equal(t, MatchWildcard, c.Version.Kind())
		assert.Equal(t, "numpy 1.9*", c.String())
	})

	t.Run("exact version and build", func(t *testing.T) {
		c, err := Parse("python 3.5.0 0")
		require.NoError(t, err)
		assert.Equal(t, MatchExact, c.Version.Kind())
		assert.Equal(t, "0", c.Build)
		assert.Equal(t, "python 3.5.0 0", c.String())
	})

	t.Run("channel qualified", func(t *testing.T) {
		c, err := Parse("conda-forge::statsmodels")
		require.NoError(t, err)
		assert.Equal(t, "conda-forge", c.Channel)
		assert.Equal(t, "statsmodels", c.Name)
		assert.Equal(t, "conda-forge::statsmodels", c.String())
	})

	t.Run("range version", func(t *testing.T) {
		c, err := Parse("numpy >=1.9,<2.0")
		require.NoError(t, err)
		assert.Equal(t, MatchRange, c.Version.Kind())
		assert.True(t, c.Version.Match("1.9.2"))
		assert.False(t, c.Version.Match("2.0"))
	})

	t.Run("surrounding whitespace", func(t *testing.T) {
		c, err := Parse("  numpy 1.9*  ")
		require.NoError(t, err)
		assert.Equal(t, "numpy 1.9*", c.String())
	})
}

func TestParseErrors(t *testing.T) {
	for _, text := range []string{
		"",
		"   ",
		"::numpy",
		"a::b::c",
		"numpy 1.9* py35_0 extra",
		"nu mpy/bad",
		"numpy 1.*9",
		"numpy >=",
	} {
		t.Run(text, func(t *testing.T) {
			_, err := Parse(text)
			require.Error(t, err)
			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr), "want *ParseError, got %T", err)
		})
	}
}

func TestVersionMatcher(t *testing.T) {
	t.Run("any matches everything", func(t *testing.T) {
		var m VersionMatcher
		assert.True(t, m.Match("1.0"))
		assert.True(t, m.Match("0b2"))
		assert.Empty(t, m.String())
	})

	t.Run("wildcard is a prefix match", func(t *testing.T) {
		m, err := ParseVersionMatcher("1.9*")
		require.NoError(t, err)
		assert.True(t, m.Match("1.9"))
		assert.True(t, m.Match("1.9.2"))
		assert.False(t, m.Match("1.10"))
	})

	t.Run("exact", func(t *testing.T) {
		m, err := ParseVersionMatcher("1.9.2")
		require.NoError(t, err)
		assert.True(t, m.Match("1.9.2"))
		assert.False(t, m.Match("1.9.20"))
	})

	t.Run("range conjunction", func(t *testing.T) {
		m, err := ParseVersionMatcher(">=1.9,<2.0")
		require.NoError(t, err)
		assert.True(t, m.Match("1.9"))
		assert.True(t, m.Match("1.15.4"))
		assert.False(t, m.Match("2.0"))
		assert.False(t, m.Match("1.8.99"))
	})

	t.Run("not equal", func(t *testing.T) {
		m, err := ParseVersionMatcher("!=1.9.2")
		require.NoError(t, err)
		assert.False(t, m.Match("1.9.2"))
		assert.True(t, m.Match("1.9.3"))
	})
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "1.0.0", 0},
		{"1.9", "1.10", -1},
		{"1.10", "1.9", 1},
		{"2.7.10", "2.7.9", 1},
		{"1.0b2", "1.0", -1},
		{"1.0a1", "1.0b1", -1},
		{"3.5.0", "3.5", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CompareVersions(tc.a, tc.b), "compare(%q, %q)", tc.a, tc.b)
	}
}

func TestConstraintSet(t *testing.T) {
	set, err := ParseSet("numpy 1.9*", "python 3.5*", "numpy 1.9*", "statsmodels")
	require.NoError(t, err)

	t.Run("dedupes preserving first position", func(t *testing.T) {
		want := []string{"numpy 1.9*", "python 3.5*", "statsmodels"}
		assert.Empty(t, cmp.Diff(want, set.Strings()))
	})

	t.Run("without keeps relative order", func(t *testing.T) {
		got := set.Without(1).Strings()
		assert.Empty(t, cmp.Diff([]string{"numpy 1.9*", "statsmodels"}, got))
		// the receiver is unchanged
		assert.Equal(t, 3, set.Len())
	})

	t.Run("exclude by canonical form", func(t *testing.T) {
		got := set.Exclude(map[string]struct{}{"python 3.5*": {}, "statsmodels": {}})
		assert.Empty(t, cmp.Diff([]string{"numpy 1.9*"}, got.Strings()))
	})

	t.Run("index and membership", func(t *testing.T) {
		assert.Equal(t, 2, set.IndexOf(MustParse("statsmodels")))
		assert.Equal(t, -1, set.IndexOf(MustParse("scipy")))
		assert.True(t, set.Contains(MustParse("numpy 1.9*")))
	})

	t.Run("key is order sensitive", func(t *testing.T) {
		a, err := ParseSet("numpy", "python")
		require.NoError(t, err)
		b, err := ParseSet("python", "numpy")
		require.NoError(t, err)
		assert.NotEqual(t, a.Key(), b.Key())
	})
}

func TestPlatform(t *testing.T) {
	t.Run("parse known", func(t *testing.T) {
		p, err := ParsePlatform("linux-64")
		require.NoError(t, err)
		assert.Equal(t, Linux64, p)
	})

	t.Run("parse unknown", func(t *testing.T) {
		_, err := ParsePlatform("plan9-64")
		assert.Error(t, err)
	})

	t.Run("subdirs include noarch", func(t *testing.T) {
		assert.Equal(t, []string{"linux-64", "noarch"}, Linux64.Subdirs())
	})

	t.Run("current platform is known", func(t *testing.T) {
		_, err := ParsePlatform(CurrentPlatform().String())
		assert.NoError(t, err)
	})
}
