package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"equal", "1.0.0", "1.0.0", 0},
		{"patch greater", "1.0.1", "1.0.0", 1},
		{"minor less", "1.1.0", "1.2.0", -1},
		{"major wins", "2.0.0", "1.9.9", 1},
		{"v prefix ignored", "v1.2.3", "1.2.3", 0},
		{"prerelease below release", "1.0.0-beta", "1.0.0", -1},
		{"non-semver falls back to lexical", "apple", "banana", -1},
		{"non-semver equal", "unknown", "unknown", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestParseConstraint(t *testing.T) {
	t.Parallel()

	c, err := ParseConstraint(">=1.2.0")
	require.NoError(t, err)
	assert.Equal(t, ">=", c.Op)
	assert.Equal(t, "1.2.0", c.Version)

	c, err = ParseConstraint("== 1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "==", c.Op)
	assert.Equal(t, "1.0.0", c.Version)

	c, err = ParseConstraint("1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "", c.Op)
	assert.Equal(t, "1.0.0", c.Version)

	_, err = ParseConstraint("")
	require.Error(t, err)

	_, err = ParseConstraint(">=")
	require.Error(t, err)
}

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		version    string
		constraint string
		want       bool
	}{
		{"empty constraint always matches", "1.0.0", "", true},
		{"exact match", "1.0.0", "==1.0.0", true},
		{"exact mismatch", "1.0.1", "==1.0.0", false},
		{"bare version is exact", "1.0.0", "1.0.0", true},
		{"not equal", "1.0.1", "!=1.0.0", true},
		{"gte satisfied", "1.2.3", ">=1.2.0", true},
		{"gte boundary", "1.2.0", ">=1.2.0", true},
		{"gte violated", "1.1.9", ">=1.2.0", false},
		{"lt satisfied", "0.9.0", "<1.0.0", true},
		{"tilde same minor", "1.2.5", "~1.2.0", true},
		{"tilde next minor rejected", "1.3.0", "~1.2.0", false},
		{"caret same major", "1.9.0", "^1.2.0", true},
		{"caret next major rejected", "2.0.0", "^1.2.0", false},
		{"unparseable falls back to equality", "weird", "weird", true},
		{"range satisfied", "1.5.0", ">=1.0.0,<2.0.0", true},
		{"range upper bound violated", "2.0.0", ">=1.0.0,<2.0.0", false},
		{"range lower bound violated", "0.9.0", ">=1.0.0, <2.0.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Match(tt.version, tt.constraint))
		})
	}
}

func TestIsValid(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValid("1.0.0"))
	assert.True(t, IsValid("v2.1.0"))
	assert.False(t, IsValid("unknown"))
	assert.False(t, IsValid(""))
}

func TestExact(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "==1.2.3", Exact("1.2.3"))
}
