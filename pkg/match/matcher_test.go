package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_EmptyMatchesEverything(t *testing.T) {
	m, err := New(Config{})
	require.NoError(t, err)

	assert.True(t, m.Empty())
	assert.True(t, m.Match("anything"))
	assert.True(t, m.Match("deeply/nested/id"))
}

func TestMatcher_Includes(t *testing.T) {
	m, err := New(Config{Includes: []string{"events/**", "promo-*"}})
	require.NoError(t, err)

	tests := []struct {
		id   string
		want bool
	}{
		{id: "events/gala/001", want: true},
		{id: "promo-spring", want: true},
		{id: "archive/old", want: false},
		{id: "promotions/spring", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.id))
		})
	}
}

func TestMatcher_ExcludesWin(t *testing.T) {
	m, err := New(Config{
		Includes: []string{"events/**"},
		Excludes: []string{"events/private/**"},
	})
	require.NoError(t, err)

	assert.True(t, m.Match("events/gala/001"))
	assert.False(t, m.Match("events/private/002"))
}

func TestMatcher_ExcludeOnly(t *testing.T) {
	m, err := New(Config{Excludes: []string{"tmp/**"}})
	require.NoError(t, err)

	assert.True(t, m.Match("events/a"))
	assert.False(t, m.Match("tmp/scratch"))
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New(Config{Includes: []string{"events/[unclosed"}})
	require.Error(t, err)

	var patErr *PatternError
	require.ErrorAs(t, err, &patErr)
	assert.Equal(t, "events/[unclosed", patErr.Pattern)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}
