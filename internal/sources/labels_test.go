package sources

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gameinsights-backend/internal/telemetry"
)

func TestLabelsProject(t *testing.T) {
	vocab := NewLabels("alpha", "beta", "gamma")

	cases := []struct {
		name     string
		selected []string
		expected []string
	}{
		{
			name:     "empty selection means the whole vocabulary",
			selected: nil,
			expected: []string{"alpha", "beta", "gamma"},
		},
		{
			name:     "subset keeps selection order",
			selected: []string{"gamma", "alpha"},
			expected: []string{"gamma", "alpha"},
		},
		{
			name:     "unknown labels are dropped",
			selected: []string{"beta", "delta"},
			expected: []string{"beta"},
		},
		{
			name:     "only unknown labels leaves nothing",
			selected: []string{"delta"},
			expected: nil,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := vocab.Project(telemetry.SlogAPI{}, c.selected)
			require.Equal(t, c.expected, got)
		})
	}
}

func TestLabelsAllReturnsACopy(t *testing.T) {
	vocab := NewLabels("alpha", "beta")

	all := vocab.All()
	all[0] = "mutated"

	require.Equal(t, []string{"alpha", "beta"}, vocab.All())
	require.True(t, vocab.Contains("alpha"))
	require.False(t, vocab.Contains("mutated"))
}

func TestProjectDataFillsMissingLabelsWithNil(t *testing.T) {
	full := map[string]any{"alpha": 1, "beta": "two"}

	got := projectData(full, []string{"beta", "gamma"})

	require.Equal(t, map[string]any{"beta": "two", "gamma": nil}, got)
}
