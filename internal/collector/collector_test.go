package collector

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gameinsights-backend/internal/ratelimit"
	"gameinsights-backend/internal/sources"
	"gameinsights-backend/internal/telemetry"
	"gameinsights-backend/lib/testutil"
)

// stubSource stands in for an upstream provider. Fetch answers with
// result, or with fetch(key) when set.
type stubSource struct {
	name   string
	labels []string
	result sources.Result
	fetch  func(key string) sources.Result
	delay  time.Duration

	mu    sync.Mutex
	calls []string
}

func (s *stubSource) Name() string          { return s.name }
func (s *stubSource) ValidLabels() []string { return s.labels }

func (s *stubSource) Fetch(_ context.Context, key string, _ ...sources.FetchOption) sources.Result {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	s.calls = append(s.calls, key)
	s.mu.Unlock()
	if s.fetch != nil {
		return s.fetch(key)
	}
	return s.result
}

func (s *stubSource) fetched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func newTestCollector(id, name []SourceSpec) *Collector {
	return &Collector{
		tel:       telemetry.SlogAPI{},
		limits:    ratelimit.NewRegistry(),
		opts:      Options{UserPause: time.Millisecond}.withDefaults(),
		idSpecs:   id,
		nameSpecs: name,
	}
}

func TestNewDefaultWiring(t *testing.T) {
	defer testutil.Setup(t, "collector")()

	c, err := New(ratelimit.NewRegistry(), telemetry.SlogAPI{}, Options{})
	require.NoError(t, err)

	require.Len(t, c.idSpecs, 6)
	require.Len(t, c.nameSpecs, 1)

	names := []string{}
	for _, src := range c.Sources() {
		names = append(names, src.Name())
	}
	require.Equal(t, []string{
		"steamstore", "gamalytic", "steamspy", "steamcharts", "steamreview",
		"steamachievements", "howlongtobeat", "steamuser",
	}, names)

	require.Equal(t, 60, c.opts.Calls)
	require.Equal(t, time.Minute, c.opts.Period)
	require.Equal(t, "us", c.opts.Region)
	require.Equal(t, "english", c.opts.Language)
}

func TestDeclaredFields(t *testing.T) {
	c := newTestCollector(
		[]SourceSpec{
			{Source: &stubSource{name: "a"}, Fields: []string{"steam_appid", "name", "x"}},
			{Source: &stubSource{name: "b"}, Fields: []string{"y"}},
		},
		[]SourceSpec{
			{Source: &stubSource{name: "c"}, Fields: []string{"z"}},
		},
	)

	fields, err := c.DeclaredFields("c", "a")
	require.NoError(t, err)
	require.Equal(t, []string{"steam_appid", "name", "x", "z"}, fields)

	fields, err = c.DeclaredFields()
	require.NoError(t, err)
	require.Equal(t, []string{"steam_appid"}, fields)

	_, err = c.DeclaredFields("nope")
	require.ErrorContains(t, err, `unknown source "nope"`)
	require.ErrorContains(t, err, "a, b, c")
}

func TestValidateSpecs(t *testing.T) {
	a := &stubSource{name: "a"}
	b := &stubSource{name: "b"}

	require.NoError(t, validateSpecs(
		[]SourceSpec{{Source: a, Fields: []string{"x", "y"}}},
		[]SourceSpec{{Source: b, Fields: []string{"z"}}},
	))

	err := validateSpecs(
		[]SourceSpec{{Source: a, Fields: []string{"x", "y"}}},
		[]SourceSpec{{Source: b, Fields: []string{"y"}}},
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), `field "y" declared by both a and b`)

	err = validateSpecs([]SourceSpec{{Source: a, Fields: []string{"x", "x"}}})
	require.Error(t, err)
}
