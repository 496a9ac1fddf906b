// Package sources fetches per-game metadata from the upstream providers
// and repacks every payload into a flat, provider-specific label
// vocabulary.
//
// A provider never returns a Go error from Fetch. Transport failures,
// upstream error payloads and missing games all come back as a Result
// with OK false and a human-readable reason, so callers can merge
// whatever succeeded and move on.
package sources

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"

	"gameinsights-backend/internal/telemetry"
)

// Source is one upstream provider of game metadata. The key is a Steam
// appid for most providers, a game name for HowLongToBeat and a 64-bit
// steamid for SteamUser.
type Source interface {
	// Name identifies the provider. It doubles as the rate-limit owner
	// and as the provider key in aggregated configs.
	Name() string

	// ValidLabels is the provider's vocabulary in emission order.
	ValidLabels() []string

	Fetch(ctx context.Context, key string, opts ...FetchOption) Result
}

// Result is the outcome of one fetch. Data is keyed by the provider's
// labels when OK, Err carries the reason when not.
type Result struct {
	OK   bool
	Data map[string]any
	Err  string
}

func Success(data map[string]any) Result {
	return Result{OK: true, Data: data}
}

func Failure(reason string) Result {
	return Result{Err: reason}
}

// failure reports a fetch failure under the given id and renders it as
// a Result.
func failure(tel telemetry.API, id string, format string, args ...any) Result {
	reason := fmt.Sprintf(format, args...)
	tel.ReportBroken(id, reason)
	return Failure(reason)
}

type fetchConfig struct {
	labels    []string
	freeGames bool
}

func newFetchConfig(opts []FetchOption) fetchConfig {
	cfg := fetchConfig{freeGames: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// FetchOption adjusts a single Fetch call.
type FetchOption func(*fetchConfig)

// WithLabels restricts the fetched data to the given labels. Labels
// outside the provider's vocabulary are dropped with a warning, and an
// empty selection selects the whole vocabulary.
func WithLabels(labels ...string) FetchOption {
	return func(cfg *fetchConfig) { cfg.labels = labels }
}

// WithFreeGames controls whether played free games count toward a
// user's owned games. Only SteamUser reads it.
func WithFreeGames(include bool) FetchOption {
	return func(cfg *fetchConfig) { cfg.freeGames = include }
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// asFloat64 covers the numeric shapes encoding/json can hand back.
func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asInt64(v any) (int64, bool) {
	n, ok := asFloat64(v)
	if !ok {
		return 0, false
	}
	return int64(n), true
}

// stringifyId renders a scalar id decimally. encoding/json decodes
// numeric ids as float64, which fmt prints in scientific notation once
// they reach seven digits.
func stringifyId(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		if s == math.Trunc(s) && !math.IsInf(s, 0) && !math.IsNaN(s) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// divideBy100 rescales Steam's integer cent prices, keeping nil as nil.
func divideBy100(v any) any {
	n, ok := asFloat64(v)
	if !ok {
		return nil
	}
	return n / 100
}

// sortedKeys gives map iteration a stable order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
