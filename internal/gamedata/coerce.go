package gamedata

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Coercion is total: a value that cannot be read as the target type
// becomes that type's empty marker (nil, "", NaN) instead of an error.
// Source rows mix native Go types with JSON-decoded ones, so every
// helper accepts both.

const releaseDateLayout = "Jan 2, 2006"

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		if s == math.Trunc(s) && !math.IsInf(s, 0) && !math.IsNaN(s) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return stringify(float64(s))
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return fmt.Sprint(v)
}

func coerceInt(v any) *int64 {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
		i := int64(n)
		return &i
	case float32:
		return coerceInt(float64(n))
	case int:
		i := int64(n)
		return &i
	case int64:
		return &n
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil
		}
		return &i
	}
	return nil
}

func coerceFloat(v any) Float {
	switch n := v.(type) {
	case float64:
		return Float(n)
	case float32:
		return Float(n)
	case int:
		return Float(n)
	case int64:
		return Float(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return NaN()
		}
		return Float(f)
	}
	return NaN()
}

func coerceStringPtr(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

// coerceStringList wraps a scalar into a one-element list and renders
// every element as a string.
func coerceStringList(v any) []string {
	switch l := v.(type) {
	case nil:
		return []string{}
	case []string:
		return slices.Clone(l)
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			out = append(out, stringify(item))
		}
		return out
	}
	return []string{stringify(v)}
}

// coerceTime reads a release date from any of the shapes sources emit:
// an "Jan 2, 2006" string, a unix timestamp in seconds, or a time value
// passed through unchanged. Anything else is nil.
func coerceTime(v any) *time.Time {
	switch d := v.(type) {
	case time.Time:
		return &d
	case *time.Time:
		return d
	case string:
		t, err := time.Parse(releaseDateLayout, d)
		if err != nil {
			return nil
		}
		return &t
	case float64:
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return nil
		}
		t := time.Unix(int64(d), 0)
		return &t
	case int:
		t := time.Unix(int64(d), 0)
		return &t
	case int64:
		t := time.Unix(d, 0)
		return &t
	}
	return nil
}

// asMapList flattens the list-of-objects shapes: a typed slice, a
// JSON-decoded []any, or a single object wrapped into a list. Entries
// that are not objects are dropped.
func asMapList(v any) []map[string]any {
	switch l := v.(type) {
	case []map[string]any:
		return l
	case []any:
		out := make([]map[string]any, 0, len(l))
		for _, item := range l {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		return []map[string]any{l}
	}
	return nil
}

func coerceMonthlyPlayers(v any) []MonthlyPlayers {
	rows := asMapList(v)
	out := make([]MonthlyPlayers, 0, len(rows))
	for _, row := range rows {
		entry := MonthlyPlayers{
			Month:          stringify(row["month"]),
			AveragePlayers: coerceFloat(row["average_players"]),
			PercentageGain: coerceFloat(row["percentage_gain"]),
			PeakPlayers:    coerceFloat(row["peak_players"]),
		}
		if gain := coerceFloat(row["gain"]); !gain.IsNaN() {
			g := float64(gain)
			entry.Gain = &g
		}
		out = append(out, entry)
	}
	return out
}

func coerceAchievements(v any) []Achievement {
	rows := asMapList(v)
	out := make([]Achievement, 0, len(rows))
	for _, row := range rows {
		entry := Achievement{
			Name:    stringify(row["name"]),
			Percent: coerceFloat(row["percent"]),
			Hidden:  coerceInt(row["hidden"]),
		}
		if name, ok := row["display_name"]; ok && name != nil {
			s := stringify(name)
			entry.DisplayName = &s
		}
		if desc, ok := row["description"]; ok && desc != nil {
			s := stringify(desc)
			entry.Description = &s
		}
		out = append(out, entry)
	}
	return out
}

func coerceContentRating(v any) []ContentRating {
	rows := asMapList(v)
	out := make([]ContentRating, 0, len(rows))
	for _, row := range rows {
		out = append(out, ContentRating{
			RatingType: stringify(row["rating_type"]),
			Rating:     stringify(row["rating"]),
		})
	}
	return out
}
