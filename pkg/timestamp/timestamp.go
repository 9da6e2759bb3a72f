// Package timestamp turns the many encodings the task API has used for
// deadlines and creation times into a single instant.
package timestamp

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	secondsBelow = 1e12
	microsFrom   = 1e15
	nanosFrom    = 1e17

	// maxMillis is the largest distance from the epoch a JavaScript Date can
	// hold. The web client treated anything further out as an invalid date.
	maxMillis = 8.64e15
)

var digits = regexp.MustCompile(`^[+-]?\d+$`)

// Normalize converts raw into an instant, interpreting zone-less calendar
// strings in the local time zone. ok is false when raw is empty or cannot be
// understood.
func Normalize(raw any) (time.Time, bool) {
	return NormalizeIn(raw, time.Local)
}

// NormalizeIn is Normalize with an explicit zone for calendar strings that
// carry no offset. Numeric input is always epoch based.
func NormalizeIn(raw any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	switch v := raw.(type) {
	case nil:
		return time.Time{}, false
	case Value:
		return NormalizeIn(v.raw, loc)
	case *Value:
		if v == nil {
			return time.Time{}, false
		}
		return NormalizeIn(v.raw, loc)
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v, true
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case string:
		return fromString(v, loc)
	case json.Number:
		return fromNumber(v)
	case int:
		return fromInt(int64(v))
	case int32:
		return fromInt(int64(v))
	case int64:
		return fromInt(v)
	case uint32:
		return fromInt(int64(v))
	case uint64:
		if v > math.MaxInt64 {
			return fromFloat(float64(v))
		}
		return fromInt(int64(v))
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	}
	return time.Time{}, false
}

func fromString(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if digits.MatchString(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromInt(n)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, false
		}
		return fromFloat(f)
	}
	return parseCalendar(s, loc)
}

// fromNumber applies the magnitude rule to a JSON number. Fractions and
// exponents are numbers too and never reach the calendar parser.
func fromNumber(n json.Number) (time.Time, bool) {
	if i, err := n.Int64(); err == nil {
		return fromInt(i)
	}
	f, err := n.Float64()
	if err != nil {
		return time.Time{}, false
	}
	return fromFloat(f)
}

func parseCalendar(s string, loc *time.Location) (t time.Time, ok bool) {
	// dateparse panics on a handful of truncated inputs.
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()
	parsed, err := dateparse.ParseIn(s, loc)
	if err != nil || parsed.IsZero() {
		return time.Time{}, false
	}
	return clip(float64(parsed.UnixMilli()))
}

func fromInt(n int64) (time.Time, bool) {
	abs := n
	if abs < 0 {
		abs = -abs
	}
	if abs < 0 {
		return fromFloat(float64(n))
	}
	var ms int64
	switch {
	case abs < secondsBelow:
		ms = n * 1000
	case abs >= nanosFrom:
		ms = n / 1e6
	case abs >= microsFrom:
		ms = n / 1000
	default:
		ms = n
	}
	return clip(float64(ms))
}

func fromFloat(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	abs := math.Abs(f)
	var ms float64
	switch {
	case abs < secondsBelow:
		ms = f * 1000
	case abs >= nanosFrom:
		ms = f / 1e6
	case abs >= microsFrom:
		ms = f / 1000
	default:
		ms = f
	}
	return clip(ms)
}

// clip truncates to whole milliseconds and rejects out of range values.
func clip(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxMillis {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(math.Trunc(ms))).UTC(), true
}

// Format renders t with a Go layout, returning fallback for a zero instant
// or an empty layout.
func Format(t time.Time, layout, fallback string) string {
	if t.IsZero() || layout == "" {
		return fallback
	}
	return t.Format(layout)
}

// FormatRaw normalizes raw and formats it in loc.
func FormatRaw(raw any, loc *time.Location, layout, fallback string) string {
	t, ok := NormalizeIn(raw, loc)
	if !ok {
		return fallback
	}
	if loc != nil {
		t = t.In(loc)
	}
	return Format(t, layout, fallback)
}
