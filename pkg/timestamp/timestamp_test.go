package timestamp

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reference = time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

func TestNormalizeNumericUnits(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want time.Time
	}{
		{name: "seconds", raw: 1700000000, want: reference},
		{name: "seconds int64", raw: int64(1700000000), want: reference},
		{name: "seconds float with fraction", raw: 1700000000.5, want: reference.Add(500 * time.Millisecond)},
		{name: "milliseconds", raw: int64(1700000000000), want: reference},
		{name: "microseconds", raw: int64(1700000000000000), want: reference},
		{name: "microseconds truncated to ms", raw: int64(1700000000000999), want: reference},
		{name: "nanoseconds", raw: int64(1700000000000000000), want: reference},
		{name: "digit string seconds", raw: "1700000000", want: reference},
		{name: "digit string millis", raw: "1700000000000", want: reference},
		{name: "signed digit string", raw: "+1700000000", want: reference},
		{name: "json number", raw: json.Number("1700000000000"), want: reference},
		{name: "negative seconds", raw: -5, want: time.UnixMilli(-5000).UTC()},
		{name: "zero is the epoch", raw: 0, want: time.UnixMilli(0).UTC()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestNormalizeSecondsBoundary(t *testing.T) {
	below, ok := Normalize(int64(999_999_999_999))
	require.True(t, ok)
	assert.Equal(t, int64(999_999_999_999_000), below.UnixMilli())

	at, ok := Normalize(int64(1_000_000_000_000))
	require.True(t, ok)
	assert.Equal(t, int64(1_000_000_000_000), at.UnixMilli())

	micro, ok := Normalize(int64(1_000_000_000_000_000))
	require.True(t, ok)
	assert.Equal(t, int64(1_000_000_000_000), micro.UnixMilli())
}

func TestNormalizeRejects(t *testing.T) {
	var nilTime *time.Time
	var nilValue *Value
	tests := []struct {
		name string
		raw  any
	}{
		{name: "nil", raw: nil},
		{name: "empty string", raw: ""},
		{name: "blank string", raw: "   "},
		{name: "garbage", raw: "not-a-date"},
		{name: "zero time", raw: time.Time{}},
		{name: "nil time pointer", raw: nilTime},
		{name: "nil value pointer", raw: nilValue},
		{name: "NaN", raw: math.NaN()},
		{name: "infinity", raw: math.Inf(1)},
		{name: "out of range", raw: 1e25},
		{name: "boolean", raw: true},
		{name: "object", raw: map[string]any{"a": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			assert.False(t, ok)
			assert.True(t, got.IsZero())
		})
	}
}

func TestNormalizeCalendarStrings(t *testing.T) {
	got, ok := Normalize("2023-11-14T22:13:20Z")
	require.True(t, ok)
	assert.True(t, reference.Equal(got))

	got, ok = Normalize("2023-11-14T23:13:20+01:00")
	require.True(t, ok)
	assert.True(t, reference.Equal(got))

	got, ok = NormalizeIn("2024-01-01", time.UTC)
	require.True(t, ok)
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Equal(got))

	berlin := time.FixedZone("CET", 3600)
	got, ok = NormalizeIn("2024-01-01", berlin)
	require.True(t, ok)
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, berlin).Equal(got))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []any{1700000000, "1700000000000", "2023-11-14T22:13:20Z", int64(1700000000000000)}
	for _, raw := range inputs {
		first, ok := Normalize(raw)
		require.True(t, ok)

		again, ok := Normalize(first)
		require.True(t, ok)
		assert.True(t, first.Equal(again))

		reencoded, ok := Normalize(first.UnixMilli())
		require.True(t, ok)
		assert.True(t, first.Equal(reencoded))
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "n/a", Format(time.Time{}, time.RFC3339, "n/a"))
	assert.Equal(t, "n/a", Format(reference, "", "n/a"))
	assert.Equal(t, "Nov 14, 2023 22:13", Format(reference, "Jan 02, 2006 15:04", "n/a"))

	assert.Equal(t, "Nov 14, 2023 22:13", FormatRaw(1700000000, time.UTC, "Jan 02, 2006 15:04", "n/a"))
	assert.Equal(t, "n/a", FormatRaw("nope", time.UTC, "Jan 02, 2006 15:04", "n/a"))
}

func TestValueDecodesAnyEncoding(t *testing.T) {
	var doc struct {
		Millis  Value `json:"millis"`
		Seconds Value `json:"seconds"`
		ISO     Value `json:"iso"`
		Bad     Value `json:"bad"`
		Null    Value `json:"null"`
		Missing Value `json:"missing"`
	}
	input := `{"millis": 1700000000000, "seconds": 1700000000, "iso": "2023-11-14T22:13:20Z", "bad": "soon", "null": null}`
	require.NoError(t, json.Unmarshal([]byte(input), &doc))

	for _, v := range []Value{doc.Millis, doc.Seconds, doc.ISO} {
		got, ok := v.Time()
		require.True(t, ok)
		assert.True(t, reference.Equal(got))
	}

	_, ok := doc.Bad.Time()
	assert.False(t, ok)
	assert.False(t, doc.Bad.IsZero())
	assert.Equal(t, "soon", doc.Bad.Raw())

	assert.True(t, doc.Null.IsZero())
	assert.True(t, doc.Missing.IsZero())
}

func TestValueDecodesFractionalAndExponentNumbers(t *testing.T) {
	tests := []struct {
		literal string
		want    time.Time
	}{
		{"1700000000.5", reference.Add(500 * time.Millisecond)},
		{"1.7e12", reference},
		{"1.7E9", reference},
		{"1700000000000.0", reference},
		{"1.7e15", reference},
		{"-1700000000.25", time.UnixMilli(-1700000000250).UTC()},
	}

	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tt.literal), &v))
			_, isNumber := v.Raw().(json.Number)
			require.True(t, isNumber)

			got, ok := v.Time()
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestValueMarshalKeepsWireForm(t *testing.T) {
	out, err := json.Marshal(struct {
		A Value `json:"a"`
		B Value `json:"b"`
		C Value `json:"c"`
	}{A: Millis(1700000000000), B: Of("2024-01-01"), C: Of(reference)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1700000000000, "b": "2024-01-01", "c": "2023-11-14T22:13:20Z"}`, string(out))
}
