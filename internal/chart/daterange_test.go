package chart

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeValidator_AcceptedForms(t *testing.T) {
	v := NewRangeValidator(30, time.UTC)
	want := time.Date(2025, 8, 25, 22, 0, 0, 0, time.UTC)

	for _, start := range []string{
		"2025-08-25 10:00 PM",
		"2025-08-25 10:00 pm",
		"2025-08-25 22:00",
		"2025-08-25 10:00PM",
		"  2025-08-25 10:00 PM  ",
	} {
		rng, err := v.Validate(start, "2025-08-26 10:00 PM")
		require.NoError(t, err, start)
		assert.True(t, rng.Start.Equal(want), start)
		assert.True(t, rng.Start.Before(rng.End))
	}
}

func TestRangeValidator_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	v := NewRangeValidator(30, loc)
	rng, err := v.Validate("2025-08-25 10:00 AM", "2025-08-25 11:00 AM")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 8, 25, 2, 0, 0, 0, time.UTC), rng.Start.UTC())
}

func TestRangeValidator_Rejects(t *testing.T) {
	v := NewRangeValidator(30, nil)

	t.Run("unparseable", func(t *testing.T) {
		_, err := v.Validate("25/08/2025", "2025-08-26 10:00 AM")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidDateRange))
		ce, _ := AsError(err)
		assert.Contains(t, ce.Message, "Unable to parse datetime")
		assert.Contains(t, ce.Details, "accepted_forms")
	})

	t.Run("start equals end", func(t *testing.T) {
		_, err := v.Validate("2025-08-25 10:00 AM", "2025-08-25 10:00")
		require.Error(t, err)
		ce, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindInvalidDateRange, ce.Kind)
		assert.Equal(t, "Start date must be before end date", ce.Message)
	})

	t.Run("start after end", func(t *testing.T) {
		_, err := v.Validate("2025-08-26 10:00 AM", "2025-08-25 10:00 AM")
		assert.True(t, errors.Is(err, ErrInvalidDateRange))
	})

	t.Run("span too large", func(t *testing.T) {
		_, err := v.Validate("2025-07-01 10:00 AM", "2025-08-26 10:00 AM")
		require.Error(t, err)
		ce, _ := AsError(err)
		assert.Equal(t, "Date range too large. Maximum allowed: 30 days", ce.Message)
		assert.Equal(t, 56, ce.Details["requested_days"])
		assert.Equal(t, 30, ce.Details["max_days_lookback"])
	})
}

func TestRangeValidator_WholeDayBoundary(t *testing.T) {
	v := NewRangeValidator(30, time.UTC)

	// 30 天 23 小时仍按 30 个整天计算。
	_, err := v.Validate("2025-08-01 00:00", "2025-08-31 23:00")
	assert.NoError(t, err)

	_, err = v.Validate("2025-08-01 00:00", "2025-09-01 00:00")
	assert.True(t, errors.Is(err, ErrInvalidDateRange))
}
