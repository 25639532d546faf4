package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	snow := Observation{SnowPresent: true}
	bare := Observation{SnowPresent: false}

	tests := []struct {
		name string
		obs  []Observation
		want Status
	}{
		{"empty", nil, StatusInsufficientData},
		{"all snow", []Observation{snow, snow, snow}, StatusCompleteSnow},
		{"no snow", []Observation{bare, bare, bare}, StatusNoSnow},
		{"mixed", []Observation{snow, bare, bare}, StatusOK},
		{"mixed below minimum", []Observation{snow, bare}, StatusInsufficientData},
		{"two all snow", []Observation{snow, snow}, StatusCompleteSnow},
		{"single no snow", []Observation{bare}, StatusNoSnow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.obs))
		})
	}
}

func TestSnowlineResult_HasGeometry(t *testing.T) {
	assert.False(t, SnowlineResult{}.HasGeometry())
	assert.False(t, SnowlineResult{Geometry: orb.MultiLineString{}}.HasGeometry())
	assert.True(t, SnowlineResult{Geometry: orb.MultiLineString{{{0, 0}, {1, 1}}}}.HasGeometry())
}

func TestResults_CountByStatus(t *testing.T) {
	rs := Results{
		{Date: day("2023-01-15"), Status: StatusOK},
		{Date: day("2023-01-16"), Status: StatusOK},
		{Date: day("2023-01-17"), Status: StatusNoSnow},
	}
	assert.Equal(t, map[Status]int{StatusOK: 2, StatusNoSnow: 1}, rs.CountByStatus())
}

func TestErrors_Is(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
		msg      string
	}{
		{
			&ConfigurationError{Param: "processing.contour_level", Value: 1.5, Reason: "must be in (0, 1)"},
			ErrConfiguration,
			"invalid processing.contour_level (1.5): must be in (0, 1)",
		},
		{
			&InsufficientDataError{Date: day("2023-01-15"), Count: 2, Reason: "fewer than 3 sites"},
			ErrInsufficientData,
			"insufficient data for 2023-01-15 (2 observations): fewer than 3 sites",
		},
		{
			&GeometryError{Op: "validate", Reason: "empty geometry"},
			ErrGeometry,
			"validate: empty geometry",
		},
		{
			&DataValidationError{Path: "obs.csv", Line: 4, Reason: "latitude 95 out of range"},
			ErrDataValidation,
			"obs.csv:4: latitude 95 out of range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			wrapped := fmt.Errorf("run: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.EqualError(t, tt.err, tt.msg)
			for _, other := range []error{ErrConfiguration, ErrInsufficientData, ErrGeometry, ErrDataValidation} {
				if other != tt.sentinel {
					assert.False(t, errors.Is(tt.err, other))
				}
			}
		})
	}
}
