package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for broad classification. The typed errors below match
// them through errors.Is.
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrInsufficientData = errors.New("insufficient data")
	ErrGeometry         = errors.New("geometry error")
	ErrDataValidation   = errors.New("data validation error")
)

// ConfigurationError reports a parameter that makes the whole run impossible.
type ConfigurationError struct {
	Param  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
	}
	return fmt.Sprintf("invalid %s (%v): %s", e.Param, e.Value, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// InsufficientDataError reports a day that cannot be interpolated.
type InsufficientDataError struct {
	Date   time.Time
	Count  int
	Reason string
}

func (e *InsufficientDataError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("insufficient data (%d observations): %s", e.Count, e.Reason)
	}
	return fmt.Sprintf("insufficient data for %s (%d observations): %s",
		e.Date.Format(DateLayout), e.Count, e.Reason)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// GeometryError reports degenerate output from assembly or post-processing.
type GeometryError struct {
	Date   time.Time
	Op     string
	Reason string
}

func (e *GeometryError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s for %s: %s", e.Op, e.Date.Format(DateLayout), e.Reason)
}

func (e *GeometryError) Is(target error) bool { return target == ErrGeometry }

// DataValidationError reports malformed ingestion input.
type DataValidationError struct {
	Path   string
	Line   int
	Reason string
}

func (e *DataValidationError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Path, e.Reason)
	default:
		return e.Reason
	}
}

func (e *DataValidationError) Is(target error) bool { return target == ErrDataValidation }
