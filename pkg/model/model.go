package model

import (
	"fmt"
	"strings"
)

// Priority orders lookup requests: low < medium < high.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// String returns the lowercase name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// ParsePriority parses a priority name. Unknown names are an error.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	}
	return PriorityLow, fmt.Errorf("unknown priority: %q", s)
}

// Request is a geocoding lookup request. Requests are immutable once
// constructed; use WithPriority to derive a reprioritized copy.
type Request struct {
	Lat      float64
	Lon      float64
	Priority Priority
	// Identity is an opaque caller-supplied identifier used for
	// deduplication. The dispatcher does not mint or validate it.
	Identity string
}

// WithPriority returns a copy of the request carrying the new priority.
func (r Request) WithPriority(p Priority) Request {
	r.Priority = p
	return r
}

// Place is a single annotation returned by the lookup service.
type Place struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	// DistanceM is the distance from the query point in meters.
	DistanceM float64 `json:"distance_m"`
}
