// Package config reads service settings by dotted key, from a YAML file
// overlaid with APP_-prefixed environment variables.
package config

import (
	"io"
	"time"
)

// Config retrieves typed configuration values. Missing keys and values that
// fail conversion return the zero value.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetInt64(key string) int64
	GetUint(key string) uint
	GetFloat64(key string) float64

	// GetSecond reads an integer number of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads an integer number of minutes.
	GetMinute(key string) time.Duration

	// GetArray reads a YAML list, or a comma-separated string when the
	// value comes from the environment.
	GetArray(key string) []string
}
