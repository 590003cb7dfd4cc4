// Package uid generates identifiers: numeric snowflake ids for rows and
// string ids for events, correlation and lock ownership.
package uid

// NumberID generates unique int64 identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates unique string identifiers.
type StringID interface {
	Generate() string
}
