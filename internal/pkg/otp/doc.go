// Package otp implements time-based one-time passwords (RFC 6238) and the
// shared-secret codec around them.
//
// The codec produces provisioning material for authenticator apps: a fresh
// random secret, an otpauth:// URI, and grouped base32 text for manual entry.
// The TOTP engine derives and verifies codes for a secret at a point in time
// with a symmetric step window. Everything here is pure and safe for
// concurrent use; persistence and replay tracking belong to callers.
package otp
