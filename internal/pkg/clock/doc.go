// Package clock lets business code read time through an interface so tests
// can pin it. TOTP verification and the pending-setup reaper both depend on
// it.
package clock
