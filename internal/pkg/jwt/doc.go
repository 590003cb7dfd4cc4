// Package jwt verifies the bearer tokens issued by the account service and
// carries the authenticated claims through a request context. Generate
// exists so tooling and tests can mint tokens with the same key.
package jwt
