// Package hash provides one-way hashing behind the Hash interface.
//
// Three implementations are available: keyed HMAC-SHA256 (deterministic,
// suited to high-entropy tokens such as backup codes), Argon2id (salted and
// memory-hard), and bcrypt (used to check account passwords owned by another
// service). Every Verify compares in constant time.
package hash
