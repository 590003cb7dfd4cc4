// Package messaging provides a broker-agnostic API for publishing messages.
//
// Business code depends on Publisher only, so the broker (Kafka, NATS, NSQ or
// Google Pub/Sub) is picked from configuration at startup.
package messaging
