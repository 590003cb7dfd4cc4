package messaging

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Driver names accepted by NewFromDriver.
const (
	DriverNone         = "none"
	DriverNSQ          = "nsq"
	DriverNATS         = "nats"
	DriverKafka        = "kafka"
	DriverGooglePubSub = "google-pubsub"
)

// ErrUnknownDriver indicates an unsupported messaging driver.
var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions carries the settings of every backend; only the selected
// driver's section is read.
type FactoryOptions struct {
	NSQ    NSQConfig
	Kafka  KafkaConfig
	NATS   NATSConfig
	PubSub PubSubConfig
}

type constructor func(ctx context.Context, opts FactoryOptions) (Publisher, error)

var drivers = map[string]constructor{
	DriverNone: func(context.Context, FactoryOptions) (Publisher, error) { return NewNop(), nil },
	DriverNSQ:  func(_ context.Context, o FactoryOptions) (Publisher, error) { return NewNSQ(o.NSQ) },
	DriverNATS: func(_ context.Context, o FactoryOptions) (Publisher, error) { return NewNATS(o.NATS) },
	DriverKafka: func(_ context.Context, o FactoryOptions) (Publisher, error) {
		return NewKafka(o.Kafka)
	},
	DriverGooglePubSub: func(ctx context.Context, o FactoryOptions) (Publisher, error) {
		return NewPubSub(ctx, o.PubSub)
	},
}

// Drivers lists the accepted driver names in sorted order.
func Drivers() []string {
	names := lo.Keys(drivers)
	sort.Strings(names)
	return names
}

// NewFromDriver builds the Publisher registered under driver. An empty
// driver selects DriverNone.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Publisher, error) {
	name := lo.CoalesceOrEmpty(strings.ToLower(strings.TrimSpace(driver)), DriverNone)

	build, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownDriver, driver, strings.Join(Drivers(), ", "))
	}
	return build(ctx, opts)
}
