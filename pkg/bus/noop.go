package bus

import (
	"context"
	"fmt"
)

// NoopBus is the disabled bus. Publishing and consuming both fail, which is
// what lets the worker refuse broker-strategy startup without a broker.
type NoopBus struct{}

// NewNoop returns the disabled bus.
func NewNoop() *NoopBus {
	return &NoopBus{}
}

func (*NoopBus) IsEnabled() bool {
	return false
}

func (*NoopBus) Publish(context.Context, Message) error {
	return fmt.Errorf("event bus is disabled")
}

func (*NoopBus) Consume(context.Context, HandlerFunc) error {
	return fmt.Errorf("event bus is disabled")
}

func (*NoopBus) Close() error {
	return nil
}
