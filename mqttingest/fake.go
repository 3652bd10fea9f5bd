package mqttingest

import "sync"

// FakeSubscriber records subscriptions and lets tests deliver messages.
type FakeSubscriber struct {
	mu       sync.Mutex
	handlers map[string]MessageHandler

	// SubscribeError, if set, will be returned by Subscribe.
	SubscribeError error

	// Closed tracks if Close was called.
	Closed bool

	disconnected bool
}

func NewFakeSubscriber() *FakeSubscriber {
	return &FakeSubscriber{handlers: map[string]MessageHandler{}}
}

// Subscribe records handler for topic.
func (f *FakeSubscriber) Subscribe(topic string, handler MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.handlers[topic] = handler
	return nil
}

// Subscribed reports whether topic has a handler.
func (f *FakeSubscriber) Subscribed(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[topic]
	return ok
}

// Deliver hands payload to the handler registered for filter.
func (f *FakeSubscriber) Deliver(filter, topic string, payload []byte) bool {
	f.mu.Lock()
	handler, ok := f.handlers[filter]
	f.mu.Unlock()
	if !ok {
		return false
	}
	handler(topic, payload)
	return true
}

// SetConnected flips the state reported by IsConnected.
func (f *FakeSubscriber) SetConnected(up bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = !up
}

func (f *FakeSubscriber) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.disconnected && !f.Closed
}

func (f *FakeSubscriber) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
