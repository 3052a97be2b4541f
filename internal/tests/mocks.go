package tests

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"smsride/internal/domain"
	"smsride/internal/repository/memory"
	"smsride/internal/service"
)

const serviceNumber = "1234"

// ──────────────────────────────────────────────
// MOCK NOTIFICATION SINK
// ──────────────────────────────────────────────

// SentMessage is one message handed to the mock sink.
type SentMessage struct {
	From     string
	To       string
	Text     string
	Location *domain.Location
}

// MockSink is a mock implementation of service.NotificationSink.
type MockSink struct {
	mu       sync.Mutex
	messages []SentMessage

	// Error injection
	SendError error

	// HonorContext makes sends fail once their context is done.
	HonorContext bool
}

// NewMockSink creates a new mock sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

func (m *MockSink) SendText(ctx context.Context, from, to, text string) error {
	return m.record(ctx, SentMessage{From: from, To: to, Text: text})
}

func (m *MockSink) SendLocation(ctx context.Context, from, to, text string, location domain.Location) error {
	return m.record(ctx, SentMessage{From: from, To: to, Text: text, Location: &location})
}

func (m *MockSink) record(ctx context.Context, msg SentMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendError != nil {
		return m.SendError
	}
	if m.HonorContext && ctx.Err() != nil {
		return ctx.Err()
	}
	m.messages = append(m.messages, msg)
	return nil
}

// MessagesTo returns the messages sent to a number, in send order.
func (m *MockSink) MessagesTo(to string) []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []SentMessage
	for _, msg := range m.messages {
		if msg.To == to {
			result = append(result, msg)
		}
	}
	return result
}

// TextsTo returns the texts of messages sent to a number.
func (m *MockSink) TextsTo(to string) []string {
	var texts []string
	for _, msg := range m.MessagesTo(to) {
		texts = append(texts, msg.Text)
	}
	return texts
}

// HasTextTo reports whether any message to a number contains substr.
func (m *MockSink) HasTextTo(to, substr string) bool {
	for _, text := range m.TextsTo(to) {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

// Count returns the number of messages sent.
func (m *MockSink) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// Reset forgets the messages sent so far.
func (m *MockSink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

// ──────────────────────────────────────────────
// MOCK LOCATION PROVIDER
// ──────────────────────────────────────────────

// MockLocator is a mock implementation of service.LocationProvider.
type MockLocator struct {
	mu        sync.RWMutex
	locations map[string]domain.Location
	blocked   map[string]bool
	panics    map[string]bool

	// Counters for verification
	RequestCallCount int32
}

// NewMockLocator creates a new mock locator.
func NewMockLocator() *MockLocator {
	return &MockLocator{
		locations: make(map[string]domain.Location),
		blocked:   make(map[string]bool),
		panics:    make(map[string]bool),
	}
}

// SetLocation sets the position returned for a number.
func (m *MockLocator) SetLocation(number string, lat, lng float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[number] = domain.Location{Latitude: lat, Longitude: lng}
}

// Block makes lookups of number wait until their context is done.
func (m *MockLocator) Block(number string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked[number] = true
}

// Panic makes lookups of number panic.
func (m *MockLocator) Panic(number string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics[number] = true
}

func (m *MockLocator) RequestLocation(ctx context.Context, number string) (domain.Location, error) {
	atomic.AddInt32(&m.RequestCallCount, 1)

	m.mu.RLock()
	loc, ok := m.locations[number]
	blocked := m.blocked[number]
	panics := m.panics[number]
	m.mu.RUnlock()

	if panics {
		panic("location network exploded")
	}
	if blocked {
		<-ctx.Done()
		return domain.Location{}, ctx.Err()
	}
	if !ok {
		return domain.Location{}, service.ErrLocationUnavailable
	}
	return loc, nil
}

// ──────────────────────────────────────────────
// TEST FIXTURE
// ──────────────────────────────────────────────

// Fixture wires a dispatch service over in-memory stores and mocks.
type Fixture struct {
	Directory *memory.Directory
	Rides     *memory.RideLedger
	Sink      *MockSink
	Locator   *MockLocator
	Dispatch  *service.DispatchService
}

// NewFixture creates a fixture whose first ride number is 1.
func NewFixture() *Fixture {
	return NewFixtureWithTimeout(time.Second)
}

// NewFixtureWithTimeout creates a fixture with the given location timeout.
func NewFixtureWithTimeout(timeout time.Duration) *Fixture {
	f := &Fixture{
		Directory: memory.NewDirectory(),
		Rides:     memory.NewRideLedger(1),
		Sink:      NewMockSink(),
		Locator:   NewMockLocator(),
	}
	f.Dispatch = service.NewDispatchService(
		f.Directory,
		f.Rides,
		service.NewNotificationService(serviceNumber, f.Sink),
		f.Locator,
		service.DispatchOptions{LocationTimeout: timeout, BroadcastConcurrency: 4},
	)
	return f
}

// Send handles text from sender and waits for every follow-up to finish.
func (f *Fixture) Send(sender, text string) service.Outcome {
	out := f.Dispatch.HandleMessage(context.Background(), sender, text)
	f.Dispatch.Wait()
	return out
}

// Ride returns the stored ride, failing loudly if it is missing.
func (f *Fixture) Ride(number int64) *domain.Ride {
	ride, err := f.Rides.GetByNumber(context.Background(), number)
	if err != nil {
		panic(errors.New("ride not found in fixture"))
	}
	return ride
}
