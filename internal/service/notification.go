package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"smsride/internal/domain"
)

// NotificationSink delivers outbound messages to handsets. Delivery is fire
// and forget; an error only means the message could not be handed over.
type NotificationSink interface {
	SendText(ctx context.Context, from, to, text string) error
	SendLocation(ctx context.Context, from, to, text string, location domain.Location) error
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationText     NotificationType = "TEXT"
	NotificationLocation NotificationType = "LOCATION"
)

// Notification represents a message to be sent.
type Notification struct {
	ID        string
	Type      NotificationType
	To        string
	Message   string
	Location  domain.Location // LOCATION only, already clamped
	CreatedAt time.Time
}

// NotificationService sends notifications from the service number.
type NotificationService struct {
	serviceNumber string
	sink          NotificationSink
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(serviceNumber string, sink NotificationSink) *NotificationService {
	return &NotificationService{
		serviceNumber: serviceNumber,
		sink:          sink,
	}
}

// ServiceNumber returns the sender address of outbound messages.
func (s *NotificationService) ServiceNumber() string {
	return s.serviceNumber
}

// SendText sends a plain text message.
func (s *NotificationService) SendText(ctx context.Context, to, text string) {
	s.send(ctx, Notification{
		ID:        uuid.New().String(),
		Type:      NotificationText,
		To:        to,
		Message:   text,
		CreatedAt: time.Now(),
	})
}

// SendLocation sends a message annotated with location, clamped to [0, 1].
func (s *NotificationService) SendLocation(ctx context.Context, to, text string, location domain.Location) {
	s.send(ctx, Notification{
		ID:        uuid.New().String(),
		Type:      NotificationLocation,
		To:        to,
		Message:   text,
		Location:  location.Clamped(),
		CreatedAt: time.Now(),
	})
}

// SendLocated sends a location message when the lookup succeeded and falls
// back to a plain text that says the location is unknown otherwise.
func (s *NotificationService) SendLocated(ctx context.Context, to, text string, location domain.Location, found bool) {
	if !found {
		s.SendText(ctx, to, text+msgLocationUnknownSuffix)
		return
	}
	s.SendLocation(ctx, to, text, location)
}

// send hands a notification to the sink. Failures are logged and counted.
func (s *NotificationService) send(ctx context.Context, n Notification) {
	var err error
	switch n.Type {
	case NotificationLocation:
		err = s.sink.SendLocation(ctx, s.serviceNumber, n.To, n.Message, n.Location)
	default:
		err = s.sink.SendText(ctx, s.serviceNumber, n.To, n.Message)
	}

	if err != nil {
		notificationsTotal.WithLabelValues(string(n.Type), "failed").Inc()
		log.Printf("[NOTIFICATION] delivery failed: ID=%s, Type=%s, To=%s: %v", n.ID, n.Type, n.To, err)
		return
	}
	notificationsTotal.WithLabelValues(string(n.Type), "sent").Inc()
}

// LogSink is a NotificationSink that writes messages to the log.
type LogSink struct{}

// NewLogSink creates a new LogSink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

func (LogSink) SendText(ctx context.Context, from, to, text string) error {
	log.Printf("[NOTIFICATION] Type=%s, From=%s, To=%s, Message=%s", NotificationText, from, to, text)
	return nil
}

func (LogSink) SendLocation(ctx context.Context, from, to, text string, location domain.Location) error {
	log.Printf("[NOTIFICATION] Type=%s, From=%s, To=%s, Message=%s, Location=(%.4f, %.4f)",
		NotificationLocation, from, to, text, location.Latitude, location.Longitude)
	return nil
}

// Ensure LogSink implements NotificationSink.
var _ NotificationSink = LogSink{}
