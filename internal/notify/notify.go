package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"seller-center/internal/event"
)

// Class groups failures the way the UI presents them.
type Class string

const (
	ClassAccessDenied       Class = "ACCESS_DENIED"
	ClassTooManyRequests    Class = "TOO_MANY_REQUESTS"
	ClassServerError        Class = "SERVER_ERROR"
	ClassServiceUnavailable Class = "SERVICE_UNAVAILABLE"
	ClassConnectionError    Class = "CONNECTION_ERROR"
	ClassRequestError       Class = "REQUEST_ERROR"
)

type defaultText struct {
	title   string
	message string
}

var defaults = map[Class]defaultText{
	ClassAccessDenied:       {title: "Access denied", message: "You do not have permission to perform this action."},
	ClassTooManyRequests:    {title: "Too many requests", message: "Please wait a moment and try again."},
	ClassServerError:        {title: "Server error", message: "Something went wrong on our side. Please try again later."},
	ClassServiceUnavailable: {title: "Service unavailable", message: "The service is temporarily unavailable. Please try again later."},
	ClassConnectionError:    {title: "Connection error", message: "Unable to reach the server. Check your connection and try again."},
	ClassRequestError:       {title: "Request failed", message: "The request could not be completed."},
}

// MessageCode is the translation key for class.
func (c Class) MessageCode() string {
	return "errors." + string(c)
}

type Notification struct {
	ID            string `json:"id"`
	Class         Class  `json:"class"`
	MessageCode   string `json:"messageCode"`
	Title         string `json:"title"`
	Message       string `json:"message"`
	Status        int    `json:"status,omitempty"`
	TraceID       string `json:"traceId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// New builds a notification with the default English text for class.
func New(class Class, status int) Notification {
	text, ok := defaults[class]
	if !ok {
		text = defaults[ClassRequestError]
	}
	return Notification{
		ID:          uuid.NewString(),
		Class:       class,
		MessageCode: class.MessageCode(),
		Title:       text.title,
		Message:     text.message,
		Status:      status,
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
	}
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// BusNotifier forwards notifications to the event bus.
type BusNotifier struct {
	events event.Publisher
	logger *slog.Logger
}

func NewBusNotifier(events event.Publisher, logger *slog.Logger) *BusNotifier {
	if events == nil {
		events = event.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BusNotifier{events: events, logger: logger}
}

func (b *BusNotifier) Notify(_ context.Context, n Notification) {
	b.logger.Debug("notification raised", "class", n.Class, "status", n.Status, "correlation_id", n.CorrelationID)
	b.events.Publish(event.New(event.TypeNotificationRaised, n))
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(context.Context, Notification) {}
