package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/exam-scheduler/internal/application"
)

// Message describes one booking change to deliver to the user.
type Message struct {
	UserID       string
	Reservation  application.Reservation
	ExamName     string
	Cancellation bool
}

// Sender delivers one message to its recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher delivers booking notifications after a fixed delay. Delivery is
// best effort: failures are logged and never surfaced to the booking flow,
// and the delay lets a student who immediately rebooks receive only the final
// state.
type Dispatcher struct {
	sender Sender
	delay  time.Duration
	logger *slog.Logger

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// NewDispatcher creates a dispatcher that sends each notification delay after
// it was enqueued.
func NewDispatcher(sender Sender, delay time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sender: sender,
		delay:  delay,
		logger: logger,
	}
}

// ReservationChanged implements application.ReservationNotifier. It returns
// immediately; delivery happens in the background.
func (d *Dispatcher) ReservationChanged(userID string, reservation application.Reservation, examName string, cancellation bool) {
	if d == nil || d.sender == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	msg := Message{
		UserID:       userID,
		Reservation:  reservation,
		ExamName:     examName,
		Cancellation: cancellation,
	}

	go func() {
		defer d.wg.Done()
		if d.delay > 0 {
			time.Sleep(d.delay)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := d.sender.Send(ctx, msg); err != nil {
			d.logger.Error("notification delivery failed",
				"user_id", msg.UserID,
				"reservation_id", msg.Reservation.ID,
				"cancellation", msg.Cancellation,
				"error", err,
			)
			return
		}
		d.logger.Debug("notification delivered",
			"user_id", msg.UserID,
			"reservation_id", msg.Reservation.ID,
			"cancellation", msg.Cancellation,
		)
	}()
}

// LogSender records notifications in the service log. It stands in until a
// real delivery channel (mail, push) is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a sender that writes each message to the logger.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("reservation notification",
		"user_id", msg.UserID,
		"reservation_id", msg.Reservation.ID,
		"exam_name", msg.ExamName,
		"cancellation", msg.Cancellation,
		"starts_at", msg.Reservation.Interval.Start,
	)
	return nil
}

// Close stops accepting new notifications and waits for in-flight deliveries.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
