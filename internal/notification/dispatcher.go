package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"chargedesk/internal/apperror"
	"chargedesk/internal/logger"
	"chargedesk/internal/model"
	"chargedesk/internal/repository"
	"chargedesk/internal/workflow"

	"github.com/google/uuid"
)

// Pusher delivers a payload to the live connections of a user.
type Pusher interface {
	SendToUser(userID uuid.UUID, payload []byte) bool
}

type Options struct {
	QueueSize int
	Currency  string
}

// Dispatcher delivers workflow events outside the transition that produced
// them. Every recipient gets an inbox row, a websocket push when online and
// an email when a mailer is configured.
type Dispatcher struct {
	users         repository.UserRepository
	notifications repository.NotificationRepository
	pusher        Pusher
	mailer        Mailer
	currency      string
	queue         chan workflow.Event
	log           *slog.Logger
	wg            sync.WaitGroup

	// guards stopped; Notify holds it shared while enqueueing
	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher builds a dispatcher. pusher and mailer may be nil.
func NewDispatcher(users repository.UserRepository, notifications repository.NotificationRepository, pusher Pusher, mailer Mailer, opts Options) *Dispatcher {
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	d := &Dispatcher{
		users:         users,
		notifications: notifications,
		pusher:        pusher,
		currency:      opts.Currency,
		queue:         make(chan workflow.Event, opts.QueueSize),
		log:           logger.WithService("notification_dispatcher"),
	}
	// a typed nil *SendGridMailer must not end up as a non-nil interface
	if mailer != nil {
		if sg, ok := mailer.(*SendGridMailer); !ok || sg != nil {
			d.mailer = mailer
		}
	}
	return d
}

// Notify enqueues events without blocking. A full queue, or a dispatcher
// whose worker has stopped, drops the event and logs it.
func (d *Dispatcher) Notify(ctx context.Context, events []workflow.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, ev := range events {
		if d.stopped {
			d.log.ErrorContext(ctx, "notification dispatcher stopped, dropping event",
				"event", ev.Kind, "charge_range_id", ev.ChargeRangeID)
			continue
		}
		select {
		case d.queue <- ev:
		default:
			d.log.ErrorContext(ctx, "notification queue full, dropping event",
				"event", ev.Kind, "charge_range_id", ev.ChargeRangeID)
		}
	}
}

// Start consumes the queue in the background until ctx is cancelled, then
// drains what is left. Wait blocks until that is done.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx)
	}()
}

func (d *Dispatcher) run(ctx context.Context) {
	for {
		select {
		case ev := <-d.queue:
			d.deliverLogged(ctx, ev)
		case <-ctx.Done():
			d.mu.Lock()
			d.stopped = true
			d.mu.Unlock()
			for {
				select {
				case ev := <-d.queue:
					d.deliverLogged(context.Background(), ev)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until the consumer started by Start has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliverLogged(ctx context.Context, ev workflow.Event) {
	if err := d.Deliver(ctx, ev); err != nil {
		d.log.ErrorContext(ctx, "notification delivery incomplete",
			"event", ev.Kind, "charge_range_id", ev.ChargeRangeID, "error", err)
	}
}

// Deliver sends ev to every recipient in its audience synchronously. Channel
// failures for one recipient do not stop delivery to the others.
func (d *Dispatcher) Deliver(ctx context.Context, ev workflow.Event) error {
	recipients, err := d.resolve(ctx, ev.Audience)
	if err != nil {
		return apperror.Notification("recipient lookup", err)
	}
	if len(recipients) == 0 {
		d.log.WarnContext(ctx, "no recipients for event", "event", ev.Kind, "role", ev.Audience.Role)
		return nil
	}

	msg := Compose(ev, d.currency)
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return apperror.Notification("encode", err)
	}

	var errs []error
	for _, user := range recipients {
		if err := d.deliverTo(ctx, ev, user, msg, data); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return apperror.Notification("notification", errors.Join(errs...))
	}
	return nil
}

func (d *Dispatcher) deliverTo(ctx context.Context, ev workflow.Event, user model.User, msg Message, data []byte) error {
	rangeID := ev.ChargeRangeID
	n := &model.Notification{
		UserID:        user.ID,
		ChargeRangeID: &rangeID,
		Event:         ev.Kind,
		Title:         msg.Title,
		Message:       msg.Body,
		Data:          string(data),
		EmailStatus:   model.EmailPending,
	}
	if d.mailer == nil || user.Email == "" {
		n.EmailStatus = model.EmailSkipped
	}

	var errs []error
	stored := true
	if err := d.notifications.Create(ctx, n); err != nil {
		stored = false
		errs = append(errs, fmt.Errorf("store notification for user %s: %w", user.ID, err))
	}

	if d.pusher != nil {
		push, _ := json.Marshal(map[string]interface{}{
			"type":            "notification",
			"notification_id": n.ID,
			"title":           msg.Title,
			"message":         msg.Body,
			"data":            msg.Data,
		})
		if !d.pusher.SendToUser(user.ID, push) {
			d.log.DebugContext(ctx, "user not connected, websocket push skipped", "user_id", user.ID)
		}
	}

	if n.EmailStatus == model.EmailPending {
		if err := d.sendEmail(ctx, n, user); err != nil {
			errs = append(errs, err)
		}
		if stored {
			if err := d.notifications.UpdateEmailStatus(ctx, n); err != nil {
				errs = append(errs, fmt.Errorf("update email status for %s: %w", n.ID, err))
			}
		}
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) sendEmail(ctx context.Context, n *model.Notification, user model.User) error {
	n.EmailAttempts++
	if err := d.mailer.Send(ctx, user.Email, user.Username, n.Title, n.Message); err != nil {
		n.EmailStatus = model.EmailFailed
		n.EmailError = err.Error()
		return fmt.Errorf("email to user %s: %w", user.ID, err)
	}
	n.EmailStatus = model.EmailSent
	n.EmailError = ""
	return nil
}

func (d *Dispatcher) resolve(ctx context.Context, audience workflow.Audience) ([]model.User, error) {
	if audience.UserID != nil {
		user, err := d.users.GetByID(ctx, *audience.UserID)
		if err != nil {
			return nil, err
		}
		return []model.User{*user}, nil
	}
	if audience.Role != "" {
		return d.users.ListByRole(ctx, audience.Role)
	}
	return nil, nil
}

// RetryFailedEmails resends failed emails that have attempts left and returns
// how many went out.
func (d *Dispatcher) RetryFailedEmails(ctx context.Context, maxAttempts, batch int) (int, error) {
	if d.mailer == nil {
		return 0, nil
	}

	pending, err := d.notifications.ListEmailRetries(ctx, maxAttempts, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to list email retries: %w", err)
	}

	sent := 0
	for i := range pending {
		n := &pending[i]
		if n.User == nil {
			continue
		}
		if err := d.sendEmail(ctx, n, *n.User); err != nil {
			d.log.WarnContext(ctx, "email retry failed", "notification_id", n.ID, "attempts", n.EmailAttempts, "error", err)
		} else {
			sent++
		}
		if err := d.notifications.UpdateEmailStatus(ctx, n); err != nil {
			return sent, fmt.Errorf("failed to update email status: %w", err)
		}
	}
	return sent, nil
}
