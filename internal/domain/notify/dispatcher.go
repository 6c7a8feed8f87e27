package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitalsignal/vitalsignal/internal/domain/emergency"
	"github.com/vitalsignal/vitalsignal/internal/domain/patient"
	"github.com/vitalsignal/vitalsignal/internal/domain/vitals"
	"github.com/vitalsignal/vitalsignal/internal/platform/apperror"
	"github.com/vitalsignal/vitalsignal/internal/platform/transport"
)

// Dispatcher builds channel-appropriate content for an emergency event
// and delivers it through the configured transports, recording every
// attempt.
type Dispatcher struct {
	attempts Repository
	patients patient.Repository
	vitals   vitals.Repository
	email    transport.EmailSender
	sms      transport.SMSSender
	log      zerolog.Logger
	now      func() time.Time
}

func NewDispatcher(attempts Repository, patients patient.Repository, vitalsRepo vitals.Repository,
	email transport.EmailSender, sms transport.SMSSender, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		attempts: attempts,
		patients: patients,
		vitals:   vitalsRepo,
		email:    email,
		sms:      sms,
		log:      log,
		now:      time.Now,
	}
}

// SendEmergencyNotification delivers the alert for the event to the
// contact's channel. Transport failures come back as a failed Result,
// not an error; errors are reserved for precondition failures that
// prevent any delivery attempt.
func (d *Dispatcher) SendEmergencyNotification(ctx context.Context, event *emergency.Event, contact patient.EmergencyContact) (*Result, error) {
	// The contact's preferred channel is authoritative. An unsupported
	// channel or a missing address for it is a hard failure, never a
	// silent switch to another channel.
	channel := contact.PreferredChannel
	if !channel.Valid() {
		return nil, apperror.Newf(apperror.CodeValidationError, "unsupported notification channel %q", channel)
	}

	address := contact.AddressFor(channel)
	if address == "" {
		// No address for the chosen channel: no transport call, no
		// attempt row.
		return nil, apperror.Newf(apperror.CodeValidationError,
			"emergency contact has no %s address", channel)
	}

	p, err := d.patients.GetByID(ctx, event.PatientID)
	if errors.Is(err, patient.ErrNotFound) {
		return nil, apperror.New(apperror.CodeInvalidPatientID, "patient not found")
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabaseError, "failed to load patient record", err)
	}

	// Vitals are best effort; the alert goes out without them.
	snap, err := d.vitals.LatestByPatient(ctx, event.PatientID)
	if err != nil {
		d.log.Warn().Err(err).Str("patient_id", event.PatientID.String()).Msg("vitals lookup failed, sending without vitals")
		snap = nil
	}

	content := BuildContent(event, p, snap)

	attempt := &Attempt{
		EventID:          event.ID,
		Channel:          channel,
		RecipientAddress: address,
		Status:           AttemptPending,
	}
	attemptRecorded := true
	if err := d.attempts.Create(ctx, attempt); err != nil {
		// The attempt audit is best effort past this point; delivery
		// still proceeds.
		attemptRecorded = false
		d.log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to record notification attempt")
	}

	messageID, sendErr := d.deliver(ctx, channel, address, content)

	result := &Result{Channel: channel, Recipient: address}
	now := d.now()
	if sendErr != nil {
		attempt.Status = AttemptFailed
		msg := sendErr.Error()
		attempt.ErrorMessage = &msg
		result.Error = msg
		d.log.Error().Err(sendErr).
			Str("event_id", event.ID.String()).
			Str("channel", string(channel)).
			Msg("emergency notification failed")
	} else {
		attempt.Status = AttemptSent
		attempt.MessageID = &messageID
		attempt.SentAt = &now
		result.Success = true
		result.MessageID = messageID
		result.DeliveredAt = &now
		d.log.Info().
			Str("event_id", event.ID.String()).
			Str("channel", string(channel)).
			Str("message_id", messageID).
			Msg("emergency notification sent")
	}

	if attemptRecorded {
		if err := d.attempts.Resolve(ctx, attempt); err != nil {
			d.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("failed to resolve notification attempt")
		}
	}

	return result, nil
}

func (d *Dispatcher) deliver(ctx context.Context, channel transport.Channel, address string, content Content) (string, error) {
	switch channel {
	case transport.ChannelEmail:
		return d.email.SendEmail(ctx, transport.Message{
			To:       address,
			Subject:  content.Subject,
			HTMLBody: content.HTMLBody,
			TextBody: content.TextBody,
		})
	case transport.ChannelSMS:
		return d.sms.SendSMS(ctx, address, content.SMSText)
	default:
		return "", apperror.Newf(apperror.CodeValidationError, "unsupported notification channel %q", channel)
	}
}

// AttemptsForEvent returns the delivery history for an event, newest
// first.
func (d *Dispatcher) AttemptsForEvent(ctx context.Context, event *emergency.Event) ([]*Attempt, error) {
	items, err := d.attempts.ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabaseError, "failed to load notification attempts", err)
	}
	return items, nil
}
