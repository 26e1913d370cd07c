// Package notify sends reservation confirmations and cancellations to
// customers by SMS and alerts restaurant owners over Telegram. All sends
// are best effort from the caller's point of view; a failed notification
// never blocks a booking.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"resavox/internal/fr"
	"resavox/internal/metrics"
	"resavox/internal/models"
)

// SMSSender delivers one text message.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// OwnerAlerter pushes a short note to the restaurant owner's chat.
type OwnerAlerter interface {
	Alert(ctx context.Context, chatID int64, text string) error
}

// Notifier fans a reservation event out to the customer and the owner.
type Notifier struct {
	sms        SMSSender
	owner      OwnerAlerter
	cancelLink string // base URL; the cancellation token is appended
	logger     zerolog.Logger
}

func NewNotifier(sms SMSSender, owner OwnerAlerter, cancelLink string, logger zerolog.Logger) *Notifier {
	return &Notifier{sms: sms, owner: owner, cancelLink: cancelLink, logger: logger}
}

// ReservationConfirmed texts the customer and pings the owner.
func (n *Notifier) ReservationConfirmed(ctx context.Context, restaurant *models.Restaurant, r *models.Reservation) error {
	n.alertOwner(ctx, restaurant, fmt.Sprintf("Nouvelle réservation : %s, %d pers., %s %s",
		r.CustomerName, r.Guests, shortDate(r.Date), r.Time))

	if n.sms == nil || !restaurant.SMSEnabled || r.CustomerPhone == "" {
		return nil
	}
	return n.send(ctx, r.CustomerPhone, ConfirmationText(restaurant, r, n.cancelLink))
}

// ReservationCancelled texts the customer and pings the owner.
func (n *Notifier) ReservationCancelled(ctx context.Context, restaurant *models.Restaurant, r *models.Reservation) error {
	n.alertOwner(ctx, restaurant, fmt.Sprintf("Annulation : %s, %d pers., %s %s",
		r.CustomerName, r.Guests, shortDate(r.Date), r.Time))

	if n.sms == nil || !restaurant.SMSEnabled || r.CustomerPhone == "" {
		return nil
	}
	return n.send(ctx, r.CustomerPhone, CancellationText(restaurant, r))
}

func (n *Notifier) send(ctx context.Context, to, body string) error {
	if err := n.sms.Send(ctx, to, body); err != nil {
		metrics.IncSMSSent("failure")
		return err
	}
	metrics.IncSMSSent("success")
	return nil
}

func (n *Notifier) alertOwner(ctx context.Context, restaurant *models.Restaurant, text string) {
	if n.owner == nil || restaurant.OwnerChatID == 0 {
		return
	}
	if err := n.owner.Alert(ctx, restaurant.OwnerChatID, text); err != nil {
		n.logger.Warn().Err(err).
			Int64("restaurant_id", restaurant.ID).
			Msg("owner alert failed")
	}
}

// shortDate renders a stored YYYY-MM-DD date for SMS; on a malformed
// value it falls back to the raw string rather than dropping the send.
func shortDate(date string) string {
	t, err := models.ParseDate(date)
	if err != nil {
		return date
	}
	return fr.ShortDate(t)
}

// ConfirmationText builds the confirmation SMS. Messages must fit in a
// single 160-character segment, hence the short date form.
func ConfirmationText(restaurant *models.Restaurant, r *models.Reservation, cancelLink string) string {
	msg := fmt.Sprintf("%s : réservation confirmée le %s à %s pour %d pers.",
		restaurant.Name, shortDate(r.Date), r.Time, r.Guests)
	if cancelLink != "" && r.CancellationToken != "" {
		msg += fmt.Sprintf(" Annuler : %s/%s", cancelLink, r.CancellationToken)
	}
	return msg
}

// CancellationText builds the cancellation SMS.
func CancellationText(restaurant *models.Restaurant, r *models.Reservation) string {
	return fmt.Sprintf("%s : votre réservation du %s à %s est annulée. À bientôt !",
		restaurant.Name, shortDate(r.Date), r.Time)
}
