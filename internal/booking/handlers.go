package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"resavox/internal/availability"
	"resavox/internal/database"
	"resavox/internal/models"
	"resavox/internal/waitlist"
)

// Store is the data-access capability the handlers need. *database.DB
// satisfies it.
type Store interface {
	GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error)
	ActiveByPhoneAndDate(ctx context.Context, restaurantID int64, phone, date string) (*models.Reservation, error)
	FindActiveByName(ctx context.Context, restaurantID int64, name, phone string) ([]models.Reservation, error)
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	UpdateReservation(ctx context.Context, r *models.Reservation) error
	SetReservationStatus(ctx context.Context, id int64, status string) error
	GetCallByExternalID(ctx context.Context, externalID string) (*models.Call, error)
}

// Notifier fires the customer/owner notifications. Failures are logged
// by the handlers and never fail the parent operation.
type Notifier interface {
	ReservationConfirmed(ctx context.Context, restaurant *models.Restaurant, r *models.Reservation) error
	ReservationCancelled(ctx context.Context, restaurant *models.Restaurant, r *models.Reservation) error
}

// AttemptTracker counts failed tool calls per phone session so the
// agent knows when to offer a human handoff.
type AttemptTracker interface {
	RecordFailure(ctx context.Context, callExternalID string) (int, error)
}

// Policy holds the booking thresholds.
type Policy struct {
	LargePartyThreshold int
	MaxFailedAttempts   int
}

// DefaultPolicy mirrors the production defaults.
func DefaultPolicy() Policy {
	return Policy{LargePartyThreshold: 8, MaxFailedAttempts: 3}
}

// Handlers implements the reservation tool operations.
type Handlers struct {
	store    Store
	resolver *availability.Resolver
	waitlist *waitlist.Service
	notifier Notifier
	attempts AttemptTracker
	policy   Policy
	logger   zerolog.Logger

	// Now and NewToken are injectable for tests.
	Now      func() time.Time
	NewToken func() string
}

// NewHandlers wires the command handlers. notifier and attempts may be
// nil; the corresponding side effects are then skipped.
func NewHandlers(store Store, resolver *availability.Resolver, wl *waitlist.Service, notifier Notifier, attempts AttemptTracker, policy Policy, logger zerolog.Logger) *Handlers {
	if policy.LargePartyThreshold <= 0 {
		policy.LargePartyThreshold = 8
	}
	if policy.MaxFailedAttempts <= 0 {
		policy.MaxFailedAttempts = 3
	}
	return &Handlers{
		store:    store,
		resolver: resolver,
		waitlist: wl,
		notifier: notifier,
		attempts: attempts,
		policy:   policy,
		logger:   logger,
		Now:      time.Now,
		NewToken: uuid.NewString,
	}
}

// CreateRequest carries the arguments of a create_reservation call.
type CreateRequest struct {
	RestaurantID    int64
	CallExternalID  string
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   string
	Date            string // YYYY-MM-DD
	Time            string // HH:MM
	Guests          int
	SpecialRequests string
	ForceCreate     bool
}

// fieldLabels maps missing-field tags to the French words the agent
// uses when asking again.
var fieldLabels = map[string]string{
	"customer_name":    "le nom",
	"customer_phone":   "le numéro de téléphone",
	"date":             "la date",
	"time":             "l'heure",
	"number_of_guests": "le nombre de personnes",
}

func (req *CreateRequest) missingFields() []string {
	var missing []string
	if strings.TrimSpace(req.CustomerName) == "" {
		missing = append(missing, "customer_name")
	}
	if strings.TrimSpace(req.CustomerPhone) == "" {
		missing = append(missing, "customer_phone")
	}
	if strings.TrimSpace(req.Date) == "" {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(req.Time) == "" {
		missing = append(missing, "time")
	}
	if req.Guests <= 0 {
		missing = append(missing, "number_of_guests")
	}
	return missing
}

// Create books a table. Large parties short-circuit to a manager
// callback before any availability or duplicate logic runs.
func (h *Handlers) Create(ctx context.Context, req CreateRequest) Outcome {
	if missing := req.missingFields(); len(missing) > 0 {
		labels := make([]string, len(missing))
		for i, f := range missing {
			labels[i] = fieldLabels[f]
		}
		return h.noteFailure(ctx, req.CallExternalID, Outcome{
			Kind:          KindValidation,
			Message:       fmt.Sprintf("Il me manque %s pour enregistrer la réservation.", strings.Join(labels, ", ")),
			MissingFields: missing,
		})
	}

	if req.Guests > h.policy.LargePartyThreshold {
		h.captureWaitlist(ctx, req, true)
		return Outcome{
			Kind:             KindCallback,
			RequiresCallback: true,
			Message: fmt.Sprintf(
				"Pour les groupes de plus de %d personnes, un responsable va vous rappeler au %s pour organiser votre venue.",
				h.policy.LargePartyThreshold, req.CustomerPhone),
		}
	}

	if !req.ForceCreate {
		dup, err := CheckDuplicate(ctx, h.store, req.RestaurantID, req.CustomerPhone, req.Date)
		if err != nil {
			return h.downstreamFailure("create_reservation", req.RestaurantID, err)
		}
		if dup.HasDuplicate {
			return Outcome{
				Kind:        KindConflict,
				Reservation: dup.Existing,
				Message: fmt.Sprintf(
					"Vous avez déjà une réservation le %s à %s pour %d personnes. Souhaitez-vous la modifier, ou bien créer une seconde réservation ?",
					dup.Existing.Date, dup.Existing.Time, dup.Existing.Guests),
			}
		}
	}

	check, err := h.resolver.Check(ctx, req.RestaurantID, req.Date, req.Time, req.Guests)
	if err != nil {
		return h.downstreamFailure("create_reservation", req.RestaurantID, err)
	}
	if !check.Available {
		return h.noteFailure(ctx, req.CallExternalID, h.unavailableOutcome(ctx, req, check))
	}

	score := ConfidenceScore(req.CustomerName, req.CustomerPhone, req.SpecialRequests)
	reservation := &models.Reservation{
		RestaurantID:      req.RestaurantID,
		CustomerName:      strings.TrimSpace(req.CustomerName),
		CustomerPhone:     NormalizePhone(req.CustomerPhone),
		CustomerEmail:     strings.TrimSpace(req.CustomerEmail),
		Date:              strings.TrimSpace(req.Date),
		Time:              strings.TrimSpace(req.Time),
		Guests:            req.Guests,
		Status:            models.StatusPending,
		Source:            models.SourcePhone,
		SpecialRequests:   strings.TrimSpace(req.SpecialRequests),
		ConfidenceScore:   score,
		NeedsConfirmation: score < needsConfirmationThreshold,
		CancellationToken: h.NewToken(),
	}

	// Best-effort link to the originating call; an unknown external id
	// never blocks the booking.
	if req.CallExternalID != "" {
		if call, err := h.store.GetCallByExternalID(ctx, req.CallExternalID); err == nil {
			reservation.CallID = &call.ID
		} else if !errors.Is(err, database.ErrNotFound) {
			h.logger.Warn().Err(err).
				Str("call_external_id", req.CallExternalID).
				Msg("call lookup failed, booking proceeds unlinked")
		}
	}

	if err := h.store.CreateReservation(ctx, reservation); err != nil {
		return h.downstreamFailure("create_reservation", req.RestaurantID, err)
	}

	h.notifyConfirmed(ctx, req.RestaurantID, reservation)

	return success(fmt.Sprintf(
		"C'est noté ! Réservation n°%d pour %s, %d personne(s) le %s à %s. Vous recevrez une confirmation par SMS.",
		reservation.ID, reservation.CustomerName, reservation.Guests, reservation.Date, reservation.Time,
	), reservation)
}

func (h *Handlers) unavailableOutcome(ctx context.Context, req CreateRequest, check availability.Result) Outcome {
	out := Outcome{Kind: KindUnavailable, Message: check.Reason}
	if check.Code == availability.CodeRestaurantNotFound || check.Code == availability.CodeBadInput {
		if check.Code == availability.CodeRestaurantNotFound {
			out.Kind = KindNotFound
		}
		return out
	}

	// Capacity refusals are parked on the waitlist so the restaurant
	// can call back on a cancellation.
	if check.Code == availability.CodeInsufficientSeats {
		h.captureWaitlist(ctx, req, false)
	}

	alts, err := h.resolver.Alternatives(ctx, req.RestaurantID, req.Date, req.Time, req.Guests)
	if err != nil {
		h.logger.Error().Err(err).
			Int64("restaurant_id", req.RestaurantID).
			Str("date", req.Date).
			Msg("alternative scan failed")
		return out
	}
	if len(alts) > 0 {
		labels := make([]string, len(alts))
		for i, a := range alts {
			labels[i] = a.Label
		}
		out.Alternatives = alts
		out.Message = fmt.Sprintf("%s. Je peux vous proposer : %s.", out.Message, strings.Join(labels, ", "))
	}
	return out
}

func (h *Handlers) captureWaitlist(ctx context.Context, req CreateRequest, managerCall bool) {
	if h.waitlist == nil {
		return
	}
	_, err := h.waitlist.Capture(ctx, waitlist.CaptureRequest{
		RestaurantID:     req.RestaurantID,
		CustomerName:     strings.TrimSpace(req.CustomerName),
		CustomerPhone:    NormalizePhone(req.CustomerPhone),
		DesiredDate:      req.Date,
		DesiredTime:      req.Time,
		PartySize:        req.Guests,
		NeedsManagerCall: managerCall,
	})
	if err != nil {
		h.logger.Error().Err(err).
			Int64("restaurant_id", req.RestaurantID).
			Msg("waitlist capture failed")
	}
}

// CancelByID cancels a reservation unconditionally when the id exists.
// Unlike the self-service link, the agent path never second-guesses an
// explicit customer request, so there is no already-cancelled or
// past-date guard here.
func (h *Handlers) CancelByID(ctx context.Context, restaurantID, reservationID int64, callExternalID string) Outcome {
	reservation, err := h.store.GetReservation(ctx, reservationID)
	if errors.Is(err, database.ErrNotFound) {
		return h.noteFailure(ctx, callExternalID, Outcome{
			Kind:    KindNotFound,
			Message: "Je ne trouve pas cette réservation.",
		})
	}
	if err != nil {
		return h.downstreamFailure("cancel_reservation", restaurantID, err)
	}

	if err := h.store.SetReservationStatus(ctx, reservationID, models.StatusCancelled); err != nil {
		return h.downstreamFailure("cancel_reservation", restaurantID, err)
	}
	reservation.Status = models.StatusCancelled

	h.notifyCancelled(ctx, reservation.RestaurantID, reservation)

	return success(fmt.Sprintf(
		"Votre réservation du %s à %s est annulée.", reservation.Date, reservation.Time,
	), reservation)
}

// FindAndCancel resolves a reservation from a name (and optional phone)
// and cancels the soonest match. No match is an explicit not-found,
// never a guess.
func (h *Handlers) FindAndCancel(ctx context.Context, restaurantID int64, name, phone, callExternalID string) Outcome {
	if strings.TrimSpace(name) == "" {
		return h.noteFailure(ctx, callExternalID, Outcome{
			Kind:          KindValidation,
			Message:       "Il me faut le nom de la réservation à annuler.",
			MissingFields: []string{"customer_name"},
		})
	}

	matches, err := h.store.FindActiveByName(ctx, restaurantID, name, NormalizePhone(phone))
	if err != nil {
		return h.downstreamFailure("cancel_reservation_by_name", restaurantID, err)
	}
	if len(matches) == 0 {
		return h.noteFailure(ctx, callExternalID, Outcome{
			Kind:    KindNotFound,
			Message: fmt.Sprintf("Je n'ai trouvé aucune réservation active au nom de %s.", strings.TrimSpace(name)),
		})
	}

	target := &matches[0]
	if err := h.store.SetReservationStatus(ctx, target.ID, models.StatusCancelled); err != nil {
		return h.downstreamFailure("cancel_reservation_by_name", restaurantID, err)
	}
	target.Status = models.StatusCancelled

	h.notifyCancelled(ctx, restaurantID, target)

	return success(fmt.Sprintf(
		"La réservation de %s le %s à %s est annulée.", target.CustomerName, target.Date, target.Time,
	), target)
}

// UpdateRequest carries the requested changes of an update call. Nil or
// empty fields keep their current value.
type UpdateRequest struct {
	RestaurantID   int64
	CallExternalID string
	Name           string // lookup key
	Phone          string // optional lookup narrowing
	NewDate        string
	NewTime        string
	NewGuests      int
	NewRequests    string
}

// FindAndUpdate merges the requested values over the soonest matching
// reservation. When date, time or party size changes, availability is
// re-verified against the new slot before anything is committed; on
// refusal the original row is untouched.
func (h *Handlers) FindAndUpdate(ctx context.Context, req UpdateRequest) Outcome {
	if strings.TrimSpace(req.Name) == "" {
		return h.noteFailure(ctx, req.CallExternalID, Outcome{
			Kind:          KindValidation,
			Message:       "Il me faut le nom de la réservation à modifier.",
			MissingFields: []string{"customer_name"},
		})
	}

	matches, err := h.store.FindActiveByName(ctx, req.RestaurantID, req.Name, NormalizePhone(req.Phone))
	if err != nil {
		return h.downstreamFailure("update_reservation", req.RestaurantID, err)
	}
	if len(matches) == 0 {
		return h.noteFailure(ctx, req.CallExternalID, Outcome{
			Kind:    KindNotFound,
			Message: fmt.Sprintf("Je n'ai trouvé aucune réservation active au nom de %s.", strings.TrimSpace(req.Name)),
		})
	}

	updated := matches[0]
	if strings.TrimSpace(req.NewDate) != "" {
		updated.Date = strings.TrimSpace(req.NewDate)
	}
	if strings.TrimSpace(req.NewTime) != "" {
		updated.Time = strings.TrimSpace(req.NewTime)
	}
	if req.NewGuests > 0 {
		updated.Guests = req.NewGuests
	}
	if strings.TrimSpace(req.NewRequests) != "" {
		updated.SpecialRequests = strings.TrimSpace(req.NewRequests)
	}

	original := &matches[0]
	slotChanged := updated.Date != original.Date ||
		updated.Time != original.Time ||
		updated.Guests != original.Guests

	if slotChanged {
		check, err := h.resolver.CheckExcluding(ctx, req.RestaurantID, updated.Date, updated.Time, updated.Guests, original.ID)
		if err != nil {
			return h.downstreamFailure("update_reservation", req.RestaurantID, err)
		}
		if !check.Available {
			return h.noteFailure(ctx, req.CallExternalID, Outcome{
				Kind: KindUnavailable,
				Message: fmt.Sprintf(
					"Impossible de modifier la réservation : %s. Votre réservation actuelle du %s à %s reste inchangée.",
					check.Reason, original.Date, original.Time),
			})
		}
	}

	// A no-op update is a valid degenerate success.
	if err := h.store.UpdateReservation(ctx, &updated); err != nil {
		return h.downstreamFailure("update_reservation", req.RestaurantID, err)
	}

	h.notifyConfirmed(ctx, req.RestaurantID, &updated)

	return success(fmt.Sprintf(
		"C'est modifié : réservation pour %d personne(s) le %s à %s.",
		updated.Guests, updated.Date, updated.Time,
	), &updated)
}

// CheckAvailability exposes the resolver as a standalone operation.
func (h *Handlers) CheckAvailability(ctx context.Context, restaurantID int64, date, clock string, guests int, callExternalID string) Outcome {
	check, err := h.resolver.Check(ctx, restaurantID, date, clock, guests)
	if err != nil {
		return h.downstreamFailure("check_availability", restaurantID, err)
	}
	if check.Available {
		return Outcome{
			Kind: KindSuccess,
			Message: fmt.Sprintf(
				"C'est disponible : il reste %d places pour ce service.", check.AvailableCapacity),
		}
	}
	return h.noteFailure(ctx, callExternalID, h.unavailableOutcome(ctx, CreateRequest{
		RestaurantID: restaurantID,
		Date:         date,
		Time:         clock,
		Guests:       guests,
	}, check))
}

// CurrentDate grounds relative date expressions for the agent.
func (h *Handlers) CurrentDate() DateFacts {
	return CurrentDateFacts(h.Now())
}

func (h *Handlers) notifyConfirmed(ctx context.Context, restaurantID int64, r *models.Reservation) {
	h.notify(ctx, restaurantID, r, true)
}

func (h *Handlers) notifyCancelled(ctx context.Context, restaurantID int64, r *models.Reservation) {
	h.notify(ctx, restaurantID, r, false)
}

// notify fires the notification side effect. The reservation is the
// durable primary effect; a notification failure is logged and
// swallowed.
func (h *Handlers) notify(ctx context.Context, restaurantID int64, r *models.Reservation, confirmed bool) {
	if h.notifier == nil {
		return
	}
	restaurant, err := h.store.GetRestaurant(ctx, restaurantID)
	if err != nil {
		h.logger.Error().Err(err).
			Int64("restaurant_id", restaurantID).
			Msg("restaurant load for notification failed")
		return
	}

	if confirmed {
		err = h.notifier.ReservationConfirmed(ctx, restaurant, r)
	} else {
		err = h.notifier.ReservationCancelled(ctx, restaurant, r)
	}
	if err != nil {
		h.logger.Error().Err(err).
			Int64("restaurant_id", restaurantID).
			Int64("reservation_id", r.ID).
			Msg("notification failed")
	}
}

// noteFailure records a failed attempt for the call session and flags
// the outcome for transfer once the threshold is crossed.
func (h *Handlers) noteFailure(ctx context.Context, callExternalID string, out Outcome) Outcome {
	if h.attempts == nil || callExternalID == "" {
		return out
	}
	count, err := h.attempts.RecordFailure(ctx, callExternalID)
	if err != nil {
		h.logger.Warn().Err(err).
			Str("call_external_id", callExternalID).
			Msg("attempt tracking failed")
		return out
	}
	if count >= h.policy.MaxFailedAttempts {
		out.SuggestTransfer = true
	}
	return out
}

// downstreamFailure logs a data-store or side-effect error with full
// context and converts it to the generic apology.
func (h *Handlers) downstreamFailure(op string, restaurantID int64, err error) Outcome {
	h.logger.Error().Err(err).
		Str("operation", op).
		Int64("restaurant_id", restaurantID).
		Time("at", h.Now()).
		Msg("downstream failure")
	return failure(genericApology)
}
