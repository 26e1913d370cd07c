package webhook

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"resavox/internal/database"
	"resavox/internal/metrics"
	"resavox/internal/models"
)

// CancellationInfo describes the reservation behind a token, shown to
// the customer before they confirm.
type CancellationInfo struct {
	RestaurantName string `json:"restaurant_name"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Guests         int    `json:"number_of_guests"`
	Status         string `json:"status"`
}

// handleSelfServiceCancel serves the link embedded in confirmation SMS.
// GET shows the reservation; POST cancels it. Unlike the agent path,
// this one refuses already-cancelled reservations and past dates: a
// customer clicking a stale link should get a clear answer, not a
// silent no-op.
func (s *Server) handleSelfServiceCancel(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.URL.Path, "/cancel/")
	if token == "" || strings.Contains(token, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	reservation, err := s.store.GetReservationByToken(r.Context(), token)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "réservation introuvable")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("token lookup failed")
		writeError(w, http.StatusInternalServerError, "erreur interne")
		return
	}

	restaurant, err := s.store.GetRestaurant(r.Context(), reservation.RestaurantID)
	if err != nil {
		s.logger.Error().Err(err).Int64("restaurant_id", reservation.RestaurantID).Msg("restaurant lookup failed")
		writeError(w, http.StatusInternalServerError, "erreur interne")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, CancellationInfo{
			RestaurantName: restaurant.Name,
			Date:           reservation.Date,
			Time:           reservation.Time,
			Guests:         reservation.Guests,
			Status:         reservation.Status,
		})
	case http.MethodPost:
		s.cancelByToken(w, r, restaurant, reservation)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) cancelByToken(w http.ResponseWriter, r *http.Request, restaurant *models.Restaurant, reservation *models.Reservation) {
	if reservation.Status == models.StatusCancelled {
		writeError(w, http.StatusConflict, "Cette réservation est déjà annulée.")
		return
	}

	// Day granularity: a reservation later today is still cancellable.
	day, err := models.ParseDate(reservation.Date)
	if err == nil && day.Before(s.now().UTC().Truncate(24*time.Hour)) {
		writeError(w, http.StatusConflict, "Cette réservation est déjà passée.")
		return
	}

	if err := s.store.SetReservationStatus(r.Context(), reservation.ID, models.StatusCancelled); err != nil {
		s.logger.Error().Err(err).Int64("reservation_id", reservation.ID).Msg("self-service cancel failed")
		writeError(w, http.StatusInternalServerError, "erreur interne")
		return
	}
	metrics.IncReservationCancelled("self_service")

	reservation.Status = models.StatusCancelled
	if s.notifier != nil {
		if err := s.notifier.ReservationCancelled(r.Context(), restaurant, reservation); err != nil {
			s.logger.Warn().Err(err).Int64("reservation_id", reservation.ID).Msg("cancellation sms failed")
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Votre réservation a bien été annulée.",
	})
}
