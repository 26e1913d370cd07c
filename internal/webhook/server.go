package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"resavox/internal/booking"
	"resavox/internal/metrics"
	"resavox/internal/models"
	"resavox/internal/transfer"
)

// Store is what the transport layer needs from the database: call
// session records plus the lookups behind self-service cancellation.
type Store interface {
	UpsertCall(ctx context.Context, c *models.Call) error
	GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error)
	GetReservationByToken(ctx context.Context, token string) (*models.Reservation, error)
	SetReservationStatus(ctx context.Context, id int64, status string) error
}

// Server handles the voice platform webhook and the customer-facing
// cancellation endpoint.
type Server struct {
	handlers *booking.Handlers
	store    Store
	notifier booking.Notifier
	policy   booking.Policy
	timeout  time.Duration
	logger   zerolog.Logger
	mux      *http.ServeMux
	now      func() time.Time
}

func NewServer(handlers *booking.Handlers, store Store, notifier booking.Notifier, policy booking.Policy, timeout time.Duration, logger zerolog.Logger) *Server {
	s := &Server{
		handlers: handlers,
		store:    store,
		notifier: notifier,
		policy:   policy,
		timeout:  timeout,
		logger:   logger,
		mux:      http.NewServeMux(),
		now:      time.Now,
	}
	s.mux.HandleFunc("/webhook", s.handleWebhook)
	s.mux.HandleFunc("/cancel/", s.handleSelfServiceCancel)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// timeoutApology is returned when a tool call outlives its deadline;
// the voice platform has no retry semantics, so it must always receive
// a well-formed result.
const timeoutApology = "Désolé, je rencontre un problème technique. Pouvez-vous répéter votre demande ?"

const unknownFunctionMsg = "Désolé, je ne peux pas traiter cette demande."

const missingRestaurantMsg = "Désolé, je ne parviens pas à identifier le restaurant. Pouvez-vous rappeler un peu plus tard ?"

// handleWebhook answers every tool call in the envelope with exactly
// one result. Only an unparseable outer payload escapes as a transport
// error: without it there is no correlation id to route a graceful
// per-tool response.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var env Envelope
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&env); err != nil {
		s.logger.Error().Err(err).Msg("unparseable webhook envelope")
		writeError(w, http.StatusInternalServerError, "invalid envelope")
		return
	}

	s.recordCall(r.Context(), &env)

	resp := Response{Results: make([]ToolResult, 0, len(env.Message.ToolCalls))}
	for i := range env.Message.ToolCalls {
		tc := &env.Message.ToolCalls[i]
		resp.Results = append(resp.Results, ToolResult{
			ToolCallID: tc.ID,
			Result:     s.dispatchBounded(r.Context(), &env, tc),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// recordCall keeps a session row per external call id, best effort.
func (s *Server) recordCall(ctx context.Context, env *Envelope) {
	externalID := env.Message.Call.ID
	if externalID == "" {
		return
	}
	call := &models.Call{
		ExternalID: externalID,
		Phone:      env.Message.Call.Customer.Number,
		Status:     "active",
		StartedAt:  s.now().UTC(),
	}
	if err := s.store.UpsertCall(ctx, call); err != nil {
		s.logger.Warn().Err(err).Str("call_id", externalID).Msg("call upsert failed")
	}
}

// dispatchBounded runs one tool call under the request deadline. An
// overrun still yields an apologetic, well-formed result.
func (s *Server) dispatchBounded(ctx context.Context, env *Envelope, tc *ToolCall) string {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan string, 1)
	go func() {
		done <- s.dispatch(ctx, env, tc)
	}()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		s.logger.Error().
			Str("operation", tc.Function.Name).
			Str("call_id", env.Message.Call.ID).
			Msg("tool call deadline exceeded")
		metrics.IncToolCall(tc.Function.Name, "timeout")
		return timeoutApology
	}
}

func (s *Server) dispatch(ctx context.Context, env *Envelope, tc *ToolCall) string {
	op := tc.Function.Name

	args, err := tc.Args()
	if err != nil {
		s.logger.Warn().Err(err).Str("operation", op).Msg("malformed tool arguments")
		metrics.IncToolCall(op, "bad_arguments")
		return unknownFunctionMsg
	}

	if op == "get_current_date" {
		metrics.IncToolCall(op, "success")
		return s.currentDateResult()
	}

	restaurantID, ok := env.RestaurantID(args)
	if !ok {
		s.logger.Warn().Str("operation", op).Str("call_id", env.Message.Call.ID).Msg("restaurant id missing")
		metrics.IncToolCall(op, "missing_restaurant")
		return missingRestaurantMsg
	}

	callID := env.Message.Call.ID
	var out booking.Outcome
	switch op {
	case "check_availability":
		out = s.handlers.CheckAvailability(ctx, restaurantID, argString(args, "date"), argString(args, "time"), argInt(args, "number_of_guests"), callID)
	case "create_reservation":
		out = s.handlers.Create(ctx, booking.CreateRequest{
			RestaurantID:    restaurantID,
			CallExternalID:  callID,
			CustomerName:    argString(args, "customer_name"),
			CustomerPhone:   argString(args, "customer_phone"),
			CustomerEmail:   argString(args, "customer_email"),
			Date:            argString(args, "date"),
			Time:            argString(args, "time"),
			Guests:          argInt(args, "number_of_guests"),
			SpecialRequests: argString(args, "special_requests"),
			ForceCreate:     argBool(args, "force_create"),
		})
		if out.OK() {
			metrics.IncReservationCreated()
		}
	case "cancel_reservation":
		out = s.handlers.CancelByID(ctx, restaurantID, argInt64(args, "reservation_id"), callID)
		if out.OK() {
			metrics.IncReservationCancelled("agent")
		}
	case "find_and_cancel_reservation":
		out = s.handlers.FindAndCancel(ctx, restaurantID, argString(args, "customer_name"), argString(args, "customer_phone"), callID)
		if out.OK() {
			metrics.IncReservationCancelled("agent")
		}
	case "update_reservation":
		out = s.handlers.FindAndUpdate(ctx, booking.UpdateRequest{
			RestaurantID:   restaurantID,
			CallExternalID: callID,
			Name:           argString(args, "customer_name"),
			Phone:          argString(args, "customer_phone"),
			NewDate:        argString(args, "new_date"),
			NewTime:        argString(args, "new_time"),
			NewGuests:      argInt(args, "new_number_of_guests"),
			NewRequests:    argString(args, "special_requests"),
		})
	case "request_transfer":
		return s.transferResult(ctx, restaurantID, args)
	default:
		s.logger.Warn().Str("operation", op).Msg("unknown function")
		metrics.IncToolCall(op, "unknown")
		return unknownFunctionMsg
	}

	metrics.IncToolCall(op, string(out.Kind))
	return out.Message
}

// currentDateResult is the one structured (JSON string) tool result;
// the agent parses it to ground relative date expressions.
func (s *Server) currentDateResult() string {
	facts := s.handlers.CurrentDate()
	data, err := json.Marshal(facts)
	if err != nil {
		return timeoutApology
	}
	return string(data)
}

// transferResult evaluates the handoff policy and returns the decision
// as JSON so the platform can route the call.
func (s *Server) transferResult(ctx context.Context, restaurantID int64, args map[string]any) string {
	restaurant, err := s.store.GetRestaurant(ctx, restaurantID)
	if err != nil {
		s.logger.Error().Err(err).Int64("restaurant_id", restaurantID).Msg("transfer lookup failed")
		metrics.IncToolCall("request_transfer", "failure")
		return timeoutApology
	}

	reason := transfer.Reason(argString(args, "reason"))
	if utterance := argString(args, "utterance"); reason == "" && utterance != "" {
		switch {
		case transfer.WantsPrivatization(utterance):
			reason = transfer.ReasonPrivatization
		case transfer.WantsTransfer(utterance):
			reason = transfer.ReasonExplicitRequest
		}
	}

	d := transfer.Decide(restaurant, transfer.Input{
		Reason:               reason,
		PartySize:            argInt(args, "number_of_guests"),
		FailedAttempts:       argInt(args, "failed_attempts"),
		LargePartyCutoff:     s.policy.LargePartyThreshold,
		FailedAttemptsCutoff: s.policy.MaxFailedAttempts,
	})
	if d.ShouldTransfer {
		metrics.IncTransfer(string(d.Reason))
	}
	metrics.IncToolCall("request_transfer", "success")

	data, err := json.Marshal(d)
	if err != nil {
		return timeoutApology
	}
	return string(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
