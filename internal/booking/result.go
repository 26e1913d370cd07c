// Package booking implements the reservation command handlers driven by
// the voice agent's tool calls.
package booking

import (
	"resavox/internal/availability"
	"resavox/internal/models"
)

// Kind tags an Outcome so callers handle every variant explicitly
// instead of probing ad hoc fields.
type Kind string

const (
	KindSuccess     Kind = "success"
	KindNotFound    Kind = "not_found"
	KindUnavailable Kind = "unavailable"
	KindValidation  Kind = "validation_failed"
	KindConflict    Kind = "duplicate_conflict"
	KindCallback    Kind = "requires_callback"
	KindFailure     Kind = "failure"
)

// Outcome is the tagged result of a command handler. Message is the
// French text relayed to the caller; the remaining fields carry the
// variant's payload.
type Outcome struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`

	// Reservation is the created/modified row on success, or the
	// conflicting row on a duplicate conflict.
	Reservation *models.Reservation `json:"reservation,omitempty"`

	// Alternatives accompany an unavailable outcome.
	Alternatives []availability.Alternative `json:"alternatives,omitempty"`

	// MissingFields enumerates what a validation failure lacks.
	MissingFields []string `json:"missing_fields,omitempty"`

	// RequiresCallback marks large-party requests routed to a human.
	RequiresCallback bool `json:"requires_callback,omitempty"`

	// SuggestTransfer is set once a call has accumulated enough
	// failures that the agent should offer a human handoff.
	SuggestTransfer bool `json:"suggest_transfer,omitempty"`
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool { return o.Kind == KindSuccess }

func success(msg string, r *models.Reservation) Outcome {
	return Outcome{Kind: KindSuccess, Message: msg, Reservation: r}
}

func failure(msg string) Outcome {
	return Outcome{Kind: KindFailure, Message: msg}
}

// genericApology hides internal failure detail from the customer.
const genericApology = "Désolé, une erreur technique est survenue. Pouvez-vous réessayer dans un instant ?"
