// Package transfer decides when a call should be handed to a human and
// where to send it. The policy is stateless; context arrives with each
// evaluation.
package transfer

import (
	"fmt"
	"strings"

	"resavox/internal/models"
)

// Reason tags why a transfer is being considered.
type Reason string

const (
	ReasonLargeGroup        Reason = "large_group"
	ReasonRepeatedFailure   Reason = "repeated_failure"
	ReasonExplicitRequest   Reason = "explicit_request"
	ReasonNegativeSentiment Reason = "negative_sentiment"
	ReasonPrivatization     Reason = "privatization"
	ReasonComplexRequest    Reason = "complex_request"
)

// Input carries the contextual thresholds for a decision.
type Input struct {
	Reason         Reason
	PartySize      int
	FailedAttempts int

	// Thresholds; zero values fall back to the defaults.
	LargePartyCutoff     int
	FailedAttemptsCutoff int
}

// Decision is the policy verdict.
type Decision struct {
	ShouldTransfer bool   `json:"should_transfer"`
	Reason         Reason `json:"reason"`
	Destination    string `json:"destination,omitempty"`
	Message        string `json:"message,omitempty"` // spoken before transferring
}

const (
	defaultLargePartyCutoff     = 8
	defaultFailedAttemptsCutoff = 3
)

// Decide evaluates a transfer request against the restaurant's routing
// configuration. Destination is the configured fallback number, else the
// restaurant's own line.
func Decide(restaurant *models.Restaurant, in Input) Decision {
	largeCutoff := in.LargePartyCutoff
	if largeCutoff <= 0 {
		largeCutoff = defaultLargePartyCutoff
	}
	failCutoff := in.FailedAttemptsCutoff
	if failCutoff <= 0 {
		failCutoff = defaultFailedAttemptsCutoff
	}

	should := false
	switch in.Reason {
	case ReasonLargeGroup:
		should = in.PartySize > largeCutoff
	case ReasonRepeatedFailure:
		should = in.FailedAttempts >= failCutoff
	case ReasonExplicitRequest, ReasonNegativeSentiment, ReasonPrivatization, ReasonComplexRequest:
		should = true
	}

	d := Decision{ShouldTransfer: should, Reason: in.Reason}
	if !should {
		return d
	}

	d.Destination = restaurant.TransferNumber()
	d.Message = spokenMessage(in.Reason, restaurant.Name)
	return d
}

func spokenMessage(reason Reason, restaurantName string) string {
	switch reason {
	case ReasonLargeGroup:
		return fmt.Sprintf("Pour un groupe de cette taille, je vous mets en relation avec l'équipe de %s.", restaurantName)
	case ReasonPrivatization:
		return fmt.Sprintf("Pour une privatisation, je vous passe directement l'équipe de %s.", restaurantName)
	case ReasonNegativeSentiment:
		return "Je suis désolé pour la gêne. Je vous passe un responsable tout de suite."
	case ReasonRepeatedFailure:
		return "Je vous passe quelqu'un qui pourra mieux vous aider."
	default:
		return fmt.Sprintf("Bien sûr, je vous mets en relation avec %s.", restaurantName)
	}
}

// Phrase lists for the intent detectors. Substring matching is crude and
// false-positive-tolerant: offering a transfer needlessly is cheap,
// missing a genuine request is not.
var transferPhrases = []string{
	"parler à quelqu'un",
	"parler à un humain",
	"parler au responsable",
	"parler au patron",
	"parler au gérant",
	"un vrai humain",
	"une vraie personne",
	"passez-moi",
	"transférez-moi",
	"je veux parler",
}

var privatizationPhrases = []string{
	"privatiser",
	"privatisation",
	"réserver tout le restaurant",
	"tout le restaurant",
	"événement privé",
	"soirée privée",
	"séminaire",
	"groupe de plus de",
}

// WantsTransfer scans an utterance for explicit handoff intent.
func WantsTransfer(utterance string) bool {
	return containsAny(utterance, transferPhrases)
}

// WantsPrivatization scans an utterance for privatization intent.
func WantsPrivatization(utterance string) bool {
	return containsAny(utterance, privatizationPhrases)
}

func containsAny(utterance string, phrases []string) bool {
	lower := strings.ToLower(utterance)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
