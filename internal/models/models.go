package models

import "time"

// Restaurant holds the venue profile and its booking policy inputs.
// Rows are maintained by the owner dashboard; this service only reads them.
type Restaurant struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	Phone             string       `json:"phone"`
	Email             string       `json:"email,omitempty"`
	Address           string       `json:"address,omitempty"`
	MaxCapacity       int          `json:"max_capacity"`
	MaxCapacityLunch  *int         `json:"max_capacity_lunch,omitempty"`
	MaxCapacityDinner *int         `json:"max_capacity_dinner,omitempty"`
	OpeningHours      WeekSchedule `json:"opening_hours"`
	ClosedDates       ClosedDates  `json:"closed_dates,omitempty"`
	SMSEnabled        bool         `json:"sms_enabled"`
	FallbackPhone     string       `json:"fallback_phone,omitempty"`
	OwnerChatID       int64        `json:"owner_chat_id,omitempty"` // Telegram chat for owner alerts
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// CapacityFor returns the seat ceiling for a service period, falling
// back to the global ceiling when no per-service split is configured.
func (r *Restaurant) CapacityFor(service Service) int {
	switch service {
	case ServiceLunch:
		if r.MaxCapacityLunch != nil {
			return *r.MaxCapacityLunch
		}
	case ServiceDinner:
		if r.MaxCapacityDinner != nil {
			return *r.MaxCapacityDinner
		}
	}
	return r.MaxCapacity
}

// TransferNumber returns the destination for escalated calls: the
// configured fallback, else the restaurant's own line.
func (r *Restaurant) TransferNumber() string {
	if r.FallbackPhone != "" {
		return r.FallbackPhone
	}
	return r.Phone
}

// Reservation statuses. Only pending and confirmed rows count toward
// capacity, duplicates and find-by-name lookups.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// Reservation sources.
const (
	SourcePhone  = "phone"
	SourceWeb    = "web"
	SourceManual = "manual"
)

// Reservation is a booking row. Date is ISO "YYYY-MM-DD", Time "HH:MM".
type Reservation struct {
	ID                int64     `json:"id"`
	RestaurantID      int64     `json:"restaurant_id"`
	CallID            *int64    `json:"call_id,omitempty"`
	CustomerName      string    `json:"customer_name"`
	CustomerPhone     string    `json:"customer_phone"`
	CustomerEmail     string    `json:"customer_email,omitempty"`
	Date              string    `json:"reservation_date"`
	Time              string    `json:"reservation_time"`
	Guests            int       `json:"number_of_guests"`
	Status            string    `json:"status"`
	Source            string    `json:"source"`
	SpecialRequests   string    `json:"special_requests,omitempty"`
	ConfidenceScore   float64   `json:"confidence_score"`
	NeedsConfirmation bool      `json:"needs_confirmation"`
	CancellationToken string    `json:"cancellation_token,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsActive reports whether the reservation still occupies seats.
func (r *Reservation) IsActive() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// Service classifies the reservation into a service period by its time.
func (r *Reservation) Service() Service {
	svc, err := ServiceForClock(r.Time)
	if err != nil {
		return ServiceDinner
	}
	return svc
}

// Waitlist statuses.
const (
	WaitlistWaiting          = "waiting"
	WaitlistNeedsManagerCall = "needs_manager_call"
	WaitlistContacted        = "contacted"
	WaitlistConverted        = "converted"
	WaitlistExpired          = "expired"
	WaitlistCancelled        = "cancelled"
)

// WaitlistEntry captures a request that could not be booked immediately.
type WaitlistEntry struct {
	ID             string    `json:"id"`
	RestaurantID   int64     `json:"restaurant_id"`
	CustomerName   string    `json:"customer_name"`
	CustomerPhone  string    `json:"customer_phone"`
	DesiredDate    string    `json:"desired_date"`
	DesiredTime    string    `json:"desired_time,omitempty"`
	DesiredService Service   `json:"desired_service"`
	PartySize      int       `json:"party_size"`
	Status         string    `json:"status"`
	ReservationID  *int64    `json:"reservation_id,omitempty"` // set on conversion
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Call is the transport-level record of a phone session. The booking
// core only resolves it by external id to link reservations back to
// their originating call.
type Call struct {
	ID         int64      `json:"id"`
	ExternalID string     `json:"external_id"`
	Phone      string     `json:"phone,omitempty"`
	Status     string     `json:"status,omitempty"`
	Transcript string     `json:"transcript,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}
