package availability

import "resavox/internal/models"

// BookedGuests sums the guest counts of active reservations that fall in
// the given service period. Each reservation is classified by its own
// time, not by a stored service column, so a moved reservation can never
// be double-counted.
func BookedGuests(reservations []models.Reservation, service models.Service) int {
	total := 0
	for i := range reservations {
		r := &reservations[i]
		if !r.IsActive() {
			continue
		}
		if r.Service() != service {
			continue
		}
		total += r.Guests
	}
	return total
}

// RemainingCapacity returns the seats left in a service period given the
// restaurant's ceiling and the active reservations of the day. Never
// negative; concurrent bookings can overshoot the ceiling and the
// remainder is then simply zero.
func RemainingCapacity(r *models.Restaurant, reservations []models.Reservation, service models.Service) int {
	remaining := r.CapacityFor(service) - BookedGuests(reservations, service)
	if remaining < 0 {
		return 0
	}
	return remaining
}
