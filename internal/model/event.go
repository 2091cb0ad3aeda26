package model

import "time"

// Event is owned by the catalog; the ticketing core only reads it and moves TicketsSold.
type Event struct {
	ID          int        `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	VenueRef    string     `json:"venue_ref" db:"venue_ref"`
	StartsAt    *time.Time `json:"starts_at,omitempty" db:"starts_at"`
	Capacity    *int       `json:"capacity,omitempty" db:"capacity"`
	TicketsSold int        `json:"tickets_sold" db:"tickets_sold"`
	TicketPrice *int64     `json:"ticket_price,omitempty" db:"ticket_price"` // minor units, nil means free
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// EffectiveCapacity falls back to defaultCapacity when no capacity is configured.
func (e *Event) EffectiveCapacity(defaultCapacity int) int {
	if e.Capacity == nil {
		return defaultCapacity
	}
	return *e.Capacity
}

// Remaining is never negative.
func (e *Event) Remaining(defaultCapacity int) int {
	remaining := e.EffectiveCapacity(defaultCapacity) - e.TicketsSold
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (e *Event) IsFree() bool {
	return e.TicketPrice == nil || *e.TicketPrice == 0
}

func (e *Event) UnitPrice() int64 {
	if e.TicketPrice == nil {
		return 0
	}
	return *e.TicketPrice
}

// AvailabilityResponse is the read-only view shown next to a gig listing.
type AvailabilityResponse struct {
	EventID   int    `json:"event_id"`
	Capacity  int    `json:"capacity"`
	Sold      int    `json:"sold"`
	Remaining int    `json:"remaining"`
	SoldOut   bool   `json:"sold_out"`
	Price     int64  `json:"price"`
	Currency  string `json:"currency"`
}

func NewAvailability(eventID, capacity, sold int, price int64, currency string) *AvailabilityResponse {
	remaining := capacity - sold
	if remaining < 0 {
		remaining = 0
	}
	return &AvailabilityResponse{
		EventID:   eventID,
		Capacity:  capacity,
		Sold:      sold,
		Remaining: remaining,
		SoldOut:   remaining == 0,
		Price:     price,
		Currency:  currency,
	}
}
