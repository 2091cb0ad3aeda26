package model

import "time"

// BookingStatus 訂單狀態類型
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusRefunded  BookingStatus = "refunded"
)

// IsValid reports whether the status is one of the two steady states.
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusConfirmed, BookingStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	transitions := map[BookingStatus][]BookingStatus{
		BookingStatusConfirmed: {BookingStatusRefunded},
		BookingStatusRefunded:  {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// Booking is one reservation of Quantity tickets for an event.
type Booking struct {
	ID                 int           `json:"id" db:"id"`
	EventID            int           `json:"event_id" db:"event_id"`
	CustomerName       string        `json:"customer_name" db:"customer_name"`
	CustomerEmail      string        `json:"customer_email" db:"customer_email"`
	Quantity           int           `json:"quantity" db:"quantity"`
	Status             BookingStatus `json:"status" db:"status"`
	ExternalPaymentRef *string       `json:"-" db:"external_payment_ref"`
	PricePaid          int64         `json:"price_paid" db:"price_paid"`
	Credential         *string       `json:"-" db:"credential"`
	RefundRef          *string       `json:"-" db:"refund_ref"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	RefundedAt         *time.Time    `json:"refunded_at,omitempty" db:"refunded_at"`
	RedeemedAt         *time.Time    `json:"redeemed_at,omitempty" db:"redeemed_at"`
}

func (b *Booking) IsRefunded() bool {
	return b.Status == BookingStatusRefunded
}

func (b *Booking) IsRedeemed() bool {
	return b.RedeemedAt != nil
}

func (b *Booking) IsPaid() bool {
	return b.ExternalPaymentRef != nil && *b.ExternalPaymentRef != ""
}

// CreateBookingRequest is the input of the single booking choke point.
type CreateBookingRequest struct {
	EventID            int
	CustomerName       string
	CustomerEmail      string
	Quantity           int
	ExternalPaymentRef *string
	AddOnAmount        int64
	Complimentary      bool
	// RecordUnfulfilled stores a paid request that no longer fits as an already refunded
	// booking, so the payment ref stays claimed after the money goes back.
	RecordUnfulfilled bool
}

// BookingResult tells the caller whether this call created the booking or found an existing one.
type BookingResult struct {
	Booking *Booking
	Created bool
}

// DirectBookingRequest 直接訂票請求 (free events and guest lists)
type DirectBookingRequest struct {
	CustomerName  string `json:"customer_name" binding:"required"`
	CustomerEmail string `json:"customer_email" binding:"required,email"`
	Quantity      int    `json:"quantity"`
}

// CheckoutRequest starts a paid purchase.
type CheckoutRequest struct {
	EventID       int    `json:"-"`
	CustomerName  string `json:"customer_name" binding:"required"`
	CustomerEmail string `json:"customer_email" binding:"required,email"`
	Quantity      int    `json:"quantity"`
}

// CheckoutResult carries either a processor redirect or, for free events, the booking itself.
type CheckoutResult struct {
	SessionID   string   `json:"session_id,omitempty"`
	RedirectURL string   `json:"redirect_url,omitempty"`
	Amount      int64    `json:"amount"`
	Currency    string   `json:"currency"`
	Booking     *Booking `json:"booking,omitempty"`
}

// BookingResponse 訂單響應
type BookingResponse struct {
	ID            int        `json:"id"`
	EventID       int        `json:"event_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerEmail string     `json:"customer_email"`
	Quantity      int        `json:"quantity"`
	Status        string     `json:"status"`
	PricePaid     int64      `json:"price_paid"`
	Paid          bool       `json:"paid"`
	CreatedAt     string     `json:"created_at"`
	RefundedAt    *time.Time `json:"refunded_at,omitempty"`
	RedeemedAt    *time.Time `json:"redeemed_at,omitempty"`
}

func NewBookingResponse(b *Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		EventID:       b.EventID,
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		Quantity:      b.Quantity,
		Status:        string(b.Status),
		PricePaid:     b.PricePaid,
		Paid:          b.IsPaid(),
		CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
		RefundedAt:    b.RefundedAt,
		RedeemedAt:    b.RedeemedAt,
	}
}

// BookingAccess 查詢訂單時的身分：買家用 email，主辦方用 Identity
type BookingAccess struct {
	Email    string
	Identity *Identity
}

// RefundResult is what the caller sees after a completed refund.
type RefundResult struct {
	BookingID  int        `json:"booking_id"`
	Status     string     `json:"status"`
	Amount     int64      `json:"amount"`
	Currency   string     `json:"currency"`
	Quantity   int        `json:"quantity"`
	RefundedAt *time.Time `json:"refunded_at"`
}
