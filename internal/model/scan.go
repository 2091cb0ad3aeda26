package model

import "time"

// ScanOutcome is one of the three answers door staff can get.
type ScanOutcome string

const (
	ScanAccepted  ScanOutcome = "accepted"
	ScanDuplicate ScanOutcome = "duplicate"
	ScanInvalid   ScanOutcome = "invalid"
)

// ScanRequest 掃碼請求；EventID 可選，用來限定掃描的活動
type ScanRequest struct {
	Token   string `json:"token" binding:"required"`
	EventID *int   `json:"event_id"`
}

type ScanResult struct {
	Outcome      ScanOutcome `json:"outcome"`
	BookingID    int         `json:"booking_id,omitempty"`
	CustomerName string      `json:"customer_name,omitempty"`
	Quantity     int         `json:"quantity,omitempty"`
	RedeemedAt   *time.Time  `json:"redeemed_at,omitempty"`
	Reason       string      `json:"reason,omitempty"`
}

// Identity is the opaque caller supplied by the identity provider.
type Identity struct {
	UserID string
	Role   string
}

const RoleAdmin = "admin"

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// CanManage reports whether the caller owns the event or is an admin.
func (i *Identity) CanManage(event *Event) bool {
	if i == nil || event == nil {
		return false
	}
	return i.IsAdmin() || (i.UserID != "" && i.UserID == event.OwnerID)
}
