package model

// NotificationKind 通知類型
type NotificationKind string

const (
	NotificationBookingConfirmed NotificationKind = "booking_confirmed"
	NotificationBookingRefunded  NotificationKind = "booking_refunded"
)

// NotificationJob carries only identifiers; the worker reloads current state before sending.
type NotificationJob struct {
	Kind      NotificationKind `json:"kind"`
	BookingID int              `json:"booking_id"`
}
