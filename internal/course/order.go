package course

import "time"

// Order is a stub for a future paid-enrollment flow. No business logic
// touches it yet; it exists so the schema and API can reserve the shape.
type Order struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	CourseID      string    `json:"course_id"`
	PaymentStatus string    `json:"payment_status"` // pending | completed | failed
	AmountPaid    int64     `json:"amount_paid"`
	PaymentID     string    `json:"payment_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
