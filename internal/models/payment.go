package models

import (
	"time"
)

// Payment states. COMPLETED and FAILED are terminal.
const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
)

// Payment tracks one checkout. TxRef is the idempotency key shared with the
// gateway.
type Payment struct {
	ID                   string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	UserID               string     `json:"user_id" gorm:"type:uuid;not null;index"`
	TxRef                string     `json:"tx_ref" gorm:"type:varchar(100);not null;uniqueIndex"`
	Plan                 string     `json:"plan" gorm:"type:varchar(20);not null"`
	Amount               float64    `json:"amount" gorm:"type:numeric(14,2);not null"`
	Currency             string     `json:"currency" gorm:"type:varchar(3);not null"`
	Status               string     `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	GatewayTransactionID string     `json:"gateway_transaction_id,omitempty" gorm:"type:varchar(100)"`
	CheckoutURL          string     `json:"checkout_url,omitempty" gorm:"type:text"`
	FailureReason        string     `json:"failure_reason,omitempty" gorm:"type:text"`
	VerifiedAt           *time.Time `json:"verified_at,omitempty"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}

// IsTerminal reports whether the payment has been settled
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentCompleted || p.Status == PaymentFailed
}

// InitiatePaymentRequest starts a checkout for a plan
type InitiatePaymentRequest struct {
	Plan string `json:"plan" binding:"required" example:"starter"`
}

// InitiatePaymentResponse carries the hosted checkout link
type InitiatePaymentResponse struct {
	PaymentID   string  `json:"payment_id"`
	TxRef       string  `json:"tx_ref"`
	CheckoutURL string  `json:"checkout_url"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
}

// PaymentWebhookEvent is the body the gateway posts to the webhook
type PaymentWebhookEvent struct {
	Event string `json:"event" example:"charge.completed"`
	Data  struct {
		ID       int64   `json:"id"`
		TxRef    string  `json:"tx_ref"`
		Status   string  `json:"status"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"data"`
}
