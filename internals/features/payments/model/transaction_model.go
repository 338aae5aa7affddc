package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* ===================== Enums (string) ===================== */
/* Selaras dengan ENUM di PostgreSQL:
   transaction_status, transaction_kind
*/

const (
	TransactionStatusSuccess = "success"
	TransactionStatusPending = "pending"
	TransactionStatusFailed  = "failed"
)

const (
	TransactionKindInitial = "initial"
	TransactionKindBalance = "balance"
)

/* ===================== Model ===================== */

// Transaction is an immutable ledger row. Corrections are new rows; nothing
// here is ever updated or soft-deleted, so there is no UpdatedAt/DeletedAt.
type Transaction struct {
	TransactionID uuid.UUID `gorm:"column:transaction_id;type:uuid;primaryKey" json:"transaction_id"`

	TransactionStudentID uuid.UUID `gorm:"column:transaction_student_id;type:uuid;not null;index" json:"transaction_student_id"`

	// Integer minor units, no fractional currency
	TransactionAmount int `gorm:"column:transaction_amount;not null;check:transaction_amount >= 0" json:"transaction_amount"`

	// initial | balance — derived from ledger history, never from the payload.
	// NULL for non-success rows.
	TransactionKind *string `gorm:"column:transaction_kind" json:"transaction_kind,omitempty"`

	// Provider-issued reference, the idempotency key. The unique index is the
	// concurrency control for duplicate webhook deliveries.
	TransactionProviderRef string `gorm:"column:transaction_provider_ref;not null;uniqueIndex" json:"transaction_provider_ref"`

	TransactionStatus string `gorm:"column:transaction_status;not null" json:"transaction_status"`

	CreatedAt time.Time `gorm:"column:transaction_created_at;autoCreateTime" json:"transaction_created_at"`
}

func (Transaction) TableName() string { return "transactions" }

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.TransactionID == uuid.Nil {
		t.TransactionID = uuid.New()
	}
	return nil
}

/* ===================== Helpers ===================== */

func (t *Transaction) IsSuccess() bool {
	return t.TransactionStatus == TransactionStatusSuccess
}

func (t *Transaction) IsInitial() bool {
	return t.TransactionKind != nil && *t.TransactionKind == TransactionKindInitial
}
