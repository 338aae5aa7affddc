package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* ===================== Enums (string) ===================== */
/* Selaras dengan ENUM di PostgreSQL: student_payment_status */

const (
	PaymentStatusNotPaid       = "not_paid"
	PaymentStatusPartiallyPaid = "partially_paid"
	PaymentStatusFullyPaid     = "fully_paid"
)

/* ===================== Model ===================== */

type Student struct {
	StudentID uuid.UUID `gorm:"column:student_id;type:uuid;primaryKey" json:"student_id"`

	StudentFullName string `gorm:"column:student_full_name;not null" json:"student_full_name"`
	StudentEmail    string `gorm:"column:student_email;not null;uniqueIndex" json:"student_email"`

	// Plan duration in months (4/8/12) — maps to a fixed tuition via the pricing table
	StudentDurationMonths int `gorm:"column:student_duration_months;not null" json:"student_duration_months"`

	// Cached projection of the ledger; written only by the status resolver
	StudentPaymentStatus string `gorm:"column:student_payment_status;not null;default:'not_paid'" json:"student_payment_status"`

	CreatedAt time.Time `gorm:"column:student_created_at;autoCreateTime" json:"student_created_at"`
	UpdatedAt time.Time `gorm:"column:student_updated_at;autoUpdateTime" json:"student_updated_at"`
}

func (Student) TableName() string { return "students" }

func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.StudentID == uuid.Nil {
		s.StudentID = uuid.New()
	}
	if s.StudentPaymentStatus == "" {
		s.StudentPaymentStatus = PaymentStatusNotPaid
	}
	return nil
}

/* ===================== Helpers ===================== */

func (s *Student) IsFullyPaid() bool {
	return s.StudentPaymentStatus == PaymentStatusFullyPaid
}
