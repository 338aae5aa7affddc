package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tuitionpay_backend/internals/features/payments/pricing"
	studentModel "tuitionpay_backend/internals/features/students/model"
	studentService "tuitionpay_backend/internals/features/students/service"
)

// ErrUnknownPlan flags a student whose duration has no pricing entry.
var ErrUnknownPlan = errors.New("no pricing entry for student plan duration")

// ResolveStatus is the pure tier function: success sum vs tuition.
func ResolveStatus(paidTotal, tuition int) string {
	switch {
	case paidTotal == 0:
		return studentModel.PaymentStatusNotPaid
	case paidTotal < tuition:
		return studentModel.PaymentStatusPartiallyPaid
	default:
		return studentModel.PaymentStatusFullyPaid
	}
}

// Recompute re-derives a student's payment status by replaying the ledger and
// writes the cached projection back onto the student row. It is the only
// writer of student_payment_status. Safe to run twice or concurrently: the
// status comes from a monotone aggregate sum, not incremental deltas, so
// re-evaluation always converges.
func Recompute(ctx context.Context, db *gorm.DB, studentID uuid.UUID) (string, error) {
	student, err := studentService.GetByID(ctx, db, studentID)
	if err != nil {
		return "", err
	}

	tuition, ok := pricing.Tuition(student.StudentDurationMonths)
	if !ok {
		return "", ErrUnknownPlan
	}

	paidTotal, err := PaidTotal(ctx, db, studentID)
	if err != nil {
		return "", err
	}

	status := ResolveStatus(paidTotal, tuition)
	if err := studentService.UpdateStatus(ctx, db, studentID, status); err != nil {
		return "", err
	}
	return status, nil
}
