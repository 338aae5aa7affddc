package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	model "tuitionpay_backend/internals/features/payments/model"
	"tuitionpay_backend/internals/features/payments/pricing"
	studentService "tuitionpay_backend/internals/features/students/service"
)

// AuditResult pairs each expected installment share against the success
// transaction that (maybe) settled it. Read-only projection — building it
// never mutates the ledger or the student.
type AuditResult struct {
	StudentID       uuid.UUID          `json:"student_id"`
	Tuition         int                `json:"tuition"`
	ExpectedInitial int                `json:"expected_initial"`
	ExpectedBalance int                `json:"expected_balance"`
	Initial         *model.Transaction `json:"initial"`
	Balance         *model.Transaction `json:"balance"`
	PaidTotal       int                `json:"paid_total"`
	Status          string             `json:"payment_status"`
	Snapshot        string             `json:"snapshot"`
}

// Audit joins the student, the pricing table, and the ledger into the
// expected-vs-actual reconciliation view.
func Audit(ctx context.Context, db *gorm.DB, studentID uuid.UUID) (*AuditResult, error) {
	student, err := studentService.GetByID(ctx, db, studentID)
	if err != nil {
		return nil, err
	}

	tuition, ok := pricing.Tuition(student.StudentDurationMonths)
	if !ok {
		return nil, ErrUnknownPlan
	}
	expectedInitial, expectedBalance := pricing.Split(tuition)

	initial, err := successByKind(ctx, db, studentID, model.TransactionKindInitial)
	if err != nil {
		return nil, err
	}
	balance, err := successByKind(ctx, db, studentID, model.TransactionKindBalance)
	if err != nil {
		return nil, err
	}

	paidTotal, err := PaidTotal(ctx, db, studentID)
	if err != nil {
		return nil, err
	}

	res := &AuditResult{
		StudentID:       studentID,
		Tuition:         tuition,
		ExpectedInitial: expectedInitial,
		ExpectedBalance: expectedBalance,
		Initial:         initial,
		Balance:         balance,
		PaidTotal:       paidTotal,
		Status:          ResolveStatus(paidTotal, tuition),
	}
	res.Snapshot = snapshotLine(res)
	return res, nil
}

// successByKind pulls the at-most-one success transaction of a given kind.
func successByKind(ctx context.Context, db *gorm.DB, studentID uuid.UUID, kind string) (*model.Transaction, error) {
	var tx model.Transaction
	err := db.WithContext(ctx).
		Where("transaction_student_id = ? AND transaction_status = ? AND transaction_kind = ?",
			studentID, model.TransactionStatusSuccess, kind).
		Order("transaction_created_at ASC").
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func snapshotLine(r *AuditResult) string {
	switch {
	case r.PaidTotal == 0:
		return fmt.Sprintf("no payments received; initial installment of %d outstanding", r.ExpectedInitial)
	case r.PaidTotal > r.Tuition:
		return fmt.Sprintf("fully paid; overpaid by %d", r.PaidTotal-r.Tuition)
	case r.PaidTotal >= r.Tuition:
		return "fully paid"
	case r.Initial != nil:
		return fmt.Sprintf("initial installment settled; balance of %d outstanding", r.Tuition-r.PaidTotal)
	default:
		return fmt.Sprintf("partial payment of %d recorded; %d outstanding", r.PaidTotal, r.Tuition-r.PaidTotal)
	}
}
