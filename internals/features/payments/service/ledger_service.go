package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	model "tuitionpay_backend/internals/features/payments/model"
)

var (
	// ErrInvalidAmount flags a zero/negative success amount. Rejected before
	// persistence and never coerced.
	ErrInvalidAmount = errors.New("transaction amount must be positive")

	// ErrMissingReference flags an empty provider reference.
	ErrMissingReference = errors.New("provider reference is required")
)

// RecordResult is the outcome of an idempotent ledger insert.
type RecordResult struct {
	// Accepted is false when the reference was already in the ledger — an
	// expected no-op under at-least-once delivery, not an error.
	Accepted    bool
	Transaction *model.Transaction
}

// RecordSuccess appends a success transaction under the idempotency contract.
// Two unique indexes are the concurrency control, enforced by the storage
// layer rather than read-then-write checks:
//
//   - transaction_provider_ref: concurrent deliveries of the same event race
//     on the insert, exactly one wins, the loser observes the violation and
//     reports already-processed;
//   - the partial index on (student_id) over success+initial rows: two
//     concurrent *distinct* payments that both read a prior sum of zero race
//     for the initial slot, exactly one wins, the loser reclassifies its
//     payment as balance and retries.
//
// Classification (initial vs balance) is read from ledger history inside the
// same DB transaction as the insert.
func RecordSuccess(ctx context.Context, db *gorm.DB, studentID uuid.UUID, amount int, providerRef string) (RecordResult, error) {
	if amount <= 0 {
		return RecordResult{}, ErrInvalidAmount
	}
	if strings.TrimSpace(providerRef) == "" {
		return RecordResult{}, ErrMissingReference
	}

	var lastErr error
	forceBalance := false
	for attempt := 0; attempt < 2; attempt++ {
		var tx model.Transaction
		err := db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
			prior, err := sumSuccess(dbtx, studentID)
			if err != nil {
				return err
			}

			kind := model.TransactionKindInitial
			if prior > 0 || forceBalance {
				kind = model.TransactionKindBalance
			}

			tx = model.Transaction{
				TransactionStudentID:   studentID,
				TransactionAmount:      amount,
				TransactionKind:        &kind,
				TransactionProviderRef: strings.TrimSpace(providerRef),
				TransactionStatus:      model.TransactionStatusSuccess,
			}
			return dbtx.Create(&tx).Error
		})
		if err == nil {
			return RecordResult{Accepted: true, Transaction: &tx}, nil
		}
		if !isDuplicateErr(err) {
			return RecordResult{}, err
		}

		// Which constraint fired? A known reference is the idempotent no-op;
		// an unknown one means we lost the initial-slot race to a different
		// payment and this one is the balance installment.
		seen, cerr := referenceSeen(ctx, db, providerRef)
		if cerr != nil {
			return RecordResult{}, cerr
		}
		if seen {
			return RecordResult{Accepted: false}, nil
		}
		forceBalance = true
		lastErr = err
	}
	return RecordResult{}, lastErr
}

// RecordFailure keeps an audit trail of failed charges. Inserts only when the
// reference has never been seen; it never touches payment status.
func RecordFailure(ctx context.Context, db *gorm.DB, studentID uuid.UUID, amount int, providerRef string) (RecordResult, error) {
	if amount < 0 {
		return RecordResult{}, ErrInvalidAmount
	}
	if strings.TrimSpace(providerRef) == "" {
		return RecordResult{}, ErrMissingReference
	}

	tx := model.Transaction{
		TransactionStudentID:   studentID,
		TransactionAmount:      amount,
		TransactionProviderRef: strings.TrimSpace(providerRef),
		TransactionStatus:      model.TransactionStatusFailed,
	}
	if err := db.WithContext(ctx).Create(&tx).Error; err != nil {
		if isDuplicateErr(err) {
			return RecordResult{Accepted: false}, nil
		}
		return RecordResult{}, err
	}
	return RecordResult{Accepted: true, Transaction: &tx}, nil
}

// PaidTotal sums the success amounts for a student.
func PaidTotal(ctx context.Context, db *gorm.DB, studentID uuid.UUID) (int, error) {
	return sumSuccess(db.WithContext(ctx), studentID)
}

// ListTransactions returns the full ledger for a student, newest first.
func ListTransactions(ctx context.Context, db *gorm.DB, studentID uuid.UUID) ([]model.Transaction, error) {
	var txs []model.Transaction
	err := db.WithContext(ctx).
		Where("transaction_student_id = ?", studentID).
		Order("transaction_created_at DESC").
		Find(&txs).Error
	return txs, err
}

func sumSuccess(db *gorm.DB, studentID uuid.UUID) (int, error) {
	var total int64
	err := db.Model(&model.Transaction{}).
		Where("transaction_student_id = ? AND transaction_status = ?", studentID, model.TransactionStatusSuccess).
		Select("COALESCE(SUM(transaction_amount), 0)").
		Scan(&total).Error
	return int(total), err
}

func referenceSeen(ctx context.Context, db *gorm.DB, providerRef string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&model.Transaction{}).
		Where("transaction_provider_ref = ?", strings.TrimSpace(providerRef)).
		Count(&n).Error
	return n > 0, err
}

func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	lc := strings.ToLower(err.Error())
	return strings.Contains(lc, "duplicate") || strings.Contains(lc, "unique constraint")
}
