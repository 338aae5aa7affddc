package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gorm.io/gorm"

	model "tuitionpay_backend/internals/features/payments/model"
)

func TestRecordSuccessIdempotent(t *testing.T) {
	db := newTestDB(t)
	student := newTestStudent(t, db, "payer@example.com", 8)
	ctx := context.Background()

	accepted := 0
	for i := 0; i < 3; i++ {
		res, err := RecordSuccess(ctx, db, student.StudentID, 480_000, "REF-1")
		if err != nil {
			t.Fatalf("record success attempt %d: %v", i, err)
		}
		if res.Accepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("expected exactly one accepted insert, got %d", accepted)
	}

	var count int64
	if err := db.Model(&model.Transaction{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 ledger row, got %d", count)
	}

	total, err := PaidTotal(ctx, db, student.StudentID)
	if err != nil {
		t.Fatalf("paid total: %v", err)
	}
	if total != 480_000 {
		t.Fatalf("expected paid total 480000, got %d", total)
	}
}

func TestRecordSuccessClassification(t *testing.T) {
	db := newTestDB(t)
	student := newTestStudent(t, db, "payer@example.com", 8)
	ctx := context.Background()

	first, err := RecordSuccess(ctx, db, student.StudentID, 100, "REF-1")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if !first.Transaction.IsInitial() {
		t.Fatalf("expected first success to classify initial, got %v", first.Transaction.TransactionKind)
	}

	// classification depends on ledger history, not amount — a larger second
	// payment is still the balance installment
	second, err := RecordSuccess(ctx, db, student.StudentID, 700_000, "REF-2")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.Transaction.TransactionKind == nil || *second.Transaction.TransactionKind != model.TransactionKindBalance {
		t.Fatalf("expected second success to classify balance, got %v", second.Transaction.TransactionKind)
	}
}

func TestRecordSuccessRejectsNonPositiveAmount(t *testing.T) {
	db := newTestDB(t)
	student := newTestStudent(t, db, "payer@example.com", 8)
	ctx := context.Background()

	tests := []struct {
		name   string
		amount int
	}{
		{name: "zero", amount: 0},
		{name: "negative", amount: -480_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RecordSuccess(ctx, db, student.StudentID, tt.amount, "REF-BAD")
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("expected ErrInvalidAmount, got %v", err)
			}
		})
	}

	var count int64
	db.Model(&model.Transaction{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected nothing persisted, got %d rows", count)
	}
}

func TestRecordSuccessRejectsEmptyReference(t *testing.T) {
	db := newTestDB(t)
	student := newTestStudent(t, db, "payer@example.com", 8)

	_, err := RecordSuccess(context.Background(), db, student.StudentID, 100, "   ")
	if !errors.Is(err, ErrMissingReference) {
		t.Fatalf("expected ErrMissingReference, got %v", err)
	}
}

func TestRecordFailureAuditTrail(t *testing.T) {
	db := newTestDB(t)
	student := newTestStudent(t, db, "payer@example.com", 8)
	ctx := context.Background()

	res, err := RecordFailure(ctx, db, student.StudentID, 480_000, "REF-FAIL")
	if err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if !res.Accepted {
		t.Fatal("expected failed row to be recorded for unseen reference")
	}
	if res.Transaction.TransactionStatus != model.TransactionStatusFailed {
		t.Fatalf("expected failed status, got %s", res.Transaction.TransactionStatus)
	}
	if res.Transaction.TransactionKind != nil {
		t.Fatalf("expected no installment kind on failed row, got %v", *res.Transaction.TransactionKind)
	}

	// same reference again: no-op
	res, err = RecordFailure(ctx, db, student.StudentID, 480_000, "REF-FAIL")
	if err != nil {
		t.Fatalf("duplicate failure: %v", err)
	}
	if res.Accepted {
		t.Fatal("expected duplicate failed reference to be a no-op")
	}

	// failed rows never count toward the paid total
	total, err := PaidTotal(ctx, db, student.StudentID)
	if err != nil {
		t.Fatalf("paid total: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected paid total 0, got %d", total)
	}
}

func TestRecordSuccessConcurrentDuplicate(t *testing.T) {
	db := newTestDB(t)
	student := newTestStudent(t, db, "payer@example.com", 8)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]RecordResult, 2)
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = RecordSuccess(ctx, db, student.StudentID, 480_000, "REF-RACE")
		}(i)
	}
	wg.Wait()

	acceptedCount := 0
	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("concurrent insert %d errored: %v", i, errs[i])
		}
		if results[i].Accepted {
			acceptedCount++
		}
	}
	if acceptedCount != 1 {
		t.Fatalf("expected exactly one winner, got %d", acceptedCount)
	}

	total, err := PaidTotal(ctx, db, student.StudentID)
	if err != nil {
		t.Fatalf("paid total: %v", err)
	}
	if total != 480_000 {
		t.Fatalf("expected no lost update, paid total 480000, got %d", total)
	}
}

func TestSecondInitialRowRejectedByStorage(t *testing.T) {
	db := newTestDB(t)
	student := newTestStudent(t, db, "payer@example.com", 8)
	ctx := context.Background()

	if _, err := RecordSuccess(ctx, db, student.StudentID, 480_000, "REF-1"); err != nil {
		t.Fatalf("seed initial: %v", err)
	}

	// the partial unique index holds even when a writer bypasses the
	// classification read and inserts initial directly
	kind := model.TransactionKindInitial
	second := model.Transaction{
		TransactionStudentID:   student.StudentID,
		TransactionAmount:      320_000,
		TransactionKind:        &kind,
		TransactionProviderRef: "REF-2",
		TransactionStatus:      model.TransactionStatusSuccess,
	}
	if err := db.Create(&second).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicate key on second initial row, got %v", err)
	}

	var initials int64
	if err := db.Model(&model.Transaction{}).
		Where("transaction_student_id = ? AND transaction_status = ? AND transaction_kind = ?",
			student.StudentID, model.TransactionStatusSuccess, model.TransactionKindInitial).
		Count(&initials).Error; err != nil {
		t.Fatalf("count initials: %v", err)
	}
	if initials != 1 {
		t.Fatalf("expected exactly one initial row, got %d", initials)
	}
}

func TestRecordSuccessReclassifiesWhenInitialSlotTaken(t *testing.T) {
	db := newTestDB(t)
	student := newTestStudent(t, db, "payer@example.com", 8)
	ctx := context.Background()

	// Two distinct payments can overlap so that both read a prior success sum
	// of zero before either commits; the loser then hits the initial-slot
	// index. Pin that exact state: the slot is held while the sum read still
	// comes back zero.
	kind := model.TransactionKindInitial
	winner := model.Transaction{
		TransactionStudentID:   student.StudentID,
		TransactionAmount:      0,
		TransactionKind:        &kind,
		TransactionProviderRef: "REF-WINNER",
		TransactionStatus:      model.TransactionStatusSuccess,
	}
	if err := db.Create(&winner).Error; err != nil {
		t.Fatalf("seed competing initial: %v", err)
	}

	res, err := RecordSuccess(ctx, db, student.StudentID, 480_000, "REF-LOSER")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !res.Accepted {
		t.Fatal("distinct reference must be accepted, not reported as already processed")
	}
	if res.Transaction.TransactionKind == nil || *res.Transaction.TransactionKind != model.TransactionKindBalance {
		t.Fatalf("expected loser reclassified as balance, got %v", res.Transaction.TransactionKind)
	}

	var initials int64
	if err := db.Model(&model.Transaction{}).
		Where("transaction_student_id = ? AND transaction_status = ? AND transaction_kind = ?",
			student.StudentID, model.TransactionStatusSuccess, model.TransactionKindInitial).
		Count(&initials).Error; err != nil {
		t.Fatalf("count initials: %v", err)
	}
	if initials != 1 {
		t.Fatalf("expected exactly one initial row after the race, got %d", initials)
	}
}

func TestListTransactionsOrder(t *testing.T) {
	db := newTestDB(t)
	student := newTestStudent(t, db, "payer@example.com", 8)
	ctx := context.Background()

	if _, err := RecordSuccess(ctx, db, student.StudentID, 480_000, "REF-1"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := RecordFailure(ctx, db, student.StudentID, 320_000, "REF-2"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	txs, err := ListTransactions(ctx, db, student.StudentID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(txs))
	}
}
