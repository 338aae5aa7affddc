package service

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	model "tuitionpay_backend/internals/features/payments/model"
	studentModel "tuitionpay_backend/internals/features/students/model"
)

// newTestDB opens an in-memory database with the same error translation the
// production connector uses, so unique violations surface as
// gorm.ErrDuplicatedKey here too. Single connection: sqlite serializes
// writers and concurrent tests must not trip over a locked database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&studentModel.Student{},
		&model.Transaction{},
		&model.PaymentGatewayEvent{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	// same partial index the production migration creates; sqlite understands
	// the identical syntax
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uq_transactions_initial_success
		ON transactions (transaction_student_id)
		WHERE transaction_status = 'success' AND transaction_kind = 'initial'`).Error; err != nil {
		t.Fatalf("create initial index: %v", err)
	}

	return db
}

func newTestStudent(t *testing.T, db *gorm.DB, email string, durationMonths int) *studentModel.Student {
	t.Helper()

	s := studentModel.Student{
		StudentFullName:       "Test Student",
		StudentEmail:          email,
		StudentDurationMonths: durationMonths,
	}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("create test student: %v", err)
	}
	return &s
}
