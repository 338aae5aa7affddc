package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tuitionpay_backend/internals/configs"
	paymentModel "tuitionpay_backend/internals/features/payments/model"
	studentModel "tuitionpay_backend/internals/features/students/model"
)

var DB *gorm.DB

func ConnectDB() {
	log.Println("connecting to PostgreSQL...")

	// Catatan: kalau pakai PgBouncer, arahkan host/port ke PgBouncer dan
	// biarkan PreferSimpleProtocol=true
	sslmode := getenv("DB_SSLMODE", "require")
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&application_name=tuitionpay&options=-c statement_timeout=3000",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_NAME"),
		sslmode,
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: configs.NewGormLogger(),
		// unique violations must surface as gorm.ErrDuplicatedKey — the ledger
		// relies on the constraint, not on a read-then-write check
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	DB = db
	log.Println("DB connected.")
}

func TunePool() {
	sqlDB, err := DB.DB()
	if err != nil {
		log.Printf("pool tune err: %v", err)
		return
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
}

// Migrate creates the payment-core tables. The unique index on the provider
// reference is part of the idempotency contract, so this must run before the
// webhook route is mounted.
func Migrate() {
	if err := DB.AutoMigrate(
		&studentModel.Student{},
		&paymentModel.Transaction{},
		&paymentModel.PaymentGatewayEvent{},
	); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	// AutoMigrate cannot express a partial index. At most one success row per
	// student carries the initial kind; under READ COMMITTED two concurrent
	// distinct payments can both read a prior sum of zero, so the slot is
	// guarded by the index, not by the read.
	if err := DB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uq_transactions_initial_success
		ON transactions (transaction_student_id)
		WHERE transaction_status = 'success' AND transaction_kind = 'initial'`).Error; err != nil {
		log.Fatalf("migrate initial index failed: %v", err)
	}
}

func WarmUpQueries() {
	go func() {
		time.Sleep(500 * time.Millisecond)
		if err := ping(); err != nil {
			log.Printf("warm-up ping err: %v", err)
		}
	}()
}

func ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
