package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	model "tuitionpay_backend/internals/features/students/model"
)

// ErrStudentNotFound is returned when no student matches the lookup.
var ErrStudentNotFound = errors.New("student not found")

// FindByEmail resolves the payer of an inbound webhook. Emails are stored
// lowercase; the provider echoes whatever casing the payer typed.
func FindByEmail(ctx context.Context, db *gorm.DB, email string) (*model.Student, error) {
	var s model.Student
	err := db.WithContext(ctx).
		Where("LOWER(student_email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return &s, nil
}

func GetByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*model.Student, error) {
	var s model.Student
	err := db.WithContext(ctx).
		Where("student_id = ?", id).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return &s, nil
}

// UpdateStatus writes the cached payment-status projection. Only the status
// resolver calls this; every other path treats the column as read-only.
func UpdateStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, status string) error {
	res := db.WithContext(ctx).
		Model(&model.Student{}).
		Where("student_id = ?", id).
		Update("student_payment_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStudentNotFound
	}
	return nil
}
