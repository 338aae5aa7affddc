// file: internals/features/payments/controller/audit_controller.go
package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	svc "tuitionpay_backend/internals/features/payments/service"
	studentService "tuitionpay_backend/internals/features/students/service"
	helper "tuitionpay_backend/internals/helpers"
)

type AuditController struct {
	DB *gorm.DB
}

func NewAuditController(db *gorm.DB) *AuditController {
	return &AuditController{DB: db}
}

// GET /payments/students/:id/audit
// Read-only reconciliation view: expected vs actual per installment.
func (h *AuditController) GetAudit(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "invalid student id")
	}

	res, err := svc.Audit(c.UserContext(), h.DB, id)
	if err != nil {
		if errors.Is(err, studentService.ErrStudentNotFound) {
			return helper.Error(c, fiber.StatusNotFound, "student not found")
		}
		if errors.Is(err, svc.ErrUnknownPlan) {
			return helper.Error(c, fiber.StatusUnprocessableEntity, "no pricing entry for student plan")
		}
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}

	return helper.Success(c, "audit", res)
}

// GET /payments/students/:id/transactions
// Full ledger listing for a student, newest first.
func (h *AuditController) ListTransactions(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "invalid student id")
	}

	if _, err := studentService.GetByID(c.UserContext(), h.DB, id); err != nil {
		if errors.Is(err, studentService.ErrStudentNotFound) {
			return helper.Error(c, fiber.StatusNotFound, "student not found")
		}
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}

	txs, err := svc.ListTransactions(c.UserContext(), h.DB, id)
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}

	return helper.Success(c, "transactions", txs)
}

// POST /payments/students/:id/recompute
// Exposed for the registration flow to force a re-derivation after manual
// verification steps. Idempotent.
func (h *AuditController) RecomputeStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "invalid student id")
	}

	status, err := svc.Recompute(c.UserContext(), h.DB, id)
	if err != nil {
		if errors.Is(err, studentService.ErrStudentNotFound) {
			return helper.Error(c, fiber.StatusNotFound, "student not found")
		}
		if errors.Is(err, svc.ErrUnknownPlan) {
			return helper.Error(c, fiber.StatusUnprocessableEntity, "no pricing entry for student plan")
		}
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}

	return helper.Success(c, "status recomputed", fiber.Map{"payment_status": status})
}
