// file: internals/features/payments/route/admin_route.go
package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	paymentController "tuitionpay_backend/internals/features/payments/controller"
)

/*
Admin routes: reconciliation reads + manual recompute.
Contoh mount: PaymentAdminRoutes(app.Group("/api/a"), db)
Final paths:
- GET  /api/a/payments/students/:id/audit
- GET  /api/a/payments/students/:id/transactions
- POST /api/a/payments/students/:id/recompute
*/
func PaymentAdminRoutes(r fiber.Router, db *gorm.DB) {
	ctl := paymentController.NewAuditController(db)

	students := r.Group("/payments/students")
	students.Get("/:id/audit", ctl.GetAudit)
	students.Get("/:id/transactions", ctl.ListTransactions)
	students.Post("/:id/recompute", ctl.RecomputeStatus)
}
