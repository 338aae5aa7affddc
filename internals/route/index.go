// file: internals/route/index.go
package routes

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	paymentRoute "tuitionpay_backend/internals/features/payments/route"
	middlewares "tuitionpay_backend/internals/middlewares"
)

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// ===================== NOTIFICATION (provider-facing) =====================
	// The webhook group gets its own limiter tuned for provider retry storms.
	log.Println("[INFO] Setting up NOTIFICATION group...")
	notification := app.Group("/api/n", middlewares.WebhookRateLimiter())
	paymentRoute.PaymentWebhookRoutes(notification, db)

	// ===================== ADMIN =====================
	// Admin authentication lives in front of this service (gateway); this
	// core only serves the reconciliation reads.
	log.Println("[INFO] Setting up ADMIN group...")
	admin := app.Group("/api/a")
	paymentRoute.PaymentAdminRoutes(admin, db)
}
