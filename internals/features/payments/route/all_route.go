// file: internals/features/payments/route/all_route.go
package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"tuitionpay_backend/internals/configs"
	paymentController "tuitionpay_backend/internals/features/payments/controller"
)

// PaymentWebhookRoutes mounts the provider-facing ingestion endpoint.
// Base path di caller: /api/n
func PaymentWebhookRoutes(r fiber.Router, db *gorm.DB) {
	h := paymentController.NewWebhookController(db, configs.ProviderSecretKey, configs.IsDevelopment())

	payments := r.Group("/payments")
	payments.Post("/webhook", h.HandleProviderWebhook) // POST /api/n/payments/webhook
}
