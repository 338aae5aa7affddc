// file: internals/features/payments/controller/webhook_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	dto "tuitionpay_backend/internals/features/payments/dto"
	model "tuitionpay_backend/internals/features/payments/model"
	svc "tuitionpay_backend/internals/features/payments/service"
	studentModel "tuitionpay_backend/internals/features/students/model"
	studentService "tuitionpay_backend/internals/features/students/service"
	helper "tuitionpay_backend/internals/helpers"
)

/* =======================================================================
   Controller
======================================================================= */

type WebhookController struct {
	DB                *gorm.DB
	Validator         *validator.Validate
	ProviderSecretKey string
	SkipVerification  bool // development only — never in production
}

func NewWebhookController(db *gorm.DB, providerSecretKey string, skipVerification bool) *WebhookController {
	return &WebhookController{
		DB:                db,
		Validator:         validator.New(),
		ProviderSecretKey: providerSecretKey,
		SkipVerification:  skipVerification,
	}
}

/* =======================================================================
   Webhook provider
======================================================================= */

// POST /payments/webhook
//
// Response contract for the provider (at-least-once delivery):
//   - 200 acknowledged — including "already processed", malformed-drop and
//     no-op cases a retry can never fix
//   - 401 bad signature
//   - 404 unknown payer (data problem; provider should retry or alert)
//   - 500 transient persistence failure, safe to retry
func (h *WebhookController) HandleProviderWebhook(c *fiber.Ctx) error {
	// Raw bytes as received — signature verification is unsound on anything
	// re-serialized after parsing.
	raw := c.Body()
	sig := c.Get(svc.SignatureHeader)

	// 1) Verify origin
	if !h.SkipVerification {
		if !svc.VerifySignature(raw, sig, h.ProviderSecretKey) {
			log.Printf("[WEBHOOK] invalid signature (len=%d)", len(raw))
			return helper.Error(c, fiber.StatusUnauthorized, "invalid signature")
		}
	}

	// 2) Persist the raw delivery as received before any processing; the
	// outcome is written onto the same row when it is known.
	ev := h.openGatewayEvent(c, raw, sig)

	// 3) Parse + schema-validate. Malformed payloads are acked and dropped:
	// the provider cannot fix them by retrying.
	var notif dto.WebhookNotification
	if err := json.Unmarshal(raw, &notif); err != nil {
		log.Printf("[WEBHOOK] malformed payload dropped: %v", err)
		h.closeGatewayEvent(c, ev, nil, nil, model.GatewayEventStatusIgnored, "malformed payload: "+err.Error())
		return helper.Success(c, "acknowledged", fiber.Map{"accepted": false, "reason": "malformed payload"})
	}
	if err := h.Validator.Struct(&notif); err != nil {
		log.Printf("[WEBHOOK] schema-invalid payload dropped: %v", err)
		h.closeGatewayEvent(c, ev, &notif, nil, model.GatewayEventStatusIgnored, "schema validation: "+err.Error())
		return helper.Success(c, "acknowledged", fiber.Map{"accepted": false, "reason": "invalid payload"})
	}

	// 4) Dispatch by event type
	switch notif.Event {
	case dto.EventChargeSuccess, dto.EventChargeFailed:
		// handled below
	default:
		h.closeGatewayEvent(c, ev, &notif, nil, model.GatewayEventStatusIgnored, "")
		return helper.Success(c, "acknowledged", fiber.Map{"accepted": false, "reason": "unhandled event type"})
	}

	// 5) Resolve payer. Unknown payer is a data problem, not a duplicate —
	// 404 so the provider retries or alerts.
	student, err := studentService.FindByEmail(c.UserContext(), h.DB, notif.Data.Customer.Email)
	if err != nil {
		if errors.Is(err, studentService.ErrStudentNotFound) {
			h.closeGatewayEvent(c, ev, &notif, nil, model.GatewayEventStatusIgnored, "unknown payer")
			return helper.Error(c, fiber.StatusNotFound, "no student for payer email")
		}
		h.closeGatewayEvent(c, ev, &notif, nil, model.GatewayEventStatusFailed, "payer lookup: "+err.Error())
		return helper.Error(c, fiber.StatusInternalServerError, "payer lookup failed")
	}

	if notif.Event == dto.EventChargeFailed {
		return h.handleChargeFailed(c, ev, &notif, student)
	}
	return h.handleChargeSuccess(c, ev, &notif, student)
}

func (h *WebhookController) handleChargeSuccess(c *fiber.Ctx, ev *model.PaymentGatewayEvent, notif *dto.WebhookNotification, student *studentModel.Student) error {
	ctx := c.UserContext()

	result, err := svc.RecordSuccess(ctx, h.DB, student.StudentID, notif.Data.Amount, notif.Data.Reference)
	if err != nil {
		if errors.Is(err, svc.ErrInvalidAmount) || errors.Is(err, svc.ErrMissingReference) {
			// Invariant violation: reject before persistence, log loudly,
			// never coerce. A retry cannot fix the amount, so still ack.
			log.Printf("[WEBHOOK][INVARIANT] rejected success event ref=%q amount=%d: %v",
				notif.Data.Reference, notif.Data.Amount, err)
			h.closeGatewayEvent(c, ev, notif, &student.StudentID, model.GatewayEventStatusIgnored, err.Error())
			return helper.Success(c, "acknowledged", fiber.Map{"accepted": false, "reason": err.Error()})
		}
		// Transient persistence failure: 500 tells the provider to retry;
		// the reference unique index makes the retry harmless.
		h.closeGatewayEvent(c, ev, notif, &student.StudentID, model.GatewayEventStatusFailed, err.Error())
		return helper.Error(c, fiber.StatusInternalServerError, "ledger insert failed, safe to retry")
	}

	// Recompute runs on the duplicate path too: if an earlier delivery died
	// between insert and recompute, the provider's retry heals the cached
	// status. Recomputation is idempotent and ledger-side-effect-free.
	status, err := svc.Recompute(ctx, h.DB, student.StudentID)
	if err != nil {
		h.closeGatewayEvent(c, ev, notif, &student.StudentID, model.GatewayEventStatusFailed, "recompute: "+err.Error())
		return helper.Error(c, fiber.StatusInternalServerError, "status recompute failed, safe to retry")
	}

	if !result.Accepted {
		h.closeGatewayEvent(c, ev, notif, &student.StudentID, model.GatewayEventStatusProcessed, "duplicate reference")
		return helper.Success(c, "already processed", fiber.Map{
			"accepted":       false,
			"payment_status": status,
		})
	}

	// Fire-and-forget: collaborator failures never roll back the insert and
	// are never awaited in the acceptance path.
	svc.NotifyAsync(svc.NotificationPaymentRecorded, student.StudentID, notif.Data.Amount, notif.Data.Reference)
	if status == studentModel.PaymentStatusFullyPaid {
		svc.NotifyAsync(svc.NotificationFullyPaid, student.StudentID, notif.Data.Amount, notif.Data.Reference)
	}

	h.closeGatewayEvent(c, ev, notif, &student.StudentID, model.GatewayEventStatusProcessed, "")
	return helper.Success(c, "payment recorded", fiber.Map{
		"accepted":       true,
		"transaction":    result.Transaction,
		"payment_status": status,
	})
}

func (h *WebhookController) handleChargeFailed(c *fiber.Ctx, ev *model.PaymentGatewayEvent, notif *dto.WebhookNotification, student *studentModel.Student) error {
	// Audit trail only: a failed charge for an unseen reference gets a failed
	// row; a known reference is a no-op. Never touches payment status.
	amount := notif.Data.Amount
	if amount < 0 {
		log.Printf("[WEBHOOK][INVARIANT] negative amount on charge.failed ref=%q: %d", notif.Data.Reference, amount)
		h.closeGatewayEvent(c, ev, notif, &student.StudentID, model.GatewayEventStatusIgnored, "negative amount")
		return helper.Success(c, "acknowledged", fiber.Map{"accepted": false, "reason": "negative amount"})
	}

	result, err := svc.RecordFailure(c.UserContext(), h.DB, student.StudentID, amount, notif.Data.Reference)
	if err != nil {
		h.closeGatewayEvent(c, ev, notif, &student.StudentID, model.GatewayEventStatusFailed, err.Error())
		return helper.Error(c, fiber.StatusInternalServerError, "ledger insert failed, safe to retry")
	}

	h.closeGatewayEvent(c, ev, notif, &student.StudentID, model.GatewayEventStatusProcessed, "")
	return helper.Success(c, "acknowledged", fiber.Map{"accepted": result.Accepted})
}

/* =======================================================================
   Helpers: webhook
======================================================================= */

// openGatewayEvent persists the raw delivery as received, before the payload
// is even parsed. Best-effort: a logging failure must never change the
// webhook outcome, so a nil return just disables the outcome write.
func (h *WebhookController) openGatewayEvent(c *fiber.Ctx, raw []byte, sig string) *model.PaymentGatewayEvent {
	headers := map[string]string{}
	for k, v := range c.GetReqHeaders() { // v: []string
		headers[k] = strings.Join(v, ",")
	}
	headersJSON, _ := json.Marshal(headers)

	// Keep the payload column valid JSON even when the body was not.
	payload := raw
	if !json.Valid(raw) {
		payload, _ = json.Marshal(fiber.Map{"raw": string(raw)})
	}

	ev := model.PaymentGatewayEvent{
		GatewayEventHeaders:   datatypes.JSON(headersJSON),
		GatewayEventPayload:   datatypes.JSON(payload),
		GatewayEventSignature: strPtr(sig),
		GatewayEventStatus:    model.GatewayEventStatusReceived,
	}
	if err := h.DB.WithContext(c.UserContext()).Create(&ev).Error; err != nil {
		log.Printf("[WEBHOOK] gateway event log failed: %v", err)
		return nil
	}
	return &ev
}

// closeGatewayEvent writes the processing outcome onto the received row. A
// row that stays received marks a delivery whose outcome was never recorded.
func (h *WebhookController) closeGatewayEvent(c *fiber.Ctx, ev *model.PaymentGatewayEvent, notif *dto.WebhookNotification, studentID *uuid.UUID, status, errMsg string) {
	if ev == nil {
		return
	}
	ev.GatewayEventStudentID = studentID
	ev.GatewayEventStatus = status
	ev.GatewayEventError = strPtr(errMsg)
	if notif != nil {
		ev.GatewayEventType = strPtr(notif.Event)
		ev.GatewayEventProviderRef = strPtr(notif.Data.Reference)
	}
	if err := h.DB.WithContext(c.UserContext()).Save(ev).Error; err != nil {
		log.Printf("[WEBHOOK] gateway event update failed: %v", err)
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
