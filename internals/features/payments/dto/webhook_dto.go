package dto

/* ===================== Webhook payload ===================== */
/* Provider-defined JSON shape:
   { "event": "...", "data": { "reference": "...", "amount": 123, "customer": { "email": "..." } } }
   Amount is integer minor units. Extra fields are ignored.
*/

const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

type WebhookCustomer struct {
	Email string `json:"email" validate:"required,email"`
}

type WebhookData struct {
	Reference string          `json:"reference" validate:"required"`
	Amount    int             `json:"amount"`
	Customer  WebhookCustomer `json:"customer" validate:"required"`
}

type WebhookNotification struct {
	Event string      `json:"event" validate:"required"`
	Data  WebhookData `json:"data" validate:"required"`
}
