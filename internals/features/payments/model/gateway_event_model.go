package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/*
  payment_gateway_events = LOG WEBHOOK / CALLBACK PAYMENT PROVIDER
  - Bisa banyak row per reference (tiap delivery, termasuk duplikat)
  - Nyimpen raw headers, payload, signature, status processing.
*/

const (
	GatewayEventStatusReceived  = "received"
	GatewayEventStatusProcessed = "processed"
	GatewayEventStatusIgnored   = "ignored"
	GatewayEventStatusFailed    = "failed"
)

type PaymentGatewayEvent struct {
	GatewayEventID uuid.UUID `gorm:"column:gateway_event_id;type:uuid;primaryKey" json:"gateway_event_id"`

	GatewayEventStudentID *uuid.UUID `gorm:"column:gateway_event_student_id;type:uuid" json:"gateway_event_student_id,omitempty"`

	GatewayEventType        *string `gorm:"column:gateway_event_type" json:"gateway_event_type,omitempty"`
	GatewayEventProviderRef *string `gorm:"column:gateway_event_provider_ref;index" json:"gateway_event_provider_ref,omitempty"`

	// Raw data (buat debug / replay)
	GatewayEventHeaders   datatypes.JSON `gorm:"column:gateway_event_headers" json:"gateway_event_headers,omitempty"`
	GatewayEventPayload   datatypes.JSON `gorm:"column:gateway_event_payload" json:"gateway_event_payload,omitempty"`
	GatewayEventSignature *string        `gorm:"column:gateway_event_signature" json:"gateway_event_signature,omitempty"`

	GatewayEventStatus string  `gorm:"column:gateway_event_status;not null;default:'received'" json:"gateway_event_status"`
	GatewayEventError  *string `gorm:"column:gateway_event_error" json:"gateway_event_error,omitempty"`

	GatewayEventReceivedAt time.Time `gorm:"column:gateway_event_received_at;autoCreateTime" json:"gateway_event_received_at"`
}

func (PaymentGatewayEvent) TableName() string { return "payment_gateway_events" }

func (e *PaymentGatewayEvent) BeforeCreate(tx *gorm.DB) error {
	if e.GatewayEventID == uuid.Nil {
		e.GatewayEventID = uuid.New()
	}
	return nil
}
