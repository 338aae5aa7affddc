package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tuitionpay_backend/internals/configs"
)

const (
	NotificationPaymentRecorded = "payment.recorded"
	NotificationFullyPaid       = "payment.fully_paid"
)

var notifierClient = &http.Client{Timeout: 3 * time.Second}

// NotifyAsync emits a fire-and-forget event to the notification collaborator.
// It runs off the webhook's critical path: a slow or failing collaborator
// must never delay the provider's response or roll back the ledger insert.
func NotifyAsync(event string, studentID uuid.UUID, amount int, providerRef string) {
	url := configs.NotifierURL
	if url == "" {
		return
	}

	go func() {
		body, _ := json.Marshal(map[string]interface{}{
			"event":      event,
			"student_id": studentID,
			"amount":     amount,
			"reference":  providerRef,
			"sent_at":    time.Now().UTC(),
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			log.Printf("[NOTIFY] build request failed: %v", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := notifierClient.Do(req)
		if err != nil {
			log.Printf("[NOTIFY] %s delivery failed: %v", event, err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			log.Printf("[NOTIFY] %s delivery got status %d", event, resp.StatusCode)
		}
	}()
}
