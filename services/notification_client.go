// task-verify-system/services/notification_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"task-verify-system/utils"
)

// Notification event names emitted by the pipeline.
const (
	EventReviewAssigned     = "review_assigned"
	EventSubmissionApproved = "submission_approved"
	EventSubmissionRejected = "submission_rejected"
	EventRevisionRequested  = "revision_requested"
)

// NotificationGateway delivers best-effort user messaging. Errors are logged
// and swallowed at every call site; there is no delivery guarantee.
type NotificationGateway interface {
	Notify(ctx context.Context, userID, event string, payload map[string]interface{}) error
}

// NotificationServiceClient posts events to the notification service.
type NotificationServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewNotificationServiceClient(baseURL, token string) *NotificationServiceClient {
	return &NotificationServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  utils.HTTPClient,
	}
}

func (c *NotificationServiceClient) Notify(ctx context.Context, userID, event string, payload map[string]interface{}) error {
	reqBody := map[string]interface{}{
		"user_id": userID,
		"event":   event,
		"payload": payload,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/notify", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notification service returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// notify fires a best-effort notification and logs instead of propagating.
func notify(ctx context.Context, gw NotificationGateway, userID, event string, payload map[string]interface{}) {
	if gw == nil {
		return
	}
	if err := gw.Notify(ctx, userID, event, payload); err != nil {
		log.Printf("⚠️ notification %s for user %s failed: %v", event, userID, err)
	}
}
