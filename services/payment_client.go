// task-verify-system/services/payment_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"task-verify-system/models"
)

// PaymentGateway forwards a pending ledger payout to the payment provider.
type PaymentGateway interface {
	ProcessPayout(ctx context.Context, dist *models.RewardDistribution) error
}

// PaymentServiceClient calls the payout service for ledger rows carrying a
// payment amount. Used only by the pending-payment sweep.
type PaymentServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewPaymentServiceClient(baseURL, token string) *PaymentServiceClient {
	return &PaymentServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *PaymentServiceClient) ProcessPayout(ctx context.Context, dist *models.RewardDistribution) error {
	if dist.PaymentAmount == nil {
		return fmt.Errorf("distribution %s has no payment amount", dist.ID)
	}

	reqBody := map[string]interface{}{
		"distribution_id": dist.ID,
		"user_id":         dist.UserID,
		"amount":          *dist.PaymentAmount,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/payouts", bytes.NewBuffer(jsonData))
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

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("payment service returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
