// task-verify-system/services/verification_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"task-verify-system/models"
)

// FeedbackResult is the generated revision guidance for a submission.
type FeedbackResult struct {
	Feedback            string   `json:"feedback"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areas_for_improvement"`
}

// VerificationGateway is the AI scoring + fraud heuristic collaborator. Any
// call may fail or time out; callers must degrade to manual review, never crash.
type VerificationGateway interface {
	Verify(ctx context.Context, sub *models.TaskSubmission, task *models.Task) (*models.VerificationOutcome, error)
	DetectFraud(ctx context.Context, sub *models.TaskSubmission, task *models.Task, recent []models.TaskSubmission) (*models.FraudAssessment, error)
	GenerateFeedback(ctx context.Context, sub *models.TaskSubmission, task *models.Task, result *models.VerificationOutcome) (*FeedbackResult, error)
}

// VerificationServiceClient calls the verification service over HTTP with a
// bounded timeout. A timeout is indistinguishable from an outage to callers.
type VerificationServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewVerificationServiceClient(baseURL, token string, timeout time.Duration) *VerificationServiceClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &VerificationServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *VerificationServiceClient) post(ctx context.Context, path string, payload, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, bytes.NewBuffer(jsonData))
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

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("VerificationService %s returned %d: %s", path, resp.StatusCode, string(body))
		return fmt.Errorf("verification service %s: status %d", path, resp.StatusCode)
	}

	return json.Unmarshal(body, out)
}

func (c *VerificationServiceClient) Verify(ctx context.Context, sub *models.TaskSubmission, task *models.Task) (*models.VerificationOutcome, error) {
	reqBody := map[string]interface{}{
		"submission_id":   sub.ID,
		"submission_text": sub.SubmissionText,
		"attachments":     sub.FileAttachments,
		"task_title":      task.Title,
		"task_category":   task.Category,
		"task_details":    task.Description,
	}
	var out models.VerificationOutcome
	if err := c.post(ctx, "/v1/verify", reqBody, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *VerificationServiceClient) DetectFraud(ctx context.Context, sub *models.TaskSubmission, task *models.Task, recent []models.TaskSubmission) (*models.FraudAssessment, error) {
	history := make([]map[string]interface{}, 0, len(recent))
	for _, h := range recent {
		history = append(history, map[string]interface{}{
			"submission_id": h.ID,
			"task_id":       h.TaskID,
			"status":        h.Status,
			"submitted_at":  h.SubmittedAt,
		})
	}
	reqBody := map[string]interface{}{
		"submission_id":   sub.ID,
		"submission_text": sub.SubmissionText,
		"task_id":         task.ID,
		"recent_history":  history,
	}
	var out models.FraudAssessment
	if err := c.post(ctx, "/v1/fraud", reqBody, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *VerificationServiceClient) GenerateFeedback(ctx context.Context, sub *models.TaskSubmission, task *models.Task, result *models.VerificationOutcome) (*FeedbackResult, error) {
	reqBody := map[string]interface{}{
		"submission_id":   sub.ID,
		"submission_text": sub.SubmissionText,
		"task_title":      task.Title,
		"score":           result.Score,
		"flagged_issues":  result.FlaggedIssues,
	}
	var out FeedbackResult
	if err := c.post(ctx, "/v1/feedback", reqBody, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
