package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ml4e-club/ml4e-site-backend/config"
	"github.com/ml4e-club/ml4e-site-backend/errs"
)

const resendEndpoint = "https://api.resend.com/emails"

// Submission describes a record that was just created through a form.
type Submission struct {
	Entity string // "achievement", "project", ...
	Title  string
	ID     string
}

// Notifier tells the club admins about new submissions.
type Notifier interface {
	NotifySubmission(ctx context.Context, submission Submission) error
}

// ResendEmailRequest represents the request payload for Resend API
type ResendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Html    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// ResendEmailResponse represents the response from Resend API
type ResendEmailResponse struct {
	ID string `json:"id"`
}

// ResendErrorResponse represents an error response from Resend API
type ResendErrorResponse struct {
	Message string `json:"message"`
}

// NewNotifier returns a Resend notifier when RESEND_API_KEY, RESEND_FROM_EMAIL
// and NOTIFY_EMAILS are all set, and a no-op notifier otherwise.
func NewNotifier(cfg map[string]string) Notifier {
	apiKey := config.GetString(cfg, "RESEND_API_KEY", "")
	from := config.GetString(cfg, "RESEND_FROM_EMAIL", "")
	recipients := config.GetList(cfg, "NOTIFY_EMAILS")

	if apiKey == "" || from == "" || len(recipients) == 0 {
		log.Info().Msg("Submission e-mails disabled")
		return noopNotifier{}
	}

	return &ResendNotifier{
		endpoint:   resendEndpoint,
		apiKey:     apiKey,
		from:       from,
		recipients: recipients,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type ResendNotifier struct {
	endpoint   string
	apiKey     string
	from       string
	recipients []string
	client     *http.Client
}

func (n *ResendNotifier) NotifySubmission(ctx context.Context, submission Submission) error {
	payload := ResendEmailRequest{
		From:    n.from,
		To:      n.recipients,
		Subject: fmt.Sprintf("New %s submitted: %s", submission.Entity, submission.Title),
		Html: fmt.Sprintf("<p>A new %s was submitted on the ML4E site.</p><p><b>%s</b> (id %s)</p>",
			html.EscapeString(submission.Entity), html.EscapeString(submission.Title), html.EscapeString(submission.ID)),
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create Resend API request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return errs.NewNotificationError("resend", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Resend API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ResendErrorResponse
		if err := json.Unmarshal(bodyBytes, &errorResp); err == nil && errorResp.Message != "" {
			return errs.NewNotificationError("resend", fmt.Errorf("status %d: %s", resp.StatusCode, errorResp.Message))
		}
		return errs.NewNotificationError("resend", fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes)))
	}

	var emailResponse ResendEmailResponse
	if err := json.Unmarshal(bodyBytes, &emailResponse); err != nil {
		log.Warn().Err(err).Msg("Failed to parse Resend email response, but email was sent")
	} else {
		log.Info().Str("emailId", emailResponse.ID).Str("entity", submission.Entity).Msg("Sent submission e-mail")
	}

	return nil
}

type noopNotifier struct{}

func (noopNotifier) NotifySubmission(context.Context, Submission) error {
	return nil
}
