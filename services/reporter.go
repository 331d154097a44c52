// services/reporter.go
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
)

// Reporter consumes the aggregated run report exactly once, after the last
// account has an outcome. Delivery formatting beyond a plain summary is the
// notification side's concern, not this service's.
type Reporter interface {
	Publish(ctx context.Context, report *RunReport) error
}

// LogReporter writes the report to the service log. Default when no webhook
// is configured.
type LogReporter struct{}

func (LogReporter) Publish(_ context.Context, report *RunReport) error {
	for _, out := range report.Outcomes {
		line := fmt.Sprintf("[REPORT] %s / %s (%s): %s", out.GameDisplay, out.Label, out.Status, out.Message)
		if out.Reward != nil {
			line += fmt.Sprintf(" Reward: %s x%d.", out.Reward.Name, out.Reward.Count)
		}
		if out.TotalSignDay > 0 {
			line += fmt.Sprintf(" Total check-ins: %d.", out.TotalSignDay)
		}
		log.Println(line)
	}
	return nil
}

// DiscordWebhookReporter posts the run summary to a Discord webhook.
type DiscordWebhookReporter struct {
	WebhookURL string
	Client     *http.Client
}

func NewDiscordWebhookReporter(webhookURL string) *DiscordWebhookReporter {
	return &DiscordWebhookReporter{
		WebhookURL: webhookURL,
		Client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (r *DiscordWebhookReporter) Publish(ctx context.Context, report *RunReport) error {
	var summary bytes.Buffer
	fmt.Fprintf(&summary, "**Daily check-in run**: %d account(s), %d claimed\n",
		len(report.Outcomes), report.Claimed())
	for _, out := range report.Outcomes {
		fmt.Fprintf(&summary, "- %s / %s: %s", out.GameDisplay, out.Label, out.Message)
		if out.Reward != nil {
			fmt.Fprintf(&summary, " (%s x%d)", out.Reward.Name, out.Reward.Count)
		}
		summary.WriteByte('\n')
	}

	payload, _ := json.Marshal(map[string]string{"content": summary.String()})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// MultiReporter fans the report out to several sinks; a failing sink does
// not block the others.
type MultiReporter []Reporter

func (m MultiReporter) Publish(ctx context.Context, report *RunReport) error {
	var firstErr error
	for _, reporter := range m {
		if err := reporter.Publish(ctx, report); err != nil {
			log.Printf("[REPORT] ⚠️ reporter failed: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
