package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FollowUpNotice announces that a farmer started following a diet.
type FollowUpNotice struct {
	DietID      string    `json:"diet_id"`
	DietName    string    `json:"diet_name,omitempty"`
	CowID       string    `json:"cow_id"`
	OwnerID     string    `json:"owner_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

type Client struct {
	webhookURL string
	httpClient doer
}

func NewClient(webhookURL string, httpClient doer) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

func (c *Client) NotifyFollowUp(ctx context.Context, notice FollowUpNotice) error {
	payload, err := json.Marshal(map[string]any{
		"event":     "diet.followed",
		"text":      fmt.Sprintf("Diet %s is now followed; follow-up due %s", notice.DietID, notice.ScheduledAt.Format(time.DateOnly)),
		"follow_up": notice,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to post follow-up notice: %s", resp.Status)
	}

	return nil
}
