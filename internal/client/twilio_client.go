package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.twilio.com"

// TwilioClient delivers WhatsApp messages through the Twilio Messages API.
// Acceptance by the API is not delivery; Twilio queues and delivers
// asynchronously.
type TwilioClient struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

func NewTwilioClient(baseURL, accountSID, authToken, fromNumber string) *TwilioClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &TwilioClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		from:       fromNumber,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendResponse struct {
	Sid     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Send queues body for delivery to the given phone number over the WhatsApp
// channel and returns the Twilio message SID.
func (c *TwilioClient) Send(ctx context.Context, phone, body string) (string, error) {
	form := url.Values{}
	form.Set("To", "whatsapp:"+phone)
	form.Set("From", c.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(respBody))
	}

	var sr sendResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return "", fmt.Errorf("failed to decode json: %w body=%q", err, string(respBody))
	}
	if sr.Sid == "" {
		return "", fmt.Errorf("missing sid in response body=%q", string(respBody))
	}

	return sr.Sid, nil
}
