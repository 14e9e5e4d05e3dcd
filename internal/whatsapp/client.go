package whatsapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://graph.facebook.com/v18.0"

// Client talks to the WhatsApp Business Cloud API for one phone number.
type Client struct {
	PhoneNumberID string
	AccessToken   string
	BaseURL       string
	HTTPClient    *http.Client
}

func NewClient(phoneNumberID, accessToken string) *Client {
	return &Client{
		PhoneNumberID: phoneNumberID,
		AccessToken:   accessToken,
		BaseURL:       defaultBaseURL,
		HTTPClient:    http.DefaultClient,
	}
}

// SendError is returned when the platform rejects an outbound message.
// Payload carries the platform's error body verbatim.
type SendError struct {
	StatusCode int
	Payload    string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("whatsapp send failed: status %d: %s", e.StatusCode, e.Payload)
}

// QueryError is returned when a read-only platform call fails.
type QueryError struct {
	StatusCode int
	Payload    string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("whatsapp query failed: status %d: %s", e.StatusCode, e.Payload)
}

// --- Message Structures ---

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// PhoneInfo describes the registered phone number, used for
// connectivity diagnostics.
type PhoneInfo struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	VerificationStatus string `json:"code_verification_status"`
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumber        string `json:"phone_number"`
	VerifiedAccount    bool   `json:"verified_account"`
	QualityRating      string `json:"quality_rating"`
}

// SendTextMessage sends a plain text message and returns the platform
// message id. The platform expects digits-only numbers with country
// code, so a leading + is stripped.
func (c *Client) SendTextMessage(to, text string) (string, error) {
	msg := textMessage{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(to, "+"),
		Type:             "text",
		Text:             textBody{Body: text},
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL(), c.PhoneNumberID)
	status, body, err := c.post(url, msg)
	if err != nil {
		return "", err
	}
	if status >= 400 {
		return "", &SendError{StatusCode: status, Payload: string(body)}
	}

	var resp sendResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding send response: %w", err)
	}
	if len(resp.Messages) == 0 {
		return "", fmt.Errorf("send response contained no message id")
	}
	return resp.Messages[0].ID, nil
}

// FetchPhoneInfo queries the phone number's metadata. Used by the admin
// connectivity check.
func (c *Client) FetchPhoneInfo() (*PhoneInfo, error) {
	url := fmt.Sprintf("%s/%s?access_token=%s", c.baseURL(), c.PhoneNumberID, c.AccessToken)
	resp, err := c.HTTPClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &QueryError{StatusCode: resp.StatusCode, Payload: string(body)}
	}

	var info PhoneInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decoding phone info: %w", err)
	}
	return &info, nil
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) post(url string, payload interface{}) (int, []byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
