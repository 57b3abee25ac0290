// Package chat integrates with the Telegram Bot API: the bot is both the
// submission surface (users paste YouTube URLs into the chat) and the
// notification surface for escalations and delivery.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// Client is a thin wrapper around the Telegram Bot API.
type Client struct {
	httpClient *http.Client
	apiBase    string
	token      string
	chatID     string
	logger     *slog.Logger
}

// NewClient creates a new Telegram Bot API client.
func NewClient(token, chatID string) *Client {
	return NewClientWithAPIURL(token, chatID, defaultAPIBase)
}

// NewClientWithAPIURL creates a client that targets a custom API base URL.
// Useful for testing with a mock server.
func NewClientWithAPIURL(token, chatID, apiBase string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiBase:    apiBase,
		token:      token,
		chatID:     chatID,
		logger:     slog.Default().With("component", "chat-client"),
	}
}

// Update is one incoming bot update.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is the message payload of an update.
type Message struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// SendMessage posts a text message to the configured chat.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	payload := url.Values{
		"chat_id": {c.chatID},
		"text":    {text},
	}
	_, err := c.call(ctx, "sendMessage", payload)
	return err
}

// SendDocument uploads a file to the configured chat with an optional
// caption. Used for delivering the finished clip.
func (c *Client) SendDocument(ctx context.Context, path, caption string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening document %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chat_id", c.chatID); err != nil {
		return err
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return err
		}
	}
	part, err := writer.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("reading document %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendDocument", c.apiBase, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendDocument failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return decodeAPIError(resp, nil)
}

// GetUpdates fetches pending bot updates with offset-based acknowledgment:
// passing the last seen update_id + 1 marks earlier updates consumed.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	payload := url.Values{
		"timeout": {"0"},
	}
	if offset > 0 {
		payload.Set("offset", strconv.FormatInt(offset, 10))
	}

	result, err := c.call(ctx, "getUpdates", payload)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("parsing updates: %w", err)
	}
	return updates, nil
}

func (c *Client) call(ctx context.Context, method string, payload url.Values) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		bytes.NewBufferString(payload.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", method, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var result json.RawMessage
	if err := decodeAPIError(resp, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return result, nil
}

func decodeAPIError(resp *http.Response, result *json.RawMessage) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("unexpected response (status %d)", resp.StatusCode)
	}
	if !parsed.OK {
		return fmt.Errorf("api error: %s", parsed.Description)
	}
	if result != nil {
		*result = parsed.Result
	}
	return nil
}
