package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"time"

	"vibecast/logger"
)

// sessionTTL bounds how long a successful authorization check is trusted
// before the next use re-validates it.
const sessionTTL = time.Minute

// Client owns the authenticated session to the messaging backend. It is
// constructed once and reused serially across pipeline runs.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	mu           sync.Mutex
	lastVerified time.Time
}

// NewClient creates a delivery client. No network traffic happens until the
// first use.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: time.Second * 60,
		},
	}
}

// SetTimeout sets the request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// apiResponse is the backend's envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// decodeResponse maps the backend envelope onto the failure taxonomy.
func decodeResponse(body io.Reader) (*apiResponse, error) {
	var resp apiResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, &UnreachableError{Err: fmt.Errorf("malformed response: %w", err)}
	}
	if resp.OK {
		return &resp, nil
	}
	switch {
	case resp.ErrorCode == http.StatusTooManyRequests:
		retry := time.Minute
		if resp.Parameters != nil && resp.Parameters.RetryAfter > 0 {
			retry = time.Duration(resp.Parameters.RetryAfter) * time.Second
		}
		return nil, &RateLimitedError{RetryAfter: retry}
	case resp.ErrorCode == http.StatusForbidden || resp.ErrorCode == http.StatusUnauthorized:
		return nil, &ForbiddenError{Description: resp.Description}
	default:
		return nil, fmt.Errorf("telegram error %d: %s", resp.ErrorCode, resp.Description)
	}
}

// EnsureSession re-validates the session before use and re-establishes it if
// the check fails. Reports ErrUnavailable when authorization cannot be
// restored.
func (c *Client) EnsureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.lastVerified) < sessionTTL {
		return nil
	}

	// One verification plus one re-establish attempt; after that the
	// session is reported unavailable rather than retried silently.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := c.getMe(ctx); err != nil {
			lastErr = err
			continue
		}
		c.lastVerified = time.Now()
		return nil
	}

	logger.Error("Telegram session could not be authorized", logger.ErrorField(lastErr))
	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) getMe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.methodURL("getMe"), nil)
	if err != nil {
		return err
	}
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return &UnreachableError{Err: err}
	}
	defer httpResp.Body.Close()

	_, err = decodeResponse(httpResp.Body)
	return err
}

// ScheduleMessage schedules a text message with entity annotations for the
// given time. The side effect is externally visible once accepted; there is
// no unsend path.
func (c *Client) ScheduleMessage(ctx context.Context, chatID int64, text string, entities []Entity, when time.Time) error {
	if err := c.EnsureSession(ctx); err != nil {
		return err
	}

	payload := map[string]interface{}{
		"chat_id":       chatID,
		"text":          text,
		"schedule_date": when.Unix(),
	}
	if len(entities) > 0 {
		payload["entities"] = entities
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return &UnreachableError{Err: err}
	}
	defer httpResp.Body.Close()

	if _, err := decodeResponse(httpResp.Body); err != nil {
		return err
	}

	logger.Info("Message scheduled",
		logger.Int64("chatId", chatID),
		logger.Time("scheduleDate", when))
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// filePartHeader builds the multipart header for the payload part, carrying
// the descriptor's MIME type.
func filePartHeader(field, fileName, mimeType string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(field), quoteEscaper.Replace(fileName)))
	h.Set("Content-Type", mimeType)
	return h
}

// ScheduleFile schedules an audio attachment for the given time. The payload
// is uploaded from memory; the descriptor's DisableCache flag keeps the
// destination from assuming the bytes are reusable.
func (c *Client) ScheduleFile(ctx context.Context, chatID int64, payload io.Reader, desc FileDescriptor, when time.Time) error {
	if err := c.EnsureSession(ctx); err != nil {
		return err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"chat_id":       strconv.FormatInt(chatID, 10),
		"schedule_date": strconv.FormatInt(when.Unix(), 10),
		"title":         desc.Title,
		"performer":     desc.Performer,
		"duration":      strconv.Itoa(desc.Duration),
		"voice":         strconv.FormatBool(desc.Voice),
	}
	if desc.DisableCache {
		fields["disable_content_type_detection"] = "true"
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("failed to write multipart field %s: %w", name, err)
		}
	}

	part, err := writer.CreatePart(filePartHeader("audio", desc.FileName, desc.MimeType))
	if err != nil {
		return fmt.Errorf("failed to create multipart file part: %w", err)
	}
	if _, err := io.Copy(part, payload); err != nil {
		return fmt.Errorf("failed to copy payload into request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendAudio"), &body)
	if err != nil {
		return fmt.Errorf("failed to build sendAudio request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return &UnreachableError{Err: err}
	}
	defer httpResp.Body.Close()

	if _, err := decodeResponse(httpResp.Body); err != nil {
		return err
	}

	logger.Info("File scheduled",
		logger.Int64("chatId", chatID),
		logger.String("fileName", desc.FileName),
		logger.Time("scheduleDate", when))
	return nil
}
