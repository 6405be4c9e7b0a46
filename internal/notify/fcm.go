package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	fcmBaseURL = "https://fcm.googleapis.com"
	fcmScope   = "https://www.googleapis.com/auth/firebase.messaging"
)

// FCMClient отправляет push-уведомления через FCM HTTP v1 API.
type FCMClient struct {
	baseURL    string
	projectID  string
	httpClient *http.Client
}

// NewFCMClient создаёт клиент поверх уже авторизованного HTTP-клиента.
func NewFCMClient(baseURL, projectID string, httpClient *http.Client) *FCMClient {
	return &FCMClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		projectID:  projectID,
		httpClient: httpClient,
	}
}

// NewFCMClientFromCredentials создаёт клиент с сервисным аккаунтом из файла
// credentialsFile или, если путь пуст, из учётных данных Google по умолчанию.
func NewFCMClientFromCredentials(ctx context.Context, projectID, credentialsFile string, timeout time.Duration) (*FCMClient, error) {
	var (
		creds *google.Credentials
		err   error
	)
	if credentialsFile != "" {
		data, readErr := os.ReadFile(credentialsFile)
		if readErr != nil {
			return nil, fmt.Errorf("read fcm credentials: %w", readErr)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, fcmScope)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, fcmScope)
	}
	if err != nil {
		return nil, fmt.Errorf("load fcm credentials: %w", err)
	}

	if projectID == "" {
		projectID = creds.ProjectID
	}

	hc := oauth2.NewClient(ctx, creds.TokenSource)
	hc.Timeout = timeout

	return NewFCMClient(fcmBaseURL, projectID, hc), nil
}

type fcmNotification struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmErrorResponse struct {
	Error struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Details []struct {
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

func (r fcmErrorResponse) unregistered() bool {
	if r.Error.Status == "NOT_FOUND" {
		return true
	}
	for _, d := range r.Error.Details {
		if d.ErrorCode == "UNREGISTERED" {
			return true
		}
	}
	return false
}

// Send отправляет push на одно устройство.
func (c *FCMClient) Send(ctx context.Context, msg Message) error {
	if c == nil || c.projectID == "" {
		return fmt.Errorf("fcm client not configured")
	}

	payload, err := json.Marshal(fcmRequest{Message: fcmMessage{
		Token:        msg.To,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	}})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.baseURL, c.projectID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var fcmErr fcmErrorResponse
	if json.Unmarshal(body, &fcmErr) == nil && fcmErr.unregistered() {
		return ErrUnregistered
	}

	return fmt.Errorf("unexpected status: %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
