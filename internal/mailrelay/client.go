// Package mailrelay предоставляет клиент HTTP-шлюза почтовой рассылки,
// через который пользователям отправляются коды входа.
package mailrelay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	codeSubject  = "Your login code"
	maxRetryWait = 2 * time.Second
)

// ErrRateLimited возвращается, если шлюз просит подождать дольше допустимого.
var ErrRateLimited = errors.New("mail relay rate limited")

// Client инкапсулирует HTTP-взаимодействие со шлюзом рассылки.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// NewClient создаёт HTTP-клиент для шлюза по указанному адресу.
func NewClient(baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// SendCode отправляет одноразовый код на адрес. При ответе 429 выполняется одна повторная
// попытка, если Retry-After не превышает maxRetryWait.
func (c *Client) SendCode(ctx context.Context, email, code string) error {
	body, err := json.Marshal(message{
		To:      email,
		Subject: codeSubject,
		Text:    fmt.Sprintf("Your login code is %s. It expires in a few minutes.", code),
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	retryAfter, err := c.post(ctx, body)
	if err == nil || !errors.Is(err, ErrRateLimited) || retryAfter > maxRetryWait {
		return err
	}

	timer := time.NewTimer(retryAfter)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	_, err = c.post(ctx, body)
	return err
}

func (c *Client) post(ctx context.Context, body []byte) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/messages", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return retryAfter, fmt.Errorf("%w: retry after %s", ErrRateLimited, retryAfter)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return 0, nil
}
