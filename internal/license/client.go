// Package license проверяет лицензию системы на внешнем сервере лицензий.
package license

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Result: ответ сервера лицензий.
type Result struct {
	Valid                bool       `json:"valid"`
	Message              string     `json:"message"`
	ProductName          *string    `json:"product_name,omitempty"`
	ExpiresAt            *time.Time `json:"expires_at,omitempty"`
	ActivationsRemaining *int       `json:"activations_remaining,omitempty"`
}

type verifyRequest struct {
	LicenseKey  string `json:"license_key"`
	ProductName string `json:"product_name"`
}

// Client обращается к POST {server}/api/v1/verify.
type Client struct {
	serverURL   string
	productName string
	http        *http.Client
}

func NewClient(serverURL, productName string, timeout time.Duration) *Client {
	return &Client{
		serverURL:   strings.TrimRight(serverURL, "/"),
		productName: productName,
		http:        &http.Client{Timeout: timeout},
	}
}

// Enabled: задан ли адрес сервера лицензий.
func (c *Client) Enabled() bool {
	return c.serverURL != ""
}

// Verify при любом сбое возвращает недействительный результат с причиной;
// ошибка возвращается только для журнала.
func (c *Client) Verify(ctx context.Context, key string) (Result, error) {
	if !c.Enabled() {
		return Result{Valid: true, Message: "License check disabled (no server configured)"}, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return Result{Valid: false, Message: "License key is required"}, nil
	}

	body, err := json.Marshal(verifyRequest{LicenseKey: key, ProductName: c.productName})
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/v1/verify", bytes.NewReader(body))
	if err != nil {
		return Result{Valid: false, Message: fmt.Sprintf("License verification failed: %v", err)}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Result{Valid: false, Message: "License server is not responding"}, err
		}
		return Result{Valid: false, Message: fmt.Sprintf("Could not connect to license server: %v", err)}, err
	}
	defer resp.Body.Close()

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return Result{Valid: false, Message: fmt.Sprintf("License verification failed: %v", err)}, err
	}
	if res.Message == "" {
		res.Message = "Unknown error"
	}
	return res, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
