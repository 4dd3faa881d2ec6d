package playerid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/giftledger-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/giftledger-backend/pkg/errors"
)

const (
	defaultEndpoint             = "https://moogold.com/wp-content/plugins/id-validation-new/id-validation-ajax.php"
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 1024

	// form fields of the weekly-pass product used by the validation endpoint
	fieldAccountID = "text-5f6f144f8ffee"
	fieldServerID  = "text-1601115253775"
	productID      = "15145"
	variationID    = "4690783"
	siteOrigin     = "https://moogold.com"
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Result is the in-game identity returned for an account.
type Result struct {
	DisplayName string `json:"display_name"`
}

// Client looks up in-game display names. Results are advisory; nothing in the
// order lifecycle depends on them.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithEndpoint overrides the configured validation endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(endpoint); trimmed != "" {
			c.endpoint = trimmed
		}
	}
}

func NewClient(cfg config.PlayerIDConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   defaultEndpoint,
	}
	if e := strings.TrimSpace(cfg.Endpoint); e != "" {
		client.endpoint = e
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Verify resolves the display name for accountID on serverID.
func (c *Client) Verify(ctx context.Context, accountID, serverID string) (*Result, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "player verification not configured")
	}
	accountID = strings.TrimSpace(accountID)
	serverID = strings.TrimSpace(serverID)
	if accountID == "" || serverID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id and server id are required").
			WithDetails(map[string]string{"account_id": accountID, "server_id": serverID})
	}

	form := url.Values{}
	form.Set("attribute_amount", "Weekly Pass")
	form.Set(fieldAccountID, accountID)
	form.Set(fieldServerID, serverID)
	form.Set("quantity", "1")
	form.Set("add-to-cart", productID)
	form.Set("product_id", productID)
	form.Set("variation_id", variationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build player verification request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", siteOrigin)
	req.Header.Set("Referer", siteOrigin+"/product/mobile-legends/")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute player verification request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "player verification request failed")
	}

	var apiResp struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode player verification response")
	}

	name, ok := displayName(apiResp.Message)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "player not found")
	}
	return &Result{DisplayName: name}, nil
}

// displayName picks the value of the first "...Name: value" line of the
// validation message.
func displayName(message string) (string, bool) {
	for _, line := range strings.Split(message, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || !strings.Contains(strings.ToLower(key), "name") {
			continue
		}
		if name := strings.TrimSpace(value); name != "" {
			return name, true
		}
	}
	return "", false
}
