package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// maxResponseBytes caps how much of a response body is read
const maxResponseBytes = 32 << 20

// HTTPProvider talks to the banking API over HTTPS with JSON bodies.
// Every failure it returns is an *APIError.
type HTTPProvider struct {
	baseURL  string
	token    string
	appToken string
	client   *http.Client
	logger   *log.Logger

	idempotencyKey func() string
}

// NewHTTPProvider reads tokens from the environment variables named in cfg
func NewHTTPProvider(cfg APIConfig, logger *log.Logger) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api base_url is required for the http provider")
	}
	token := strings.TrimSpace(os.Getenv(cfg.TokenEnv))
	if token == "" {
		return nil, fmt.Errorf("%w: set %s", ErrMissingToken, cfg.TokenEnv)
	}
	var appToken string
	if cfg.AppTokenEnv != "" {
		appToken = strings.TrimSpace(os.Getenv(cfg.AppTokenEnv))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &HTTPProvider{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		token:          token,
		appToken:       appToken,
		client:         &http.Client{Timeout: timeout},
		logger:         logger,
		idempotencyKey: uuid.NewString,
	}, nil
}

type listResponse[T any] struct {
	Items  []T `json:"items"`
	Cursor struct {
		Next string `json:"next"`
	} `json:"cursor"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (p *HTTPProvider) FetchAccounts(ctx context.Context) ([]Account, error) {
	var resp listResponse[Account]
	if err := p.do(ctx, http.MethodGet, "/accounts", nil, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// FetchTransactions follows the API's cursor until every page in the range is read
func (p *HTTPProvider) FetchTransactions(ctx context.Context, start, end Date) ([]Transaction, error) {
	query := url.Values{}
	if !start.IsZero() {
		query.Set("start", start.String())
	}
	if !end.IsZero() {
		query.Set("end", end.String())
	}

	var all []Transaction
	seen := map[string]bool{}
	for page := 1; ; page++ {
		var resp listResponse[Transaction]
		if err := p.do(ctx, http.MethodGet, "/transactions", query, nil, nil, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Items...)
		p.logger.Debug("fetched transaction page", "page", page, "items", len(resp.Items))

		next := resp.Cursor.Next
		if next == "" || seen[next] {
			return all, nil
		}
		seen[next] = true
		query.Set("cursor", next)
	}
}

// InitiateTransfer sends one transfer request with a fresh idempotency key
func (p *HTTPProvider) InitiateTransfer(ctx context.Context, req TransferRequest) (TransferReceipt, error) {
	var receipt TransferReceipt
	headers := map[string]string{"Idempotency-Key": p.idempotencyKey()}
	if err := p.do(ctx, http.MethodPost, "/transfers", nil, req, headers, &receipt); err != nil {
		return TransferReceipt{}, err
	}
	return receipt, nil
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, query url.Values, body any, headers map[string]string, out any) error {
	endpoint := p.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &APIError{Kind: KindUnknown, Message: "encoding request", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &APIError{Kind: KindUnknown, Message: "building request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)
	if p.appToken != "" {
		req.Header.Set("X-App-Token", p.appToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(err)
	}
	p.logger.Debug("api call", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(started).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody errorResponse
		_ = json.Unmarshal(data, &errBody)
		msg := errBody.Message
		if msg == "" {
			msg = errBody.Error
		}
		return httpError(resp.StatusCode, msg)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Kind: KindDecode, Err: err}
	}
	return nil
}
