// Package daraja implements the Safaricom Daraja (M-Pesa) STK push gateway.
package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/noblecapital/payments/internal/usecase"
)

const (
	oauthPath   = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath = "/mpesa/stkpush/v1/processrequest"

	// Daraja returns ResponseCode "0" when the push was accepted for
	// processing. Any other code is a synchronous rejection.
	acceptedResponseCode = "0"

	timestampLayout = "20060102150405"
)

// Config holds Daraja gateway configuration.
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	Timeout        time.Duration
}

// Client talks to the Daraja API. It caches the OAuth access token until
// shortly before its expiry.
type Client struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var _ usecase.PaymentProvider = (*Client)(nil)

// NewClient creates a Daraja client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "daraja_client").Logger(),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorMessage        string `json:"errorMessage"`
}

// RequestPayment sends an STK push to the payer's phone. The response only
// acknowledges that the push was queued; the final outcome arrives on the
// registered callback URL keyed by CheckoutRequestID.
func (c *Client) RequestPayment(ctx context.Context, req usecase.PaymentRequest) (*usecase.PaymentResponse, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}

	timestamp := time.Now().Format(timestampLayout)
	password := base64.StdEncoding.EncodeToString(
		[]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp),
	)

	// The amount sent here is the amount persisted on the pending
	// transaction and credited on the success callback. It must never be
	// adjusted in this adapter: a divergence would credit balance the
	// gateway never collected.
	body := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount.String(),
		PartyA:            req.ContactNumber,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       req.ContactNumber,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  req.Reference,
		TransactionDesc:   req.Description,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stk push request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+stkPushPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build stk push request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("stk push request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read stk push response: %w", err)
	}

	var resp stkPushResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode stk push response (status %d): %w", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		message := resp.ErrorMessage
		if message == "" {
			message = fmt.Sprintf("gateway returned status %d", httpResp.StatusCode)
		}
		c.logger.Warn().
			Int("status", httpResp.StatusCode).
			Str("message", message).
			Msg("stk push rejected")
		return &usecase.PaymentResponse{Accepted: false, Message: message}, nil
	}

	if resp.ResponseCode != acceptedResponseCode {
		c.logger.Warn().
			Str("response_code", resp.ResponseCode).
			Str("description", resp.ResponseDescription).
			Msg("stk push rejected")
		return &usecase.PaymentResponse{
			Accepted: false,
			Message:  resp.ResponseDescription,
		}, nil
	}

	c.logger.Info().
		Str("checkout_request_id", resp.CheckoutRequestID).
		Str("merchant_request_id", resp.MerchantRequestID).
		Msg("stk push accepted")

	return &usecase.PaymentResponse{
		Accepted:      true,
		CorrelationID: resp.CheckoutRequestID,
		Message:       resp.CustomerMessage,
	}, nil
}

// token returns a cached access token, refreshing it when expired.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	var resp tokenResponse

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+oauthPath, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

		httpResp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer httpResp.Body.Close()

		if httpResp.StatusCode == http.StatusUnauthorized {
			return backoff.Permanent(fmt.Errorf("gateway rejected credentials"))
		}
		if httpResp.StatusCode != http.StatusOK {
			return fmt.Errorf("token request returned status %d", httpResp.StatusCode)
		}

		if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
			return fmt.Errorf("failed to decode token response: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 15 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return "", err
	}

	if resp.AccessToken == "" {
		return "", fmt.Errorf("gateway returned empty access token")
	}

	// Daraja tokens last ~1 hour; refresh a minute early.
	ttl := 58 * time.Minute
	if d, err := time.ParseDuration(resp.ExpiresIn + "s"); err == nil && d > 2*time.Minute {
		ttl = d - time.Minute
	}

	c.accessToken = resp.AccessToken
	c.tokenExpiry = time.Now().Add(ttl)

	return c.accessToken, nil
}
