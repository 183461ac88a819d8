// Package mpesa is the adapter for the Safaricom Daraja payment gateway.
// The settlement core talks to it through the Gateway interface; the real
// client initiates STK push requests, and confirmations come back later as
// HTTP callbacks parsed by this package's callback types.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrPaymentInitiation wraps any synchronous failure to start a payment.
var ErrPaymentInitiation = errors.New("failed to initiate M-Pesa payment")

// PaymentRequest asks the gateway to push a payment prompt to a phone.
type PaymentRequest struct {
	PhoneNumber      string
	AmountKes        decimal.Decimal
	AccountReference string // correlation token, echoed in callbacks
	Description      string
}

// PaymentResponse is the synchronous acknowledgment of an STK push.
type PaymentResponse struct {
	MerchantRequestID   string
	CheckoutRequestID   string
	ResponseCode        string
	ResponseDescription string
	CustomerMessage     string
}

type Gateway interface {
	RequestPayment(ctx context.Context, req PaymentRequest) (PaymentResponse, error)
}

// Config carries Daraja credentials.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	Environment    string // "sandbox" or "production"
}

// Client implements Gateway against the Daraja HTTP API.
type Client struct {
	cfg  Config
	http *http.Client
	now  func() time.Time
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
		now:  time.Now,
	}
}

func (c *Client) baseURL() string {
	if c.cfg.Environment == "production" {
		return "https://api.safaricom.co.ke"
	}
	return "https://sandbox.safaricom.co.ke"
}

// accessToken fetches an OAuth client-credentials token.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL()+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mpesa auth: status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.AccessToken, nil
}

// stkPassword is base64(shortcode + passkey + timestamp), timestamp in
// yyyymmddhhmmss as Daraja requires.
func (c *Client) stkPassword() (password, timestamp string) {
	timestamp = c.now().UTC().Format("20060102150405")
	password = base64.StdEncoding.EncodeToString(
		[]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp))
	return password, timestamp
}

// FormatPhone normalizes a Kenyan phone number to the 2547... form.
func FormatPhone(phone string) string {
	p := strings.ReplaceAll(phone, " ", "")
	switch {
	case strings.HasPrefix(p, "0"):
		return "254" + p[1:]
	case strings.HasPrefix(p, "+"):
		return p[1:]
	case strings.HasPrefix(p, "254"):
		return p
	default:
		return "254" + p
	}
}

func (c *Client) RequestPayment(ctx context.Context, pr PaymentRequest) (PaymentResponse, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("%w: %v", ErrPaymentInitiation, err)
	}
	password, timestamp := c.stkPassword()

	payload := map[string]any{
		"BusinessShortCode": c.cfg.ShortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		// Daraja only accepts whole shillings.
		"Amount":           pr.AmountKes.Ceil().IntPart(),
		"PartyA":           FormatPhone(pr.PhoneNumber),
		"PartyB":           c.cfg.ShortCode,
		"PhoneNumber":      FormatPhone(pr.PhoneNumber),
		"CallBackURL":      c.cfg.CallbackURL,
		"AccountReference": pr.AccountReference,
		"TransactionDesc":  pr.Description,
	}
	buf, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL()+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(buf))
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("%w: %v", ErrPaymentInitiation, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("%w: %v", ErrPaymentInitiation, err)
	}
	defer resp.Body.Close()

	var body struct {
		MerchantRequestID   string `json:"MerchantRequestID"`
		CheckoutRequestID   string `json:"CheckoutRequestID"`
		ResponseCode        string `json:"ResponseCode"`
		ResponseDescription string `json:"ResponseDescription"`
		CustomerMessage     string `json:"CustomerMessage"`
		ErrorMessage        string `json:"errorMessage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return PaymentResponse{}, fmt.Errorf("%w: %v", ErrPaymentInitiation, err)
	}
	if resp.StatusCode != http.StatusOK || body.ResponseCode != "0" {
		msg := body.ErrorMessage
		if msg == "" {
			msg = body.ResponseDescription
		}
		return PaymentResponse{}, fmt.Errorf("%w: %s", ErrPaymentInitiation, msg)
	}

	return PaymentResponse{
		MerchantRequestID:   body.MerchantRequestID,
		CheckoutRequestID:   body.CheckoutRequestID,
		ResponseCode:        body.ResponseCode,
		ResponseDescription: body.ResponseDescription,
		CustomerMessage:     body.CustomerMessage,
	}, nil
}
