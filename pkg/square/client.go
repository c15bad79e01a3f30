// Package square charges order totals through the Square Payments API and
// carries the webhook signing settings.
package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/angelmondragon/asarum-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
)

var baseURLs = map[string]string{
	"sandbox":    "https://connect.squareupsandbox.com",
	"production": "https://connect.squareup.com",
}

type paymentsAPI interface {
	Create(ctx context.Context, req *sq.CreatePaymentRequest, opts ...sqoption.RequestOption) (*sq.CreatePaymentResponse, error)
}

// Client charges cards at one Square location.
type Client struct {
	payments      paymentsAPI
	locationID    string
	webhookSecret string
	webhookURL    string
	logg          *logger.Logger
}

func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errors.New("square logger is required")
	}
	baseURL, ok := baseURLs[cfg.Environment()]
	if !ok {
		return nil, fmt.Errorf("square environment %q must be sandbox or production", cfg.Env)
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errors.New("square access token is required")
	}
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, errors.New("square webhook secret is required")
	}

	sdk := sqclient.NewClient(sqoption.WithBaseURL(baseURL), sqoption.WithToken(token))
	c := &Client{
		payments:      sdk.Payments,
		locationID:    strings.TrimSpace(cfg.LocationID),
		webhookSecret: secret,
		webhookURL:    strings.TrimSpace(cfg.WebhookURL),
		logg:          logg,
	}
	logg.Info(logg.WithField(ctx, "square_env", cfg.Environment()), "square client initialized")
	return c, nil
}

// SigningSecret is the key Square signs webhook deliveries with.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// NotificationURL is the subscription URL Square includes in the signature.
func (c *Client) NotificationURL() string {
	if c == nil {
		return ""
	}
	return c.webhookURL
}

// Charge creates a payment for ch. The card nonce and buyer email are never
// logged.
func (c *Client) Charge(ctx context.Context, ch Charge) (*sq.Payment, error) {
	if strings.TrimSpace(ch.AttemptKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "square charge needs an attempt key")
	}
	ctx = c.logg.WithFields(ctx, map[string]any{
		"order_id":    ch.OrderID,
		"centavos":    ch.Centavos,
		"attempt_key": ch.AttemptKey,
	})

	resp, err := c.payments.Create(ctx, ch.request(c.locationID))
	if err != nil {
		mapped := classify(err)
		c.logg.Error(ctx, "square charge failed", mapped)
		return nil, mapped
	}
	payment := resp.GetPayment()
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "square returned no payment")
	}
	c.logg.Info(c.logg.WithFields(ctx, map[string]any{
		"payment_id":     deref(payment.GetID()),
		"payment_status": deref(payment.GetStatus()),
	}), "square charge created")
	return payment, nil
}

// classify maps a Square failure onto an error code. Error categories in the
// body win over the HTTP status.
func classify(err error) error {
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "square unreachable")
	}
	code := codeForStatus(apiErr.StatusCode)
	if detailed, ok := codeForDetails(squareErrors(apiErr)); ok {
		code = detailed
	}
	return pkgerrors.Wrap(code, err, "square rejected the charge")
}

func codeForDetails(details []*sq.Error) (pkgerrors.Code, bool) {
	for _, detail := range details {
		switch {
		case detail.Code == sq.ErrorCodeIdempotencyKeyReused:
			return pkgerrors.CodeIdempotency, true
		case detail.Category == sq.ErrorCategoryPaymentMethodError:
			return pkgerrors.CodePaymentFailed, true
		case detail.Category == sq.ErrorCategoryAuthenticationError:
			// A bad token is our misconfiguration, not the shopper's.
			return pkgerrors.CodeDependency, true
		}
	}
	return "", false
}

func squareErrors(apiErr *sqcore.APIError) []*sq.Error {
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	var body struct {
		Errors []*sq.Error `json:"errors"`
	}
	if json.Unmarshal([]byte(inner.Error()), &body) != nil {
		return nil
	}
	out := body.Errors[:0]
	for _, e := range body.Errors {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

func codeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusPaymentRequired:
		return pkgerrors.CodePaymentFailed
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	case status == http.StatusTooManyRequests, status >= 500:
		return pkgerrors.CodeDependency
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return pkgerrors.CodeDependency
	case status >= 400:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
