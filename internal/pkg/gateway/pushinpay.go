package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pagflow/pagflow/internal/pkg/apperrors"
	"github.com/pagflow/pagflow/internal/pkg/env"
	"github.com/shopspring/decimal"
)

// centsFactor converts decimal reais to integer centavos for the cash-in API.
var centsFactor = decimal.NewFromInt(100)

const (
	defaultPushinPaySandboxURL    = "https://api-sandbox.pushinpay.com.br/api"
	defaultPushinPayProductionURL = "https://api.pushinpay.com.br/api"
)

// PushinPayClient is the alternate PIX provider. A single cashIn call covers
// the whole charge flow; there is no separate customer record or QR fetch.
// The API key comes from configuration, not from the keystore.
type PushinPayClient struct {
	BaseURL    string
	APIKey     string
	WebhookURL string
	HTTPClient *http.Client
}

// NewPushinPayClientFromEnv reads PUSHINPAY_API_KEY and
// PUSHINPAY_WEBHOOK_URL and selects the base URL from the environment flag.
func NewPushinPayClientFromEnv() *PushinPayClient {
	def := defaultPushinPaySandboxURL
	if env.IsProduction() {
		def = defaultPushinPayProductionURL
	}
	return &PushinPayClient{
		BaseURL:    strings.TrimRight(env.GetEnv("PUSHINPAY_BASE_URL", def), "/"),
		APIKey:     strings.TrimSpace(env.GetEnv("PUSHINPAY_API_KEY", "")),
		WebhookURL: strings.TrimSpace(env.GetEnv("PUSHINPAY_WEBHOOK_URL", "")),
		HTTPClient: &http.Client{Timeout: requestTimeout},
	}
}

type pushinPayCharge struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	ExpiresAt    string `json:"expires_at"`
}

// CreateCobranca creates a PIX cash-in. Amounts are sent in cents.
func (c *PushinPayClient) CreateCobranca(ctx context.Context, req ChargeRequest) (*pushinPayCharge, error) {
	const op = "pushinpay.CreateCobranca"
	if c.APIKey == "" {
		return nil, apperrors.New(apperrors.KindConfiguration, op, "PUSHINPAY_API_KEY is not configured")
	}

	body := map[string]interface{}{
		"value": req.Amount.Mul(centsFactor).IntPart(),
	}
	if c.WebhookURL != "" {
		body["webhook_url"] = c.WebhookURL
	}
	if req.ExternalReference != "" {
		body["external_reference"] = req.ExternalReference
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindValidation, op, "request encoding failed")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/pix/cashIn", bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindConfiguration, op, "invalid gateway base URL")
	}
	c.setHeaders(httpReq)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, wrapTransportError(err, op)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.Wrap(newGatewayError(resp.StatusCode, raw), apperrors.KindGateway, op, "gateway rejected request")
	}

	var out pushinPayCharge
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindGateway, op, "response decoding failed")
	}
	if out.ID == "" {
		return nil, apperrors.New(apperrors.KindGateway, op, "response missing transaction id")
	}
	return &out, nil
}

// GetTransaction queries the cash-in status by transaction id.
func (c *PushinPayClient) GetTransaction(ctx context.Context, transactionID string) (*pushinPayCharge, error) {
	const op = "pushinpay.GetTransaction"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/transactions/"+transactionID, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindConfiguration, op, "invalid gateway base URL")
	}
	c.setHeaders(httpReq)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, wrapTransportError(err, op)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.Wrap(newGatewayError(resp.StatusCode, raw), apperrors.KindGateway, op, "gateway rejected request")
	}

	var out pushinPayCharge
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindGateway, op, "response decoding failed")
	}
	return &out, nil
}

func (c *PushinPayClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
}

// PushinPayGateway adapts the flat cash-in flow to the PaymentGateway
// interface. The keystore credential is ignored: this provider authenticates
// with its own configured API key.
type PushinPayGateway struct {
	Client *PushinPayClient
}

func NewPushinPayGateway(client *PushinPayClient) *PushinPayGateway {
	return &PushinPayGateway{Client: client}
}

func (g *PushinPayGateway) Name() string { return "pushinpay" }

func (g *PushinPayGateway) CreateCharge(ctx context.Context, _ string, req ChargeRequest) (*ChargeResult, error) {
	charge, err := g.Client.CreateCobranca(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &ChargeResult{
		PaymentID:     charge.ID,
		Status:        NormalizeStatus(charge.Status),
		QRPayload:     charge.QRCode,
		QRImageBase64: charge.QRCodeBase64,
		// The provider may return only an image URL, leaving this empty.
		CopyPasteKey: charge.QRCode,
	}
	if charge.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, charge.ExpiresAt); err == nil {
			result.ExpirationDate = &t
		}
	}
	return result, nil
}

func (g *PushinPayGateway) PaymentStatus(ctx context.Context, _, paymentID string) (string, error) {
	charge, err := g.Client.GetTransaction(ctx, paymentID)
	if err != nil {
		return "", err
	}
	return NormalizeStatus(charge.Status), nil
}
