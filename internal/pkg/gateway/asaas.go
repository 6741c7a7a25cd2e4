package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pagflow/pagflow/internal/pkg/apperrors"
	"github.com/pagflow/pagflow/internal/pkg/env"
)

const (
	defaultAsaasSandboxURL    = "https://api-sandbox.asaas.com/v3"
	defaultAsaasProductionURL = "https://api.asaas.com/v3"

	// requestTimeout bounds every outbound call; the upstream API has no
	// explicit timeout of its own.
	requestTimeout = 30 * time.Second
)

// AsaasClient issues the three primary-gateway calls: customer creation,
// charge creation and QR code retrieval. It is stateless; the credential is
// supplied per call by the orchestrator.
type AsaasClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAsaasClientFromEnv selects the sandbox or production base URL from the
// environment flag.
func NewAsaasClientFromEnv() *AsaasClient {
	def := defaultAsaasSandboxURL
	if env.IsProduction() {
		def = defaultAsaasProductionURL
	}
	return &AsaasClient{
		BaseURL:    strings.TrimRight(env.GetEnv("ASAAS_BASE_URL", def), "/"),
		HTTPClient: &http.Client{Timeout: requestTimeout},
	}
}

// CustomerRef identifies a provider-side customer record.
type CustomerRef struct {
	ID string `json:"id"`
}

type asaasCharge struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// PixQrCode is the Asaas QR retrieval response.
type PixQrCode struct {
	Success        bool   `json:"success"`
	Payload        string `json:"payload"`
	EncodedImage   string `json:"encodedImage"`
	ExpirationDate string `json:"expirationDate"`
}

// CreateCustomer registers the checkout customer. Phone and tax id are sent
// digits-only.
func (c *AsaasClient) CreateCustomer(ctx context.Context, profile CustomerProfile, credential string) (*CustomerRef, error) {
	body := map[string]string{
		"name":        strings.TrimSpace(profile.Name),
		"email":       strings.TrimSpace(profile.Email),
		"mobilePhone": DigitsOnly(profile.Phone),
		"cpfCnpj":     DigitsOnly(profile.TaxID),
	}
	var out CustomerRef
	if err := c.do(ctx, http.MethodPost, "/customers", credential, body, &out, "asaas.CreateCustomer"); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, apperrors.New(apperrors.KindGateway, "asaas.CreateCustomer", "response missing customer id")
	}
	return &out, nil
}

// CreateCharge creates a PIX charge due on the configured date (today plus
// PIX_DUE_DATE_GRACE_DAYS, default zero).
func (c *AsaasClient) CreateCharge(ctx context.Context, customerID string, req ChargeRequest, credential string) (*asaasCharge, error) {
	body := map[string]interface{}{
		"customer":          customerID,
		"billingType":       "PIX",
		"value":             json.Number(req.Amount.StringFixed(2)),
		"description":       req.Description,
		"dueDate":           chargeDueDate().Format("2006-01-02"),
		"externalReference": req.ExternalReference,
	}
	var out asaasCharge
	if err := c.do(ctx, http.MethodPost, "/payments", credential, body, &out, "asaas.CreateCharge"); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, apperrors.New(apperrors.KindGateway, "asaas.CreateCharge", "response missing payment id")
	}
	return &out, nil
}

// FetchQrCode retrieves the PIX payload and encoded image for a charge.
func (c *AsaasClient) FetchQrCode(ctx context.Context, chargeID, credential string) (*PixQrCode, error) {
	var out PixQrCode
	path := fmt.Sprintf("/payments/%s/pixQrCode", chargeID)
	if err := c.do(ctx, http.MethodGet, path, credential, nil, &out, "asaas.FetchQrCode"); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPaymentStatus queries the charge status by gateway payment id.
func (c *AsaasClient) GetPaymentStatus(ctx context.Context, chargeID, credential string) (string, error) {
	var out asaasCharge
	if err := c.do(ctx, http.MethodGet, "/payments/"+chargeID, credential, nil, &out, "asaas.GetPaymentStatus"); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *AsaasClient) do(ctx context.Context, method, path, credential string, in, out interface{}, op string) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return apperrors.Wrap(err, apperrors.KindValidation, op, "request encoding failed")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindConfiguration, op, "invalid gateway base URL")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("access_token", credential)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return wrapTransportError(err, op)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.Wrap(newGatewayError(resp.StatusCode, body), apperrors.KindGateway, op, "gateway rejected request")
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return apperrors.Wrap(err, apperrors.KindGateway, op, "response decoding failed")
		}
	}
	return nil
}

func chargeDueDate() time.Time {
	grace := 0
	if v := env.GetEnv("PIX_DUE_DATE_GRACE_DAYS", "0"); v != "" {
		fmt.Sscanf(v, "%d", &grace)
	}
	return time.Now().AddDate(0, 0, grace)
}

// AsaasGateway adapts the three-step Asaas flow to the PaymentGateway
// interface: create customer, create charge, fetch QR code. Each step's
// failure aborts the whole sequence.
type AsaasGateway struct {
	Client *AsaasClient
}

func NewAsaasGateway(client *AsaasClient) *AsaasGateway {
	return &AsaasGateway{Client: client}
}

func (g *AsaasGateway) Name() string { return "asaas" }

func (g *AsaasGateway) CreateCharge(ctx context.Context, credential string, req ChargeRequest) (*ChargeResult, error) {
	customer, err := g.Client.CreateCustomer(ctx, req.Profile, credential)
	if err != nil {
		return nil, err
	}

	charge, err := g.Client.CreateCharge(ctx, customer.ID, req, credential)
	if err != nil {
		return nil, err
	}

	qr, err := g.Client.FetchQrCode(ctx, charge.ID, credential)
	if err != nil {
		return nil, err
	}

	result := &ChargeResult{
		CustomerID:    customer.ID,
		PaymentID:     charge.ID,
		Status:        NormalizeStatus(charge.Status),
		QRPayload:     qr.Payload,
		QRImageBase64: qr.EncodedImage,
		CopyPasteKey:  qr.Payload,
	}
	if qr.ExpirationDate != "" {
		if t, err := time.ParseInLocation("2006-01-02 15:04:05", qr.ExpirationDate, time.Local); err == nil {
			result.ExpirationDate = &t
		}
	}
	return result, nil
}

func (g *AsaasGateway) PaymentStatus(ctx context.Context, credential, paymentID string) (string, error) {
	status, err := g.Client.GetPaymentStatus(ctx, paymentID, credential)
	if err != nil {
		return "", err
	}
	return NormalizeStatus(status), nil
}
