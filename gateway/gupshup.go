package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"netasampark/config"
	"netasampark/models"
)

const (
	gupshupSMSEndpoint      = "https://enterprise.smsgupshup.com/GatewayAPI/rest"
	gupshupWhatsAppEndpoint = "https://api.gupshup.io/sm/api/v1/msg"
)

// GupshupSMS sends transactional SMS through the Gupshup enterprise gateway.
type GupshupSMS struct {
	client   *http.Client
	endpoint string

	apiKey   string
	userID   string
	password string
	senderID string
}

func NewGupshupSMS(client *http.Client, cfg config.GatewayConfig) *GupshupSMS {
	return &GupshupSMS{
		client:   client,
		endpoint: gupshupSMSEndpoint,
		apiKey:   cfg.GupshupAPIKey,
		userID:   cfg.GupshupUserID,
		password: cfg.GupshupPassword,
		senderID: cfg.GupshupSenderID,
	}
}

func (g *GupshupSMS) Name() string { return "gupshup_sms" }

func (g *GupshupSMS) Send(ctx context.Context, req Request) Result {
	form := url.Values{
		"method":      {"SendMessage"},
		"send_to":     {req.To},
		"msg":         {req.Content},
		"userid":      {g.userID},
		"password":    {g.password},
		"v":           {"1.1"},
		"format":      {"json"},
		"msg_type":    {"TEXT"},
		"auth_scheme": {"plain"},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return failure(err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("apikey", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return failure(err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure(string(body))
	}

	var parsed struct {
		Response struct {
			ID string `json:"id"`
		} `json:"response"`
	}
	messageID := "sms_" + uuid.NewString()
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Response.ID != "" {
		messageID = parsed.Response.ID
	}

	return Result{Success: true, MessageID: messageID, Status: models.StatusSent}
}

// GupshupWhatsApp sends session messages through the Gupshup BSP API.
type GupshupWhatsApp struct {
	client   *http.Client
	endpoint string

	apiKey string
	appID  string
}

func NewGupshupWhatsApp(client *http.Client, cfg config.GatewayConfig) *GupshupWhatsApp {
	return &GupshupWhatsApp{
		client:   client,
		endpoint: gupshupWhatsAppEndpoint,
		apiKey:   cfg.GupshupAPIKey,
		appID:    cfg.GupshupAppID,
	}
}

func (g *GupshupWhatsApp) Name() string { return "gupshup_whatsapp" }

func (g *GupshupWhatsApp) Send(ctx context.Context, req Request) Result {
	payload := map[string]interface{}{
		"channel":     "whatsapp",
		"source":      g.appID,
		"destination": req.To,
		"message": map[string]string{
			"type": "text",
			"text": req.Content,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return failure(err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return failure(err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("apikey", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return failure(err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure(string(body))
	}

	var parsed struct {
		MessageID string `json:"messageId"`
	}
	messageID := "wa_" + uuid.NewString()
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.MessageID != "" {
		messageID = parsed.MessageID
	}

	return Result{Success: true, MessageID: messageID, Status: models.StatusSent}
}
