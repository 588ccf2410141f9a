package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"netasampark/config"
)

// ExotelVoice places outbound calls through the Exotel connect API. A call is
// reported as "initiated"; per-minute billing is reconciled from receipts.
type ExotelVoice struct {
	client  *http.Client
	baseURL string

	accountSID string
	apiKey     string
	apiSecret  string
	callerID   string
	audioURL   string
}

func NewExotelVoice(client *http.Client, cfg config.GatewayConfig) *ExotelVoice {
	return &ExotelVoice{
		client:     client,
		baseURL:    "https://api.exotel.com",
		accountSID: cfg.ExotelAccountSID,
		apiKey:     cfg.ExotelAPIKey,
		apiSecret:  cfg.ExotelAPISecret,
		callerID:   cfg.ExotelCallerID,
		audioURL:   cfg.ExotelAudioURL,
	}
}

func (e *ExotelVoice) Name() string { return "exotel_voice" }

func (e *ExotelVoice) Send(ctx context.Context, req Request) Result {
	callerID := req.CallerID
	if callerID == "" {
		callerID = e.callerID
	}
	audioURL := req.AudioURL
	if audioURL == "" {
		audioURL = e.audioURL
	}

	form := url.Values{
		"From":     {callerID},
		"To":       {req.To},
		"Url":      {audioURL},
		"CallType": {"trans"},
	}

	endpoint := fmt.Sprintf("%s/v1/Accounts/%s/Calls/connect.json", e.baseURL, e.accountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return failure(err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(e.apiKey, e.apiSecret)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return failure(err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure(string(body))
	}

	var parsed struct {
		Call struct {
			Sid string `json:"Sid"`
		} `json:"Call"`
	}
	callID := "call_" + uuid.NewString()
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Call.Sid != "" {
		callID = parsed.Call.Sid
	}

	return Result{Success: true, MessageID: callID, Status: "initiated"}
}
