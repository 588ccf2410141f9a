package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netasampark/config"
	"netasampark/models"
)

func testSelector(cfg config.GatewayConfig) *Selector {
	cfg.HTTPTimeout = 5 * time.Second
	return NewSelector(cfg, nil, "noreply@example.org")
}

func TestSelectorFor(t *testing.T) {
	t.Run("resolves configured vendors", func(t *testing.T) {
		s := testSelector(config.GatewayConfig{
			SMSProvider:      "gupshup",
			WhatsAppProvider: "gupshup",
			EmailProvider:    "smtp",
			VoiceProvider:    "exotel",
		})

		for channel, name := range map[string]string{
			models.ChannelSMS:      "gupshup_sms",
			models.ChannelWhatsApp: "gupshup_whatsapp",
			models.ChannelEmail:    "smtp_email",
			models.ChannelVoice:    "exotel_voice",
		} {
			gw, err := s.For(channel)
			require.NoError(t, err, channel)
			assert.Equal(t, name, gw.Name())
		}
	})

	t.Run("unknown provider fails closed", func(t *testing.T) {
		s := testSelector(config.GatewayConfig{SMSProvider: "carrier_pigeon"})

		gw, err := s.For(models.ChannelSMS)
		require.Error(t, err)
		assert.Nil(t, gw)
		assert.Contains(t, err.Error(), "unsupported SMS provider")
	})

	t.Run("unknown channel fails closed", func(t *testing.T) {
		s := testSelector(config.GatewayConfig{})

		_, err := s.For("fax")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported channel")
	})
}

func TestGupshupSMSSend(t *testing.T) {
	t.Run("normalizes vendor response", func(t *testing.T) {
		var gotForm map[string]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			gotForm = map[string]string{
				"method":  r.PostFormValue("method"),
				"send_to": r.PostFormValue("send_to"),
				"msg":     r.PostFormValue("msg"),
			}
			assert.Equal(t, "test-key", r.Header.Get("apikey"))
			w.Write([]byte(`{"response":{"id":"gs-12345"}}`))
		}))
		defer srv.Close()

		gw := NewGupshupSMS(srv.Client(), config.GatewayConfig{GupshupAPIKey: "test-key"})
		gw.endpoint = srv.URL

		res := gw.Send(context.Background(), Request{To: "+919876543210", Content: "Namaste"})

		assert.True(t, res.Success)
		assert.Equal(t, "gs-12345", res.MessageID)
		assert.Equal(t, models.StatusSent, res.Status)
		assert.Equal(t, "SendMessage", gotForm["method"])
		assert.Equal(t, "+919876543210", gotForm["send_to"])
		assert.Equal(t, "Namaste", gotForm["msg"])
	})

	t.Run("vendor error becomes a failed result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
		}))
		defer srv.Close()

		gw := NewGupshupSMS(srv.Client(), config.GatewayConfig{})
		gw.endpoint = srv.URL

		res := gw.Send(context.Background(), Request{To: "+919876543210", Content: "Namaste"})

		assert.False(t, res.Success)
		assert.Equal(t, models.StatusFailed, res.Status)
		assert.Contains(t, res.Error, "invalid credentials")
	})

	t.Run("unreachable vendor becomes a failed result", func(t *testing.T) {
		gw := NewGupshupSMS(&http.Client{Timeout: time.Second}, config.GatewayConfig{})
		gw.endpoint = "http://127.0.0.1:1"

		res := gw.Send(context.Background(), Request{To: "+919876543210", Content: "Namaste"})

		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Error)
	})
}

func TestGupshupWhatsAppSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"messageId":"wamid.123"}`))
	}))
	defer srv.Close()

	gw := NewGupshupWhatsApp(srv.Client(), config.GatewayConfig{GupshupAppID: "app-1"})
	gw.endpoint = srv.URL

	res := gw.Send(context.Background(), Request{To: "919876543210", Content: "Namaste"})

	assert.True(t, res.Success)
	assert.Equal(t, "wamid.123", res.MessageID)
}

func TestExotelVoiceSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.True(t, ok)
		w.Write([]byte(`{"Call":{"Sid":"call-sid-1"}}`))
	}))
	defer srv.Close()

	gw := NewExotelVoice(srv.Client(), config.GatewayConfig{
		ExotelAccountSID: "acct",
		ExotelAPIKey:     "key",
		ExotelAPISecret:  "secret",
		ExotelCallerID:   "08012345678",
	})
	gw.baseURL = srv.URL

	res := gw.Send(context.Background(), Request{To: "+919876543210", AudioURL: "http://cdn/audio.mp3"})

	assert.True(t, res.Success)
	assert.Equal(t, "call-sid-1", res.MessageID)
	assert.Equal(t, "initiated", res.Status)
}

func TestSMTPEmailWithoutRelay(t *testing.T) {
	gw := NewSMTPEmail(nil, "noreply@example.org")

	res := gw.Send(context.Background(), Request{To: "asha@example.org", Content: "hello"})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "SMTP relay not configured")
}

func TestStubAdaptersFail(t *testing.T) {
	for _, gw := range []Gateway{&MSG91SMS{}, &RouteMobileSMS{}, &MetaWhatsApp{}, &TwilioVoice{}} {
		res := gw.Send(context.Background(), Request{To: "x"})
		assert.False(t, res.Success, gw.Name())
		assert.NotEmpty(t, res.Error, gw.Name())
	}
}
