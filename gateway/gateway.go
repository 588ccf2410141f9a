package gateway

import (
	"context"
	"fmt"
	"net/http"

	"gopkg.in/gomail.v2"

	"netasampark/config"
	"netasampark/models"
)

// Request is the channel-agnostic send request handed to a vendor adapter.
type Request struct {
	To         string
	Content    string
	Subject    string
	TemplateID string
	Params     map[string]string

	// Voice-only fields
	CallerID string
	AudioURL string
}

// Result is the normalized outcome of a vendor call. Adapters never let a
// network or vendor error escape; failures come back as Success=false with
// the reason in Error.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Status    string `json:"status"` // sent, initiated, failed
	Error     string `json:"error,omitempty"`
}

// Gateway is one concrete vendor adapter for one channel.
type Gateway interface {
	Name() string
	Send(ctx context.Context, req Request) Result
}

func failure(reason string) Result {
	return Result{Success: false, Status: models.StatusFailed, Error: reason}
}

// Selector resolves the configured vendor for a channel. Unknown providers
// fail closed with a configuration error before any network call is made.
type Selector struct {
	cfg config.GatewayConfig

	gupshupSMS      Gateway
	msg91SMS        Gateway
	routeMobileSMS  Gateway
	gupshupWhatsApp Gateway
	metaWhatsApp    Gateway
	smtpEmail       Gateway
	exotelVoice     Gateway
	twilioVoice     Gateway
}

// NewSelector wires the vendor adapters from configuration. All HTTP-backed
// adapters share one timed client.
func NewSelector(cfg config.GatewayConfig, smtp *gomail.Dialer, fromEmail string) *Selector {
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	return &Selector{
		cfg:             cfg,
		gupshupSMS:      NewGupshupSMS(client, cfg),
		msg91SMS:        &MSG91SMS{},
		routeMobileSMS:  &RouteMobileSMS{},
		gupshupWhatsApp: NewGupshupWhatsApp(client, cfg),
		metaWhatsApp:    &MetaWhatsApp{},
		smtpEmail:       NewSMTPEmail(smtp, fromEmail),
		exotelVoice:     NewExotelVoice(client, cfg),
		twilioVoice:     &TwilioVoice{},
	}
}

// For returns the adapter configured for the channel.
func (s *Selector) For(channel string) (Gateway, error) {
	switch channel {
	case models.ChannelSMS:
		switch s.cfg.SMSProvider {
		case "gupshup":
			return s.gupshupSMS, nil
		case "msg91":
			return s.msg91SMS, nil
		case "routemobile":
			return s.routeMobileSMS, nil
		default:
			return nil, fmt.Errorf("unsupported SMS provider: %s", s.cfg.SMSProvider)
		}
	case models.ChannelWhatsApp:
		switch s.cfg.WhatsAppProvider {
		case "gupshup":
			return s.gupshupWhatsApp, nil
		case "meta":
			return s.metaWhatsApp, nil
		default:
			return nil, fmt.Errorf("unsupported WhatsApp provider: %s", s.cfg.WhatsAppProvider)
		}
	case models.ChannelEmail:
		switch s.cfg.EmailProvider {
		case "smtp":
			return s.smtpEmail, nil
		default:
			return nil, fmt.Errorf("unsupported email provider: %s", s.cfg.EmailProvider)
		}
	case models.ChannelVoice:
		switch s.cfg.VoiceProvider {
		case "exotel":
			return s.exotelVoice, nil
		case "twilio":
			return s.twilioVoice, nil
		default:
			return nil, fmt.Errorf("unsupported voice provider: %s", s.cfg.VoiceProvider)
		}
	}
	return nil, fmt.Errorf("unsupported channel: %s", channel)
}
