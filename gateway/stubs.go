package gateway

import "context"

// Vendors below are selectable in configuration but not yet integrated.
// They normalize to a failed Result so dispatch records a terminal ledger
// entry instead of blowing up.

type MSG91SMS struct{}

func (m *MSG91SMS) Name() string { return "msg91_sms" }

func (m *MSG91SMS) Send(ctx context.Context, req Request) Result {
	return failure("MSG91 not implemented yet")
}

type RouteMobileSMS struct{}

func (r *RouteMobileSMS) Name() string { return "routemobile_sms" }

func (r *RouteMobileSMS) Send(ctx context.Context, req Request) Result {
	return failure("RouteMobile not implemented yet")
}

type MetaWhatsApp struct{}

func (m *MetaWhatsApp) Name() string { return "meta_whatsapp" }

func (m *MetaWhatsApp) Send(ctx context.Context, req Request) Result {
	return failure("Meta WhatsApp not implemented yet")
}

type TwilioVoice struct{}

func (t *TwilioVoice) Name() string { return "twilio_voice" }

func (t *TwilioVoice) Send(ctx context.Context, req Request) Result {
	return failure("Twilio not implemented yet")
}
