package notify

import "fmt"

// Config holds channel provider configuration
type Config struct {
	EmailProvider string // sendgrid, terminal
	SMSProvider   string // twilio, gateway, terminal, or empty to disable

	SendGridAPIKey string
	FromAddress    string
	FromName       string

	TwilioAccountSID string
	TwilioAuthToken  string
	FromNumber       string

	GatewayURL   string
	GatewayToken string
}

// FromConfig creates the channel senders. A nil SMSSender means the SMS
// channel is unavailable; that is not an error.
func FromConfig(cfg Config) (EmailSender, SMSSender, error) {
	var email EmailSender
	switch cfg.EmailProvider {
	case "", "terminal":
		email = NewTerminal()
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, nil, fmt.Errorf("sendgrid email provider requires an API key")
		}
		if cfg.FromAddress == "" {
			return nil, nil, fmt.Errorf("sendgrid email provider requires a from address")
		}
		email = NewSendGrid(cfg.SendGridAPIKey, cfg.FromAddress, cfg.FromName)
	default:
		return nil, nil, fmt.Errorf("unknown email provider: %s", cfg.EmailProvider)
	}

	var sms SMSSender
	switch cfg.SMSProvider {
	case "":
	case "terminal":
		sms = NewTerminal()
	case "twilio":
		if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.FromNumber != "" {
			sms = NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.FromNumber)
		}
	case "gateway":
		if cfg.GatewayURL != "" {
			sms = NewGateway(cfg.GatewayURL, cfg.GatewayToken, cfg.FromNumber)
		}
	default:
		return nil, nil, fmt.Errorf("unknown sms provider: %s", cfg.SMSProvider)
	}

	return email, sms, nil
}
