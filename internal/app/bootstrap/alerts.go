package bootstrap

import (
	"context"
	"io"

	"github.com/wolfman30/radiology-assistant/internal/alerts"
	appconfig "github.com/wolfman30/radiology-assistant/internal/config"
	"github.com/wolfman30/radiology-assistant/pkg/logging"
)

// BuildEmailSender selects the alert email provider. It returns nil and a
// reason when email alerts are off or misconfigured.
func BuildEmailSender(cfg *appconfig.Config, ses alerts.SESAPI, logger *logging.Logger) (alerts.EmailSender, string) {
	if cfg == nil {
		return nil, "missing config"
	}
	switch cfg.AlertEmailProvider {
	case "", "none":
		return nil, "disabled"
	case "stub":
		return alerts.NewStubEmailSender(logger), ""
	case "sendgrid":
		sender := alerts.NewSendGridSender(alerts.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			return nil, "SENDGRID_API_KEY not set"
		}
		return sender, ""
	case "ses":
		sender := alerts.NewSESSender(ses, alerts.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender == nil {
			return nil, "SES client unavailable"
		}
		return sender, ""
	default:
		return nil, "unknown provider " + cfg.AlertEmailProvider
	}
}

// Alerts bundles the escalation alert pipeline.
type Alerts struct {
	Dispatcher *alerts.Dispatcher
	Gate       *alerts.Gate
}

// BuildAlerts wires the tone, the permission-gated platform notification and
// optional email into a Dispatcher. toneOut receives the bell; nil silences it.
func BuildAlerts(ctx context.Context, cfg *appconfig.Config, ses alerts.SESAPI, toneOut io.Writer, logger *logging.Logger) Alerts {
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		cfg = &appconfig.Config{}
	}

	var tone alerts.Tone
	if cfg.AlertToneEnabled && toneOut != nil {
		tone = alerts.NewBellTone(toneOut)
	}

	gate := alerts.NewGate(alerts.NewLogNotifier(logger), alerts.Grant(cfg.SystemNotificationsGranted))
	if perm, err := gate.Request(ctx); err != nil {
		logger.Warn("notification permission request failed", "error", err)
	} else {
		logger.Info("notification permission", "state", string(perm))
	}

	notifiers := alerts.MultiNotifier{gate}
	sender, reason := BuildEmailSender(cfg, ses, logger)
	if sender != nil {
		if email := alerts.NewEmailNotifier(sender, cfg.AlertEmailRecipients); email != nil {
			notifiers = append(notifiers, email)
			logger.Info("email alerts enabled", "provider", cfg.AlertEmailProvider, "recipients", len(cfg.AlertEmailRecipients))
		} else {
			logger.Warn("email alerts configured without recipients", "provider", cfg.AlertEmailProvider)
		}
	} else if reason != "disabled" {
		logger.Warn("email alerts disabled", "reason", reason)
	}

	return Alerts{
		Dispatcher: alerts.NewDispatcher(tone, notifiers, logger, alerts.WithTimeout(cfg.AlertTimeout)),
		Gate:       gate,
	}
}
