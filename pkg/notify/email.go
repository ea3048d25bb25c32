package notify

import (
	"log/slog"

	"github.com/eventpulse/eventpulse/pkg/model"
)

// sendEmailStub logs what would have been sent rather than dialing an SMTP
// host. §4.9 explicitly scopes email as a stub.
func sendEmailStub(logger *slog.Logger, recipients []string, n model.AnomalyNotification) {
	logger.Info("would send anomaly email",
		"recipients", recipients,
		"anomaly_id", n.AnomalyID,
		"severity", n.Severity,
		"message", n.Message,
	)
}
