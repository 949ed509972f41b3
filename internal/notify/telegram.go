package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opssage/opssage/internal/models"
)

// Notifier sends incident lifecycle messages. Every method is fire and
// forget: it reports success as a bool and never surfaces an error to the
// caller, so a broken channel can never abort an analysis.
type Notifier interface {
	SendIncidentStart(ctx context.Context, incidentID string, alert models.Alert) bool
	SendIncidentComplete(ctx context.Context, incidentID string, alert models.Alert, report models.DiagnosticReport, duration time.Duration) bool
	SendIncidentError(ctx context.Context, incidentID string, alert models.Alert, errText string, duration time.Duration) bool
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken     string
	chatID       string
	dashboardURL string
	enabled      bool
	client       *http.Client
	log          *zap.SugaredLogger
}

func NewTelegramNotifier(botToken, chatID, dashboardURL string, log *zap.SugaredLogger) *TelegramNotifier {
	if dashboardURL == "" {
		dashboardURL = "http://localhost:3000"
	}
	enabled := botToken != "" && chatID != ""
	if !enabled {
		log.Warn("telegram notifications disabled: bot token or chat id not configured")
	}
	return &TelegramNotifier{
		botToken:     botToken,
		chatID:       chatID,
		dashboardURL: dashboardURL,
		enabled:      enabled,
		client:       &http.Client{Timeout: 10 * time.Second},
		log:          log,
	}
}

func (n *TelegramNotifier) sendMessage(ctx context.Context, message string) bool {
	if !n.enabled {
		n.log.Debug("telegram not enabled, skipping notification")
		return false
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	payload := map[string]string{
		"chat_id":    n.chatID,
		"text":       message,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		n.log.Errorw("marshal telegram payload", "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		n.log.Errorw("build telegram request", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Errorw("send telegram notification", "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.log.Errorw("telegram api rejected message", "status", resp.Status)
		return false
	}
	n.log.Infow("telegram notification sent", "chat_id", n.chatID)
	return true
}

func (n *TelegramNotifier) SendIncidentStart(ctx context.Context, incidentID string, alert models.Alert) bool {
	incidentURL := fmt.Sprintf("%s/incidents/%s", n.dashboardURL, incidentID)

	message := fmt.Sprintf(`<b>Incident Analysis Started</b>

<b>Alert:</b> %s
<b>Severity:</b> %s
<b>Namespace:</b> %s
<b>Service:</b> %s

<b>Message:</b> %s

Analysis in progress...

<a href="%s">View Full Details</a>`,
		alert.AlertName,
		strings.ToUpper(alert.Severity),
		orNA(alert.Namespace()),
		orNA(alert.Service()),
		Truncate(alert.Message, 150),
		incidentURL,
	)
	return n.sendMessage(ctx, message)
}

func (n *TelegramNotifier) SendIncidentComplete(ctx context.Context, incidentID string, alert models.Alert, report models.DiagnosticReport, duration time.Duration) bool {
	incidentURL := fmt.Sprintf("%s/incidents/%s", n.dashboardURL, incidentID)
	confidencePct := int(report.ConfidenceScore * 100)

	message := fmt.Sprintf(`<b>Incident Analysis Complete</b>

<b>Alert:</b> %s
<b>Duration:</b> %.1fs

<b>Root Cause</b> (%d%%):
%s

<b>Top Actions:</b>
%s

<a href="%s">View Full Report</a>`,
		alert.AlertName,
		duration.Seconds(),
		confidencePct,
		Truncate(report.RootCause, 150),
		TopActions(report.RecommendedRemediation.ShortTermActions, 2),
		incidentURL,
	)
	return n.sendMessage(ctx, message)
}

func (n *TelegramNotifier) SendIncidentError(ctx context.Context, incidentID string, alert models.Alert, errText string, duration time.Duration) bool {
	incidentURL := fmt.Sprintf("%s/incidents/%s", n.dashboardURL, incidentID)

	message := fmt.Sprintf(`<b>Incident Analysis Failed</b>

<b>Alert:</b> %s
<b>Duration:</b> %.1fs

<b>Error:</b>
<pre>%s</pre>

<a href="%s">View Incident Details</a>`,
		alert.AlertName,
		duration.Seconds(),
		Truncate(errText, 200),
		incidentURL,
	)
	return n.sendMessage(ctx, message)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Truncate shortens s to max characters, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// TopActions formats the first limit actions as a bullet list, appending a
// "+N more" line when actions were cut.
func TopActions(actions []string, limit int) string {
	shown := actions
	if len(shown) > limit {
		shown = shown[:limit]
	}
	lines := make([]string, 0, len(shown)+1)
	for _, action := range shown {
		lines = append(lines, "  - "+action)
	}
	if remaining := len(actions) - limit; remaining > 0 {
		plural := ""
		if remaining > 1 {
			plural = "s"
		}
		lines = append(lines, fmt.Sprintf("  - +%d more action%s", remaining, plural))
	}
	return strings.Join(lines, "\n")
}
