package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/hweber/secondbrain/internal/config"
	"github.com/hweber/secondbrain/internal/platform/logger"
	"github.com/hweber/secondbrain/modules/notify/model"
	"github.com/hweber/secondbrain/modules/notify/ports"
	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Report is a channel-agnostic report payload. Telegram recipients get the
// HTML text, web recipients the structured map, email recipients an HTML
// mail with the title and the summary text.
type Report struct {
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	SummaryText string                 `json:"summary_text"`
	Data        map[string]interface{} `json:"data"`
}

// ReportDispatcher fans a report out to the recipients configured in
// report_channels.
type ReportDispatcher struct {
	repo     ports.ConfigRepository
	notifier *NotificationService
	email    *resend.Client
	from     string
	log      *logger.Logger
}

// NewReportDispatcher creates a report dispatcher. Email delivery is
// disabled when no Resend key is configured.
func NewReportDispatcher(repo ports.ConfigRepository, notifier *NotificationService, emailCfg config.EmailConfig, log *logger.Logger) *ReportDispatcher {
	d := &ReportDispatcher{
		repo:     repo,
		notifier: notifier,
		from:     emailCfg.From,
		log:      log,
	}
	if emailCfg.APIKey != "" {
		d.email = resend.NewClient(emailCfg.APIKey)
	}
	return d
}

// Dispatch delivers the report to every active channel of its type and
// returns one result per delivery attempt.
func (d *ReportDispatcher) Dispatch(ctx context.Context, report Report) []model.NotificationResult {
	channels, err := d.repo.ListReportChannels(ctx, report.Type)
	if err != nil {
		d.log.Error("failed to load report channels",
			zap.String("report_type", report.Type),
			zap.Error(err),
		)
		return []model.NotificationResult{{Success: false, Channel: "config", Error: err.Error()}}
	}

	var results []model.NotificationResult
	for _, channel := range channels {
		for _, recipient := range channel.Recipients {
			results = append(results, d.deliver(ctx, channel.ChannelType, recipient, report))
		}
	}
	return results
}

func (d *ReportDispatcher) deliver(ctx context.Context, channelType, recipient string, report Report) model.NotificationResult {
	switch channelType {
	case model.ChannelTelegram:
		return d.notifier.SendTelegram(ctx, recipient, d.telegramText(report))
	case model.ChannelWeb:
		return d.notifier.SendWebhook(ctx, recipient, map[string]interface{}{
			"type":         report.Type,
			"title":        report.Title,
			"summary_text": report.SummaryText,
			"data":         report.Data,
		})
	case model.ChannelEmail:
		return d.sendEmail(ctx, recipient, report)
	default:
		return model.NotificationResult{
			Success: false,
			Channel: channelType,
			Error:   fmt.Sprintf("unknown channel type: %s", channelType),
		}
	}
}

func (d *ReportDispatcher) telegramText(report Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n\n", report.Title)
	b.WriteString(report.SummaryText)
	return b.String()
}

func (d *ReportDispatcher) sendEmail(ctx context.Context, recipient string, report Report) model.NotificationResult {
	if d.email == nil {
		return model.NotificationResult{
			Success: false,
			Channel: model.ChannelEmail,
			Error:   "email delivery not configured",
		}
	}

	html := fmt.Sprintf("<h2>%s</h2><pre>%s</pre>", report.Title, report.SummaryText)
	_, err := d.email.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    d.from,
		To:      []string{recipient},
		Subject: report.Title,
		Html:    html,
	})
	if err != nil {
		d.log.Warn("report email delivery failed",
			zap.String("recipient", recipient),
			zap.Error(err),
		)
		return model.NotificationResult{Success: false, Channel: model.ChannelEmail, Error: err.Error()}
	}

	return model.NotificationResult{Success: true, Channel: model.ChannelEmail}
}
