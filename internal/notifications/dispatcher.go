package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SMSGateway abstracts carrier delivery.
type SMSGateway interface {
	Send(ctx context.Context, phone, text string) error
}

// ChatDirectory resolves handles to chat ids and delivers bot messages.
type ChatDirectory interface {
	LookupChatID(ctx context.Context, handle string) (int64, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// MailSender delivers the independent email channel.
type MailSender interface {
	Send(to []string, subject, htmlBody string, attachments []string) error
}

const (
	AlertSOS       = "sos"
	AlertZoneEnter = "zone_enter"
	AlertZoneExit  = "zone_exit"
)

// Alert is the channel-agnostic payload the dispatcher formats and delivers.
// Callers in the sos and geolocation packages build it from their own models.
type Alert struct {
	SOSAlertID     *uuid.UUID
	GeozoneEventID *uuid.UUID

	Kind     string
	UserName string
	Language string
	ZoneName string
	ZoneType string

	Latitude  *float64
	Longitude *float64
	Address   string
	MediaURL  string

	OccurredAt time.Time
}

// Recipient is one resolved delivery target.
type Recipient struct {
	ContactID        uuid.UUID
	Name             string
	Phone            string
	Email            string
	TelegramUsername string
}

// Dispatcher fans an alert out to recipients across an ordered channel chain:
// SMS gateway first, Telegram fallback when the contact has a registered
// handle, plus an independent email delivery. Any channel may be absent (nil).
type Dispatcher struct {
	db   *gorm.DB
	sms  SMSGateway
	chat ChatDirectory
	mail MailSender
	log  *zap.Logger
}

func NewDispatcher(db *gorm.DB, log *zap.Logger, sms SMSGateway, chat ChatDirectory, mail MailSender) *Dispatcher {
	return &Dispatcher{db: db, sms: sms, chat: chat, mail: mail, log: log}
}

// Dispatch delivers the alert to every recipient. It returns true when at
// least one recipient was reached through any channel; it never returns an
// error, delivery failures are recorded per notification row instead.
func (d *Dispatcher) Dispatch(ctx context.Context, alert Alert, recipients []Recipient) bool {
	if len(recipients) == 0 {
		d.log.Info("dispatch skipped, no recipients", zap.String("kind", alert.Kind))
		return false
	}

	reached := false
	for _, rcpt := range recipients {
		if d.dispatchOne(ctx, alert, rcpt) {
			reached = true
		}
	}
	return reached
}

func (d *Dispatcher) dispatchOne(ctx context.Context, alert Alert, rcpt Recipient) bool {
	text := FormatAlertMessage(alert)

	row := SOSNotification{
		SOSAlertID:       alert.SOSAlertID,
		GeozoneEventID:   alert.GeozoneEventID,
		ContactID:        rcpt.ContactID,
		NotificationType: ChannelSMS,
		Status:           StatusPending,
		Content:          text,
	}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		d.log.Error("failed to record notification", zap.Error(err))
	}

	sent := false
	var lastErr error

	if d.sms != nil {
		if err := d.sms.Send(ctx, rcpt.Phone, text); err != nil {
			lastErr = err
			d.log.Warn("sms delivery failed",
				zap.String("phone", rcpt.Phone), zap.Error(err))
		} else {
			sent = true
			d.markSent(ctx, &row, ChannelSMS)
		}
	}

	if !sent && d.chat != nil && rcpt.TelegramUsername != "" {
		chatID, err := d.chat.LookupChatID(ctx, rcpt.TelegramUsername)
		if err != nil {
			lastErr = err
			d.log.Warn("telegram handle not resolvable",
				zap.String("handle", rcpt.TelegramUsername), zap.Error(err))
		} else if err := d.chat.SendMessage(ctx, chatID, text); err != nil {
			lastErr = err
			d.log.Warn("telegram delivery failed",
				zap.Int64("chat_id", chatID), zap.Error(err))
		} else {
			sent = true
			d.markSent(ctx, &row, ChannelTelegram)
		}
	}

	if !sent {
		msg := "no delivery method available"
		if lastErr != nil {
			msg = lastErr.Error()
		}
		d.db.WithContext(ctx).Model(&row).Updates(map[string]interface{}{
			"status":        StatusFailed,
			"error_message": msg,
		})
	}

	// Email is not part of the fallback chain: it runs whenever the contact
	// has an address, and its outcome is recorded on its own row.
	emailSent := false
	if d.mail != nil && rcpt.Email != "" {
		emailSent = d.sendEmail(ctx, alert, rcpt, text)
	}

	return sent || emailSent
}

func (d *Dispatcher) sendEmail(ctx context.Context, alert Alert, rcpt Recipient, text string) bool {
	row := SOSNotification{
		SOSAlertID:       alert.SOSAlertID,
		GeozoneEventID:   alert.GeozoneEventID,
		ContactID:        rcpt.ContactID,
		NotificationType: ChannelEmail,
		Status:           StatusPending,
		Content:          text,
	}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		d.log.Error("failed to record email notification", zap.Error(err))
	}

	subject := EmailSubject(alert)
	if err := d.mail.Send([]string{rcpt.Email}, subject, EmailBody(alert), nil); err != nil {
		d.log.Warn("email delivery failed",
			zap.String("email", rcpt.Email), zap.Error(err))
		d.db.WithContext(ctx).Model(&row).Updates(map[string]interface{}{
			"status":        StatusFailed,
			"error_message": err.Error(),
		})
		return false
	}

	d.markSent(ctx, &row, ChannelEmail)
	return true
}

func (d *Dispatcher) markSent(ctx context.Context, row *SOSNotification, channel string) {
	now := time.Now()
	d.db.WithContext(ctx).Model(row).Updates(map[string]interface{}{
		"status":            StatusSent,
		"notification_type": channel,
		"sent_at":           now,
	})
}
