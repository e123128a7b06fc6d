package contacts

import (
	"github.com/Dasakami/alertme-backend/internal/notifications"
)

// AsRecipients converts contacts into the dispatcher's delivery targets.
func AsRecipients(list []EmergencyContact) []notifications.Recipient {
	recipients := make([]notifications.Recipient, 0, len(list))
	for _, c := range list {
		recipients = append(recipients, notifications.Recipient{
			ContactID:        c.ID,
			Name:             c.Name,
			Phone:            c.PhoneNumber,
			Email:            c.Email,
			TelegramUsername: c.TelegramUsername,
		})
	}
	return recipients
}
