package notify

import (
	"context"
	"log"

	"talentr/internal/usecase"
)

// LogNotifier stands in when no broker is configured, so local runs
// still show what would have been sent.
type LogNotifier struct{}

func (LogNotifier) SendInvite(_ context.Context, msg usecase.InviteMessage) error {
	log.Printf("notify: invite lead=%s name=%q link=%s expires=%s", msg.LeadID, msg.Name, msg.Link, msg.ExpiresAt.Format("2006-01-02"))
	return nil
}

func (LogNotifier) SendConfirmation(_ context.Context, msg usecase.ConfirmationMessage) error {
	log.Printf("notify: confirmation vendor=%s name=%q link=%s", msg.VendorID, msg.Name, msg.Link)
	return nil
}
