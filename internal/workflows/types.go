package workflows

import "time"

const (
	SignalViewed = "viewed"
	SignalClosed = "closed"

	OutcomeConfirmed = "confirmed"
	OutcomeDeclined  = "declined"
)

type InviteWorkflowInput struct {
	LeadID    string
	ExpiresAt time.Time
	// ReminderLead is how long before expiry the reminder goes out.
	// Zero disables the reminder.
	ReminderLead time.Duration
}

type ViewedSignal struct {
	RequestID string
}

type ClosedSignal struct {
	Outcome   string
	RequestID string
}

func WorkflowID(leadID string) string {
	return "invite:" + leadID
}
