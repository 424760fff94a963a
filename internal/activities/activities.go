package activities

import (
	"context"
	"fmt"

	"talentr/api/clients/onboarding"

	"go.temporal.io/sdk/activity"
)

const (
	RemindActivityName     = "Remind"
	ExpireLeadActivityName = "ExpireLead"
)

type Activities struct {
	Client *onboarding.Client
}

type RemindInput struct {
	LeadID string
}

type ExpireLeadInput struct {
	LeadID string
}

func New(client *onboarding.Client) *Activities {
	return &Activities{Client: client}
}

func (a *Activities) Remind(ctx context.Context, input RemindInput) error {
	if a == nil || a.Client == nil {
		return fmt.Errorf("api client not configured")
	}
	return a.Client.Remind(ctx, input.LeadID)
}

func (a *Activities) ExpireLead(ctx context.Context, input ExpireLeadInput) error {
	if a == nil || a.Client == nil {
		return fmt.Errorf("api client not configured")
	}
	expired, err := a.Client.ExpireLead(ctx, input.LeadID)
	if err != nil {
		return err
	}
	logger := activity.GetLogger(ctx)
	logger.Info("expire sweep", "lead_id", input.LeadID, "expired", expired)
	return nil
}
