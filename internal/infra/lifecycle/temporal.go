// Package lifecycle connects the API to the invite-lifecycle worker.
// All calls are best-effort; the confirmation flow stays correct when
// no worker is running.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"talentr/internal/domain/onboarding"
	"talentr/internal/workflows"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
)

type Temporal struct {
	Client       client.Client
	TaskQueue    string
	ReminderLead time.Duration
}

func NewTemporal(temporalClient client.Client, taskQueue string, reminderLead time.Duration) *Temporal {
	return &Temporal{
		Client:       temporalClient,
		TaskQueue:    taskQueue,
		ReminderLead: reminderLead,
	}
}

// StartInvite launches one workflow execution per outstanding invite. A
// re-invite replaces the previous execution so the old window's timers
// die with the old token.
func (t *Temporal) StartInvite(ctx context.Context, lead onboarding.PendingLead) error {
	if t == nil || t.Client == nil {
		return fmt.Errorf("temporal client not configured")
	}
	options := client.StartWorkflowOptions{
		ID:                    workflows.WorkflowID(lead.ID),
		TaskQueue:             t.TaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_TERMINATE_IF_RUNNING,
	}
	_, err := t.Client.ExecuteWorkflow(ctx, options, workflows.InviteWorkflow, workflows.InviteWorkflowInput{
		LeadID:       lead.ID,
		ExpiresAt:    lead.ConfirmationExpiresAt,
		ReminderLead: t.ReminderLead,
	})
	return err
}

func (t *Temporal) SignalViewed(ctx context.Context, leadID string) error {
	if t == nil || t.Client == nil {
		return fmt.Errorf("temporal client not configured")
	}
	return t.Client.SignalWorkflow(ctx, workflows.WorkflowID(leadID), "", workflows.SignalViewed, workflows.ViewedSignal{
		RequestID: "viewed:" + leadID,
	})
}

func (t *Temporal) SignalClosed(ctx context.Context, leadID, outcome string) error {
	if t == nil || t.Client == nil {
		return fmt.Errorf("temporal client not configured")
	}
	return t.Client.SignalWorkflow(ctx, workflows.WorkflowID(leadID), "", workflows.SignalClosed, workflows.ClosedSignal{
		Outcome:   outcome,
		RequestID: "closed:" + leadID,
	})
}
