// Package workflows holds the invite-lifecycle workflow: one execution
// per outstanding invitation, driving the reminder partway through the
// confirmation window and the expiry sweep at its end. The workflow is
// an optimization layer only; the API detects expiry lazily on its own.
package workflows

import (
	"time"

	"talentr/internal/activities"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

type inviteState struct {
	viewed    bool
	outcome   string
	processed map[string]struct{}
}

func InviteWorkflow(ctx workflow.Context, input InviteWorkflowInput) error {
	logger := workflow.GetLogger(ctx)
	state := &inviteState{processed: make(map[string]struct{})}

	activityOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOpts)

	viewedCh := workflow.GetSignalChannel(ctx, SignalViewed)
	closedCh := workflow.GetSignalChannel(ctx, SignalClosed)

	if err := workflow.SetQueryHandler(ctx, "viewed", func() (bool, error) {
		return state.viewed, nil
	}); err != nil {
		return err
	}
	if err := workflow.SetQueryHandler(ctx, "outcome", func() (string, error) {
		return state.outcome, nil
	}); err != nil {
		return err
	}

	now := workflow.Now(ctx)
	expiryDelay := input.ExpiresAt.Sub(now)
	if expiryDelay < 0 {
		expiryDelay = 0
	}

	timerCtx, cancelTimers := workflow.WithCancel(ctx)
	defer cancelTimers()
	expiryFuture := workflow.NewTimer(timerCtx, expiryDelay)

	var reminderFuture workflow.Future
	if input.ReminderLead > 0 {
		reminderDelay := input.ExpiresAt.Add(-input.ReminderLead).Sub(now)
		if reminderDelay > 0 {
			reminderFuture = workflow.NewTimer(timerCtx, reminderDelay)
		}
	}

	done := false
	for !done {
		selector := workflow.NewSelector(ctx)

		if reminderFuture != nil {
			selector.AddFuture(reminderFuture, func(f workflow.Future) {
				_ = f.Get(ctx, nil)
				reminderFuture = nil
				err := workflow.ExecuteActivity(ctx, activities.RemindActivityName, activities.RemindInput{
					LeadID: input.LeadID,
				}).Get(ctx, nil)
				if err != nil {
					logger.Error("reminder activity failed", "lead_id", input.LeadID, "error", err)
				}
			})
		}

		selector.AddFuture(expiryFuture, func(f workflow.Future) {
			_ = f.Get(ctx, nil)
			err := workflow.ExecuteActivity(ctx, activities.ExpireLeadActivityName, activities.ExpireLeadInput{
				LeadID: input.LeadID,
			}).Get(ctx, nil)
			if err != nil {
				logger.Error("expire activity failed", "lead_id", input.LeadID, "error", err)
			}
			state.outcome = "expired"
			done = true
		})

		selector.AddReceive(viewedCh, func(c workflow.ReceiveChannel, more bool) {
			var sig ViewedSignal
			c.Receive(ctx, &sig)
			if state.isDuplicate(sig.RequestID) {
				return
			}
			state.viewed = true
		})

		selector.AddReceive(closedCh, func(c workflow.ReceiveChannel, more bool) {
			var sig ClosedSignal
			c.Receive(ctx, &sig)
			if state.isDuplicate(sig.RequestID) {
				return
			}
			state.outcome = sig.Outcome
			cancelTimers()
			done = true
		})

		selector.Select(ctx)
	}
	return nil
}

func (s *inviteState) isDuplicate(requestID string) bool {
	if requestID == "" {
		return false
	}
	if _, ok := s.processed[requestID]; ok {
		return true
	}
	s.processed[requestID] = struct{}{}
	return false
}
