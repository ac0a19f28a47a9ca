// internal/guard/guard.go
package guard

import (
	"context"

	"origination-intake/internal/common/config"
	"origination-intake/internal/common/logger"
	"origination-intake/internal/common/metrics"
	"origination-intake/internal/models"
)

// Decision is the access verdict for the application surface.
type Decision string

const (
	Allow                  Decision = "ALLOW"
	RedirectToConfirmation Decision = "REDIRECT_TO_CONFIRMATION"
)

// StatusChecker answers whether the remote platform already holds an
// accepted submission for the account.
type StatusChecker interface {
	CheckStatus(ctx context.Context, accountKey string) (bool, error)
}

// Guard reconciles the locally cached submitted flag with the remote
// status collaborator and decides whether the application surface may
// be entered. The remote system is the authority across devices; the
// local flag is instantaneous but only valid for the device that
// submitted.
type Guard struct {
	checker    StatusChecker
	config     config.GuardConfig
	production bool
	logger     logger.Logger
}

func New(checker StatusChecker, cfg config.GuardConfig, production bool, log logger.Logger) *Guard {
	return &Guard{
		checker:    checker,
		config:     cfg,
		production: production,
		logger:     log.WithFields(map[string]interface{}{"component": "submission-guard"}),
	}
}

// CheckAccess runs once per entry to the application surface, before
// any draft mutation is allowed. A failing status check resolves as not
// submitted: a transient network failure must not lock out a legitimate
// in-progress applicant.
func (g *Guard) CheckAccess(ctx context.Context, accountKey string, localFlag bool) (Decision, models.SubmissionState) {
	state := models.SubmissionState{LocalFlag: localFlag}

	confirmed, err := g.checker.CheckStatus(ctx, accountKey)
	if err != nil {
		state.LastCheckError = err.Error()
		confirmed = false
		g.logger.Warn("status check failed, treating as not submitted", map[string]interface{}{
			"accountKey": accountKey,
			"error":      err.Error(),
		})
	}
	state.RemoteConfirmed = &confirmed

	decision := Allow
	if localFlag || confirmed {
		decision = RedirectToConfirmation
		// The override is for operator testing only. It never applies
		// when the remote platform has confirmed the submission, and
		// never in production-like runtimes.
		if !g.production && g.config.AllowResubmitOverride && !confirmed {
			decision = Allow
		}
	}

	metrics.GuardDecisions.WithLabelValues(string(decision)).Inc()
	g.logger.Info("guard decision", map[string]interface{}{
		"accountKey":      accountKey,
		"decision":        string(decision),
		"localFlag":       localFlag,
		"remoteConfirmed": confirmed,
	})
	return decision, state
}
