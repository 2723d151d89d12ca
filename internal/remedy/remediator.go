package remedy

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/webviewer/tvmon/internal/adb"
	"github.com/webviewer/tvmon/internal/domain"
)

const (
	// DefaultCooldown is the minimum gap between remediation attempts
	// for the same error kind.
	DefaultCooldown = 60 * time.Second

	maxFixHistory = 200
)

// Remediator maps an error kind to a bounded, best-effort corrective
// action sequence, subject to a per-kind cooldown. Not safe for
// concurrent use: the orchestrator run loop is the single owner.
type Remediator struct {
	dev      adb.DeviceLink
	clk      clock.Clock
	log      *zap.Logger
	cooldown time.Duration

	lastAttempt map[domain.ErrorKind]time.Time
	history     []domain.FixOutcome

	// exec runs a strategy's device script. The orchestrator points this
	// at its worker pool so blocking device calls never run on the loop
	// goroutine; cooldown and history mutation stay with the caller.
	exec func(ctx context.Context, fn func()) error
}

// NewRemediator builds a remediator over the given device link.
func NewRemediator(dev adb.DeviceLink, cooldown time.Duration, clk clock.Clock, log *zap.Logger) *Remediator {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Remediator{
		dev:         dev,
		clk:         clk,
		log:         log,
		cooldown:    cooldown,
		lastAttempt: make(map[domain.ErrorKind]time.Time),
		exec: func(_ context.Context, fn func()) error {
			fn()
			return nil
		},
	}
}

// SetExecutor routes strategy execution through the given runner,
// typically a bounded worker pool.
func (r *Remediator) SetExecutor(exec func(ctx context.Context, fn func()) error) {
	r.exec = exec
}

// CanAttempt reports whether the kind is out of cooldown.
func (r *Remediator) CanAttempt(kind domain.ErrorKind) bool {
	last, ok := r.lastAttempt[kind]
	if !ok {
		return true
	}
	return r.clk.Now().Sub(last) >= r.cooldown
}

// AttemptFix dispatches the strategy for the error's kind. Returns nil
// when the kind is in cooldown or has no registered strategy: nothing is
// recorded in that case. Any failure raised by the strategy itself is
// wrapped into a failed outcome. The cooldown timestamp is updated on
// every attempt, success and failure alike.
func (r *Remediator) AttemptFix(ctx context.Context, derr domain.DetectedError) *domain.FixOutcome {
	if !r.CanAttempt(derr.Kind) {
		r.log.Info("fix in cooldown, skipping", zap.String("kind", string(derr.Kind)))
		return nil
	}

	strategy := r.strategyFor(derr.Kind)
	if strategy == nil {
		r.log.Warn("no fix strategy for error kind", zap.String("kind", string(derr.Kind)))
		return nil
	}

	r.log.Info("attempting fix", zap.String("kind", string(derr.Kind)))
	start := r.clk.Now()

	result, err := r.runStrategy(ctx, strategy, derr)
	duration := r.clk.Now().Sub(start)

	outcome := domain.FixOutcome{
		Action:    "fix_" + string(derr.Kind),
		Result:    result,
		Message:   fmt.Sprintf("Fix attempt for %s", derr.Kind),
		Details:   map[string]any{"original_error": derr},
		Timestamp: start,
		Duration:  duration,
	}
	if err != nil {
		outcome.Result = domain.FixFailed
		outcome.Message = fmt.Sprintf("Fix failed: %v", err)
		outcome.Details["error"] = err.Error()
		r.log.Error("fix failed", zap.String("kind", string(derr.Kind)), zap.Error(err))
	} else {
		r.log.Info("fix finished",
			zap.String("kind", string(derr.Kind)),
			zap.String("result", string(outcome.Result)),
			zap.Duration("duration", duration),
		)
	}

	r.lastAttempt[derr.Kind] = start
	r.record(outcome)
	return &outcome
}

// runStrategy invokes a strategy through the executor, converting panics
// into errors so a misbehaving strategy can never take down the
// orchestrator.
func (r *Remediator) runStrategy(ctx context.Context, s strategyFunc, derr domain.DetectedError) (domain.FixResult, error) {
	var (
		result domain.FixResult
		err    error
	)
	execErr := r.exec(ctx, func() {
		defer func() {
			if rec := recover(); rec != nil {
				result = domain.FixFailed
				err = fmt.Errorf("strategy panic: %v", rec)
			}
		}()
		result, err = s(ctx, derr)
	})
	if execErr != nil {
		return domain.FixFailed, fmt.Errorf("strategy execution: %w", execErr)
	}
	return result, err
}

func (r *Remediator) record(outcome domain.FixOutcome) {
	r.history = append(r.history, outcome)
	if len(r.history) > maxFixHistory {
		r.history = r.history[len(r.history)-maxFixHistory:]
	}
}

// History returns the retained outcomes, oldest first.
func (r *Remediator) History() []domain.FixOutcome {
	return r.history
}

// RecentAttempts counts outcomes recorded within the trailing window.
// The orchestrator's global rate limit is computed from this.
func (r *Remediator) RecentAttempts(window time.Duration) int {
	cutoff := r.clk.Now().Add(-window)
	count := 0
	for _, o := range r.history {
		if !o.Timestamp.Before(cutoff) {
			count++
		}
	}
	return count
}

// TrimHistory shrinks the history to the retained cap. Maintenance path.
func (r *Remediator) TrimHistory() {
	if len(r.history) > maxFixHistory {
		r.history = r.history[len(r.history)-maxFixHistory:]
	}
}

// Stats aggregates the retained history for reporting.
func (r *Remediator) Stats() domain.FixStats {
	stats := domain.FixStats{TotalFixes: len(r.history)}
	if len(r.history) == 0 {
		return stats
	}

	stats.FixTypes = make(map[string]domain.ActionStats)
	successful := 0
	for _, o := range r.history {
		entry := stats.FixTypes[o.Action]
		entry.Total++
		if o.Result == domain.FixSuccess {
			entry.Successful++
			successful++
		}
		stats.FixTypes[o.Action] = entry
	}
	stats.SuccessRate = float64(successful) / float64(len(r.history)) * 100
	stats.RecentFixes = r.RecentAttempts(time.Hour)
	return stats
}

// EmergencyRecovery is an explicitly-invoked escalation independent of
// cooldown: stop the app, trim caches, make sure the transport is
// alive, restart, and verify.
func (r *Remediator) EmergencyRecovery(ctx context.Context) bool {
	r.log.Warn("initiating emergency recovery procedure")

	if err := r.dev.ForceStopApp(ctx); err != nil {
		r.log.Error("emergency recovery: force-stop failed", zap.Error(err))
	}
	r.pause(3 * time.Second)

	if _, err := r.dev.RunCommand(ctx, "pm trim-caches 500M", 0); err != nil {
		r.log.Warn("emergency recovery: cache trim failed", zap.Error(err))
	}
	r.pause(2 * time.Second)

	if err := r.dev.EnsureConnected(ctx); err != nil {
		r.log.Error("emergency recovery: reconnect failed", zap.Error(err))
		return false
	}

	if err := r.dev.StartApp(ctx); err != nil {
		r.log.Error("emergency recovery: restart failed", zap.Error(err))
		return false
	}

	r.pause(10 * time.Second)
	if r.dev.IsAppRunning(ctx) {
		r.log.Info("emergency recovery successful")
		return true
	}
	return false
}

// Maintain performs the passive maintenance pass: a cache trim and a
// memory-trim broadcast, independent of any specific error.
func (r *Remediator) Maintain(ctx context.Context) error {
	r.log.Info("performing scheduled maintenance")

	if _, err := r.dev.RunCommand(ctx, "pm trim-caches 200M", 0); err != nil {
		return fmt.Errorf("maintenance cache trim: %w", err)
	}
	if _, err := r.dev.RunCommand(ctx, "am broadcast -a android.intent.action.TRIM_MEMORY", 0); err != nil {
		return fmt.Errorf("maintenance memory trim: %w", err)
	}
	return nil
}

// pause models UI settle time between device actions. The intervals are
// part of the remediation policy, not incidental.
func (r *Remediator) pause(d time.Duration) {
	r.clk.Sleep(d)
}
