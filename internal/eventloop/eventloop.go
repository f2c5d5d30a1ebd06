// Package eventloop implements the event loop (C4): it long-polls the
// Infrastructure Printer's notification subscription, turns each event
// into a registry update, and bootstraps the registry from any job
// that was already fetchable before the subscription existed.
package eventloop

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/OpenPrinting/goipp"
	"github.com/rs/zerolog"

	"github.com/cyra/ippproxy/internal/ippclient"
	"github.com/cyra/ippproxy/internal/registry"
)

// minInterval/maxInterval bound notify-get-interval per spec.md §4.3.
const (
	minInterval     = 0
	maxInterval     = 30
	defaultInterval = 10
)

// Loop drives the subscription poll against its own HTTP session to
// the Infrastructure Printer, distinct from the relay worker's.
type Loop struct {
	Remote         *ippclient.Client
	Registry       *registry.Registry
	SubscriptionID int
	Log            zerolog.Logger

	sequence int
}

// Run bootstraps the registry from the current set of fetchable jobs,
// then polls notifications until ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	if l.sequence == 0 {
		l.sequence = 1
	}

	if err := l.bootstrap(ctx); err != nil {
		l.Log.Warn().Err(err).Msg("bootstrap fetchable-job scan failed")
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		interval, err := l.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.Log.Warn().Err(err).Msg("get-notifications failed, will retry")
			interval = defaultInterval
		}

		if !l.sleepInterruptible(ctx, interval) {
			return nil
		}
	}
}

// bootstrap issues Get-Jobs(which-jobs=fetchable) and seeds the
// registry with every job already pending or stopped, so a job
// fetchable before the subscription began is not missed.
func (l *Loop) bootstrap(ctx context.Context) error {
	resp, err := l.Remote.GetFetchableJobs(ctx)
	if err != nil {
		return err
	}

	seeded := 0
	for _, grp := range ippclient.JobGroups(resp) {
		jobID, ok := ippclient.GetInt(grp, "job-id")
		if !ok {
			continue
		}
		state, _ := ippclient.GetInt(grp, "job-state")
		if registry.RemoteJobState(state) != registry.RemotePending && registry.RemoteJobState(state) != registry.RemoteStopped {
			continue
		}
		if _, inserted := l.Registry.InsertIfAbsent(jobID, l.Remote.PrinterURI); inserted {
			l.Registry.UpdateRemoteState(jobID, registry.RemoteJobState(state))
			seeded++
		}
	}
	if seeded > 0 {
		l.Registry.NotifyWork()
		l.Log.Info().Int("count", seeded).Msg("seeded registry from bootstrap scan")
	}
	return nil
}

// poll issues one Get-Notifications exchange, dispatches every event
// group it returns, advances the sequence cursor, and reports the
// clamped notify-get-interval the server advised.
func (l *Loop) poll(ctx context.Context) (int, error) {
	resp, err := l.Remote.GetNotifications(ctx, l.SubscriptionID, l.sequence)
	if err != nil {
		return 0, err
	}

	highest := l.sequence - 1
	for _, evt := range ippclient.EventGroups(resp) {
		l.dispatch(ctx, evt)
		if seq, ok := ippclient.GetInt(evt, "notify-sequence-number"); ok && seq > highest {
			highest = seq
		}
	}
	l.sequence = highest + 1

	raw, ok := ippclient.GetInt(resp.Operation, "notify-get-interval")
	if !ok {
		return defaultInterval, nil
	}
	return clampInterval(raw), nil
}

func clampInterval(v int) int {
	if v < minInterval {
		return maxInterval
	}
	if v > maxInterval {
		return maxInterval
	}
	return v
}

// dispatch handles a single event-notification group.
func (l *Loop) dispatch(ctx context.Context, evt goipp.Attributes) {
	event, _ := ippclient.GetString(evt, "notify-subscribed-event")

	jobID, hasJob := ippclient.GetInt(evt, "job-id")
	if !hasJob {
		jobID, hasJob = ippclient.GetInt(evt, "notify-job-id")
	}
	state, _ := ippclient.GetInt(evt, "job-state")

	switch event {
	case "job-fetchable":
		if !hasJob {
			return
		}
		remoteState := registry.RemotePending
		if state != 0 {
			remoteState = registry.RemoteJobState(state)
		}
		if _, inserted := l.Registry.InsertIfAbsent(jobID, l.Remote.PrinterURI); inserted {
			l.Registry.UpdateRemoteState(jobID, remoteState)
			l.Registry.NotifyWork()
			l.Log.Info().Int("job", jobID).Msg("job fetchable")
		}

	case "job-state-changed":
		if !hasJob {
			return
		}
		if _, ok := l.Registry.Get(jobID); ok {
			l.Registry.UpdateRemoteState(jobID, registry.RemoteJobState(state))
			l.Registry.NotifyWork()
			l.Log.Debug().Int("job", jobID).Int("state", state).Msg("job state changed")
		} else {
			l.Log.Debug().Int("job", jobID).Msg("job-state-changed for untracked job, ignoring")
		}
	}

	if ippclient.ContainsString(evt, "printer-state-reasons", "identify-printer-requested") {
		l.acknowledgeIdentify(ctx)
	}
}

// acknowledgeIdentify answers an identify-printer-requested reason by
// asking the server what it wants done, then performing it locally: a
// visible message, an audible bell, or both. No actions returned means
// "sound", matching spec.md §4.3.
func (l *Loop) acknowledgeIdentify(ctx context.Context) {
	actions, message, err := l.Remote.AcknowledgeIdentifyPrinter(ctx)
	if err != nil {
		l.Log.Warn().Err(err).Msg("failed to acknowledge identify-printer request")
		return
	}
	if len(actions) == 0 {
		actions = []string{"sound"}
	}
	for _, a := range actions {
		switch a {
		case "display":
			l.Log.Info().Str("message", message).Msg("identify: display")
		case "sound":
			fmt.Fprint(os.Stdout, "\a")
		}
	}
}

// sleepInterruptible sleeps for seconds in one-second increments so
// ctx cancellation is observed within a second, matching spec.md §4.3
// and §5. It returns false if the sleep was cut short by shutdown.
func (l *Loop) sleepInterruptible(ctx context.Context, seconds int) bool {
	for i := 0; i < seconds; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Second):
		}
	}
	return ctx.Err() == nil
}
