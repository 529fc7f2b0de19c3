package syncer

import "time"

// Options tune the engine. Zero values pick the documented defaults; the
// base poll interval is clamped so a bad value cannot flood the bridge or
// starve the UI.
type Options struct {
	// ClientID identifies this client on the command wire.
	ClientID string

	// PollInterval is the base scheduler cadence, clamped to [1s, 30s].
	PollInterval time.Duration

	// ResultPollInterval drives the independent command-result poll loop.
	ResultPollInterval time.Duration

	// ReplyTimeout force-clears awaiting-reply records with no proof of a
	// reply. Timed-out commands are not retried and not marked as errors;
	// the agent may still be working.
	ReplyTimeout time.Duration

	// DuplicateSendWindow absorbs duplicate UI-triggered sends of the
	// identical text to the identical thread.
	DuplicateSendWindow time.Duration

	// LivenessWindow bounds how stale the runner presence may be.
	LivenessWindow time.Duration

	// Per-tick load-shedding bounds. Tunable, not contractual.
	WorkspaceFetchesPerTick  int
	BackgroundThreadsPerTick int

	// DedupeWindow is how far into the authoritative tail overlay items
	// are checked for duplicates when rendering.
	DedupeWindow int

	// Fetch rate limiting per scope key.
	FetchRPS   float64
	FetchBurst int
}

func (o Options) withDefaults() Options {
	switch {
	case o.PollInterval == 0:
		o.PollInterval = 5 * time.Second
	case o.PollInterval < time.Second:
		o.PollInterval = time.Second
	case o.PollInterval > 30*time.Second:
		o.PollInterval = 30 * time.Second
	}
	if o.ResultPollInterval <= 0 {
		o.ResultPollInterval = 1500 * time.Millisecond
	}
	if o.ReplyTimeout <= 0 {
		o.ReplyTimeout = 15 * time.Minute
	}
	if o.DuplicateSendWindow <= 0 {
		o.DuplicateSendWindow = 1500 * time.Millisecond
	}
	if o.LivenessWindow <= 0 {
		o.LivenessWindow = 20 * time.Second
	}
	if o.WorkspaceFetchesPerTick <= 0 {
		o.WorkspaceFetchesPerTick = 2
	}
	if o.BackgroundThreadsPerTick <= 0 {
		o.BackgroundThreadsPerTick = 1
	}
	if o.DedupeWindow <= 0 {
		o.DedupeWindow = 12
	}
	return o
}

// workspaceMinInterval is the re-fetch floor for workspace scopes.
func (o Options) workspaceMinInterval() time.Duration {
	if d := 2 * o.PollInterval; d > 6*time.Second {
		return d
	}
	return 6 * time.Second
}

// threadIdleInterval is the re-fetch cadence for threads with no live
// command or awaiting-reply record.
func (o Options) threadIdleInterval() time.Duration {
	if d := 2 * o.PollInterval; d > 8*time.Second {
		return d
	}
	return 8 * time.Second
}
