package partition

// PollState is the tri-state outcome of a poll. "Not yet produced" and
// "end of stream" are distinct results, never a shared nil sentinel.
type PollState int

const (
	PollReady PollState = iota
	PollNotAvailable
	PollFinished
)

func (s PollState) String() string {
	switch s {
	case PollReady:
		return "ready"
	case PollNotAvailable:
		return "not-available"
	case PollFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// AvailabilityListener is notified whenever a view may have something new
// to poll. Notifications can fire from any thread, including recycle
// hooks; spurious wake-ups are harmless because the poll re-checks state.
type AvailabilityListener interface {
	NotifyDataAvailable()
}

// SubpartitionView is a per-consumer cursor over one subpartition, memory
// or file backed. GetNextRawMessage and IsAvailable must be called from a
// single poll thread; NotifyDataAvailable and ReleaseAllResources are safe
// from any thread.
type SubpartitionView interface {
	// GetNextRawMessage returns the next unit as a transient RawMessage.
	// PollNotAvailable means not yet produced, never end of stream.
	GetNextRawMessage() (RawMessage, PollState, error)

	NotifyDataAvailable()

	// IsAvailable reports whether the next poll can deliver. With zero
	// credits only a control event counts; events are credit-exempt.
	IsAvailable(credits int) bool

	// ResumeConsumption clears a pause caused by a blocking event once
	// new credits have been granted.
	ResumeConsumption()

	// ReleaseAllResources frees the underlying state. Idempotent.
	ReleaseAllResources() error

	IsReleased() bool

	// IsFinished reports whether the stream is exhausted: every unit has
	// been delivered or the view is released. Distinct from a transient
	// unavailability.
	IsFinished() bool

	// FailureCause returns the last fatal error, if any.
	FailureCause() error

	// QueuedUnitCount and DataBacklog are advisory counters read without
	// synchronization, used only for monitoring and credit sizing.
	QueuedUnitCount() int
	DataBacklog() int
}
