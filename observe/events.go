package observe

import "time"

// EventKind identifies a run or stage transition.
type EventKind string

const (
	RunStarted    EventKind = "run_started"
	RunFinished   EventKind = "run_finished"
	StageStarted  EventKind = "stage_started"
	StagePhase    EventKind = "stage_phase"
	StageFinished EventKind = "stage_finished"
)

// StageEvent describes a single run or stage transition. Status and Phase
// carry the string forms of the pipeline's enums so this package stays a
// leaf dependency.
type StageEvent struct {
	Kind     EventKind
	Run      int
	Stage    string
	Phase    string
	Status   string
	Attempt  int
	Duration time.Duration
	Err      string
	Time     time.Time
}

// Emitter consumes stage events. Implementations must be safe for use from
// a single executor goroutine per run.
type Emitter interface {
	Emit(e StageEvent)
}

// LogEmitter writes stage events as structured log entries.
type LogEmitter struct {
	Logger Logger
}

func (le *LogEmitter) Emit(e StageEvent) {
	fields := map[string]any{"run": e.Run}
	if e.Stage != "" {
		fields["stage"] = e.Stage
	}
	if e.Phase != "" {
		fields["phase"] = e.Phase
	}
	if e.Status != "" {
		fields["status"] = e.Status
	}
	if e.Attempt > 0 {
		fields["attempt"] = e.Attempt
	}
	if e.Duration > 0 {
		fields["duration"] = e.Duration.String()
	}
	if e.Err != "" {
		fields["error"] = e.Err
	}
	if e.Kind == RunFinished && e.Err != "" {
		le.Logger.Error(string(e.Kind), fields)
		return
	}
	le.Logger.Info(string(e.Kind), fields)
}

// ChannelEmitter forwards events to a channel, dropping events if the
// receiver falls behind. Used to feed the live progress view.
type ChannelEmitter struct {
	C chan StageEvent
}

// NewChannelEmitter creates a ChannelEmitter with the given buffer size.
func NewChannelEmitter(buf int) *ChannelEmitter {
	return &ChannelEmitter{C: make(chan StageEvent, buf)}
}

func (ce *ChannelEmitter) Emit(e StageEvent) {
	select {
	case ce.C <- e:
	default:
	}
}

// Close closes the underlying channel. Call after the run has finished.
func (ce *ChannelEmitter) Close() { close(ce.C) }

// MultiEmitter fans events out to several emitters.
type MultiEmitter []Emitter

func (me MultiEmitter) Emit(e StageEvent) {
	for _, em := range me {
		em.Emit(e)
	}
}
