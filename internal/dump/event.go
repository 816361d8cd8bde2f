package dump

import "github.com/handiism/ncmdump/internal/model"

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

func (l ProgressLevel) String() string {
	switch l {
	case LevelVerbose:
		return "verbose"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelSuccess:
		return "success"
	default:
		return "info"
	}
}

// ProgressEvent represents a pipeline progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel

	// Item is the file the event is about, nil for run-level events.
	Item *model.WorkItem

	// Err is set for warnings and failures.
	Err error
}

// Phase is the run's position in its state machine.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseEnumerating
	PhaseStreaming
	PhaseDraining
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseEnumerating:
		return "enumerating"
	case PhaseStreaming:
		return "streaming"
	case PhaseDraining:
		return "draining"
	case PhaseDone:
		return "done"
	default:
		return "idle"
	}
}
