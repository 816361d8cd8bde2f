package dump

import "github.com/handiism/ncmdump/internal/model"

// Action is what the pipeline does with a failure.
type Action int

const (
	// ActionSkip reports the failure and continues with the next item.
	ActionSkip Action = iota

	// ActionAbort ends the whole run.
	ActionAbort
)

func (a Action) String() string {
	if a == ActionAbort {
		return "abort"
	}
	return "skip"
}

var policy = map[model.ErrorKind]Action{
	model.KindIO:       ActionSkip,
	model.KindPath:     ActionSkip,
	model.KindFormat:   ActionSkip,
	model.KindMetadata: ActionSkip,
	model.KindExists:   ActionSkip,
	model.KindConfig:   ActionAbort,
	model.KindQueue:    ActionAbort,
}

// PolicyFor returns the action for an error kind.
func PolicyFor(kind model.ErrorKind) Action {
	if action, ok := policy[kind]; ok {
		return action
	}
	return ActionSkip
}

// Failure is one item that could not be dumped.
type Failure struct {
	Item *model.WorkItem
	Kind model.ErrorKind
	Err  error
}

// Report summarizes a finished run.
type Report struct {
	// Written lists the output paths, sorted.
	Written []string

	// Failures lists every skipped item, in the order they were reported.
	Failures []Failure
}
