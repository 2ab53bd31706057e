package converter

import (
	"media-converter/internal/mediatypes"
)

// ProcessState is the externally visible state of a job.
type ProcessState int

const (
	StateIdle ProcessState = iota
	StateProcessing
	StateCancelled
	StateFinished
)

var stateNames = map[ProcessState]string{
	StateIdle:       "idle",
	StateProcessing: "processing",
	StateCancelled:  "cancelled",
	StateFinished:   "finished",
}

func (s ProcessState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Phase is the step of the job's pipeline currently running.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoadingMetadata
	PhaseConfiguring
	PhaseTransferring
	PhaseReconciling
	PhaseDone
)

var phaseNames = map[Phase]string{
	PhaseIdle:            "idle",
	PhaseLoadingMetadata: "loading-metadata",
	PhaseConfiguring:     "configuring",
	PhaseTransferring:    "transferring",
	PhaseReconciling:     "reconciling",
	PhaseDone:            "done",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Outcome classifies a Result.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeCancellation
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeCancellation:
		return "cancellation"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Result is the terminal outcome of a job. Output is set only on success;
// Err is set for cancellation and failure.
type Result struct {
	Outcome Outcome
	Output  mediatypes.Asset
	Err     error
}

// Succeeded reports whether the job produced an output asset.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// Completion receives the outcome of a job. It is invoked exactly once.
type Completion func(succeeded bool, output mediatypes.Asset, err error)

func success(output mediatypes.Asset) Result {
	return Result{Outcome: OutcomeSuccess, Output: output}
}

func cancellation(jobID, op string) Result {
	return Result{
		Outcome: OutcomeCancellation,
		Err:     &Error{Kind: ErrCancelled, Op: op, JobID: jobID},
	}
}

func failure(kind error, jobID, op string, cause error) Result {
	return Result{
		Outcome: OutcomeFailure,
		Err:     &Error{Kind: kind, Op: op, JobID: jobID, Err: cause},
	}
}
