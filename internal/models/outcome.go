package models

// OutcomeKind tags the result of a location submission. The set is closed:
// a submission either leaves the player on the current stage, moves them to
// the next one, or finishes the session.
type OutcomeKind string

const (
	OutcomeRetry    OutcomeKind = "retry"
	OutcomeAdvance  OutcomeKind = "advance"
	OutcomeFinished OutcomeKind = "finished"
)

// Outcome is the tagged result of one SubmitLocation call.
// Stage is the stage the sample was evaluated against and Attempts the
// attempt count recorded for it, including this submission. NextStage is set
// only for OutcomeAdvance.
type Outcome struct {
	Kind      OutcomeKind `json:"outcome"`
	Stage     *Stage      `json:"stage"`
	Attempts  int         `json:"attempts"`
	NextStage *Stage      `json:"nextStage,omitempty"`
}
