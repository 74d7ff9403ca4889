// Package chat runs the question-answering pipeline: retrieve relevant
// chunks, assemble a prompt with conversation history, generate an
// answer, and record the completed turn.
package chat

import "github.com/devkaluri/rag-chat/index"

// State tracks one question-answering cycle. A cycle moves strictly
// forward: Received -> Retrieving -> Assembling -> Generating, ending
// in Answered or Failed. No intermediate state is resumable; session
// history is read while assembling and written only on Answered.
type State int

const (
	StateReceived State = iota
	StateRetrieving
	StateAssembling
	StateGenerating
	StateAnswered
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateRetrieving:
		return "retrieving"
	case StateAssembling:
		return "assembling"
	case StateGenerating:
		return "generating"
	case StateAnswered:
		return "answered"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of one cycle. FailedAt names the stage that
// errored when State is StateFailed.
type Result struct {
	Answer   string
	State    State
	FailedAt State
	Sources  []index.Result
}
