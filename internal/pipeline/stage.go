// Package pipeline implements the ordered enforcement-stage chain that
// wraps the conversational agent. Stages are pure functions of the
// conversation plus precomputed policy tables; abort is a tagged result
// value, never an exception.
package pipeline

import "github.com/rkalmar/mandate/internal/model"

// MaxRetries is the fixed retry budget for soft aborts. After two
// retryable aborts in one interaction, any further abort is terminal.
// Deliberately not policy-configurable.
const MaxRetries = 2

// Turn is the per-interaction context handed to every stage hook.
type Turn struct {
	SessionID string
	Messages  []model.Message

	// RetryCount is how many times this interaction has already been
	// retried after a soft abort.
	RetryCount int
}

// LastUser returns the most recent user message content.
func (t *Turn) LastUser() string {
	return model.LastUserContent(t.Messages)
}

// LastAssistant returns the most recent assistant message content and
// its index, or ("", -1).
func (t *Turn) LastAssistant() (string, int) {
	idx := model.LastAssistantIndex(t.Messages)
	if idx < 0 {
		return "", -1
	}
	return t.Messages[idx].Content, idx
}

// Result is a stage outcome: either the interaction continues with the
// (possibly transformed) messages, or it aborts. A retryable abort feeds
// its reason back to the generator for another attempt; a hard abort's
// reason becomes the user-visible response.
type Result struct {
	Messages  []model.Message
	Aborted   bool
	Reason    string
	Retryable bool
}

// Continue returns a non-aborting result carrying the messages forward.
func Continue(msgs []model.Message) Result {
	return Result{Messages: msgs}
}

// Abort returns an aborting result.
func Abort(reason string, retryable bool) Result {
	return Result{Aborted: true, Reason: reason, Retryable: retryable}
}

// Stage is one unit of the enforcement pipeline.
type Stage interface {
	Name() string
}

// InputStage runs on user input before generation.
type InputStage interface {
	Stage
	OnInput(t *Turn) Result
}

// StepStage runs after each model turn, before proposed tool calls
// are executed.
type StepStage interface {
	Stage
	OnStep(t *Turn, calls []model.ToolCall) Result
}

// ResultStage runs on the final textual response.
type ResultStage interface {
	Stage
	OnResult(t *Turn) Result
}
