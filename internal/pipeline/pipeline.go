package pipeline

import (
	"fmt"

	"github.com/rkalmar/mandate/internal/audit"
	"github.com/rkalmar/mandate/internal/model"
	"github.com/rkalmar/mandate/internal/policy"
	"github.com/rkalmar/mandate/internal/registry"
	"github.com/rkalmar/mandate/internal/session"
)

// Deps are the collaborators injected into stage construction.
type Deps struct {
	Registry *registry.Registry
	Sessions *session.Store
	Recorder audit.Recorder

	// DataCategoryKeywords overrides the keyword list for a prohibited
	// data category. Categories without an override match on their label
	// with underscores replaced by spaces.
	DataCategoryKeywords map[string][]string

	// ExtraInput and ExtraResult are policy-declared domain-specific
	// stages, run after the core stages of their hook.
	ExtraInput  []InputStage
	ExtraResult []ResultStage
}

// Pipeline is the compiled enforcement chain for one policy. Stage
// construction precomputes keyword sets and regex tables, so the cost is
// paid once per agent instantiation, not per request.
type Pipeline struct {
	input  []InputStage
	step   []StepStage
	result []ResultStage
}

// New compiles a pipeline for the given policy. Misconfiguration — an
// unregistered extension module, an uncompilable pattern — fails here,
// at construction time, so it cannot surface mid-conversation.
func New(p *policy.Policy, deps Deps) (*Pipeline, error) {
	if deps.Registry == nil {
		deps.Registry = registry.New()
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewStore(nil)
	}
	if deps.Recorder == nil {
		deps.Recorder = audit.NewMemoryRecorder()
	}

	modules := p.Identity.RequiredModules
	if err := deps.Registry.EnsureModules(modules); err != nil {
		return nil, err
	}

	outputStage, err := newOutputStage(p, deps.Registry)
	if err != nil {
		return nil, fmt.Errorf("output validator: %w", err)
	}
	disclaimerStage, err := newDisclaimerStage(p)
	if err != nil {
		return nil, fmt.Errorf("disclaimer: %w", err)
	}

	limits := newLimitsStage(p, deps.Sessions, deps.Recorder)

	pl := &Pipeline{}
	pl.input = append(pl.input,
		limits,
		newEscalationStage(p, deps.Registry),
		newScopeStage(p, deps.Registry),
	)
	pl.input = append(pl.input, deps.ExtraInput...)

	pl.step = append(pl.step,
		newToolGateStage(p, deps.DataCategoryKeywords, deps.Recorder),
		newDataAccessStage(p),
	)

	// Limits runs first on results so truncation happens before the
	// validators and disclaimer injection see the text.
	pl.result = append(pl.result,
		limits,
		outputStage,
		newCitationStage(p),
		disclaimerStage,
	)
	pl.result = append(pl.result, deps.ExtraResult...)
	// Audit is unconditionally last.
	pl.result = append(pl.result, newAuditStage(p, deps.Recorder))

	return pl, nil
}

// RunInput drives the pre-generation stages in order, short-circuiting
// on the first abort.
func (pl *Pipeline) RunInput(t *Turn) Result {
	for _, st := range pl.input {
		res := st.OnInput(t)
		if res.Aborted {
			return pl.capRetry(t, res)
		}
		if res.Messages != nil {
			t.Messages = res.Messages
		}
	}
	return Continue(t.Messages)
}

// RunStep drives the per-step stages over a batch of proposed tool calls.
func (pl *Pipeline) RunStep(t *Turn, calls []model.ToolCall) Result {
	for _, st := range pl.step {
		res := st.OnStep(t, calls)
		if res.Aborted {
			return pl.capRetry(t, res)
		}
		if res.Messages != nil {
			t.Messages = res.Messages
		}
	}
	return Continue(t.Messages)
}

// RunResult drives the post-generation stages. The disclaimer and audit
// stages never abort, so an abort here comes from the output validator
// or the citation gate.
func (pl *Pipeline) RunResult(t *Turn) Result {
	for _, st := range pl.result {
		res := st.OnResult(t)
		if res.Aborted {
			return pl.capRetry(t, res)
		}
		if res.Messages != nil {
			t.Messages = res.Messages
		}
	}
	return Continue(t.Messages)
}

// capRetry makes a retryable abort terminal once the interaction has
// exhausted the fixed retry budget.
func (pl *Pipeline) capRetry(t *Turn, res Result) Result {
	if res.Retryable && t.RetryCount >= MaxRetries {
		res.Retryable = false
	}
	return res
}
