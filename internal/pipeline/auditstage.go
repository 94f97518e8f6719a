package pipeline

import (
	"github.com/rkalmar/mandate/internal/audit"
	"github.com/rkalmar/mandate/internal/policy"
)

// auditStage unconditionally records one summary entry per completed
// interaction. It is always the last stage and must never abort; a
// failed write is best-effort by default.
type auditStage struct {
	rec       audit.Recorder
	pname     string
	pver      string
	verbosity string
}

func newAuditStage(p *policy.Policy, rec audit.Recorder) *auditStage {
	return &auditStage{
		rec:       rec,
		pname:     p.Identity.Name,
		pver:      p.Identity.Version,
		verbosity: p.Requirements.Audit.Verbosity,
	}
}

func (s *auditStage) Name() string { return "audit" }

func (s *auditStage) OnResult(t *Turn) Result {
	entry := audit.Entry{
		PolicyName:    s.pname,
		PolicyVersion: s.pver,
		Status:        audit.StatusSuccess,
	}
	if s.verbosity != policy.VerbosityMinimal {
		entry.Input = t.LastUser()
		entry.Output, _ = t.LastAssistant()
	}
	_ = s.rec.Record(entry)
	return Continue(t.Messages)
}
