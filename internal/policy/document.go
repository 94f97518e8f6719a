package policy

// Placement controls where a disclaimer is injected into a response.
type Placement string

const (
	PlaceStart Placement = "start"
	PlaceEnd   Placement = "end"
	PlaceBoth  Placement = "both"
)

// UnsupportedScopeBehavior is what happens when a request falls outside
// the policy's allowed scope.
type UnsupportedScopeBehavior string

const (
	ScopeEscalate       UnsupportedScopeBehavior = "escalate"
	ScopeRefuse         UnsupportedScopeBehavior = "refuse"
	ScopeWarnAndAttempt UnsupportedScopeBehavior = "warn_and_attempt"
)

// EscalationAction is the response to a matched escalation trigger.
type EscalationAction string

const (
	ActionWarn             EscalationAction = "warn"
	ActionRefuseRedirect   EscalationAction = "refuse_and_redirect"
	ActionProvideResources EscalationAction = "provide_resources"
	ActionDiscloseDefer    EscalationAction = "disclose_and_defer"
	ActionRefuse           EscalationAction = "refuse"
)

// ImpliesRefusal reports whether the action ends the interaction.
// Only warn lets the message continue to generation.
func (a EscalationAction) ImpliesRefusal() bool {
	return a != ActionWarn && a != ""
}

// Escalation trigger conditions.
const (
	CondTopicMatch      = "topic_match"
	CondDistressSignal  = "distress_detected"
	CondConfidenceBelow = "confidence_below"
)

// Disclaimer trigger conditions.
const (
	TriggerAlways     = "always"
	TriggerDocument   = "on_document_generation"
	TriggerClaim      = "on_claim"
	TriggerLegalClaim = "on_legal_claim"
	TriggerCustom     = "custom"
)

// Audit verbosity levels, least to most detailed.
const (
	VerbosityMinimal  = "minimal"
	VerbosityStandard = "standard"
	VerbosityFull     = "full"
)

// Identity names and attributes the policy itself.
type Identity struct {
	Name            string   `yaml:"name"`
	Version         string   `yaml:"version"`
	Description     string   `yaml:"description"`
	Author          string   `yaml:"author"`
	Tags            []string `yaml:"tags"`
	RequiredModules []string `yaml:"required_modules"`
}

// DataAccessRule grants read/write access to one data scope, restricted
// to the listed file extensions.
type DataAccessRule struct {
	Scope       string   `yaml:"scope"`
	Permissions []string `yaml:"permissions"`
	FileTypes   []string `yaml:"file_types"`
}

// AllowsWrite reports whether the rule grants write permission.
func (r DataAccessRule) AllowsWrite() bool {
	for _, p := range r.Permissions {
		if p == "write" {
			return true
		}
	}
	return false
}

// Capabilities declares what the agent may do.
type Capabilities struct {
	Tools       []string         `yaml:"tools"`
	DataAccess  []DataAccessRule `yaml:"data_access"`
	OutputTypes []string         `yaml:"output_types"`
}

// Prohibitions declares what the agent must never do. Tool entries may
// end in "*" to prohibit an entire identifier prefix.
type Prohibitions struct {
	Tools          []string `yaml:"tools"`
	Actions        []string `yaml:"actions"`
	DataCategories []string `yaml:"data_categories"`
}

// DisclaimerRule injects required text into responses. Pattern is only
// consulted for the custom trigger.
type DisclaimerRule struct {
	Trigger   string    `yaml:"trigger"`
	Text      string    `yaml:"text"`
	Placement Placement `yaml:"placement"`
	Pattern   string    `yaml:"pattern,omitempty"`
}

// CitationPolicy requires responses to carry source evidence.
type CitationPolicy struct {
	Required       bool     `yaml:"required"`
	Format         string   `yaml:"format"`
	MinPerClaim    int      `yaml:"min_per_claim"`
	AllowedSources []string `yaml:"allowed_sources"`
	BlockedSources []string `yaml:"blocked_sources"`
}

// HumanReviewPolicy appends a review prompt when the response performs
// one of the trigger actions.
type HumanReviewPolicy struct {
	TriggerActions []string `yaml:"trigger_actions"`
	Prompt         string   `yaml:"prompt"`
}

// AuditPolicy configures audit verbosity and retention.
type AuditPolicy struct {
	Verbosity     string `yaml:"verbosity"`
	RetentionDays int    `yaml:"retention_days"`
}

// Requirements groups the disclosure obligations a policy imposes.
type Requirements struct {
	Disclaimers []DisclaimerRule   `yaml:"disclaimers"`
	Citations   *CitationPolicy    `yaml:"citations"`
	HumanReview *HumanReviewPolicy `yaml:"human_review"`
	Audit       AuditPolicy        `yaml:"audit"`
}

// Scope restricts the domains and jurisdictions the agent operates in.
type Scope struct {
	Allowed       []string                 `yaml:"allowed"`
	OnUnsupported UnsupportedScopeBehavior `yaml:"on_unsupported"`
	Message       string                   `yaml:"message"`
}

// EscalationTrigger reroutes an interaction when its condition matches.
type EscalationTrigger struct {
	Condition string           `yaml:"condition"`
	Topics    []string         `yaml:"topics,omitempty"`
	Threshold *float64         `yaml:"threshold,omitempty"`
	Action    EscalationAction `yaml:"action"`
	Message   string           `yaml:"message"`
	Resources []string         `yaml:"resources,omitempty"`
}

// Limits caps resource consumption. Zero means no limit for that field.
type Limits struct {
	MaxTokensPerTurn      int `yaml:"max_tokens_per_turn"`
	MaxToolCallsPerTurn   int `yaml:"max_tool_calls_per_turn"`
	MaxTurnsPerSession    int `yaml:"max_turns_per_session"`
	MaxConcurrentSessions int `yaml:"max_concurrent_sessions"`
	DailyTokenBudget      int `yaml:"daily_token_budget"`
	TurnTimeoutSeconds    int `yaml:"turn_timeout_seconds"`
}

// Policy is the validated, immutable policy document. It originates as
// untrusted external input, so cross-field consistency is checked by
// Validate rather than assumed by construction.
type Policy struct {
	Identity     Identity            `yaml:"identity"`
	Capabilities Capabilities        `yaml:"capabilities"`
	Prohibitions Prohibitions        `yaml:"prohibitions"`
	Requirements Requirements        `yaml:"requirements"`
	Scope        Scope               `yaml:"scope"`
	Escalation   []EscalationTrigger `yaml:"escalation"`
	Limits       Limits              `yaml:"limits"`
}

// FileTypeUnion returns the union of all allowed file extensions across
// the policy's data-access rules, lowercased.
func (p *Policy) FileTypeUnion() map[string]bool {
	union := make(map[string]bool)
	for _, rule := range p.Capabilities.DataAccess {
		for _, ft := range rule.FileTypes {
			union[normalizeExt(ft)] = true
		}
	}
	return union
}

// AllowsAnyWrite reports whether any data-access rule grants write.
func (p *Policy) AllowsAnyWrite() bool {
	for _, rule := range p.Capabilities.DataAccess {
		if rule.AllowsWrite() {
			return true
		}
	}
	return false
}
