package policy

// DefaultDocumentYAML returns a commented starter policy for init-policy.
func DefaultDocumentYAML() string {
	return `# mandate policy document
# Generated by: mandate init-policy
#
# Enforcement order (cannot be changed):
#   input:  limits -> escalation -> scope
#   step:   tool gate -> data access
#   result: output validator -> citation -> disclaimer -> audit

identity:
  name: tenancy-advisor
  version: "0.1.0"
  description: "Housing rights assistant for England and Wales"
  author: ops
  tags: [housing, legal]
  # Extension modules that must be registered before the agent starts.
  required_modules: [legal_uk]

capabilities:
  # Exact tool identifiers the agent may call.
  tools: [legal-lookup, formal-letter]
  data_access:
    - scope: case_files
      permissions: [read]
      file_types: [pdf, docx, txt]
  output_types: [advice, letter]

prohibitions:
  # Exact identifiers, or a trailing * to ban a whole prefix.
  tools: [email-send, payment_*]
  actions: [legal_representation]
  data_categories: [medical_records]

requirements:
  disclaimers:
    - trigger: always
      text: "This is general information, not legal advice."
      placement: end
  citations:
    required: true
    format: statute
    min_per_claim: 1
    allowed_sources: [legislation, case_law]
    blocked_sources: [forums]
  human_review:
    trigger_actions: [document_finalization, correspondence_dispatch, deadline]
    prompt: "Please have a qualified person review this before acting on it."
  audit:
    verbosity: standard
    retention_days: 90

scope:
  allowed: [england, wales]
  on_unsupported: refuse
  message: "I can only help with housing matters in England and Wales."

escalation:
  - condition: topic_match
    topics: [illegal_eviction]
    action: refuse_and_redirect
    message: "This needs urgent professional help rather than an assistant."
    resources: ["Shelter 0808 800 4444"]
  - condition: distress_detected
    action: provide_resources
    message: "It sounds like things are very difficult right now."
    resources: ["Samaritans 116 123"]

limits:
  max_tokens_per_turn: 1024
  max_tool_calls_per_turn: 5
  max_turns_per_session: 30
  max_concurrent_sessions: 10
  daily_token_budget: 200000
  turn_timeout_seconds: 600
`
}
