package kernschema

// IdentityContext is the immutable identity T5 constructs at genesis and
// passes downward; lower tiers cannot modify it (spec.md §4.6.1: "an
// immutable IdentityContext that cannot be modified by lower tiers").
type IdentityContext struct {
	AgentID        string
	ProfileID      string
	PersonaBytes   []byte // opaque blob fetched from the Vault by id, never parsed by the core (spec.md §9)
	NonNegotiables []string // guardrail rule expressions, compiled once at load (§4.4.3)
}
