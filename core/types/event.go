package types

// Event is the canonical payload for structured state changes produced by the
// marketplace and ledger engines. Attributes hold string-encoded values so the
// payload stays stable across emitter implementations.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
