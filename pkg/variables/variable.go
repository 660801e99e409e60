// Package variables provides the scoped key/value store automations read and
// write during execution, including {{name}} interpolation of step
// configuration.
package variables

// Source tags who wrote a variable.
type Source string

const (
	SourceUser       Source = "user"       // Seeded by the caller's run-time inputs
	SourceAutomation Source = "automation" // Written by a step during execution
	SourceDefault    Source = "default"    // Substituted fallback value
)

// Scope tags how long a variable lives.
type Scope string

const (
	ScopeExecution Scope = "execution" // Cleared when the owning run ends
	ScopeGlobal    Scope = "global"    // Outlives a single run, backed by a GlobalStore
)

// Variable is a named value visible to steps through interpolation.
type Variable struct {
	Name   string `json:"name"`
	Value  any    `json:"value"`
	Source Source `json:"source"`
	Scope  Scope  `json:"scope"`
}
