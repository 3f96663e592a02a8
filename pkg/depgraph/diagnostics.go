package depgraph

// DiagnosticKind classifies a non-fatal problem found while building or
// resolving the graph.
type DiagnosticKind string

const (
	// DiagMalformedDependency marks a dependency entry that was skipped
	// because its manifest value had neither the string nor the table shape.
	DiagMalformedDependency DiagnosticKind = "malformed-dependency"

	// DiagUnresolvedRequirement marks a feature requirement that was dropped
	// because its target feature was not found in either scope.
	DiagUnresolvedRequirement DiagnosticKind = "unresolved-requirement"

	// DiagUnknownDependency marks a cross-crate feature requirement naming a
	// dependency the owning crate has no edge to.
	DiagUnknownDependency DiagnosticKind = "unknown-dependency"
)

// Diagnostic is one surfaced warning. Problems that are deliberately
// non-fatal (partial manifest data is the norm, not the exception) are
// recorded here instead of aborting the build, so callers and tests can
// assert on them.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Subject string         `json:"subject"`
	Detail  string         `json:"detail,omitempty"`
}
