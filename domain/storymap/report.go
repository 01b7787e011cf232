package storymap

// Severity grades a validation problem. Only errors should block publishing;
// warnings and infos exist for author awareness.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ProblemCode identifies a class of structural problem.
type ProblemCode string

const (
	CodeNodeIDDuplicate   ProblemCode = "NODE_ID_DUPLICATE"
	CodeNodeIDMissing     ProblemCode = "NODE_ID_MISSING"
	CodeEdgeIDDuplicate   ProblemCode = "EDGE_ID_DUPLICATE"
	CodeEdgeIDMissing     ProblemCode = "EDGE_ID_MISSING"
	CodeEdgeSourceMissing ProblemCode = "EDGE_SOURCE_MISSING"
	CodeEdgeTargetMissing ProblemCode = "EDGE_TARGET_MISSING"
	CodeStartNodeMissing  ProblemCode = "START_NODE_MISSING"
	CodeNodeUnreachable   ProblemCode = "NODE_UNREACHABLE"
	CodeCycleDetected     ProblemCode = "CYCLE_DETECTED"
	CodeUnsafeExpression  ProblemCode = "UNSAFE_EXPRESSION"
	CodeEmptyExpression   ProblemCode = "EMPTY_EXPRESSION"
)

// Location points a problem at the node or edge it concerns. Both fields are
// empty for document-level problems.
type Location struct {
	NodeID string `json:"nodeId,omitempty"`
	EdgeID string `json:"edgeId,omitempty"`
}

// Problem is one structural issue found by Validate. Problems are data, not
// errors: a report always carries the complete list so an authoring UI can
// present everything in one round trip.
type Problem struct {
	Severity Severity    `json:"severity"`
	Code     ProblemCode `json:"code"`
	Message  string      `json:"message"`
	Location Location    `json:"location,omitempty"`
}

// Summary aggregates the counts of a validation run.
type Summary struct {
	TotalNodes       int `json:"totalNodes"`
	TotalEdges       int `json:"totalEdges"`
	UnreachableNodes int `json:"unreachableNodes"`
	ErrorCount       int `json:"errorCount"`
	WarningCount     int `json:"warningCount"`
	InfoCount        int `json:"infoCount"`
}

// ValidationReport is the output of one Validate call. It is never persisted.
type ValidationReport struct {
	Summary  Summary   `json:"summary"`
	Problems []Problem `json:"problems"`
}

// HasErrors reports whether any problem is of error severity.
func (r *ValidationReport) HasErrors() bool {
	return r.Summary.ErrorCount > 0
}

func (r *ValidationReport) add(p Problem) {
	r.Problems = append(r.Problems, p)
	switch p.Severity {
	case SeverityError:
		r.Summary.ErrorCount++
	case SeverityWarning:
		r.Summary.WarningCount++
	case SeverityInfo:
		r.Summary.InfoCount++
	}
}
