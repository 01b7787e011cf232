package storymap

import (
	"fmt"
	"regexp"
)

// Limits bounds the work a single validation call may do. Oversized graphs
// are rejected with InvalidArgumentError instead of being traversed.
type Limits struct {
	MaxNodes int
	MaxEdges int
}

// DefaultLimits returns the default validation limits.
func DefaultLimits() Limits {
	return Limits{MaxNodes: 5000, MaxEdges: 20000}
}

// InvalidArgumentError marks a caller contract violation (nil input lists,
// oversized graphs). It is distinct from validation problems, which are data.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Reason)
}

// IsInvalidArgument checks if an error is an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	_, ok := err.(*InvalidArgumentError)
	return ok
}

// unsafeExpressionPattern matches dynamic-evaluation primitives in edge
// condition expressions. Conditions are authored in a sandboxed expression
// dialect; anything reaching for the host runtime is flagged.
var unsafeExpressionPattern = regexp.MustCompile(
	`\beval\s*\(|\bFunction\s*\(|\bnew\s+Function\b|\bsetTimeout\s*\(|\bsetInterval\s*\(|\brequire\s*\(|\bimport\s*\(|\bprocess\.|\bglobalThis\b|\b__proto__\b|\bconstructor\s*\[`,
)

// Validate checks the structural integrity of a candidate graph and returns a
// complete report. It is a pure function: it works identically on a persisted
// document and on an unsaved draft, and it never fails on malformed graph
// content — every structural issue becomes a Problem. The only errors are
// caller contract violations (nil lists, limits exceeded).
//
// If startNodeID is empty the first node in the list is used, so drafts that
// have not yet designated a start node can still be validated.
func Validate(nodes []GraphNode, edges []GraphEdge, startNodeID string) (*ValidationReport, error) {
	return ValidateWithLimits(nodes, edges, startNodeID, DefaultLimits())
}

// ValidateWithLimits is Validate with explicit size limits.
func ValidateWithLimits(nodes []GraphNode, edges []GraphEdge, startNodeID string, limits Limits) (*ValidationReport, error) {
	if nodes == nil {
		return nil, &InvalidArgumentError{Reason: "nodes list is nil"}
	}
	if edges == nil {
		return nil, &InvalidArgumentError{Reason: "edges list is nil"}
	}
	if limits.MaxNodes > 0 && len(nodes) > limits.MaxNodes {
		return nil, &InvalidArgumentError{Reason: fmt.Sprintf("graph has %d nodes, limit is %d", len(nodes), limits.MaxNodes)}
	}
	if limits.MaxEdges > 0 && len(edges) > limits.MaxEdges {
		return nil, &InvalidArgumentError{Reason: fmt.Sprintf("graph has %d edges, limit is %d", len(edges), limits.MaxEdges)}
	}

	report := &ValidationReport{
		Summary:  Summary{TotalNodes: len(nodes), TotalEdges: len(edges)},
		Problems: []Problem{},
	}

	validNodeIDs := checkNodeIdentity(nodes, report)
	adjacency := checkEdges(edges, validNodeIDs, report)
	start := resolveStartNode(nodes, startNodeID, validNodeIDs, report)

	visited := map[string]bool{}
	if start != "" {
		visited = traverseFrom(start, adjacency)
		reportUnreachable(nodes, visited, report)
		if backEdges := countBackEdges(start, adjacency); backEdges > 0 {
			report.add(Problem{
				Severity: SeverityWarning,
				Code:     CodeCycleDetected,
				Message:  fmt.Sprintf("story graph contains %d cycle(s); loops are allowed but worth reviewing", backEdges),
			})
		}
	}
	report.Summary.UnreachableNodes = len(nodes) - len(visited)

	lintExpressions(edges, report)

	return report, nil
}

// checkNodeIdentity reports empty and duplicate node ids and returns the set
// of usable ids. The first occurrence of a duplicated id stays valid so later
// passes still see the node.
func checkNodeIdentity(nodes []GraphNode, report *ValidationReport) map[string]bool {
	valid := make(map[string]bool, len(nodes))
	for i, node := range nodes {
		if node.NodeID == "" {
			report.add(Problem{
				Severity: SeverityError,
				Code:     CodeNodeIDMissing,
				Message:  fmt.Sprintf("node at index %d has an empty nodeId", i),
			})
			continue
		}
		if valid[node.NodeID] {
			report.add(Problem{
				Severity: SeverityError,
				Code:     CodeNodeIDDuplicate,
				Message:  fmt.Sprintf("nodeId %q occurs more than once", node.NodeID),
				Location: Location{NodeID: node.NodeID},
			})
			continue
		}
		valid[node.NodeID] = true
	}
	return valid
}

// checkEdges reports identity and endpoint problems and builds the adjacency
// list restricted to valid node ids. Edges with a dangling endpoint never
// become traversable adjacencies.
func checkEdges(edges []GraphEdge, validNodeIDs map[string]bool, report *ValidationReport) map[string][]string {
	adjacency := make(map[string][]string)
	seen := make(map[string]bool, len(edges))

	for i, edge := range edges {
		if edge.EdgeID == "" {
			report.add(Problem{
				Severity: SeverityError,
				Code:     CodeEdgeIDMissing,
				Message:  fmt.Sprintf("edge at index %d has an empty edgeId", i),
			})
		} else if seen[edge.EdgeID] {
			report.add(Problem{
				Severity: SeverityError,
				Code:     CodeEdgeIDDuplicate,
				Message:  fmt.Sprintf("edgeId %q occurs more than once", edge.EdgeID),
				Location: Location{EdgeID: edge.EdgeID},
			})
		} else {
			seen[edge.EdgeID] = true
		}

		endpointsOK := true
		if !validNodeIDs[edge.SourceNodeID] {
			endpointsOK = false
			report.add(Problem{
				Severity: SeverityError,
				Code:     CodeEdgeSourceMissing,
				Message:  fmt.Sprintf("edge %q references unknown source node %q", edge.EdgeID, edge.SourceNodeID),
				Location: Location{EdgeID: edge.EdgeID},
			})
		}
		if !validNodeIDs[edge.TargetNodeID] {
			endpointsOK = false
			report.add(Problem{
				Severity: SeverityError,
				Code:     CodeEdgeTargetMissing,
				Message:  fmt.Sprintf("edge %q references unknown target node %q", edge.EdgeID, edge.TargetNodeID),
				Location: Location{EdgeID: edge.EdgeID},
			})
		}
		if endpointsOK {
			adjacency[edge.SourceNodeID] = append(adjacency[edge.SourceNodeID], edge.TargetNodeID)
		}
	}
	return adjacency
}

// resolveStartNode returns the node id traversal starts from, or "" when no
// start is resolvable. An empty startNodeID falls back to the first node in
// the list; an empty graph has nothing to resolve and produces no problem.
func resolveStartNode(nodes []GraphNode, startNodeID string, validNodeIDs map[string]bool, report *ValidationReport) string {
	if startNodeID == "" {
		if len(nodes) == 0 {
			return ""
		}
		startNodeID = nodes[0].NodeID
	}
	if !validNodeIDs[startNodeID] {
		report.add(Problem{
			Severity: SeverityError,
			Code:     CodeStartNodeMissing,
			Message:  fmt.Sprintf("startNodeId %q does not resolve to a node", startNodeID),
			Location: Location{NodeID: startNodeID},
		})
		return ""
	}
	return startNodeID
}

// traverseFrom returns the set of node ids reachable from start. Iterative so
// pathological graphs cannot overflow the stack.
func traverseFrom(start string, adjacency map[string][]string) map[string]bool {
	visited := map[string]bool{start: true}
	stack := []string{start}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range adjacency[current] {
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return visited
}

func reportUnreachable(nodes []GraphNode, visited map[string]bool, report *ValidationReport) {
	flagged := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		if node.NodeID == "" || visited[node.NodeID] || flagged[node.NodeID] {
			continue
		}
		flagged[node.NodeID] = true
		report.add(Problem{
			Severity: SeverityWarning,
			Code:     CodeNodeUnreachable,
			Message:  fmt.Sprintf("node %q is not reachable from the start node", node.NodeID),
			Location: Location{NodeID: node.NodeID},
		})
	}
}

// Three-color DFS marks.
const (
	white = iota
	gray
	black
)

// countBackEdges runs an iterative white/gray/black DFS from start and counts
// back-edges (an edge into a gray node), each of which closes a cycle.
func countBackEdges(start string, adjacency map[string][]string) int {
	color := map[string]int{}
	backEdges := 0

	type frame struct {
		node string
		next int
	}
	stack := []frame{{node: start}}
	color[start] = gray

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		neighbors := adjacency[top.node]
		if top.next < len(neighbors) {
			next := neighbors[top.next]
			top.next++
			switch color[next] {
			case white:
				color[next] = gray
				stack = append(stack, frame{node: next})
			case gray:
				backEdges++
			}
		} else {
			color[top.node] = black
			stack = stack[:len(stack)-1]
		}
	}
	return backEdges
}

// lintExpressions flags unsafe and empty condition expressions. The engine
// never evaluates conditions, so these are advisory only.
func lintExpressions(edges []GraphEdge, report *ValidationReport) {
	for _, edge := range edges {
		if edge.Condition == nil {
			continue
		}
		if edge.Condition.Expression == "" {
			report.add(Problem{
				Severity: SeverityInfo,
				Code:     CodeEmptyExpression,
				Message:  fmt.Sprintf("edge %q has a condition with an empty expression", edge.EdgeID),
				Location: Location{EdgeID: edge.EdgeID},
			})
			continue
		}
		if unsafeExpressionPattern.MatchString(edge.Condition.Expression) {
			report.add(Problem{
				Severity: SeverityWarning,
				Code:     CodeUnsafeExpression,
				Message:  fmt.Sprintf("edge %q condition uses a dynamic-evaluation construct", edge.EdgeID),
				Location: Location{EdgeID: edge.EdgeID},
			})
		}
	}
}
