package graph

// Command lets a node override the graph's static routing for one step: it
// updates the state and/or sends execution to a specific node (or set of
// nodes), bypassing the edges defined with AddEdge/AddConditionalEdge.
//
// A node returns *Command instead of its normal state value; Goto may be a
// string or a []string.
type Command struct {
	// Update is merged into the graph state the same way a normal node
	// result would be, via the schema or state merger.
	Update any

	// Goto names the next node(s) to run, overriding static/conditional
	// edges for this step. nil leaves routing to the graph's edges.
	Goto any
}
