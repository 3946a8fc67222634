package document

import "github.com/meikuraledutech/workflow"

// BuildNameIndex maps every node identity to its display name.
//
// Names are not unique. Nodes that share a name resolve to the same string,
// so their edges merge under one adjacency key when exported.
func BuildNameIndex(nodes []workflow.GraphNode) map[string]string {
	index := make(map[string]string, len(nodes))
	for _, n := range nodes {
		index[n.ID] = n.Data.Name
	}
	return index
}

// DuplicateNames returns the names carried by more than one node, in the
// order they first appear.
func DuplicateNames(nodes []workflow.GraphNode) []string {
	count := make(map[string]int, len(nodes))
	var order []string
	for _, n := range nodes {
		if count[n.Data.Name] == 0 {
			order = append(order, n.Data.Name)
		}
		count[n.Data.Name]++
	}
	var dups []string
	for _, name := range order {
		if count[name] > 1 {
			dups = append(dups, name)
		}
	}
	return dups
}
