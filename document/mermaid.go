package document

import (
	"fmt"
	"strings"

	"github.com/meikuraledutech/workflow"
)

// Mermaid renders the logical workflow as a Mermaid flowchart.
//
// Vertices are node names, so same-named nodes collapse into one vertex, the
// same way they do in the adjacency list. Shapes:
//   - start node: ((circle))
//   - supervisor: [[subroutine]]
//   - agent: [rectangle]
func Mermaid(d WorkflowData) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := make(map[string]string)
	vertex := func(name string) (string, bool) {
		if id, ok := ids[name]; ok {
			return id, false
		}
		id := fmt.Sprintf("n%d", len(ids))
		ids[name] = id
		return id, true
	}

	for _, n := range d.Nodes {
		id, fresh := vertex(n.Name)
		if !fresh {
			continue
		}
		opener, closer := "[", "]"
		switch {
		case n.IsStartNode:
			opener, closer = "((", "))"
		case n.Role() == workflow.RoleSupervisor:
			opener, closer = "[[", "]]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, mermaidLabel(n.Name), closer))
	}

	for _, source := range d.AdjacencyList.Keys() {
		from, fresh := vertex(source)
		if fresh {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", from, mermaidLabel(source)))
		}
		for _, target := range d.AdjacencyList.Targets(source) {
			to, fresh := vertex(target)
			if fresh {
				sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", to, mermaidLabel(target)))
			}
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", from, to))
		}
	}
	return sb.String()
}

// labelReplacer keeps a label inside its quotes and on one line.
var labelReplacer = strings.NewReplacer(
	"\"", "'",
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

func mermaidLabel(name string) string {
	if name == "" {
		return " "
	}
	return labelReplacer.Replace(name)
}
