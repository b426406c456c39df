package core

// PartitionNode is one node of a source-side category tree. Connectors whose
// APIs expose nested categories build this tree and flatten it before
// handing partitions to the engine.
type PartitionNode struct {
	Partition
	Children []*PartitionNode
}

// FlattenTree flattens a partition tree breadth-first into driving order.
// Nodes deeper than maxDepth are dropped rather than recursed into, which
// bounds resource use on malformed or adversarial trees. Depth is filled in
// on the returned partitions (roots are depth 0).
func FlattenTree(roots []*PartitionNode, maxDepth int) []Partition {
	if maxDepth < 0 {
		maxDepth = 0
	}

	var out []Partition

	type queued struct {
		node  *PartitionNode
		depth int
	}

	queue := make([]queued, 0, len(roots))
	for _, root := range roots {
		if root == nil {
			continue
		}
		queue = append(queue, queued{node: root, depth: 0})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		p := item.node.Partition
		p.Depth = item.depth
		out = append(out, p)

		if item.depth >= maxDepth {
			continue
		}
		for _, child := range item.node.Children {
			if child == nil {
				continue
			}
			queue = append(queue, queued{node: child, depth: item.depth + 1})
		}
	}

	return out
}
