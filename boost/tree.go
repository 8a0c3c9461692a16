package boost

// NodeType distinguishes split nodes from leaves.
type NodeType int

const (
	// LeafNode is a terminal node carrying a value.
	LeafNode NodeType = iota
	// NumericalNode splits on feature <= threshold.
	NumericalNode
)

// Node is a single node of a regression tree. Children are indices into
// Tree.Nodes; -1 marks a leaf.
type Node struct {
	NodeID     int      `json:"node_id"`
	LeftChild  int      `json:"left_child"`
	RightChild int      `json:"right_child"`
	NodeType   NodeType `json:"node_type"`

	SplitFeature int     `json:"split_feature,omitempty"`
	Threshold    float64 `json:"threshold,omitempty"`
	Gain         float64 `json:"gain,omitempty"`

	LeafValue float64 `json:"leaf_value,omitempty"`
	Count     int     `json:"count"`
}

// IsLeaf reports whether n is a terminal node.
func (n *Node) IsLeaf() bool {
	return n.NodeType == LeafNode
}

// Tree is a depth-limited regression tree fitted to one boosting iteration's
// gradients. Nodes[0] is the root.
type Tree struct {
	TreeIndex     int     `json:"tree_index"`
	NumLeaves     int     `json:"num_leaves"`
	Depth         int     `json:"depth"`
	ShrinkageRate float64 `json:"shrinkage"`
	Nodes         []Node  `json:"nodes"`
}

// Predict returns the shrunken leaf value reached by features.
func (t *Tree) Predict(features []float64) float64 {
	return t.LeafValue(features) * t.ShrinkageRate
}

// LeafValue returns the raw (unshrunken) value of the leaf reached by
// features. An empty tree predicts 0.
func (t *Tree) LeafValue(features []float64) float64 {
	id := 0
	for id >= 0 && id < len(t.Nodes) {
		node := &t.Nodes[id]
		if node.IsLeaf() {
			return node.LeafValue
		}
		if features[node.SplitFeature] <= node.Threshold {
			id = node.LeftChild
		} else {
			id = node.RightChild
		}
	}
	return 0
}

// Thresholds returns the split thresholds in node order.
func (t *Tree) Thresholds() []float64 {
	var out []float64
	for i := range t.Nodes {
		if !t.Nodes[i].IsLeaf() {
			out = append(out, t.Nodes[i].Threshold)
		}
	}
	return out
}
