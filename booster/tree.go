// Package booster trains the multiclass gradient-boosted tree classifier:
// one regression tree per class per round on softmax gradients, with row and
// column subsampling and validation-based early stopping.
package booster

// NodeType identifies how a node routes samples.
type NodeType int

const (
	// NumericalNode splits on featureValue <= Threshold.
	NumericalNode NodeType = iota
	// LeafNode holds an output value.
	LeafNode
)

// Node is one node of a regression tree, stored in a flat slice addressed
// by child indices.
type Node struct {
	NodeID       int      `json:"node_id"`
	ParentID     int      `json:"parent_id"`
	NodeType     NodeType `json:"node_type"`
	SplitFeature int      `json:"split_feature"`
	Threshold    float64  `json:"threshold"`
	LeftChild    int      `json:"left_child"`
	RightChild   int      `json:"right_child"`
	LeafValue    float64  `json:"leaf_value"`
	Gain         float64  `json:"gain"`
}

// IsLeaf reports whether the node is terminal.
func (n *Node) IsLeaf() bool {
	return n.NodeType == LeafNode
}

// Tree is one regression tree of the ensemble. ClassID records which class
// score the tree contributes to; ShrinkageRate is applied at prediction.
type Tree struct {
	TreeIndex     int     `json:"tree_index"`
	ClassID       int     `json:"class_id"`
	ShrinkageRate float64 `json:"shrinkage"`
	Nodes         []Node  `json:"nodes"`
	NumLeaves     int     `json:"num_leaves"`
}

// Predict routes a feature vector to its leaf value (without shrinkage).
func (t *Tree) Predict(features []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	nodeIdx := 0
	for nodeIdx >= 0 && nodeIdx < len(t.Nodes) {
		node := &t.Nodes[nodeIdx]
		if node.IsLeaf() {
			return node.LeafValue
		}
		if features[node.SplitFeature] <= node.Threshold {
			nodeIdx = node.LeftChild
		} else {
			nodeIdx = node.RightChild
		}
	}
	return 0
}

// countLeaves counts the terminal nodes.
func (t *Tree) countLeaves() int {
	n := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			n++
		}
	}
	return n
}
