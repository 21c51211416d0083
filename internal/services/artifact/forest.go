package artifact

import (
	"context"
	"encoding/json"
	"fmt"

	"CardioStage/internal/domain/models"
	domsvc "CardioStage/internal/domain/service"
)

// forestNode is one node of an exported decision tree. A leaf has
// Left == Right == -1 and carries per-class weights in Value.
type forestNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value"`
}

type forestDoc struct {
	FeatureNames []string `json:"feature_names"`
	Classes      []int    `json:"classes"`
	Trees        []struct {
		Nodes []forestNode `json:"nodes"`
	} `json:"trees"`
}

// Forest is a random forest classifier evaluated in process. The positive
// class probability is the mean over trees of the leaf's class-1 fraction;
// the label is 1 when that mean exceeds 0.5.
type Forest struct {
	trees [][]forestNode
}

var (
	_ domsvc.Model          = (*Forest)(nil)
	_ domsvc.JointPredictor = (*Forest)(nil)
	_ domsvc.Describer      = (*Forest)(nil)
)

func parseForest(data []byte) (*Forest, error) {
	var doc forestDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode forest: %w", err)
	}
	if err := checkFeatureNames(doc.FeatureNames); err != nil {
		return nil, err
	}
	if len(doc.Classes) > 0 && (len(doc.Classes) != 2 || doc.Classes[0] != 0 || doc.Classes[1] != 1) {
		return nil, fmt.Errorf("forest classes must be [0 1], got %v", doc.Classes)
	}
	if len(doc.Trees) == 0 {
		return nil, fmt.Errorf("forest has no trees")
	}

	f := &Forest{trees: make([][]forestNode, len(doc.Trees))}
	for i, t := range doc.Trees {
		if err := checkTree(t.Nodes); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		f.trees[i] = t.Nodes
	}
	return f, nil
}

// checkTree guarantees traversal terminates and never indexes out of range:
// children always follow their parent, as in a depth-first export.
func checkTree(nodes []forestNode) error {
	if len(nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, n := range nodes {
		if n.Left == -1 {
			if n.Right != -1 {
				return fmt.Errorf("node %d: leaf with right child", i)
			}
			if len(n.Value) != 2 || n.Value[0] < 0 || n.Value[1] < 0 || n.Value[0]+n.Value[1] <= 0 {
				return fmt.Errorf("node %d: leaf value must be two non-negative class weights", i)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= models.FeatureCount {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Left >= len(nodes) || n.Right <= i || n.Right >= len(nodes) {
			return fmt.Errorf("node %d: child index out of order", i)
		}
	}
	return nil
}

func (f *Forest) probability(x [models.FeatureCount]float64) float64 {
	var sum float64
	for _, nodes := range f.trees {
		i := 0
		for nodes[i].Left != -1 {
			if x[nodes[i].Feature] <= nodes[i].Threshold {
				i = nodes[i].Left
			} else {
				i = nodes[i].Right
			}
		}
		v := nodes[i].Value
		sum += v[1] / (v[0] + v[1])
	}
	return sum / float64(len(f.trees))
}

func (f *Forest) PredictWithProbability(_ context.Context, v models.FeatureVector) (int, float64, error) {
	p := f.probability(v.Values())
	return labelFor(p), p, nil
}

func (f *Forest) Predict(ctx context.Context, v models.FeatureVector) (int, error) {
	label, _, err := f.PredictWithProbability(ctx, v)
	return label, err
}

func (f *Forest) PredictProbability(_ context.Context, v models.FeatureVector) (float64, error) {
	return f.probability(v.Values()), nil
}

func (f *Forest) Describe() string {
	return fmt.Sprintf("forest(%d trees)", len(f.trees))
}

func labelFor(p float64) int {
	if p > 0.5 {
		return 1
	}
	return 0
}

func checkFeatureNames(names []string) error {
	if len(names) == 0 {
		return nil
	}
	if len(names) != models.FeatureCount {
		return fmt.Errorf("artifact has %d features, want %d", len(names), models.FeatureCount)
	}
	for i, n := range names {
		if n != models.FeatureColumns[i] {
			return fmt.Errorf("feature %d is %q, want %q", i, n, models.FeatureColumns[i])
		}
	}
	return nil
}
