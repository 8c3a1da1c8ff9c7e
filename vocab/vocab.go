// Package vocab implements the hierarchical vocabulary tree: a k-ary tree of
// depth L built by recursive clustering of binary descriptors, whose leaves
// are the visual words. A built (or loaded) vocabulary is immutable and safe
// for concurrent use by any number of transforms.
package vocab

import (
	"fmt"
	"sort"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/bow"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/descriptor"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/internal/arena"
)

// NodeID identifies a node of the vocabulary tree. The root is always id 0;
// other ids are unique but not required to be contiguous (a loaded tree keeps
// whatever ids the file carries).
type NodeID uint32

// Node is one vertex of the tree. Leaf nodes double as visual words.
type Node struct {
	ID         NodeID
	Parent     NodeID
	Weight     float64 // idf for leaves under idf weighting, otherwise 1; 0 on internal nodes
	Descriptor descriptor.Descriptor
	Children   []NodeID // ascending; empty on leaves
	Word       bow.WordID
	isWord     bool
}

// IsLeaf reports whether the node is a visual word.
func (n *Node) IsLeaf() bool { return n.isWord }

// Params are the construction parameters of a vocabulary.
type Params struct {
	K         int // branching factor
	Depth     int // levels below the root
	Weighting bow.WeightingType
	Scoring   bow.ScoringType
}

// Validate checks the parameter ranges. Invalid parameters are a fatal
// configuration error, never silently clamped.
func (p Params) Validate() error {
	if p.K < 2 {
		return fmt.Errorf("%w: k = %d", ErrInvalidBranching, p.K)
	}
	if p.Depth < 1 {
		return fmt.Errorf("%w: L = %d", ErrInvalidDepth, p.Depth)
	}
	if !p.Weighting.Valid() {
		return fmt.Errorf("invalid weighting type %d", int(p.Weighting))
	}
	if !p.Scoring.Valid() {
		return fmt.Errorf("invalid scoring type %d", int(p.Scoring))
	}
	return nil
}

// Vocabulary is an immutable vocabulary tree. Values are created by Build or
// by the persistence loader; all methods are safe for concurrent use.
type Vocabulary struct {
	params Params
	trait  descriptor.Trait
	nodes  *arena.Slice[Node]
	words  []NodeID // word id -> leaf node id
}

// K returns the branching factor.
func (v *Vocabulary) K() int { return v.params.K }

// Depth returns the tree depth L.
func (v *Vocabulary) Depth() int { return v.params.Depth }

// Weighting returns the configured weighting scheme.
func (v *Vocabulary) Weighting() bow.WeightingType { return v.params.Weighting }

// Scoring returns the configured scoring scheme.
func (v *Vocabulary) Scoring() bow.ScoringType { return v.params.Scoring }

// Params returns all construction parameters.
func (v *Vocabulary) Params() Params { return v.params }

// Trait returns the descriptor trait the vocabulary was built with.
func (v *Vocabulary) Trait() descriptor.Trait { return v.trait }

// Size returns the number of visual words.
func (v *Vocabulary) Size() int { return len(v.words) }

// Empty reports whether the vocabulary has no words.
func (v *Vocabulary) Empty() bool { return len(v.words) == 0 }

// NodeCount returns the number of tree nodes, root included.
func (v *Vocabulary) NodeCount() int { return v.nodes.Len() }

// WordDescriptor returns a copy of the descriptor stored at word w's leaf.
func (v *Vocabulary) WordDescriptor(w bow.WordID) (descriptor.Descriptor, bool) {
	if int(w) >= len(v.words) {
		return nil, false
	}
	n, _ := v.nodes.Get(uint32(v.words[w]))
	return n.Descriptor.Clone(), true
}

// WordIDF returns the cached inverse document frequency of word w. Under
// non-idf weighting schemes every word carries weight 1.
func (v *Vocabulary) WordIDF(w bow.WordID) (float64, bool) {
	if int(w) >= len(v.words) {
		return 0, false
	}
	n, _ := v.nodes.Get(uint32(v.words[w]))
	return n.Weight, true
}

// Score compares two vectors under the configured scoring scheme.
func (v *Vocabulary) Score(a, b bow.Vector) float64 {
	return v.params.Scoring.Score(a, b)
}

func (v *Vocabulary) String() string {
	return fmt.Sprintf("Vocabulary: k = %d, L = %d, Weighting = %s, Scoring = %s, Number of words = %d",
		v.params.K, v.params.Depth, v.params.Weighting, v.params.Scoring, len(v.words))
}

// descend routes d from the root to a leaf, at each internal node moving to
// the child at minimum distance (ties break to the lowest child id). It also
// reports the node passed at targetDepth (0 = root) for direct indexing.
func (v *Vocabulary) descend(d descriptor.Descriptor, targetDepth int) (word bow.WordID, at NodeID) {
	cur, _ := v.nodes.Get(0)
	at = 0
	depth := 0
	for len(cur.Children) > 0 {
		best := cur.Children[0]
		bestNode, _ := v.nodes.Get(uint32(best))
		bestDist := v.trait.Distance(d, bestNode.Descriptor)
		for _, c := range cur.Children[1:] {
			cn, _ := v.nodes.Get(uint32(c))
			if dist := v.trait.Distance(d, cn.Descriptor); dist < bestDist {
				best, bestNode, bestDist = c, cn, dist
			}
		}
		cur = bestNode
		depth++
		if depth == targetDepth {
			at = cur.ID
		}
	}
	return cur.Word, at
}

// Transform converts a descriptor set into its weighted bag-of-words vector,
// normalized under the scoring scheme's norm. An empty descriptor set yields
// an empty vector.
func (v *Vocabulary) Transform(ds []descriptor.Descriptor) (bow.Vector, error) {
	b := bow.Builder{}
	if err := v.accumulate(ds, b, 0, nil); err != nil {
		return nil, err
	}
	return b.Vector(v.params.Scoring.Norm()), nil
}

// FeatureEntry records which descriptor indices of an image were routed
// through one tree node.
type FeatureEntry struct {
	Node    NodeID
	Indices []int // ascending positions in the original descriptor set
}

// FeatureVector maps tree nodes at a fixed depth to the descriptors routed
// through them, sorted by node id. It backs the direct index.
type FeatureVector []FeatureEntry

// Indices returns the descriptor indices recorded for node n, or nil.
func (fv FeatureVector) Indices(n NodeID) []int {
	i := sort.Search(len(fv), func(i int) bool { return fv[i].Node >= n })
	if i < len(fv) && fv[i].Node == n {
		return fv[i].Indices
	}
	return nil
}

// Clone returns a deep copy of fv.
func (fv FeatureVector) Clone() FeatureVector {
	if fv == nil {
		return nil
	}
	out := make(FeatureVector, len(fv))
	for i, fe := range fv {
		indices := make([]int, len(fe.Indices))
		copy(indices, fe.Indices)
		out[i] = FeatureEntry{Node: fe.Node, Indices: indices}
	}
	return out
}

// TransformWithFeatures is Transform plus the per-descriptor node assignment
// levelsUp levels above the leaves, for building a direct index.
func (v *Vocabulary) TransformWithFeatures(ds []descriptor.Descriptor, levelsUp int) (bow.Vector, FeatureVector, error) {
	targetDepth := v.params.Depth - levelsUp
	if targetDepth < 0 {
		targetDepth = 0
	}

	b := bow.Builder{}
	byNode := map[NodeID][]int{}
	if err := v.accumulate(ds, b, targetDepth, byNode); err != nil {
		return nil, nil, err
	}

	fv := make(FeatureVector, 0, len(byNode))
	for n, idx := range byNode {
		fv = append(fv, FeatureEntry{Node: n, Indices: idx})
	}
	sort.Slice(fv, func(i, j int) bool { return fv[i].Node < fv[j].Node })

	return b.Vector(v.params.Scoring.Norm()), fv, nil
}

func (v *Vocabulary) accumulate(ds []descriptor.Descriptor, b bow.Builder, targetDepth int, byNode map[NodeID][]int) error {
	if v.Empty() {
		return nil
	}
	length := v.trait.Length()
	presence := v.params.Weighting.Presence()

	for i, d := range ds {
		if len(d) != length {
			return &descriptor.ErrLengthMismatch{Expected: length, Actual: len(d)}
		}
		word, at := v.descend(d, targetDepth)
		weight, _ := v.WordIDF(word)
		if presence {
			b.AddIfNew(word, weight)
		} else {
			b.Add(word, weight)
		}
		if byNode != nil {
			byNode[at] = append(byNode[at], i)
		}
	}
	return nil
}
