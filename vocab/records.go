package vocab

import (
	"fmt"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/bow"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/descriptor"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/internal/arena"
)

// NodeRecord is the flat persisted form of one tree node. The root is never
// recorded; it is implicit with id 0.
type NodeRecord struct {
	ID         NodeID
	Parent     NodeID
	Weight     float64
	Descriptor descriptor.Descriptor
}

// WordRecord maps one word id to its leaf node.
type WordRecord struct {
	Word bow.WordID
	Node NodeID
}

// Assemble reconstructs a Vocabulary from flat records, as read by the
// streaming loader. The node arena is consumed as-is: the loader has already
// placed each record at its id, so assembly is a single linking pass.
//
// Every parent referenced by a record must itself be defined (the implicit
// root counts as defined), every word must name a defined node, and word ids
// must be contiguous from 0. Violations return an error and no vocabulary.
func Assemble(trait descriptor.Trait, params Params, nodes *arena.Slice[NodeRecord], words []WordRecord) (*Vocabulary, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	tree := arena.New[Node](int(nodes.Bound()) + 1)
	tree.Put(0, Node{ID: 0, Parent: 0})
	nodes.Range(func(id uint32, r NodeRecord) bool {
		tree.Put(id, Node{ID: NodeID(id), Parent: r.Parent, Weight: r.Weight, Descriptor: r.Descriptor})
		return true
	})

	// Link children in ascending id order; a parent that was never defined
	// is a broken file, not a recoverable condition.
	var linkErr error
	nodes.Range(func(id uint32, r NodeRecord) bool {
		p := tree.Ref(uint32(r.Parent))
		if p == nil {
			linkErr = fmt.Errorf("node %d references undefined parent %d", id, r.Parent)
			return false
		}
		p.Children = append(p.Children, NodeID(id))
		return true
	})
	if linkErr != nil {
		return nil, linkErr
	}

	v := &Vocabulary{params: params, trait: trait, nodes: tree}
	v.words = make([]NodeID, len(words))
	for i, w := range words {
		if int(w.Word) != i {
			return nil, fmt.Errorf("word ids not contiguous: got %d at position %d", w.Word, i)
		}
		leaf := tree.Ref(uint32(w.Node))
		if leaf == nil {
			return nil, fmt.Errorf("word %d references undefined node %d", w.Word, w.Node)
		}
		leaf.isWord = true
		leaf.Word = w.Word
		v.words[i] = w.Node
	}
	return v, nil
}

// NodeRecords calls fn for every node except the root, in ascending id
// order. It is the iteration order of the persisted node stream.
func (v *Vocabulary) NodeRecords(fn func(NodeRecord) error) error {
	var err error
	v.nodes.Range(func(id uint32, n Node) bool {
		if id == 0 {
			return true
		}
		err = fn(NodeRecord{ID: n.ID, Parent: n.Parent, Weight: n.Weight, Descriptor: n.Descriptor})
		return err == nil
	})
	return err
}

// WordRecords calls fn for every word in ascending word id order.
func (v *Vocabulary) WordRecords(fn func(WordRecord) error) error {
	for i, nid := range v.words {
		if err := fn(WordRecord{Word: bow.WordID(i), Node: nid}); err != nil {
			return err
		}
	}
	return nil
}
