package db

import (
	"fmt"

	"factdb/codec"
	"factdb/models"
	"factdb/storage"
)

// replayResult carries both the folded Index and the facts attributed to
// the reserved schema range, so Open can rebuild a Schema from what was
// actually committed even when no schema file is supplied.
type replayResult struct {
	index       *models.Index
	schemaFacts []models.Fact
	reachable   int
}

// replay walks the DAG from head back to its roots, then folds each
// node's facts into the Index in dependency order: a node is only folded
// after both of its parents have been. Nodes are folded one at a time
// (not merged into a single global batch) so that retractions in a later
// node always apply after the assertions of an earlier one, even though
// within a single node the fold is reordered assertions-before-retractions —
// that reordering is scoped to one transaction's own facts and never
// crosses node boundaries.
//
// Replay folds without schema validation: every fact being replayed was
// already validated when it was first committed, so re-deriving schema
// and uniqueness errors here would only catch corruption, not new
// mistakes — and corruption is better reported explicitly (ErrCorruptedNode)
// than masked as a schema violation.
func replay(store storage.Store, head models.Hash) (*replayResult, error) {
	if head.IsNull() {
		return &replayResult{index: models.NewIndex()}, nil
	}

	nodes := make(map[models.Hash]*models.Node)
	var order []models.Hash
	visited := make(map[models.Hash]bool)

	var visit func(h models.Hash) error
	visit = func(h models.Hash) error {
		if h.IsNull() || visited[h] {
			return nil
		}
		visited[h] = true

		raw, ok, err := store.Load(storage.NodeKey(h))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: node %s referenced but missing from storage", models.ErrCorruptedNode, h)
		}
		node, err := codec.DecodeNode(raw)
		if err != nil {
			return err
		}
		if err := visit(node.Parent1); err != nil {
			return err
		}
		if err := visit(node.Parent2); err != nil {
			return err
		}
		node.SetHash(h)
		nodes[h] = node
		order = append(order, h)
		return nil
	}
	if err := visit(head); err != nil {
		return nil, err
	}

	idx := models.NewIndex()
	var schemaFacts []models.Fact
	for _, h := range order {
		node := nodes[h]
		var err error
		idx, err = idx.AddFacts(node.Facts, nil)
		if err != nil {
			return nil, err
		}
		for _, f := range node.Facts {
			if f.EID.IsReserved() {
				schemaFacts = append(schemaFacts, f)
			}
		}
	}

	return &replayResult{index: idx, schemaFacts: schemaFacts, reachable: len(order)}, nil
}
