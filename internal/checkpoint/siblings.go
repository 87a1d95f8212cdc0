// Package checkpoint provides executor-internal operations over a
// store.CheckpointStore that the store interface itself doesn't need to
// know about: locating the sibling branches of a checkpoint for "regenerate"
// navigation.
//
// This is deliberately independent of internal/conversation's sibling
// lookup over the message tree. The two answer different questions (graph
// state lineage vs. user-visible message lineage) and neither is derived
// from the other.
package checkpoint

import (
	"context"
	"fmt"

	"github.com/agentcore/orchestrator/internal/model"
	"github.com/agentcore/orchestrator/store"
)

// Finder locates checkpoint branches for a thread.
type Finder struct {
	Store store.CheckpointStore
}

// NewFinder wraps a checkpoint store with sibling-search operations.
func NewFinder(s store.CheckpointStore) *Finder {
	return &Finder{Store: s}
}

// FindSiblings returns the sibling branches of checkpointID: the set of
// leaf checkpoints reachable from checkpointID's "true fork point" — the
// nearest ancestor whose MessageCount is strictly smaller than its child's.
//
// Intermediate tool-call checkpoints share their parent's MessageCount and
// must not surface as distinct branches, so the search first ascends past
// any such same-count ancestors before looking for fork siblings.
func (f *Finder) FindSiblings(ctx context.Context, threadID, checkpointID string) ([]*model.Checkpoint, error) {
	all, err := f.Store.List(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints for thread %s: %w", threadID, err)
	}

	byID := make(map[string]*model.Checkpoint, len(all))
	children := make(map[string][]*model.Checkpoint, len(all))
	for _, cp := range all {
		byID[cp.ID] = cp
		children[cp.ParentCheckpointID] = append(children[cp.ParentCheckpointID], cp)
	}

	target, ok := byID[checkpointID]
	if !ok {
		return nil, fmt.Errorf("checkpoint not found in thread %s: %s", threadID, checkpointID)
	}

	anchor := findForkPoint(target, byID)

	var candidates []*model.Checkpoint
	collectDescendants(anchor.ID, anchor.MessageCount, children, &candidates)

	return leavesOf(candidates), nil
}

// findForkPoint ascends from cp until it reaches an ancestor whose
// MessageCount is strictly less than the MessageCount of the checkpoint
// just below it, or the thread root if no such ancestor exists.
func findForkPoint(cp *model.Checkpoint, byID map[string]*model.Checkpoint) *model.Checkpoint {
	cur := cp
	for cur.ParentCheckpointID != "" {
		parent, ok := byID[cur.ParentCheckpointID]
		if !ok {
			break
		}
		if parent.MessageCount < cur.MessageCount {
			return parent
		}
		cur = parent
	}
	return cur
}

// collectDescendants walks the checkpoint tree rooted at anchorID,
// appending every descendant whose MessageCount exceeds anchorCount.
func collectDescendants(anchorID string, anchorCount int, children map[string][]*model.Checkpoint, out *[]*model.Checkpoint) {
	for _, child := range children[anchorID] {
		if child.MessageCount > anchorCount {
			*out = append(*out, child)
		}
		collectDescendants(child.ID, anchorCount, children, out)
	}
}

// leavesOf filters candidates down to those that are not themselves the
// parent of another candidate.
func leavesOf(candidates []*model.Checkpoint) []*model.Checkpoint {
	isParent := make(map[string]bool, len(candidates))
	inSet := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		inSet[c.ID] = true
	}
	for _, c := range candidates {
		if inSet[c.ParentCheckpointID] {
			isParent[c.ParentCheckpointID] = true
		}
	}

	leaves := make([]*model.Checkpoint, 0, len(candidates))
	for _, c := range candidates {
		if !isParent[c.ID] {
			leaves = append(leaves, c)
		}
	}
	return leaves
}
