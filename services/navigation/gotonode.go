package navigation

import (
	"sync"

	"go.viam.com/fieldnav/field"
	"go.viam.com/fieldnav/motionplan"
)

// GotoNode drives to the scoring position in front of the selected node.
type GotoNode struct {
	*PathFollower

	mu        sync.Mutex
	selection field.NodeSelection
}

// NewGotoNode returns an idle behavior targeting selection.
func NewGotoNode(selection field.NodeSelection, deps Deps) (*GotoNode, error) {
	gn := &GotoNode{selection: selection}
	pf, err := NewPathFollower("goto_node", gn.plan, deps)
	if err != nil {
		return nil, err
	}
	gn.PathFollower = pf
	return gn, nil
}

// Selection returns the targeted node.
func (gn *GotoNode) Selection() field.NodeSelection {
	gn.mu.Lock()
	defer gn.mu.Unlock()
	return gn.selection
}

// SetSelection changes the targeted node. It can be called at any time; a running behavior
// replans from wherever the robot is on its next tick.
func (gn *GotoNode) SetSelection(selection field.NodeSelection) {
	gn.mu.Lock()
	changed := gn.selection != selection
	gn.selection = selection
	gn.mu.Unlock()
	if changed {
		gn.RequestReplan()
	}
}

func (gn *GotoNode) plan(b *motionplan.Builder, _ field.Zone) {
	b.Add(gn.Selection().Target())
}
