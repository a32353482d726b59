package editlog

import (
	"fmt"

	"github.com/brunoga/confedit/model"
)

// Edit is a single replayable step of the log. Apply receives a snapshot
// owned by the caller, may modify it in place and returns the resulting
// snapshot.
type Edit interface {
	Description() string
	Apply(s *model.Snapshot) (*model.Snapshot, error)
}

// EditFactory builds the Edit that turns rebuilt into working. Both
// arguments are owned by the log; a factory must not retain them.
type EditFactory func(description string, rebuilt, working *model.Snapshot) (Edit, error)

// stateEdit replaces whatever it is applied to with a captured state. It
// covers arbitrary free-form edits.
type stateEdit struct {
	description string
	state       *model.Snapshot
	clone       func(*model.Snapshot) (*model.Snapshot, error)
}

func (e *stateEdit) Description() string {
	return e.description
}

func (e *stateEdit) Apply(*model.Snapshot) (*model.Snapshot, error) {
	return e.clone(e.state)
}

// moveEdit relocates a process id inside the control groups of a node
// without capturing the whole document.
type moveEdit struct {
	description string
	node        string
	processID   string
	group       string
	index       int
}

// Move returns a factory for an edit that moves processID into the control
// group named group of node at position index. The process is removed from
// whichever control group of the node held it before. An index out of
// range is clamped. Applying the edit to a snapshot that lacks the node or
// the target group leaves the snapshot unchanged.
func Move(node, processID, group string, index int) EditFactory {
	return func(description string, _, _ *model.Snapshot) (Edit, error) {
		if node == "" || processID == "" || group == "" {
			return nil, fmt.Errorf("move %q: node, process and group are required", description)
		}
		return &moveEdit{
			description: description,
			node:        node,
			processID:   processID,
			group:       group,
			index:       index,
		}, nil
	}
}

func (e *moveEdit) Description() string {
	return e.description
}

func (e *moveEdit) Apply(s *model.Snapshot) (*model.Snapshot, error) {
	n := s.Node(e.node)
	if n == nil || n.ControlGroup(e.group) == nil || n.Process(e.processID) == nil {
		return s, nil
	}

	for i := range n.ControlGroups {
		n.ControlGroups[i].ProcessOrder = without(n.ControlGroups[i].ProcessOrder, e.processID)
	}

	target := n.ControlGroup(e.group)
	idx := e.index
	if idx < 0 {
		idx = 0
	}
	if idx > len(target.ProcessOrder) {
		idx = len(target.ProcessOrder)
	}

	order := make([]string, 0, len(target.ProcessOrder)+1)
	order = append(order, target.ProcessOrder[:idx]...)
	order = append(order, e.processID)
	order = append(order, target.ProcessOrder[idx:]...)
	target.ProcessOrder = order

	return s, nil
}

func without(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			out := make([]string, 0, len(ids)-1)
			out = append(out, ids[:i]...)
			return append(out, ids[i+1:]...)
		}
	}
	return ids
}
