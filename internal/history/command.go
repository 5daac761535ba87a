// Package history is the undo/redo engine: every document mutation is a
// reversible Command pushed onto a strictly linear Stack. Each open
// document owns its own stack; nothing here is process-wide.
package history

import (
	"fmt"

	"github.com/thisisjonathan/flits-editor/internal/document"
)

// Command is one reversible unit of mutation. Apply and Revert must be
// exact inverses: applying then reverting leaves the document bit
// identical. A Command whose Apply fails must leave the document
// untouched; it is never pushed to history.
type Command interface {
	Apply(doc *document.Document) error
	Revert(doc *document.Document) error

	// Label is the human-readable name shown in undo menus.
	Label() string
}

// Merger is implemented by commands that may absorb an immediately
// following command (continuous drag edits of the same field). Merged
// edits undo as one step but stay separate from the edit before them.
type Merger interface {
	// Merge absorbs next into the receiver and reports whether it did.
	Merge(next Command) bool
}

// Transaction composes sub-commands into one atomic history entry: either
// every sub-command applies, or the already-applied prefix is reverted and
// the error surfaces. A partially committed transaction never exists.
type Transaction struct {
	label string
	cmds  []Command
}

// NewTransaction creates an atomic command from sub-commands, applied in
// order and reverted in reverse order.
func NewTransaction(label string, cmds ...Command) *Transaction {
	return &Transaction{label: label, cmds: cmds}
}

// Append adds a sub-command to a transaction under construction.
func (t *Transaction) Append(cmd Command) {
	t.cmds = append(t.cmds, cmd)
}

// Len returns the number of sub-commands.
func (t *Transaction) Len() int {
	return len(t.cmds)
}

// Apply applies every sub-command; on failure the applied prefix is
// reverted so the document is left untouched.
func (t *Transaction) Apply(doc *document.Document) error {
	for i, cmd := range t.cmds {
		if err := cmd.Apply(doc); err != nil {
			for j := i - 1; j >= 0; j-- {
				if rerr := t.cmds[j].Revert(doc); rerr != nil {
					return fmt.Errorf("%s: rollback of %q failed after %v: %w",
						t.label, t.cmds[j].Label(), err, rerr)
				}
			}
			return fmt.Errorf("%s: %w", t.label, err)
		}
	}
	return nil
}

// Revert reverts every sub-command in reverse order.
func (t *Transaction) Revert(doc *document.Document) error {
	for i := len(t.cmds) - 1; i >= 0; i-- {
		if err := t.cmds[i].Revert(doc); err != nil {
			return fmt.Errorf("%s: %w", t.label, err)
		}
	}
	return nil
}

// Label returns the transaction's label.
func (t *Transaction) Label() string {
	return t.label
}
