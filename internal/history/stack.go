package history

import "github.com/thisisjonathan/flits-editor/internal/document"

// savedUnreachable marks a save position discarded with the redo branch.
const savedUnreachable = -1

// Stack is a strictly linear undo history: a past list (applied, oldest
// first) and a future list (undone, newest first). Executing a new command
// discards the future; there is no branching undo tree.
type Stack struct {
	past   []Command
	future []Command

	// saved is the history position (len(past)) of the last save, or
	// savedUnreachable when that position was discarded by a diverging
	// execute. The dirty flag is derived from it, never toggled by hand.
	saved int
}

// NewStack creates an empty stack whose current (empty) position counts as
// saved.
func NewStack() *Stack {
	return &Stack{}
}

// Execute applies cmd and pushes it to the past. A failing command is not
// recorded; the document is untouched by contract. Redo history is
// discarded, and a rapid repeat edit may merge into the previous entry
// (never across the save position).
func (s *Stack) Execute(doc *document.Document, cmd Command) error {
	if err := cmd.Apply(doc); err != nil {
		return err
	}
	if len(s.future) > 0 {
		s.future = s.future[:0]
		if s.saved > len(s.past) {
			s.saved = savedUnreachable
		}
	}
	if n := len(s.past); n > 0 && s.saved != n {
		if m, ok := s.past[n-1].(Merger); ok && m.Merge(cmd) {
			return nil
		}
	}
	s.past = append(s.past, cmd)
	return nil
}

// Undo reverts the newest applied command. No-op when there is nothing to
// undo.
func (s *Stack) Undo(doc *document.Document) error {
	n := len(s.past)
	if n == 0 {
		return nil
	}
	cmd := s.past[n-1]
	if err := cmd.Revert(doc); err != nil {
		return err
	}
	s.past = s.past[:n-1]
	s.future = append(s.future, cmd)
	return nil
}

// Redo re-applies the most recently undone command. No-op when there is
// nothing to redo.
func (s *Stack) Redo(doc *document.Document) error {
	n := len(s.future)
	if n == 0 {
		return nil
	}
	cmd := s.future[n-1]
	if err := cmd.Apply(doc); err != nil {
		return err
	}
	s.future = s.future[:n-1]
	s.past = append(s.past, cmd)
	return nil
}

// CanUndo reports whether Undo would do anything.
func (s *Stack) CanUndo() bool { return len(s.past) > 0 }

// CanRedo reports whether Redo would do anything.
func (s *Stack) CanRedo() bool { return len(s.future) > 0 }

// UndoLabel returns the label of the command Undo would revert.
func (s *Stack) UndoLabel() string {
	if n := len(s.past); n > 0 {
		return s.past[n-1].Label()
	}
	return ""
}

// RedoLabel returns the label of the command Redo would re-apply.
func (s *Stack) RedoLabel() string {
	if n := len(s.future); n > 0 {
		return s.future[n-1].Label()
	}
	return ""
}

// MarkSaved records the current history position as "no unsaved changes".
func (s *Stack) MarkSaved() {
	s.saved = len(s.past)
}

// Dirty reports whether the current position differs from the saved one.
// Undoing past a save point and redoing back to it makes the document
// clean again.
func (s *Stack) Dirty() bool {
	return s.saved != len(s.past)
}
