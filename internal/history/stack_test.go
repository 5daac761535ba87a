package history

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisisjonathan/flits-editor/internal/document"
)

// addFrames is a minimal real command: it grows the stage by n frames.
type addFrames struct {
	n     int
	label string
}

func (c *addFrames) Apply(doc *document.Document) error {
	for i := 0; i < c.n; i++ {
		if err := doc.InsertFrame(document.SymbolID{}, doc.Root.FrameCount); err != nil {
			return err
		}
	}
	return nil
}

func (c *addFrames) Revert(doc *document.Document) error {
	for i := 0; i < c.n; i++ {
		if err := doc.UndoInsertFrame(document.SymbolID{}, doc.Root.FrameCount-1); err != nil {
			return err
		}
	}
	return nil
}

func (c *addFrames) Label() string { return c.label }

// mergeFrames is an addFrames that absorbs following addFrames commands.
type mergeFrames struct {
	addFrames
}

func (c *mergeFrames) Merge(next Command) bool {
	other, ok := next.(*mergeFrames)
	if !ok {
		return false
	}
	c.n += other.n
	return true
}

type failing struct{}

func (failing) Apply(*document.Document) error  { return errors.New("boom") }
func (failing) Revert(*document.Document) error { return nil }
func (failing) Label() string                   { return "failing" }

func TestExecuteUndoRedo(t *testing.T) {
	doc := document.New()
	s := NewStack()

	require.NoError(t, s.Execute(doc, &addFrames{n: 1, label: "one"}))
	require.NoError(t, s.Execute(doc, &addFrames{n: 2, label: "two"}))
	assert.Equal(t, 4, doc.Root.FrameCount)

	require.NoError(t, s.Undo(doc))
	assert.Equal(t, 2, doc.Root.FrameCount)
	require.NoError(t, s.Undo(doc))
	assert.Equal(t, 1, doc.Root.FrameCount)

	require.NoError(t, s.Redo(doc))
	require.NoError(t, s.Redo(doc))
	assert.Equal(t, 4, doc.Root.FrameCount)
}

func TestUndoRedoEmptyAreNoOps(t *testing.T) {
	doc := document.New()
	s := NewStack()

	assert.NoError(t, s.Undo(doc))
	assert.NoError(t, s.Redo(doc))
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
}

func TestFailedCommandIsNotRecorded(t *testing.T) {
	doc := document.New()
	s := NewStack()

	assert.Error(t, s.Execute(doc, failing{}))
	assert.False(t, s.CanUndo())
	assert.False(t, s.Dirty())
}

func TestDivergingExecuteDiscardsRedo(t *testing.T) {
	doc := document.New()
	s := NewStack()

	require.NoError(t, s.Execute(doc, &addFrames{n: 1, label: "a"}))
	require.NoError(t, s.Execute(doc, &addFrames{n: 1, label: "b"}))
	require.NoError(t, s.Undo(doc))
	require.NoError(t, s.Undo(doc))

	require.NoError(t, s.Execute(doc, &addFrames{n: 5, label: "c"}))
	assert.False(t, s.CanRedo())

	// Redo after divergence is a no-op, not a replay of the old branch.
	require.NoError(t, s.Redo(doc))
	assert.Equal(t, 6, doc.Root.FrameCount)
}

func TestLabels(t *testing.T) {
	doc := document.New()
	s := NewStack()

	assert.Equal(t, "", s.UndoLabel())
	require.NoError(t, s.Execute(doc, &addFrames{n: 1, label: "grow"}))
	assert.Equal(t, "grow", s.UndoLabel())

	require.NoError(t, s.Undo(doc))
	assert.Equal(t, "grow", s.RedoLabel())
	assert.Equal(t, "", s.UndoLabel())
}

func TestDirtyTracksSavedPosition(t *testing.T) {
	doc := document.New()
	s := NewStack()

	assert.False(t, s.Dirty(), "empty history counts as saved")

	require.NoError(t, s.Execute(doc, &addFrames{n: 1, label: "a"}))
	assert.True(t, s.Dirty())

	s.MarkSaved()
	assert.False(t, s.Dirty())

	require.NoError(t, s.Execute(doc, &addFrames{n: 1, label: "b"}))
	assert.True(t, s.Dirty())

	// Undoing back to the save position is clean again.
	require.NoError(t, s.Undo(doc))
	assert.False(t, s.Dirty())

	// Undoing past it is dirty; redoing back to it is clean.
	require.NoError(t, s.Undo(doc))
	assert.True(t, s.Dirty())
	require.NoError(t, s.Redo(doc))
	assert.False(t, s.Dirty())
}

func TestSavePositionDiscardedWithRedoBranch(t *testing.T) {
	doc := document.New()
	s := NewStack()

	require.NoError(t, s.Execute(doc, &addFrames{n: 1, label: "a"}))
	require.NoError(t, s.Execute(doc, &addFrames{n: 1, label: "b"}))
	s.MarkSaved()

	require.NoError(t, s.Undo(doc))
	require.NoError(t, s.Execute(doc, &addFrames{n: 1, label: "c"}))

	// The saved position lived on the discarded branch: no history
	// position is clean anymore.
	assert.True(t, s.Dirty())
	require.NoError(t, s.Undo(doc))
	assert.True(t, s.Dirty())
}

func TestMergeAbsorbsRepeatEdits(t *testing.T) {
	doc := document.New()
	s := NewStack()

	require.NoError(t, s.Execute(doc, &mergeFrames{addFrames{n: 1, label: "drag"}}))
	require.NoError(t, s.Execute(doc, &mergeFrames{addFrames{n: 1, label: "drag"}}))
	require.NoError(t, s.Execute(doc, &mergeFrames{addFrames{n: 1, label: "drag"}}))
	assert.Equal(t, 4, doc.Root.FrameCount)

	// All three merged into one history entry: one undo reverts them all.
	require.NoError(t, s.Undo(doc))
	assert.Equal(t, 1, doc.Root.FrameCount)
	assert.False(t, s.CanUndo())
}

func TestMergeNeverCrossesSavePosition(t *testing.T) {
	doc := document.New()
	s := NewStack()

	require.NoError(t, s.Execute(doc, &mergeFrames{addFrames{n: 1, label: "drag"}}))
	s.MarkSaved()
	require.NoError(t, s.Execute(doc, &mergeFrames{addFrames{n: 1, label: "drag"}}))

	// The post-save edit stays a separate entry so the save point remains
	// reachable by one undo.
	require.NoError(t, s.Undo(doc))
	assert.False(t, s.Dirty())
	assert.True(t, s.CanUndo())
}

func TestTransactionAppliesInOrder(t *testing.T) {
	doc := document.New()
	s := NewStack()

	tx := NewTransaction("grow twice")
	tx.Append(&addFrames{n: 1, label: "a"})
	tx.Append(&addFrames{n: 2, label: "b"})
	require.NoError(t, s.Execute(doc, tx))
	assert.Equal(t, 4, doc.Root.FrameCount)
	assert.Equal(t, "grow twice", s.UndoLabel())

	require.NoError(t, s.Undo(doc))
	assert.Equal(t, 1, doc.Root.FrameCount)
}

func TestTransactionRollsBackOnFailure(t *testing.T) {
	doc := document.New()
	s := NewStack()

	tx := NewTransaction("partial")
	tx.Append(&addFrames{n: 3, label: "a"})
	tx.Append(failing{})
	assert.Error(t, s.Execute(doc, tx))

	// The applied prefix was reverted and nothing entered history.
	assert.Equal(t, 1, doc.Root.FrameCount)
	assert.False(t, s.CanUndo())
}
