package edit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisisjonathan/flits-editor/internal/document"
	"github.com/thisisjonathan/flits-editor/internal/history"
)

func newClip(t *testing.T, doc *document.Document, s *history.Stack, name string) document.SymbolID {
	t.Helper()
	cmd := NewDefineSymbol(document.Symbol{Name: name, Kind: document.KindMovieClip})
	require.NoError(t, s.Execute(doc, cmd))
	return cmd.ID()
}

func placeOnStage(t *testing.T, doc *document.Document, s *history.Stack, sym document.SymbolID, depth int) document.InstanceID {
	t.Helper()
	cmd := NewPlaceInstance(document.SymbolID{}, document.Instance{
		Symbol:    sym,
		Depth:     depth,
		Duration:  1,
		Transform: document.IdentityTransform(),
		Color:     document.IdentityColor(),
	})
	require.NoError(t, s.Execute(doc, cmd))
	return cmd.ID()
}

func TestDefineSymbolIDStableAcrossUndoRedo(t *testing.T) {
	doc := document.New()
	s := history.NewStack()

	cmd := NewDefineSymbol(document.Symbol{Name: "clip", Kind: document.KindMovieClip})
	require.NoError(t, s.Execute(doc, cmd))
	id := cmd.ID()

	require.NoError(t, s.Undo(doc))
	_, err := doc.Symbol(id)
	assert.ErrorIs(t, err, document.ErrNotFound)

	require.NoError(t, s.Redo(doc))
	sym, err := doc.Symbol(id)
	require.NoError(t, err)
	assert.Equal(t, "clip", sym.Name)
}

func TestPlaceInstanceUndoRedoKeepsID(t *testing.T) {
	doc := document.New()
	s := history.NewStack()
	clip := newClip(t, doc, s, "clip")

	id := placeOnStage(t, doc, s, clip, 0)

	require.NoError(t, s.Undo(doc))
	_, err := doc.Instance(id)
	assert.ErrorIs(t, err, document.ErrNotFound)

	require.NoError(t, s.Redo(doc))
	inst, err := doc.Instance(id)
	require.NoError(t, err)
	assert.Equal(t, clip, inst.Symbol)
}

func TestUndoNTimesThenRedoNTimesRestoresState(t *testing.T) {
	doc := document.New()
	s := history.NewStack()

	clip := newClip(t, doc, s, "clip")
	instID := placeOnStage(t, doc, s, clip, 0)
	require.NoError(t, s.Execute(doc, NewMoveInstance(instID, document.IdentityTransform().Translated(10, 20))))
	require.NoError(t, s.Execute(doc, NewSetInstanceName(instID, "hero")))
	require.NoError(t, s.Execute(doc, NewInsertFrame(document.SymbolID{}, 1)))

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Undo(doc))
	}
	assert.Equal(t, 0, doc.SymbolCount())
	assert.Empty(t, doc.Root.Instances)
	assert.Equal(t, 1, doc.Root.FrameCount)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Redo(doc))
	}
	assert.Equal(t, 1, doc.SymbolCount())
	assert.Equal(t, 2, doc.Root.FrameCount)
	inst, err := doc.Instance(instID)
	require.NoError(t, err)
	assert.Equal(t, "hero", inst.Name)
	assert.Equal(t, document.IdentityTransform().Translated(10, 20), inst.Transform)
}

func TestMoveInstanceMergesContinuousDrag(t *testing.T) {
	doc := document.New()
	s := history.NewStack()
	clip := newClip(t, doc, s, "clip")
	instID := placeOnStage(t, doc, s, clip, 0)

	require.NoError(t, s.Execute(doc, NewMoveInstance(instID, document.IdentityTransform().Translated(1, 0))))
	require.NoError(t, s.Execute(doc, NewMoveInstance(instID, document.IdentityTransform().Translated(2, 0))))
	require.NoError(t, s.Execute(doc, NewMoveInstance(instID, document.IdentityTransform().Translated(3, 0))))

	// The whole drag undoes as one step, back to the pre-drag transform.
	require.NoError(t, s.Undo(doc))
	inst, err := doc.Instance(instID)
	require.NoError(t, err)
	assert.Equal(t, document.IdentityTransform(), inst.Transform)
	assert.Equal(t, "Place symbol", s.UndoLabel())
}

func TestMovesOfDifferentInstancesDoNotMerge(t *testing.T) {
	doc := document.New()
	s := history.NewStack()
	clip := newClip(t, doc, s, "clip")
	a := placeOnStage(t, doc, s, clip, 0)
	b := placeOnStage(t, doc, s, clip, 1)

	require.NoError(t, s.Execute(doc, NewMoveInstance(a, document.IdentityTransform().Translated(1, 0))))
	require.NoError(t, s.Execute(doc, NewMoveInstance(b, document.IdentityTransform().Translated(2, 0))))

	require.NoError(t, s.Undo(doc))
	instA, _ := doc.Instance(a)
	instB, _ := doc.Instance(b)
	assert.Equal(t, document.IdentityTransform().Translated(1, 0), instA.Transform)
	assert.Equal(t, document.IdentityTransform(), instB.Transform)
}

func TestDeleteSymbolCascade(t *testing.T) {
	doc := document.New()
	s := history.NewStack()
	clip := newClip(t, doc, s, "clip")
	a := placeOnStage(t, doc, s, clip, 0)
	b := placeOnStage(t, doc, s, clip, 1)

	// Plain delete is blocked while placements exist.
	require.Error(t, s.Execute(doc, NewDeleteSymbol(doc, clip)))

	require.NoError(t, s.Execute(doc, NewDeleteSymbolCascade(doc, clip)))
	assert.Equal(t, 0, doc.SymbolCount())
	assert.Empty(t, doc.Root.Instances)

	// One undo brings back the symbol and both placements.
	require.NoError(t, s.Undo(doc))
	assert.Equal(t, 1, doc.SymbolCount())
	_, err := doc.Instance(a)
	assert.NoError(t, err)
	_, err = doc.Instance(b)
	assert.NoError(t, err)
}

func TestInternResourceRevertOnlyDeletesCreated(t *testing.T) {
	doc := document.New()
	s := history.NewStack()

	payload := []byte("blob")
	first := NewInternResource(document.Resource{Kind: document.ResourceScript, Payload: payload})
	require.NoError(t, s.Execute(doc, first))

	// Second intern of the same bytes dedups; undoing it must not tear
	// down the entry the first command owns.
	second := NewInternResource(document.Resource{Kind: document.ResourceScript, Payload: payload})
	require.NoError(t, s.Execute(doc, second))
	assert.Equal(t, first.ID(), second.ID())

	require.NoError(t, s.Undo(doc))
	_, err := doc.Resources.Get(first.ID())
	assert.NoError(t, err)

	require.NoError(t, s.Undo(doc))
	_, err = doc.Resources.Get(first.ID())
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestEditMoviePropertiesRoundTrip(t *testing.T) {
	doc := document.New()
	s := history.NewStack()

	after := document.MovieProperties{Width: 800, Height: 600, FrameRate: 24, Background: document.Color{R: 1, G: 2, B: 3}}
	require.NoError(t, s.Execute(doc, NewEditMovieProperties(doc, after)))
	assert.Equal(t, after, doc.Properties)

	require.NoError(t, s.Undo(doc))
	assert.Equal(t, document.DefaultMovieProperties(), doc.Properties)
}

func TestAttachScriptTracksReferences(t *testing.T) {
	doc := document.New()
	s := history.NewStack()
	clip := newClip(t, doc, s, "clip")
	instID := placeOnStage(t, doc, s, clip, 0)

	intern := NewInternResource(document.Resource{Kind: document.ResourceScript, Payload: []byte{0x00}})
	require.NoError(t, s.Execute(doc, intern))

	require.NoError(t, s.Execute(doc, NewAttachScript(instID, intern.ID())))
	refs, _ := doc.Resources.Refs(intern.ID())
	assert.Equal(t, 1, refs)

	require.NoError(t, s.Undo(doc))
	refs, _ = doc.Resources.Refs(intern.ID())
	assert.Equal(t, 0, refs)
}

func TestDuplicateFrameExtendsTails(t *testing.T) {
	doc := document.New()
	s := history.NewStack()
	clip := newClip(t, doc, s, "clip")
	require.NoError(t, s.Execute(doc, NewInsertFrame(document.SymbolID{}, 1)))

	cmd := NewPlaceInstance(document.SymbolID{}, document.Instance{
		Symbol: clip, Depth: 0, StartFrame: 0, Duration: 2,
		Transform: document.IdentityTransform(), Color: document.IdentityColor(),
	})
	require.NoError(t, s.Execute(doc, cmd))

	dup, err := NewDuplicateFrame(doc, document.SymbolID{}, 1)
	require.NoError(t, err)
	require.NoError(t, s.Execute(doc, dup))

	assert.Equal(t, 3, doc.Root.FrameCount)
	inst, _ := doc.Instance(cmd.ID())
	assert.Equal(t, 3, inst.Duration)

	require.NoError(t, s.Undo(doc))
	assert.Equal(t, 2, doc.Root.FrameCount)
	inst, _ = doc.Instance(cmd.ID())
	assert.Equal(t, 2, inst.Duration)
}

func TestRemoveFrameCommandUndo(t *testing.T) {
	doc := document.New()
	s := history.NewStack()
	clip := newClip(t, doc, s, "clip")
	require.NoError(t, s.Execute(doc, NewInsertFrame(document.SymbolID{}, 1)))
	require.NoError(t, s.Execute(doc, NewInsertFrame(document.SymbolID{}, 2)))

	cmd := NewPlaceInstance(document.SymbolID{}, document.Instance{
		Symbol: clip, Depth: 0, StartFrame: 0, Duration: 3,
		Transform: document.IdentityTransform(), Color: document.IdentityColor(),
	})
	require.NoError(t, s.Execute(doc, cmd))

	require.NoError(t, s.Execute(doc, NewRemoveFrame(document.SymbolID{}, 1)))
	assert.Equal(t, 2, doc.Root.FrameCount)
	assert.Len(t, doc.Root.Instances, 2, "interior removal splits the span")

	require.NoError(t, s.Undo(doc))
	assert.Equal(t, 3, doc.Root.FrameCount)
	assert.Len(t, doc.Root.Instances, 1)
	inst, _ := doc.Instance(cmd.ID())
	assert.Equal(t, 3, inst.Duration)
}
