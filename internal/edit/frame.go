package edit

import (
	"github.com/thisisjonathan/flits-editor/internal/document"
)

// InsertFrame inserts an empty frame into a timeline. Spans crossing the
// insertion point grow by one frame; later spans shift right.
type InsertFrame struct {
	Owner document.SymbolID
	Index int
}

// NewInsertFrame creates the command.
func NewInsertFrame(owner document.SymbolID, index int) *InsertFrame {
	return &InsertFrame{Owner: owner, Index: index}
}

func (c *InsertFrame) Apply(doc *document.Document) error {
	return doc.InsertFrame(c.Owner, c.Index)
}

func (c *InsertFrame) Revert(doc *document.Document) error {
	return doc.UndoInsertFrame(c.Owner, c.Index)
}

func (c *InsertFrame) Label() string { return "Insert frame" }

// RemoveFrame removes a frame from a timeline, applying the span policy
// documented on document.RemoveFrame (truncate at span edges, split spans
// the frame falls inside of).
type RemoveFrame struct {
	Owner document.SymbolID
	Index int

	removal *document.FrameRemoval
}

// NewRemoveFrame creates the command.
func NewRemoveFrame(owner document.SymbolID, index int) *RemoveFrame {
	return &RemoveFrame{Owner: owner, Index: index}
}

func (c *RemoveFrame) Apply(doc *document.Document) error {
	removal, err := doc.RemoveFrame(c.Owner, c.Index)
	if err != nil {
		return err
	}
	c.removal = removal
	return nil
}

func (c *RemoveFrame) Revert(doc *document.Document) error {
	return doc.UndoRemoveFrame(c.Owner, c.Index, c.removal)
}

func (c *RemoveFrame) Label() string { return "Remove frame" }

// NewDuplicateFrame inserts a copy of the frame at index directly after
// it: every span covering the frame grows by one, which InsertFrame at
// index+1 already does for spans crossing that point; spans ending exactly
// at index+1 are extended by a follow-up span change inside the same
// transaction when needed. For span-based timelines duplicating a frame is
// exactly a frame insertion that also extends spans whose tail is the
// duplicated frame.
func NewDuplicateFrame(doc *document.Document, owner document.SymbolID, index int) (*DuplicateFrame, error) {
	tl, err := doc.TimelineOf(owner)
	if err != nil {
		return nil, err
	}
	var tails []document.InstanceID
	for _, instID := range tl.Instances {
		inst, err := doc.Instance(instID)
		if err != nil {
			return nil, err
		}
		if inst.EndFrame()-1 == index {
			tails = append(tails, instID)
		}
	}
	return &DuplicateFrame{Owner: owner, Index: index, tails: tails}, nil
}

// DuplicateFrame inserts a copy of a frame after itself.
type DuplicateFrame struct {
	Owner document.SymbolID
	Index int

	tails []document.InstanceID
}

func (c *DuplicateFrame) Apply(doc *document.Document) error {
	if err := doc.InsertFrame(c.Owner, c.Index+1); err != nil {
		return err
	}
	for _, id := range c.tails {
		inst, err := doc.Instance(id)
		if err != nil {
			return err
		}
		if _, err := doc.SetInstanceSpan(id, inst.StartFrame, inst.Duration+1); err != nil {
			return err
		}
	}
	return nil
}

func (c *DuplicateFrame) Revert(doc *document.Document) error {
	for _, id := range c.tails {
		inst, err := doc.Instance(id)
		if err != nil {
			return err
		}
		if _, err := doc.SetInstanceSpan(id, inst.StartFrame, inst.Duration-1); err != nil {
			return err
		}
	}
	return doc.UndoInsertFrame(c.Owner, c.Index+1)
}

func (c *DuplicateFrame) Label() string { return "Duplicate frame" }
