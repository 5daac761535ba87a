package edit

import (
	"fmt"

	"github.com/thisisjonathan/flits-editor/internal/document"
	"github.com/thisisjonathan/flits-editor/internal/history"
)

// PlaceInstance places a symbol on a timeline. The instance id is
// allocated on first apply and reused on redo.
type PlaceInstance struct {
	Owner    document.SymbolID
	Instance document.Instance

	id        document.InstanceID
	allocated bool
}

// NewPlaceInstance creates the command. Owner is the symbol whose timeline
// receives the placement, or the zero id for the root stage.
func NewPlaceInstance(owner document.SymbolID, inst document.Instance) *PlaceInstance {
	return &PlaceInstance{Owner: owner, Instance: inst}
}

// ID returns the placed instance's id. Valid after the first apply.
func (c *PlaceInstance) ID() document.InstanceID { return c.id }

func (c *PlaceInstance) Apply(doc *document.Document) error {
	if !c.allocated {
		id, err := doc.PlaceInstance(c.Owner, c.Instance)
		if err != nil {
			return err
		}
		c.id = id
		c.allocated = true
		return nil
	}
	return doc.RestoreInstance(c.id, c.Owner, c.Instance)
}

func (c *PlaceInstance) Revert(doc *document.Document) error {
	_, inst, err := doc.RemoveInstance(c.id)
	if err != nil {
		return err
	}
	// Keep edits made after placement (moves merged by redo history).
	c.Instance = inst
	return nil
}

func (c *PlaceInstance) Label() string { return "Place symbol" }

// RemoveInstance removes a placement from its timeline.
type RemoveInstance struct {
	ID document.InstanceID

	owner    document.SymbolID
	instance document.Instance
}

// NewRemoveInstance creates the command.
func NewRemoveInstance(id document.InstanceID) *RemoveInstance {
	return &RemoveInstance{ID: id}
}

func (c *RemoveInstance) Apply(doc *document.Document) error {
	owner, inst, err := doc.RemoveInstance(c.ID)
	if err != nil {
		return err
	}
	c.owner = owner
	c.instance = inst
	return nil
}

func (c *RemoveInstance) Revert(doc *document.Document) error {
	return doc.RestoreInstance(c.ID, c.owner, c.instance)
}

func (c *RemoveInstance) Label() string { return "Remove symbol" }

// MoveInstance replaces an instance's transform. Consecutive moves of the
// same instance merge into one history entry, so a continuous drag undoes
// as a single step.
type MoveInstance struct {
	ID    document.InstanceID
	After document.Transform

	before   document.Transform
	captured bool
}

// NewMoveInstance creates the command.
func NewMoveInstance(id document.InstanceID, after document.Transform) *MoveInstance {
	return &MoveInstance{ID: id, After: after}
}

func (c *MoveInstance) Apply(doc *document.Document) error {
	old, err := doc.SetInstanceTransform(c.ID, c.After)
	if err != nil {
		return err
	}
	if !c.captured {
		c.before = old
		c.captured = true
	}
	return nil
}

func (c *MoveInstance) Revert(doc *document.Document) error {
	_, err := doc.SetInstanceTransform(c.ID, c.before)
	return err
}

// Merge absorbs a following move of the same instance.
func (c *MoveInstance) Merge(next history.Command) bool {
	move, ok := next.(*MoveInstance)
	if !ok || move.ID != c.ID {
		return false
	}
	c.After = move.After
	return true
}

func (c *MoveInstance) Label() string { return "Move symbol" }

// SetInstanceSpan moves or resizes an instance's frame span.
type SetInstanceSpan struct {
	ID         document.InstanceID
	StartFrame int
	Duration   int

	before   document.SpanChange
	captured bool
}

// NewSetInstanceSpan creates the command.
func NewSetInstanceSpan(id document.InstanceID, startFrame, duration int) *SetInstanceSpan {
	return &SetInstanceSpan{ID: id, StartFrame: startFrame, Duration: duration}
}

func (c *SetInstanceSpan) Apply(doc *document.Document) error {
	old, err := doc.SetInstanceSpan(c.ID, c.StartFrame, c.Duration)
	if err != nil {
		return err
	}
	if !c.captured {
		c.before = old
		c.captured = true
	}
	return nil
}

func (c *SetInstanceSpan) Revert(doc *document.Document) error {
	_, err := doc.SetInstanceSpan(c.ID, c.before.StartFrame, c.before.Duration)
	return err
}

func (c *SetInstanceSpan) Label() string { return "Change frame span" }

// SetInstanceName renames an instance.
type SetInstanceName struct {
	ID   document.InstanceID
	Name string

	before   string
	captured bool
}

// NewSetInstanceName creates the command.
func NewSetInstanceName(id document.InstanceID, name string) *SetInstanceName {
	return &SetInstanceName{ID: id, Name: name}
}

func (c *SetInstanceName) Apply(doc *document.Document) error {
	old, err := doc.SetInstanceName(c.ID, c.Name)
	if err != nil {
		return err
	}
	if !c.captured {
		c.before = old
		c.captured = true
	}
	return nil
}

func (c *SetInstanceName) Revert(doc *document.Document) error {
	_, err := doc.SetInstanceName(c.ID, c.before)
	return err
}

func (c *SetInstanceName) Label() string {
	return fmt.Sprintf("Name instance %q", c.Name)
}

// SetInstanceColor replaces an instance's color transform.
type SetInstanceColor struct {
	ID    document.InstanceID
	Color document.ColorTransform

	before   document.ColorTransform
	captured bool
}

// NewSetInstanceColor creates the command.
func NewSetInstanceColor(id document.InstanceID, color document.ColorTransform) *SetInstanceColor {
	return &SetInstanceColor{ID: id, Color: color}
}

func (c *SetInstanceColor) Apply(doc *document.Document) error {
	old, err := doc.SetInstanceColor(c.ID, c.Color)
	if err != nil {
		return err
	}
	if !c.captured {
		c.before = old
		c.captured = true
	}
	return nil
}

func (c *SetInstanceColor) Revert(doc *document.Document) error {
	_, err := doc.SetInstanceColor(c.ID, c.before)
	return err
}

func (c *SetInstanceColor) Label() string { return "Change color effect" }

// AttachScript swaps the compiled script blob attached to an instance.
// The zero resource id detaches.
type AttachScript struct {
	ID     document.InstanceID
	Script document.ResourceID

	before   document.ResourceID
	captured bool
}

// NewAttachScript creates the command.
func NewAttachScript(id document.InstanceID, script document.ResourceID) *AttachScript {
	return &AttachScript{ID: id, Script: script}
}

func (c *AttachScript) Apply(doc *document.Document) error {
	old, err := doc.SetInstanceScript(c.ID, c.Script)
	if err != nil {
		return err
	}
	if !c.captured {
		c.before = old
		c.captured = true
	}
	return nil
}

func (c *AttachScript) Revert(doc *document.Document) error {
	_, err := doc.SetInstanceScript(c.ID, c.before)
	return err
}

func (c *AttachScript) Label() string { return "Attach script" }

// InternResource adds a payload to the resource table, deduplicated by
// content. Reverting removes the entry only if this command created it.
type InternResource struct {
	Resource document.Resource

	id        document.ResourceID
	created   bool
	allocated bool
}

// NewInternResource creates the command.
func NewInternResource(res document.Resource) *InternResource {
	return &InternResource{Resource: res}
}

// ID returns the interned resource id. Valid after the first apply.
func (c *InternResource) ID() document.ResourceID { return c.id }

func (c *InternResource) Apply(doc *document.Document) error {
	if !c.allocated {
		c.id, c.created = doc.Resources.Intern(c.Resource)
		c.allocated = true
		return nil
	}
	if c.created {
		return doc.Resources.Restore(c.id, c.Resource)
	}
	return nil
}

func (c *InternResource) Revert(doc *document.Document) error {
	if !c.created {
		return nil
	}
	_, err := doc.Resources.Delete(c.id)
	return err
}

func (c *InternResource) Label() string {
	return fmt.Sprintf("Import %s", c.Resource.Kind)
}
