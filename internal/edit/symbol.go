// Package edit holds the reversible commands for every document mutation.
// Edits are only ever constructed here and applied through a history.Stack,
// so each one is undoable. Each command validates before mutating; a
// rejected edit leaves the document untouched.
package edit

import (
	"fmt"

	"github.com/thisisjonathan/flits-editor/internal/document"
	"github.com/thisisjonathan/flits-editor/internal/history"
)

// DefineSymbol adds a new symbol definition. The id is allocated on first
// apply and reused on redo so references stay stable.
type DefineSymbol struct {
	Symbol document.Symbol

	id        document.SymbolID
	allocated bool
	deleted   document.DeletedSymbol
}

// NewDefineSymbol creates the command.
func NewDefineSymbol(sym document.Symbol) *DefineSymbol {
	return &DefineSymbol{Symbol: sym}
}

// ID returns the id of the defined symbol. Valid after the first apply.
func (c *DefineSymbol) ID() document.SymbolID { return c.id }

func (c *DefineSymbol) Apply(doc *document.Document) error {
	if !c.allocated {
		id, err := doc.DefineSymbol(c.Symbol)
		if err != nil {
			return err
		}
		c.id = id
		c.allocated = true
		return nil
	}
	return doc.RestoreSymbol(c.id, c.deleted)
}

func (c *DefineSymbol) Revert(doc *document.Document) error {
	deleted, err := doc.DeleteSymbol(c.id)
	if err != nil {
		return err
	}
	c.deleted = deleted
	return nil
}

func (c *DefineSymbol) Label() string {
	return fmt.Sprintf("New %s %q", c.Symbol.Kind, c.Symbol.Name)
}

// DeleteSymbol removes a symbol definition. It fails with
// ErrReferencedEntity while instances still place the symbol; use
// NewDeleteSymbolCascade to remove those placements in the same step.
type DeleteSymbol struct {
	ID document.SymbolID

	label   string
	deleted document.DeletedSymbol
}

// NewDeleteSymbol creates the command. The label is resolved from the
// current symbol name so the undo menu reads naturally.
func NewDeleteSymbol(doc *document.Document, id document.SymbolID) *DeleteSymbol {
	label := "Delete symbol"
	if sym, err := doc.Symbol(id); err == nil {
		label = fmt.Sprintf("Delete %s %q", sym.Kind, sym.Name)
	}
	return &DeleteSymbol{ID: id, label: label}
}

func (c *DeleteSymbol) Apply(doc *document.Document) error {
	deleted, err := doc.DeleteSymbol(c.ID)
	if err != nil {
		return err
	}
	c.deleted = deleted
	return nil
}

func (c *DeleteSymbol) Revert(doc *document.Document) error {
	return doc.RestoreSymbol(c.ID, c.deleted)
}

func (c *DeleteSymbol) Label() string { return c.label }

// NewDeleteSymbolCascade builds one atomic transaction removing every
// placement of the symbol and then the symbol itself.
func NewDeleteSymbolCascade(doc *document.Document, id document.SymbolID) *history.Transaction {
	del := NewDeleteSymbol(doc, id)
	tx := history.NewTransaction(del.Label())
	for _, instID := range doc.ReferencesTo(id) {
		tx.Append(NewRemoveInstance(instID))
	}
	tx.Append(del)
	return tx
}

// EditSymbolProperties replaces the editable properties of a symbol.
type EditSymbolProperties struct {
	ID     document.SymbolID
	Before document.SymbolProperties
	After  document.SymbolProperties
}

// NewEditSymbolProperties creates the command from the symbol's current
// properties.
func NewEditSymbolProperties(doc *document.Document, id document.SymbolID, after document.SymbolProperties) (*EditSymbolProperties, error) {
	sym, err := doc.Symbol(id)
	if err != nil {
		return nil, err
	}
	return &EditSymbolProperties{ID: id, Before: sym.Properties(), After: after}, nil
}

func (c *EditSymbolProperties) Apply(doc *document.Document) error {
	sym, err := doc.Symbol(c.ID)
	if err != nil {
		return err
	}
	sym.SetProperties(c.After)
	return nil
}

func (c *EditSymbolProperties) Revert(doc *document.Document) error {
	sym, err := doc.Symbol(c.ID)
	if err != nil {
		return err
	}
	sym.SetProperties(c.Before)
	return nil
}

func (c *EditSymbolProperties) Label() string {
	return fmt.Sprintf("Rename to %q", c.After.Name)
}

// EditMovieProperties replaces the document-wide movie settings.
type EditMovieProperties struct {
	Before document.MovieProperties
	After  document.MovieProperties
}

// NewEditMovieProperties creates the command from the current settings.
func NewEditMovieProperties(doc *document.Document, after document.MovieProperties) *EditMovieProperties {
	return &EditMovieProperties{Before: doc.Properties, After: after}
}

func (c *EditMovieProperties) Apply(doc *document.Document) error {
	doc.Properties = c.After
	return nil
}

func (c *EditMovieProperties) Revert(doc *document.Document) error {
	doc.Properties = c.Before
	return nil
}

func (c *EditMovieProperties) Label() string { return "Edit movie properties" }

// DeleteResource removes an unreferenced resource table entry.
type DeleteResource struct {
	ID document.ResourceID

	removed document.Resource
}

// NewDeleteResource creates the command.
func NewDeleteResource(id document.ResourceID) *DeleteResource {
	return &DeleteResource{ID: id}
}

func (c *DeleteResource) Apply(doc *document.Document) error {
	res, err := doc.Resources.Delete(c.ID)
	if err != nil {
		return err
	}
	c.removed = res
	return nil
}

func (c *DeleteResource) Revert(doc *document.Document) error {
	return doc.Resources.Restore(c.ID, c.removed)
}

func (c *DeleteResource) Label() string { return "Delete resource" }
