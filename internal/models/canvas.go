package models

import (
	"fmt"
	"time"
)

// OperationType tags the Operation variant.
type OperationType string

const (
	OpAddText OperationType = "add_text"
	OpErase   OperationType = "erase"
	OpRestore OperationType = "restore"
	OpReset   OperationType = "reset"
)

// TextLayer is a translated text box placed on the canvas.
type TextLayer struct {
	Text     string `json:"text"`
	Box      Rect   `json:"box"`
	FontSize int    `json:"fontSize,omitempty"`
	Color    string `json:"color,omitempty"`
}

// Operation is one entry of a session's layer stack. Exactly the fields that
// belong to Type are set: Text for add_text, JobID for erase, Region for restore.
type Operation struct {
	Type   OperationType `json:"type"`
	Text   *TextLayer    `json:"text,omitempty"`
	JobID  string        `json:"jobId,omitempty"`
	Region *Rect         `json:"region,omitempty"`
}

func (o Operation) Validate() error {
	switch o.Type {
	case OpAddText:
		if o.Text == nil {
			return fmt.Errorf("%w: add_text operation requires text", ErrInvalidInput)
		}
	case OpErase:
		if o.JobID == "" {
			return fmt.Errorf("%w: erase operation requires jobId", ErrInvalidInput)
		}
	case OpRestore:
		if o.Region == nil || o.Region.Empty() {
			return fmt.Errorf("%w: restore operation requires a non-empty region", ErrInvalidInput)
		}
	case OpReset:
	default:
		return fmt.Errorf("%w: unknown operation type %q", ErrInvalidInput, o.Type)
	}
	return nil
}

// CanvasSession is the server-side editing timeline for one image.
// Invariant: 0 <= UndoPointer <= len(LayerStack).
type CanvasSession struct {
	ID           string      `json:"sessionId"`
	BaseImageRef string      `json:"baseImageRef"`
	RequestID    string      `json:"requestId,omitempty"`
	LayerStack   []Operation `json:"layerStack"`
	UndoPointer  int         `json:"undoPointer"`
	Exports      []string    `json:"exports,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Visible returns the operations currently applied (those before the pointer).
func (s *CanvasSession) Visible() []Operation {
	return s.LayerStack[:s.UndoPointer]
}

// CanRedo reports whether a redo would move the pointer.
func (s *CanvasSession) CanRedo() bool {
	return s.UndoPointer < len(s.LayerStack)
}

// Push appends op, discarding any redo tail.
func (s *CanvasSession) Push(op Operation) {
	s.LayerStack = append(s.LayerStack[:s.UndoPointer:s.UndoPointer], op)
	s.UndoPointer = len(s.LayerStack)
}

// Undo steps back one operation; at zero it does nothing.
func (s *CanvasSession) Undo() {
	if s.UndoPointer > 0 {
		s.UndoPointer--
	}
}

// Redo re-applies one undone operation; at the end it does nothing.
func (s *CanvasSession) Redo() {
	if s.CanRedo() {
		s.UndoPointer++
	}
}

// Reset clears the layer stack. Exports are kept.
func (s *CanvasSession) Reset() {
	s.LayerStack = []Operation{}
	s.UndoPointer = 0
}

// Replace overwrites the stack with ops and moves the pointer to the end.
func (s *CanvasSession) Replace(ops []Operation) {
	s.LayerStack = append(make([]Operation, 0, len(ops)), ops...)
	s.UndoPointer = len(s.LayerStack)
}

func (s *CanvasSession) Clone() *CanvasSession {
	if s == nil {
		return nil
	}
	out := *s
	out.LayerStack = append(make([]Operation, 0, len(s.LayerStack)), s.LayerStack...)
	out.Exports = append([]string(nil), s.Exports...)
	return &out
}
