// Package events provides the wire types of the live block preview stream.
// A client editing a block definition sends PreviewRequest messages over the
// preview websocket and receives one PreviewEvent for each of them, carrying
// either the code the edited block generates or the reason it could not be
// registered.
package events

import (
	"encoding/json"
	"time"
)

// PreviewEventType represents the outcome reported by a preview event.
type PreviewEventType string

const (
	// EventPreviewRendered is emitted when the edited definition registered
	// and its preview instance generated code.
	EventPreviewRendered PreviewEventType = "preview_rendered"

	// EventPreviewFailed is emitted when the edited definition was rejected.
	// The previously rendered preview, if any, stays registered.
	EventPreviewFailed PreviewEventType = "preview_failed"

	// EventPreviewDiscarded is emitted when the client asks to drop the
	// preview block from its session.
	EventPreviewDiscarded PreviewEventType = "preview_discarded"
)

// PreviewRequest is one edit of a block definition sent by the client. The
// fields mirror a stored block record.
type PreviewRequest struct {
	// BlockName names the block. When empty the definition's type is used.
	BlockName string `json:"block_name,omitempty"`
	// BlockType is the code kind the block belongs to, e.g. html or css.
	BlockType string `json:"block_type"`
	// Category is the toolbox category the block is listed under.
	Category string `json:"category,omitempty"`
	// Colour is the block colour as a hex string.
	Colour string `json:"colour,omitempty"`
	// Definition is the block definition, either as a JSON object or as a
	// string containing one.
	Definition json.RawMessage `json:"definition"`
	// CodeTemplate is the template the block generates code from.
	CodeTemplate string `json:"code_template"`
	// CheckboxMode selects how checkbox fields render: attribute_token or
	// raw_boolean.
	CheckboxMode string `json:"checkbox_mode,omitempty"`
	// Discard drops the preview block instead of updating it.
	Discard bool `json:"discard,omitempty"`
}

// Diagnostic describes a block that failed to generate code during a preview.
type Diagnostic struct {
	// BlockID is the id of the failing instance.
	BlockID string `json:"block_id"`
	// BlockType is the type name of the failing instance.
	BlockType string `json:"block_type"`
	// Message explains the failure.
	Message string `json:"message"`
}

// PreviewEvent is the server's answer to a PreviewRequest.
type PreviewEvent struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`
	// Type reports the outcome.
	Type PreviewEventType `json:"type"`
	// Timestamp indicates when the preview was rendered.
	Timestamp time.Time `json:"timestamp"`
	// BlockName is the name the preview block is registered under.
	BlockName string `json:"block_name,omitempty"`
	// Code is the generated code of a freshly created instance of the block.
	Code string `json:"code,omitempty"`
	// Diagnostics lists failures contained during generation.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	// Error contains the rejection reason of a failed preview.
	Error string `json:"error,omitempty"`
	// Duration is how long registration and generation took.
	Duration time.Duration `json:"duration,omitempty"`
}
