// Package registrar turns block schemas into registered, generatable block
// types.
package registrar

import (
	"fmt"
	"strings"

	"github.com/lacquerai/blocksmith/internal/block"
	"github.com/lacquerai/blocksmith/internal/codegen"
	"github.com/rs/zerolog/log"
)

// Registrar validates schemas and installs them, together with their
// generators, into a registry
type Registrar struct {
	registry *block.Registry
}

// New creates a registrar that writes into registry
func New(registry *block.Registry) *Registrar {
	return &Registrar{registry: registry}
}

// Registry returns the registry this registrar writes into
func (r *Registrar) Registry() *block.Registry {
	return r.registry
}

// Register validates the schema and installs it. A schema that fails
// validation is not installed and existing entries are left alone.
// Registering an existing name replaces it.
func (r *Registrar) Register(schema *block.Schema) error {
	entry, err := NewEntry(schema)
	if err != nil {
		return err
	}

	if err := r.registry.Register(entry); err != nil {
		return fmt.Errorf("failed to register block %q: %w", schema.Name, err)
	}

	log.Debug().
		Str("block", schema.Name).
		Str("kind", string(schema.Kind)).
		Str("category", schema.Category).
		Msg("Registered block type")

	return nil
}

// RegisterRecord parses a stored record and registers it
func (r *Registrar) RegisterRecord(rec block.Record) error {
	schema, err := block.ParseRecord(rec)
	if err != nil {
		return err
	}
	return r.Register(schema)
}

// RegisterAll registers every record it can. Failures are collected and
// returned together; good records are registered regardless.
func (r *Registrar) RegisterAll(records []block.Record) (int, error) {
	errs := &MultiError{}
	registered := 0

	for _, rec := range records {
		if err := r.RegisterRecord(rec); err != nil {
			errs.Add(err)
			log.Warn().Str("block", rec.BlockName).Err(err).Msg("Skipping malformed block definition")
			continue
		}
		registered++
	}

	return registered, errs.ToError()
}

// Unregister removes a block type
func (r *Registrar) Unregister(name string) bool {
	removed := r.registry.Unregister(name)
	if removed {
		log.Debug().Str("block", name).Msg("Unregistered block type")
	}
	return removed
}

// NewEntry validates a schema and builds its registry entry
func NewEntry(schema *block.Schema) (*block.Entry, error) {
	if err := block.Validate(schema); err != nil {
		return nil, err
	}
	return &block.Entry{
		Schema:    schema,
		Generator: codegen.NewGenerator(schema),
	}, nil
}

// MultiError represents several registration errors
type MultiError struct {
	Errors []error `json:"errors"`
}

// Error implements the error interface for MultiError
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}

	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Multiple errors (%d):\n", len(e.Errors)))

	for i, err := range e.Errors {
		result.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}

	return result.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the MultiError
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (e *MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns the MultiError as an error if there are errors, nil otherwise
func (e *MultiError) ToError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}
