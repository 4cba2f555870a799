package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/lacquerai/blocksmith/internal/codegen"
	"github.com/lacquerai/blocksmith/internal/tutorial"
	"github.com/lacquerai/blocksmith/internal/workspace"
	"github.com/rs/zerolog/log"
)

// blockSummary is the listing form of a registered block type
type blockSummary struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Category string   `json:"category"`
	Colour   string   `json:"colour,omitempty"`
	Output   bool     `json:"output"`
	Fields   []string `json:"fields"`
	Slots    []string `json:"slots"`
}

type documentRequest struct {
	Title     string          `json:"title"`
	Workspace json.RawMessage `json:"workspace"`
}

type validateRequest struct {
	Snapshot json.RawMessage `json:"snapshot"`
	Code     *string         `json:"code,omitempty"`
}

// listBlocks returns every registered block type in registration order
func (s *Server) listBlocks(w http.ResponseWriter, r *http.Request) {
	schemas := s.library.Registry().Schemas()

	blocks := make([]blockSummary, 0, len(schemas))
	for _, schema := range schemas {
		summary := blockSummary{
			Name:     schema.Name,
			Kind:     string(schema.Kind),
			Category: schema.Category,
			Colour:   schema.Colour,
			Output:   schema.IsValue(),
			Fields:   []string{},
			Slots:    []string{},
		}
		for _, arg := range schema.Shape.NamedArgs() {
			if arg.Kind.IsSlot() {
				summary.Slots = append(summary.Slots, arg.Name)
			} else if arg.Kind.IsField() {
				summary.Fields = append(summary.Fields, arg.Name)
			}
		}
		blocks = append(blocks, summary)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"blocks":  blocks,
		"skipped": s.library.Skipped(),
	})
}

// getToolbox returns the toolbox tree and its category theme
func (s *Server) getToolbox(w http.ResponseWriter, r *http.Request) {
	tree, theme := s.library.Toolbox()
	writeJSON(w, http.StatusOK, map[string]any{
		"toolbox": tree,
		"theme":   theme,
	})
}

// compile turns a workspace snapshot into code. With ?split=kind the code
// is returned per block kind.
func (s *Server) compile(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readBody(w, r)
	if !ok {
		return
	}

	registry, compiler := s.library.Current()
	ws, err := workspace.Unmarshal(data, registry)
	if err != nil {
		writeSnapshotError(w, err)
		return
	}

	start := time.Now()
	if r.URL.Query().Get("split") == "kind" {
		parts, diags := compiler.CompileByKind(ws)
		s.metrics.ObserveCompile("compile", start, countDangling(diags))

		code := make(map[string]string, len(parts))
		for kind, text := range parts {
			code[string(kind)] = text
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"code":        code,
			"diagnostics": nonNil(diags),
		})
		return
	}

	result := compiler.CompileWithDiagnostics(ws)
	s.metrics.ObserveCompile("compile", start, countDangling(result.Diagnostics))

	writeJSON(w, http.StatusOK, map[string]any{
		"code":        result.Code,
		"diagnostics": nonNil(result.Diagnostics),
	})
}

// document wraps a compiled workspace in a standalone HTML page
func (s *Server) document(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readBody(w, r)
	if !ok {
		return
	}

	var req documentRequest
	if err := json.Unmarshal(data, &req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Workspace) == 0 {
		http.Error(w, "workspace is required", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		req.Title = "Untitled Page"
	}

	registry, compiler := s.library.Current()
	ws, err := workspace.Unmarshal(req.Workspace, registry)
	if err != nil {
		writeSnapshotError(w, err)
		return
	}

	start := time.Now()
	doc, diags := compiler.Document(req.Title, ws)
	s.metrics.ObserveCompile("document", start, countDangling(diags))

	writeJSON(w, http.StatusOK, map[string]any{
		"document":    doc,
		"diagnostics": nonNil(diags),
	})
}

// listTutorials returns a summary of every tutorial
func (s *Server) listTutorials(w http.ResponseWriter, r *http.Request) {
	tutorials := s.library.Tutorials()

	list := make([]map[string]any, 0, len(tutorials))
	for _, t := range tutorials {
		list = append(list, map[string]any{
			"id":          t.ID,
			"title":       t.Title,
			"description": t.Description,
			"steps":       len(t.Steps),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"tutorials": list})
}

// getTutorial returns one tutorial with its steps
func (s *Server) getTutorial(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	t, ok := s.library.Tutorial(id)
	if !ok {
		http.Error(w, fmt.Sprintf("Tutorial '%s' not found", id), http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// validateStep checks a workspace against one tutorial step. When the
// request carries no code the snapshot is compiled to obtain it.
func (s *Server) validateStep(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	t, ok := s.library.Tutorial(id)
	if !ok {
		http.Error(w, fmt.Sprintf("Tutorial '%s' not found", id), http.StatusNotFound)
		return
	}

	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		http.Error(w, "step index must be a number", http.StatusBadRequest)
		return
	}
	step, err := t.Step(index)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	data, ok := s.readBody(w, r)
	if !ok {
		return
	}

	var req validateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	snapshot := req.Snapshot
	if len(snapshot) == 0 {
		snapshot = json.RawMessage(`{}`)
	}
	snap, err := workspace.ParseSnapshot(snapshot)
	if err != nil {
		writeSnapshotError(w, err)
		return
	}

	var code string
	if req.Code != nil {
		code = *req.Code
	} else {
		registry, compiler := s.library.Current()
		ws, err := workspace.Deserialize(snap, registry)
		if err != nil {
			writeSnapshotError(w, err)
			return
		}

		start := time.Now()
		result := compiler.CompileWithDiagnostics(ws)
		s.metrics.ObserveCompile("validate", start, countDangling(result.Diagnostics))
		code = result.Code
	}

	checks := tutorial.Feedback(step, snap, code)
	passed := tutorial.Validate(step, snap, code)

	log.Debug().
		Str("tutorial", id).
		Int("step", index).
		Bool("passed", passed).
		Msg("Tutorial step validated")

	writeJSON(w, http.StatusOK, map[string]any{
		"tutorial_id": id,
		"step":        index,
		"passed":      passed,
		"checks":      checks,
	})
}

// reload re-reads the block library from the store
func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Load(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Library reload failed")
		http.Error(w, fmt.Sprintf("Reload failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "reloaded",
		"blocks":    stats.Blocks,
		"skipped":   stats.Skipped,
		"tutorials": stats.Tutorials,
	})
}

// healthCheck returns server health status
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"blocks_loaded": s.library.Count(),
		"tutorials":     len(s.library.Tutorials()),
		"timestamp":     time.Now(),
	})
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Body == nil {
		http.Error(w, "request body is required", http.StatusBadRequest)
		return nil, false
	}

	body := r.Body
	if s.config.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}

	var data json.RawMessage
	if err := json.NewDecoder(body).Decode(&data); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return nil, false
	}
	return data, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeSnapshotError reports a rejected snapshot with the path of the
// offending node
func writeSnapshotError(w http.ResponseWriter, err error) {
	response := map[string]any{
		"error": err.Error(),
	}

	var snapErr *workspace.InvalidSnapshotError
	if errors.As(err, &snapErr) && snapErr.Path != "" {
		response["path"] = snapErr.Path
	}

	writeJSON(w, http.StatusBadRequest, response)
}

func countDangling(diags []codegen.Diagnostic) int {
	n := 0
	for _, d := range diags {
		if errors.Is(d.Err, codegen.ErrDanglingTypeReference) {
			n++
		}
	}
	return n
}

func nonNil(diags []codegen.Diagnostic) []codegen.Diagnostic {
	if diags == nil {
		return []codegen.Diagnostic{}
	}
	return diags
}
