package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lacquerai/blocksmith/internal/block"
	"github.com/lacquerai/blocksmith/internal/registrar"
	"github.com/lacquerai/blocksmith/pkg/events"
	"github.com/rs/zerolog/log"
)

// preview streams block previews over a websocket. Each connection owns a
// private registry so edits never touch the served library.
func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	s.metrics.sessionOpened()
	defer s.metrics.sessionClosed()

	previewer := registrar.NewPreviewer(block.NewRegistry())
	defer previewer.Discard()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Preview connection closed unexpectedly")
			}
			return
		}

		event := s.renderPreview(previewer, message)
		s.metrics.ObservePreview(string(event.Type))

		eventJSON, err := json.Marshal(event)
		if err != nil {
			log.Error().Err(err).Msg("Failed to encode preview event")
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, eventJSON); err != nil {
			return
		}
	}
}

// renderPreview applies one preview request to the session's previewer
func (s *Server) renderPreview(previewer *registrar.Previewer, message []byte) events.PreviewEvent {
	start := time.Now()
	event := events.PreviewEvent{
		ID:        uuid.NewString(),
		Timestamp: start,
	}

	var req events.PreviewRequest
	if err := json.Unmarshal(message, &req); err != nil {
		event.Type = events.EventPreviewFailed
		event.Error = "invalid preview request: " + err.Error()
		return event
	}

	if req.Discard {
		event.BlockName = previewer.Current()
		previewer.Discard()
		event.Type = events.EventPreviewDiscarded
		return event
	}

	result, err := previewer.UpdateRecord(block.Record{
		BlockName:    req.BlockName,
		BlockType:    block.Kind(req.BlockType),
		Category:     req.Category,
		Colour:       req.Colour,
		Definition:   req.Definition,
		CodeTemplate: req.CodeTemplate,
		CheckboxMode: block.CheckboxMode(req.CheckboxMode),
	})
	event.Duration = time.Since(start)
	if err != nil {
		event.Type = events.EventPreviewFailed
		event.BlockName = previewer.Current()
		event.Error = err.Error()
		return event
	}

	event.Type = events.EventPreviewRendered
	event.BlockName = result.Schema.Name
	event.Code = result.Code
	for _, d := range result.Diagnostics {
		event.Diagnostics = append(event.Diagnostics, events.Diagnostic{
			BlockID:   d.BlockID,
			BlockType: d.BlockType,
			Message:   d.Message,
		})
	}
	return event
}
