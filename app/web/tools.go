package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/jobtrack/app/tools"
)

// handleToolsList returns function definitions of all registered tools
func (s *Server) handleToolsList(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.tools.Definitions())
}

// handleToolCall executes the tool with json body as arguments
func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	args, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "can't read request body")
		return
	}

	res, err := s.tools.Call(r.Context(), name, json.RawMessage(args))
	if errors.Is(err, tools.ErrUnknownTool) {
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.Printf("[ERROR] tool %s: %v", name, err)
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}
