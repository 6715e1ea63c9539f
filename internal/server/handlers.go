package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/elitetrace/factcheckd/internal/bus"
	"github.com/elitetrace/factcheckd/internal/scan"
	"github.com/elitetrace/factcheckd/internal/verdict"
)

var validate = validator.New()

// SelectionRequest is the body for POST /scan: a newly captured selection.
type SelectionRequest struct {
	Text     string         `json:"text" validate:"required"`
	Metadata *scan.Metadata `json:"metadata,omitempty"`
}

// CheckRequest is the body for POST /check. Text may be empty, in which
// case the current captured selection is scanned.
type CheckRequest struct {
	Text     string         `json:"text,omitempty"`
	Metadata *scan.Metadata `json:"metadata,omitempty"`
}

// VisionRequest is the body for POST /check/vision.
type VisionRequest struct {
	ImagePNG string `json:"image_png" validate:"required,base64"`
}

// SiteRequest is the body for POST /site.
type SiteRequest struct {
	Domain string `json:"domain" validate:"required,hostname_rfc1123"`
}

// ScanAccepted is the immediate response to an accepted scan request; the
// outcome arrives over /events and in persisted state.
type ScanAccepted struct {
	Status string `json:"status"`
}

func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	s.orchestrator.SetSelection(req.Text, req.Metadata)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSelection(w http.ResponseWriter, _ *http.Request) {
	sel := s.orchestrator.Selection()
	if sel == nil {
		s.jsonResponse(w, http.StatusOK, scan.Selection{})
		return
	}
	s.jsonResponse(w, http.StatusOK, *sel)
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	if err := s.orchestrator.Reset(); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCheck starts a text scan. The request is accepted immediately; the
// scan runs in the background and its result is broadcast and persisted.
// Listeners that miss the broadcast resynchronize from GET /state.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	// An empty body is legal here: it means "scan the captured selection".
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	text := req.Text
	meta := req.Metadata
	if text == "" {
		if sel := s.orchestrator.Selection(); sel != nil {
			text = sel.Text
			if meta == nil {
				meta = sel.Metadata
			}
		}
	}

	go func() {
		if _, err := s.orchestrator.CheckText(context.Background(), text, meta); err != nil {
			log.Printf("server: text scan failed: %v", err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, ScanAccepted{Status: "scanning"})
}

func (s *Server) handleCheckVision(w http.ResponseWriter, r *http.Request) {
	var req VisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.ImagePNG)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "image_png is not valid base64")
		return
	}

	go func() {
		if _, err := s.orchestrator.CheckVision(context.Background(), image); err != nil {
			log.Printf("server: vision scan failed: %v", err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, ScanAccepted{Status: "scanning"})
}

func (s *Server) handleAnalyzeSite(w http.ResponseWriter, r *http.Request) {
	var req SiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	go func() {
		if _, err := s.orchestrator.AnalyzeSite(context.Background(), req.Domain); err != nil {
			log.Printf("server: site analysis failed for %s: %v", req.Domain, err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, ScanAccepted{Status: "analyzing"})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	state, err := s.store.ScanState()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.store.History()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, entries)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, _ *http.Request) {
	if err := s.store.ClearHistory(); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.bus.Publish(bus.Event{Kind: bus.KindHistoryUpdated, Payload: []verdict.HistoryEntry{}})
	w.WriteHeader(http.StatusNoContent)
}
