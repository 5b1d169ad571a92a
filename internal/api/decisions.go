package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/themis/internal/consensus"
	"github.com/MikeSquared-Agency/themis/internal/decision"
	"github.com/MikeSquared-Agency/themis/internal/pipeline"
)

// EvaluateRequest is the payload for POST /api/v1/themis/decisions.
type EvaluateRequest struct {
	Context         decision.Context          `json:"context"`
	Recommendations []decision.Recommendation `json:"recommendations"`
}

// ContributionsRequest is the payload for
// POST /api/v1/themis/decisions/{id}/contributions. Contributions already
// submitted over the bus are merged in before consensus is resolved.
type ContributionsRequest struct {
	Contributions []consensus.Contribution `json:"contributions"`
}

func (s *Server) evaluateDecision(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	eval, err := s.engine.Evaluate(r.Context(), req.Recommendations, req.Context)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

func (s *Server) resolveDecision(w http.ResponseWriter, r *http.Request) {
	decisionID := chi.URLParam(r, "id")

	var req ContributionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	res, err := s.engine.Resolve(r.Context(), decisionID, req.Contributions)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listPersonas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.All())
}

func (s *Server) activePersona(w http.ResponseWriter, r *http.Request) {
	iface, err := s.personas.ActiveInterface()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, iface)
}

func (s *Server) listTransitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.personas.Transitions())
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats())
}

// writeDomainError maps pipeline errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *decision.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Error())
		return
	}
	var nf *pipeline.NotFoundError
	if errors.As(err, &nf) {
		writeError(w, http.StatusNotFound, nf.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
