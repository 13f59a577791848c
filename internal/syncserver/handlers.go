package syncserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/balkashynov/checkmaster/internal/models"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"clients": s.hub.Count(),
	})
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	ts, err := s.backend.ListTemplates(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ts == nil {
		ts = []models.Template{}
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.backend.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) createTemplate(w http.ResponseWriter, r *http.Request) {
	var in TemplateInput
	if !s.decode(w, r, &in) {
		return
	}
	t, err := s.backend.CreateTemplate(r.Context(), in.Title, in.Questions)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) updateTemplate(w http.ResponseWriter, r *http.Request) {
	var in TemplateInput
	if !s.decode(w, r, &in) {
		return
	}
	if err := s.backend.UpdateTemplate(r.Context(), chi.URLParam(r, "id"), in.Title, in.Questions); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ss, err := s.backend.ListSessions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ss == nil {
		ss = []models.Session{}
	}
	writeJSON(w, http.StatusOK, ss)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.backend.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var in SessionInput
	if !s.decode(w, r, &in) {
		return
	}
	sess, err := s.backend.CreateSession(r.Context(), in.TemplateID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) updateItems(w http.ResponseWriter, r *http.Request) {
	var in ItemsInput
	if !s.decode(w, r, &in) {
		return
	}
	if err := s.backend.UpdateSessionItems(r.Context(), chi.URLParam(r, "id"), in.Items); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) importTemplate(w http.ResponseWriter, r *http.Request) {
	var in models.Template
	if !s.decode(w, r, &in) {
		return
	}
	t, err := s.backend.ImportTemplate(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) importSession(w http.ResponseWriter, r *http.Request) {
	var in models.Session
	if !s.decode(w, r, &in) {
		return
	}
	sess, err := s.backend.ImportSession(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// decode reads a JSON body, answering 400 on malformed input
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.fail(w, r, &models.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
