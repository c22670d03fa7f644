package http

import (
	"net/http"
	"time"

	"bizledger/internal/core"
	"bizledger/internal/log"
	"bizledger/internal/session"
)

const sessionCookie = "bizledger_session"

// sessionID returns the caller's session id, issuing a cookie on first
// contact.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := session.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		Expires:  s.now().Add(30 * 24 * time.Hour),
	})
	return id
}

func (s *Server) sessionState(w http.ResponseWriter, r *http.Request) session.State {
	return s.sessions.Get(s.sessionID(w, r))
}

func templateChoices() []core.QuickTemplate {
	return core.DefaultTemplates
}

func suggestedCategories() []string {
	return core.SuggestedCategories
}

func overheadBucket() string {
	return core.OverheadBucket
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"templates":  templateChoices(),
		"categories": suggestedCategories(),
		"overhead":   overheadBucket(),
	}).Write(w)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.sessionState(w, r)).Write(w)
}

func (s *Server) handleSelectTemplate(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	id := s.sessionID(w, r)
	state, err := s.sessions.SelectTemplate(id, p.Get("name"))
	if err != nil {
		s.fail(w, r, "select template", err)
		return
	}
	s.logger.DebugContext(r.Context(), "Quick template selected",
		log.FieldSession, id, "template", state.Template.Name)
	NewResponse().TriggerSessionChanged().JSON(state).Write(w)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	state := s.sessions.Reset(s.sessionID(w, r))
	NewResponse().TriggerSessionChanged().JSON(state).Write(w)
}
