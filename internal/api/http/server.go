// Package httpapi exposes the facilitation command surface over HTTP and
// streams session snapshots to clients over SSE.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	appSession "github.com/photolangage/photolangage/internal/application/session"
	appTemplate "github.com/photolangage/photolangage/internal/application/template"
	"github.com/photolangage/photolangage/internal/api/ws"
	"github.com/photolangage/photolangage/internal/infrastructure/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	sessionSvc  *appSession.Service
	templateSvc *appTemplate.Service
	sseHub      *sse.Hub
	wsHub       *ws.Hub
	logger      zerolog.Logger
}

func NewServer(
	sessionSvc *appSession.Service,
	templateSvc *appTemplate.Service,
	sseHub *sse.Hub,
	wsHub *ws.Hub,
	logger zerolog.Logger,
) *Server {
	return &Server{
		sessionSvc:  sessionSvc,
		templateSvc: templateSvc,
		sseHub:      sseHub,
		wsHub:       wsHub,
		logger:      logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Post("/", s.createSession)
			r.Post("/join", s.joinSession)
			r.Post("/guests", s.addGuest)
			r.Post("/start", s.startSession)
			r.Post("/selection", s.startSelectionPhase)
			r.Post("/speaking-tour", s.startSpeakingTour)
			r.Post("/round-transition", s.goToRoundTransition)
			r.Post("/debate-tour", s.startDebateTour)
			r.Post("/speaker", s.setSpeaker)
			r.Post("/speaker/next", s.nextSpeaker)
			r.Post("/end", s.endSession)
			r.Post("/close", s.closeSession)
			r.Post("/reset", s.resetSession)
			r.Post("/timer/toggle", s.toggleTimer)
			r.Post("/timer/add", s.addTime)
			r.Post("/notes", s.updateNotes)
			r.Post("/force-selection", s.forceRandomSelection)
			r.Delete("/participants/{userID}", s.removeParticipant)
			r.Post("/photos/{photoID}/select", s.selectPhoto)
			r.Post("/photos/{photoID}/rotate", s.rotatePhoto)
			// Streaming; no request timeout on these.
			r.Get("/stream", s.streamSession)
		})

		r.Method(http.MethodGet, "/sync", s.wsHub)

		r.Route("/templates", func(r chi.Router) {
			r.Use(middleware.Timeout(10 * time.Second))
			r.Get("/", s.listTemplates)
			r.Post("/", s.saveTemplate)
			r.Delete("/{templateID}", s.deleteTemplate)
			r.Post("/{templateID}/archive", s.toggleArchiveTemplate)
		})

		r.Get("/catalog/folders", s.listFolders)
	})

	return r
}

func (s *Server) newStreamClient(clientID, code string) *sse.Client {
	client := sse.NewClient(clientID, code)
	s.sseHub.Register(client)
	return client
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
