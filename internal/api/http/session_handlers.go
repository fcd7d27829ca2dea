package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appSession "github.com/photolangage/photolangage/internal/application/session"
	"github.com/photolangage/photolangage/internal/domain/catalog"
	"github.com/photolangage/photolangage/internal/domain/session"
)

type createSessionRequest struct {
	Theme              string          `json:"theme"`
	Question           string          `json:"question"`
	FolderID           string          `json:"folderId,omitempty"`
	Photos             []session.Photo `json:"photos,omitempty"`
	EnableEmotionInput bool            `json:"enableEmotionInput,omitempty"`
	OriginTemplateID   string          `json:"originTemplateId,omitempty"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if strings.TrimSpace(req.Theme) == "" || strings.TrimSpace(req.Question) == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "theme and question are required")
		return
	}
	photos := req.Photos
	if len(photos) == 0 {
		photos = catalog.FolderByID(req.FolderID).Photos
	}
	s.sessionSvc.SetRole(session.RoleFacilitator)
	s.sessionSvc.CreateSession(req.Theme, req.Question, photos, req.EnableEmotionInput, req.OriginTemplateID)
	s.respondSnapshot(w, http.StatusCreated)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.respondSnapshot(w, http.StatusOK)
}

type joinSessionRequest struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	UserID string `json:"userId,omitempty"`
}

func (s *Server) joinSession(w http.ResponseWriter, r *http.Request) {
	var req joinSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	userID := req.UserID
	if userID == "" {
		userID = uuid.NewString()
	}
	if err := s.sessionSvc.JoinSession(req.Code, req.Name, userID); err != nil {
		switch {
		case errors.Is(err, appSession.ErrInvalidCode):
			respondError(w, http.StatusBadRequest, "INVALID_CODE", "no session with that code")
		case errors.Is(err, appSession.ErrEmptyName):
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "name must not be empty")
		default:
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"userId":  userID,
		"session": s.sessionSvc.Snapshot(),
	})
}

type addGuestRequest struct {
	Name      string `json:"name"`
	RoleLabel string `json:"roleLabel,omitempty"`
}

func (s *Server) addGuest(w http.ResponseWriter, r *http.Request) {
	var req addGuestRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "name must not be empty")
		return
	}
	id := s.sessionSvc.AddGuestParticipant(req.Name, req.RoleLabel)
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"userId":  id,
		"session": s.sessionSvc.Snapshot(),
	})
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	s.sessionSvc.StartSession()
	s.respondSnapshot(w, http.StatusOK)
}

func (s *Server) startSelectionPhase(w http.ResponseWriter, r *http.Request) {
	s.sessionSvc.StartSelectionPhase()
	s.respondSnapshot(w, http.StatusOK)
}

func (s *Server) startSpeakingTour(w http.ResponseWriter, r *http.Request) {
	s.sessionSvc.StartSpeakingTour()
	s.respondSnapshot(w, http.StatusOK)
}

func (s *Server) goToRoundTransition(w http.ResponseWriter, r *http.Request) {
	s.sessionSvc.GoToRoundTransition()
	s.respondSnapshot(w, http.StatusOK)
}

func (s *Server) startDebateTour(w http.ResponseWriter, r *http.Request) {
	s.sessionSvc.StartDebateTour()
	s.respondSnapshot(w, http.StatusOK)
}

type setSpeakerRequest struct {
	ParticipantID    string `json:"participantId"`
	MarkPreviousDone *bool  `json:"markPreviousDone,omitempty"`
}

func (s *Server) setSpeaker(w http.ResponseWriter, r *http.Request) {
	var req setSpeakerRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	markDone := true
	if req.MarkPreviousDone != nil {
		markDone = *req.MarkPreviousDone
	}
	s.sessionSvc.SetSpeaker(req.ParticipantID, markDone)
	s.respondSnapshot(w, http.StatusOK)
}

func (s *Server) nextSpeaker(w http.ResponseWriter, r *http.Request) {
	s.sessionSvc.NextSpeaker()
	s.respondSnapshot(w, http.StatusOK)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	s.sessionSvc.EndSession()
	s.respondSnapshot(w, http.StatusOK)
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	s.sessionSvc.CloseSession()
	s.respondSnapshot(w, http.StatusOK)
}

func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	s.sessionSvc.ResetSession()
	s.respondSnapshot(w, http.StatusOK)
}

func (s *Server) toggleTimer(w http.ResponseWriter, r *http.Request) {
	s.sessionSvc.ToggleTimer()
	s.respondSnapshot(w, http.StatusOK)
}

type addTimeRequest struct {
	Seconds int `json:"seconds"`
}

func (s *Server) addTime(w http.ResponseWriter, r *http.Request) {
	var req addTimeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if req.Seconds <= 0 {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "seconds must be positive")
		return
	}
	s.sessionSvc.AddTime(req.Seconds)
	s.respondSnapshot(w, http.StatusOK)
}

type updateNotesRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) updateNotes(w http.ResponseWriter, r *http.Request) {
	var req updateNotesRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	s.sessionSvc.UpdateNotes(req.Notes)
	s.respondSnapshot(w, http.StatusOK)
}

func (s *Server) forceRandomSelection(w http.ResponseWriter, r *http.Request) {
	s.sessionSvc.ForceRandomSelection()
	s.respondSnapshot(w, http.StatusOK)
}

func (s *Server) removeParticipant(w http.ResponseWriter, r *http.Request) {
	s.sessionSvc.RemoveParticipant(chi.URLParam(r, "userID"))
	s.respondSnapshot(w, http.StatusOK)
}

type selectPhotoRequest struct {
	UserID      string `json:"userId"`
	EmotionWord string `json:"emotionWord,omitempty"`
}

func (s *Server) selectPhoto(w http.ResponseWriter, r *http.Request) {
	var req selectPhotoRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "userId is required")
		return
	}
	s.sessionSvc.SelectPhoto(chi.URLParam(r, "photoID"), req.UserID, req.EmotionWord)
	s.respondSnapshot(w, http.StatusOK)
}

func (s *Server) rotatePhoto(w http.ResponseWriter, r *http.Request) {
	s.sessionSvc.RotatePhoto(chi.URLParam(r, "photoID"))
	s.respondSnapshot(w, http.StatusOK)
}

func (s *Server) listFolders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, catalog.Folders())
}

func (s *Server) respondSnapshot(w http.ResponseWriter, status int) {
	respondJSON(w, status, map[string]interface{}{
		"version": s.sessionSvc.Version(),
		"session": s.sessionSvc.Snapshot(),
	})
}

// streamSession is the SSE feed of session snapshots.
func (s *Server) streamSession(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	snapshot := s.sessionSvc.Snapshot()
	client := s.newStreamClient(clientID, snapshot.Code)
	defer s.sseHub.Unregister(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, ok := w.(http.Flusher)
	if !ok {
		return
	}
	// First event is the current snapshot so clients render immediately.
	writeEvent(w, map[string]interface{}{
		"version": s.sessionSvc.Version(),
		"session": snapshot,
	})
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case env, ok := <-client.MessageChan:
			if !ok {
				return
			}
			writeEvent(w, map[string]interface{}{
				"version": env.Version,
				"session": env.State,
			})
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n\n"))
}
