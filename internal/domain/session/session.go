package session

import (
	"strings"
)

// Stage is the session state machine's current phase.
type Stage string

const (
	StageLobby           Stage = "LOBBY"
	StagePresentation    Stage = "PRESENTATION"
	StageSelectionPhase  Stage = "SELECTION_PHASE"
	StageSpeakingTour    Stage = "SPEAKING_TOUR"
	StageRoundTransition Stage = "ROUND_TRANSITION"
	StageDebateTour      Stage = "DEBATE_TOUR"
	StageSynthesis       Stage = "SYNTHESIS"
	StageEnded           Stage = "ENDED"
)

// ParticipantStatus tracks where a participant is in the exercise.
type ParticipantStatus string

const (
	StatusWaiting  ParticipantStatus = "waiting"
	StatusThinking ParticipantStatus = "thinking"
	StatusSelected ParticipantStatus = "selected"
	StatusSpeaking ParticipantStatus = "speaking"
	StatusDone     ParticipantStatus = "done"
)

// Role identifies what a connected client is allowed to drive. It is
// per-client state and never replicated.
type Role string

const (
	RoleFacilitator Role = "FACILITATOR"
	RoleParticipant Role = "PARTICIPANT"
	RoleObserver    Role = "OBSERVER"
	RoleNone        Role = "NONE"
)

// DefaultTimerSeconds is the selection-phase countdown length.
const DefaultTimerSeconds = 300

// Photo is one entry of the shared pool. A photo is available iff
// SelectedByUserID is empty; at most one participant holds it at a time.
type Photo struct {
	ID               string   `json:"id"`
	URL              string   `json:"url"`
	Keywords         []string `json:"keywords,omitempty"`
	SelectedByUserID string   `json:"selectedByUserId,omitempty"`
	Rotation         int      `json:"rotation,omitempty"`
}

// Available reports whether no participant holds the photo.
func (p Photo) Available() bool {
	return p.SelectedByUserID == ""
}

// Participant is one member of the roster.
type Participant struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Avatar             string            `json:"avatar"`
	Status             ParticipantStatus `json:"status"`
	SelectedPhotoID    string            `json:"selectedPhotoId,omitempty"`
	EmotionWord        string            `json:"emotionWord,omitempty"`
	SelectionTimestamp int64             `json:"selectionTimestamp,omitempty"`
	IsGuest            bool              `json:"isGuest,omitempty"`
	RoleLabel          string            `json:"roleLabel,omitempty"`
}

// HasPhoto reports whether the participant has confirmed a selection.
func (p Participant) HasPhoto() bool {
	return p.SelectedPhotoID != ""
}

// State is the single replicated aggregate. Every publish carries a full
// snapshot of it; there is no per-field sync.
type State struct {
	Code               string        `json:"code"`
	Theme              string        `json:"theme"`
	TaskQuestion       string        `json:"taskQuestion"`
	EnableEmotionInput bool          `json:"enableEmotionInput"`
	OriginTemplateID   string        `json:"originTemplateId,omitempty"`
	Stage              Stage         `json:"stage"`
	TimerSeconds       int           `json:"timerSeconds"`
	IsTimerRunning     bool          `json:"isTimerRunning"`
	Participants       []Participant `json:"participants"`
	Photos             []Photo       `json:"photos"`
	CurrentSpeakerID   string        `json:"currentSpeakerId,omitempty"`
	CurrentSubjectID   string        `json:"currentSubjectId,omitempty"`
	SpeakingOrder      []string      `json:"speakingOrder,omitempty"`
	Notes              string        `json:"notes"`
}

// New returns the LOBBY default state for a session code and photo pool.
func New(code string, photos []Photo) State {
	return State{
		Code:         code,
		Stage:        StageLobby,
		TimerSeconds: DefaultTimerSeconds,
		Participants: []Participant{},
		Photos:       clonePhotos(photos),
	}
}

// Clone returns a deep copy. Command functions operate on copies so callers
// can treat State values as immutable snapshots.
func (s State) Clone() State {
	out := s
	out.Participants = make([]Participant, len(s.Participants))
	copy(out.Participants, s.Participants)
	out.Photos = clonePhotos(s.Photos)
	if s.SpeakingOrder != nil {
		out.SpeakingOrder = make([]string, len(s.SpeakingOrder))
		copy(out.SpeakingOrder, s.SpeakingOrder)
	}
	return out
}

func clonePhotos(photos []Photo) []Photo {
	out := make([]Photo, len(photos))
	copy(out, photos)
	for i, p := range photos {
		if p.Keywords != nil {
			kw := make([]string, len(p.Keywords))
			copy(kw, p.Keywords)
			out[i].Keywords = kw
		}
	}
	return out
}

// Participant returns the roster entry for id, if present.
func (s State) Participant(id string) (Participant, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// Photo returns the pool entry for id, if present.
func (s State) Photo(id string) (Photo, bool) {
	for _, p := range s.Photos {
		if p.ID == id {
			return p, true
		}
	}
	return Photo{}, false
}

// ParticipantsWithPhotos returns the roster members that confirmed a
// selection, in roster order.
func (s State) ParticipantsWithPhotos() []Participant {
	var out []Participant
	for _, p := range s.Participants {
		if p.HasPhoto() {
			out = append(out, p)
		}
	}
	return out
}

// AvailablePhotos returns the unclaimed photos, in pool order.
func (s State) AvailablePhotos() []Photo {
	var out []Photo
	for _, p := range s.Photos {
		if p.Available() {
			out = append(out, p)
		}
	}
	return out
}

// CodeMatches compares a human-typed join code against the session code,
// case-insensitively and ignoring surrounding whitespace.
func (s State) CodeMatches(code string) bool {
	return strings.EqualFold(strings.TrimSpace(code), strings.TrimSpace(s.Code))
}
