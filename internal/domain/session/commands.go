package session

import (
	"math/rand"
)

// Command functions are total: they always return a valid successor state
// and express rejected input by returning the state unchanged. Callers that
// need to distinguish "rejected" from "applied" compare before and after.

// WithSession sets up session content and returns the state to LOBBY. The
// roster is deliberately preserved so a facilitator can re-create content
// while participants are already connected.
func (s State) WithSession(theme, question string, photos []Photo, enableEmotionInput bool, originTemplateID string) State {
	next := s.Clone()
	next.Theme = theme
	next.TaskQuestion = question
	next.Photos = clonePhotos(photos)
	next.EnableEmotionInput = enableEmotionInput
	next.OriginTemplateID = originTemplateID
	next.Stage = StageLobby
	return next
}

// StartPresentation moves the session from the lobby into the facilitator's
// presentation of the exercise.
func (s State) StartPresentation() State {
	next := s.Clone()
	next.Stage = StagePresentation
	return next
}

// StartSelection opens the photo-selection phase and arms the countdown.
func (s State) StartSelection() State {
	next := s.Clone()
	next.Stage = StageSelectionPhase
	next.TimerSeconds = DefaultTimerSeconds
	next.IsTimerRunning = true
	return next
}

// SelectPhoto claims a photo for a participant. If another participant
// already holds the photo the command is a no-op (first come, first served).
// Re-selection releases the participant's previous photo, keeping the
// one-photo-per-participant, one-participant-per-photo invariant.
func (s State) SelectPhoto(photoID, userID, emotionWord string, now int64) State {
	if photo, ok := s.Photo(photoID); !ok || (photo.SelectedByUserID != "" && photo.SelectedByUserID != userID) {
		return s
	}
	if _, ok := s.Participant(userID); !ok {
		return s
	}
	next := s.Clone()
	for i := range next.Photos {
		if next.Photos[i].SelectedByUserID == userID {
			next.Photos[i].SelectedByUserID = ""
		}
	}
	for i := range next.Photos {
		if next.Photos[i].ID == photoID {
			next.Photos[i].SelectedByUserID = userID
		}
	}
	for i := range next.Participants {
		if next.Participants[i].ID == userID {
			next.Participants[i].SelectedPhotoID = photoID
			next.Participants[i].EmotionWord = emotionWord
			next.Participants[i].Status = StatusSelected
			next.Participants[i].SelectionTimestamp = now
		}
	}
	return next
}

// RotatePhoto turns a photo a quarter turn clockwise. Cosmetic only.
func (s State) RotatePhoto(photoID string) State {
	next := s.Clone()
	for i := range next.Photos {
		if next.Photos[i].ID == photoID {
			next.Photos[i].Rotation = (next.Photos[i].Rotation + 90) % 360
		}
	}
	return next
}

// StartSpeakingTour freezes the round-one speaking order and opens the tour
// with no active speaker (voluntary mode until the facilitator assigns one).
func (s State) StartSpeakingTour() State {
	next := s.Clone()
	next.Stage = StageSpeakingTour
	next.SpeakingOrder = SpeakingOrder(next.Participants)
	next.CurrentSpeakerID = ""
	next.CurrentSubjectID = ""
	next.IsTimerRunning = false
	return next
}

// SetSpeaker gives the floor to a participant, or clears the floor when id
// is empty. markPreviousDone decides whether the outgoing speaker is marked
// done or reverted to selected.
func (s State) SetSpeaker(id string, markPreviousDone bool) State {
	next := s.Clone()
	for i := range next.Participants {
		p := &next.Participants[i]
		if id != "" && p.ID == id {
			p.Status = StatusSpeaking
			continue
		}
		if p.ID == next.CurrentSpeakerID {
			if markPreviousDone {
				p.Status = StatusDone
			} else {
				p.Status = StatusSelected
			}
		}
	}
	next.CurrentSpeakerID = id
	return next
}

// GoToRoundTransition parks the session between the two rounds.
func (s State) GoToRoundTransition() State {
	next := s.Clone()
	next.Stage = StageRoundTransition
	next.CurrentSpeakerID = ""
	next.CurrentSubjectID = ""
	return next
}

// StartDebateTour opens round two on the first subject/speaker pair. With
// fewer than two eligible participants there is nothing to debate and the
// session goes straight to synthesis.
func (s State) StartDebateTour() State {
	next := s.Clone()
	eligible := next.ParticipantsWithPhotos()
	if len(eligible) < 2 {
		next.Stage = StageSynthesis
		next.CurrentSpeakerID = ""
		next.CurrentSubjectID = ""
		next.IsTimerRunning = false
		return next
	}
	next.Stage = StageDebateTour
	next.CurrentSubjectID = eligible[0].ID
	next.CurrentSpeakerID = eligible[1].ID
	next.IsTimerRunning = false
	return next
}

// NextSpeaker advances the debate to the next ordered pair, or to synthesis
// once every participant has reacted to every other participant's photo.
// Outside the debate tour it is a no-op.
func (s State) NextSpeaker() State {
	if s.Stage != StageDebateTour {
		return s
	}
	eligible := s.ParticipantsWithPhotos()
	if len(eligible) == 0 {
		return s
	}
	next := s.Clone()
	if len(eligible) == 1 {
		next.Stage = StageSynthesis
		next.CurrentSpeakerID = ""
		next.CurrentSubjectID = ""
		return next
	}
	cursor, ok := currentCursor(s, eligible).advance(len(eligible))
	if !ok {
		next.Stage = StageSynthesis
		next.CurrentSpeakerID = ""
		next.CurrentSubjectID = ""
		return next
	}
	next.CurrentSubjectID = eligible[cursor.subject].ID
	next.CurrentSpeakerID = eligible[cursor.speaker].ID
	return next
}

// EndSession closes the rounds into the synthesis stage.
func (s State) EndSession() State {
	next := s.Clone()
	next.Stage = StageSynthesis
	return next
}

// Close is the facilitator's explicit terminal action.
func (s State) Close() State {
	next := s.Clone()
	next.Stage = StageEnded
	next.IsTimerRunning = false
	return next
}

// Reset restores the lobby defaults. The session code is kept; role bindings
// are per-client and unaffected.
func (s State) Reset(photos []Photo) State {
	return New(s.Code, photos)
}

// AddParticipant adds a joining participant. Joining twice with the same id
// is a no-op.
func (s State) AddParticipant(id, name, avatarURL string) State {
	if _, ok := s.Participant(id); ok {
		return s
	}
	next := s.Clone()
	next.Participants = append(next.Participants, Participant{
		ID:     id,
		Name:   name,
		Avatar: avatarURL,
		Status: StatusWaiting,
	})
	return next
}

// AddGuest adds a facilitator-managed guest to the roster.
func (s State) AddGuest(id, name, roleLabel, avatarURL string) State {
	next := s.Clone()
	next.Participants = append(next.Participants, Participant{
		ID:        id,
		Name:      name,
		Avatar:    avatarURL,
		Status:    StatusWaiting,
		IsGuest:   true,
		RoleLabel: roleLabel,
	})
	return next
}

// RemoveParticipant kicks a participant, releasing any photo they held. If
// they held the debate floor the tour resumes at their successor pair;
// outside the debate the dangling floor reference is simply cleared.
func (s State) RemoveParticipant(userID string) State {
	next := s.Clone()
	for i := range next.Photos {
		if next.Photos[i].SelectedByUserID == userID {
			next.Photos[i].SelectedByUserID = ""
		}
	}
	kept := next.Participants[:0]
	for _, p := range next.Participants {
		if p.ID != userID {
			kept = append(kept, p)
		}
	}
	next.Participants = kept
	if next.CurrentSpeakerID != userID && next.CurrentSubjectID != userID {
		return next
	}
	if next.Stage == StageDebateTour {
		return resumeDebateFloor(next, s, userID)
	}
	if next.CurrentSpeakerID == userID {
		next.CurrentSpeakerID = ""
	}
	if next.CurrentSubjectID == userID {
		next.CurrentSubjectID = ""
	}
	return next
}

// AddTime extends the countdown and force-starts it.
func (s State) AddTime(seconds int) State {
	next := s.Clone()
	next.TimerSeconds += seconds
	next.IsTimerRunning = true
	return next
}

// ToggleTimer flips the countdown between running and paused.
func (s State) ToggleTimer() State {
	next := s.Clone()
	next.IsTimerRunning = !next.IsTimerRunning
	return next
}

// Tick decrements the countdown by one second, stopping at zero.
func (s State) Tick() State {
	if !s.IsTimerRunning || s.TimerSeconds <= 0 {
		return s
	}
	next := s.Clone()
	next.TimerSeconds--
	if next.TimerSeconds == 0 {
		next.IsTimerRunning = false
	}
	return next
}

// WithNotes replaces the facilitator's synthesis notes.
func (s State) WithNotes(text string) State {
	next := s.Clone()
	next.Notes = text
	return next
}

// ForceRandomSelection pairs every photo-less participant with a random
// unclaimed photo (shuffle then zip; participants beyond the pool stay
// unselected), then jumps to the speaking tour with a fresh order.
func (s State) ForceRandomSelection(rng *rand.Rand, now int64) State {
	next := s.Clone()

	available := next.AvailablePhotos()
	rng.Shuffle(len(available), func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})

	assigned := 0
	for i := range next.Participants {
		p := &next.Participants[i]
		if p.HasPhoto() || assigned >= len(available) {
			continue
		}
		photo := available[assigned]
		assigned++
		for j := range next.Photos {
			if next.Photos[j].ID == photo.ID {
				next.Photos[j].SelectedByUserID = p.ID
			}
		}
		p.SelectedPhotoID = photo.ID
		p.Status = StatusSelected
		p.SelectionTimestamp = now
	}

	if len(next.Participants) > 0 {
		next.Stage = StageSpeakingTour
	}
	next.SpeakingOrder = SpeakingOrder(next.Participants)
	next.IsTimerRunning = false
	next.CurrentSpeakerID = ""
	next.CurrentSubjectID = ""
	return next
}
