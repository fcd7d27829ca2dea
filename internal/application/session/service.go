// Package session drives one client's replica of the workshop session: it
// owns the state, funnels every mutation through a single serialized update
// step, publishes the resulting snapshot, and applies inbound snapshots from
// other clients.
package session

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domain "github.com/photolangage/photolangage/internal/domain/session"
	"github.com/photolangage/photolangage/internal/infrastructure/avatar"
	"github.com/photolangage/photolangage/internal/replication"
)

var (
	ErrInvalidCode = errors.New("session code does not match")
	ErrEmptyName   = errors.New("name must not be empty")
)

// Service is a session replica bound to one replication channel.
type Service struct {
	channel      replication.Channel
	logger       zerolog.Logger
	defaultPool  []domain.Photo
	publishLimit time.Duration

	mu          sync.Mutex
	state       domain.State
	version     int64
	role        domain.Role
	unsubscribe func()
	timerCancel context.CancelFunc
	watchers    map[int]func(replication.Envelope)
	nextWatch   int

	// test seams
	now  func() time.Time
	tick time.Duration
	rng  *rand.Rand
}

// NewService builds a replica in the LOBBY default state. defaultPool is the
// photo pool restored by a full reset.
func NewService(code string, defaultPool []domain.Photo, channel replication.Channel, logger zerolog.Logger) *Service {
	return &Service{
		channel:      channel,
		logger:       logger.With().Str("service", "session").Logger(),
		defaultPool:  defaultPool,
		publishLimit: 5 * time.Second,
		state:        domain.New(code, defaultPool),
		role:         domain.RoleNone,
		watchers:     make(map[int]func(replication.Envelope)),
		now:          time.Now,
		tick:         time.Second,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start subscribes the replica to its session code and asks peers for the
// current snapshot.
func (s *Service) Start(ctx context.Context) error {
	unsub, err := s.channel.Subscribe(s.state.Code, s.onMessage)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.unsubscribe = unsub
	s.mu.Unlock()
	return s.channel.RequestSync(ctx, s.state.Code)
}

// Stop cancels the timer task and tears down the subscription.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.timerCancel != nil {
		s.timerCancel()
		s.timerCancel = nil
	}
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// SetRole assigns this client's role. Only the facilitator replica drives
// the countdown; every other client treats timer fields as read-only remote
// state.
func (s *Service) SetRole(role domain.Role) {
	s.mu.Lock()
	s.role = role
	s.syncTimerLocked()
	s.mu.Unlock()
}

// Role returns the client's current role.
func (s *Service) Role() domain.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Snapshot returns a copy of the current state.
func (s *Service) Snapshot() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Version returns the version of the current snapshot.
func (s *Service) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Watch registers fn to run after every applied state change, local or
// remote. It returns an unregister function.
func (s *Service) Watch(fn func(replication.Envelope)) func() {
	s.mu.Lock()
	s.nextWatch++
	id := s.nextWatch
	s.watchers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// update is the single mutation funnel: apply, bump version, reconcile the
// timer task, notify watchers, publish. A publish failure is logged and the
// local state stands (optimistic local-first).
func (s *Service) update(mutate func(domain.State) domain.State) {
	s.mu.Lock()
	s.state = mutate(s.state)
	s.version++
	env := replication.Envelope{Version: s.version, State: s.state.Clone()}
	s.syncTimerLocked()
	watchers := s.watchersLocked()
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(env)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.publishLimit)
	defer cancel()
	if err := s.channel.Publish(ctx, env.Code, env); err != nil {
		s.logger.Warn().Err(err).Str("code", env.Code).Int64("version", env.Version).
			Msg("snapshot publish failed")
	}
}

func (s *Service) watchersLocked() []func(replication.Envelope) {
	out := make([]func(replication.Envelope), 0, len(s.watchers))
	for _, fn := range s.watchers {
		out = append(out, fn)
	}
	return out
}

// onMessage handles inbound channel traffic: sync requests are answered with
// the current snapshot when a session is active; snapshots are adopted only
// when strictly newer than what the replica holds, which also filters out
// the replica's own publishes echoed back by the transport.
func (s *Service) onMessage(msg replication.Message) {
	if msg.SyncRequest {
		s.mu.Lock()
		active := s.state.Theme != ""
		env := replication.Envelope{Version: s.version, State: s.state.Clone()}
		s.mu.Unlock()
		if !active {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.publishLimit)
		defer cancel()
		if err := s.channel.Publish(ctx, env.Code, env); err != nil {
			s.logger.Warn().Err(err).Msg("sync response publish failed")
		}
		return
	}

	env := msg.Envelope
	s.mu.Lock()
	if env.Version <= s.version {
		s.mu.Unlock()
		return
	}
	s.state = env.State.Clone()
	s.version = env.Version
	s.syncTimerLocked()
	watchers := s.watchersLocked()
	s.mu.Unlock()
	for _, fn := range watchers {
		fn(env)
	}
}

// syncTimerLocked reconciles the countdown task with the current state: the
// facilitator replica runs exactly one ticking goroutine while the timer is
// live, and any transition that stops the timer cancels the pending tick.
func (s *Service) syncTimerLocked() {
	shouldRun := s.role == domain.RoleFacilitator &&
		s.state.IsTimerRunning && s.state.TimerSeconds > 0
	switch {
	case shouldRun && s.timerCancel == nil:
		ctx, cancel := context.WithCancel(context.Background())
		s.timerCancel = cancel
		go s.runTimer(ctx)
	case !shouldRun && s.timerCancel != nil:
		s.timerCancel()
		s.timerCancel = nil
	}
}

func (s *Service) runTimer(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.handleTick()
		}
	}
}

func (s *Service) handleTick() {
	var expired bool
	s.update(func(st domain.State) domain.State {
		if !st.IsTimerRunning || st.TimerSeconds <= 0 {
			return st
		}
		st = st.Tick()
		expired = st.TimerSeconds == 0 && st.Stage == domain.StageSelectionPhase
		return st
	})
	if expired {
		// Selection ran out of time: the clock owner assigns the stragglers.
		s.ForceRandomSelection()
	}
}

// CreateSession sets the session content and returns to LOBBY. Theme and
// question emptiness is the caller's concern.
func (s *Service) CreateSession(theme, question string, photos []domain.Photo, enableEmotionInput bool, originTemplateID string) {
	s.update(func(st domain.State) domain.State {
		return st.WithSession(theme, question, photos, enableEmotionInput, originTemplateID)
	})
}

// StartSession moves LOBBY to PRESENTATION.
func (s *Service) StartSession() {
	s.update(domain.State.StartPresentation)
}

// StartSelectionPhase opens photo selection with a fresh running countdown.
func (s *Service) StartSelectionPhase() {
	s.update(domain.State.StartSelection)
}

// StartSilentPhase is a legacy alias for StartSelectionPhase kept for older
// facilitator clients; the duration argument is ignored.
func (s *Service) StartSilentPhase(time.Duration) {
	s.StartSelectionPhase()
}

// JoinSession validates the typed code and name, and adds the participant.
// A replica with no role yet becomes a participant replica; a replica that
// already holds a role keeps it — in particular, the facilitator replica
// serving joins on behalf of remote clients is never demoted, which would
// orphan the countdown it drives.
func (s *Service) JoinSession(code, name, userID string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	s.mu.Lock()
	matches := s.state.CodeMatches(code)
	s.mu.Unlock()
	if !matches {
		return ErrInvalidCode
	}
	s.update(func(st domain.State) domain.State {
		return st.AddParticipant(userID, strings.TrimSpace(name), avatar.URL(userID))
	})
	s.mu.Lock()
	if s.role == domain.RoleNone {
		s.role = domain.RoleParticipant
		s.syncTimerLocked()
	}
	s.mu.Unlock()
	return nil
}

// AddGuestParticipant adds a facilitator-managed guest and returns its id.
func (s *Service) AddGuestParticipant(name, roleLabel string) string {
	id := "guest-" + uuid.NewString()
	s.update(func(st domain.State) domain.State {
		return st.AddGuest(id, name, roleLabel, avatar.URL(name))
	})
	return id
}

// SelectPhoto claims a photo for a participant; claimed photos make it a
// no-op.
func (s *Service) SelectPhoto(photoID, userID, emotionWord string) {
	now := s.now().UnixMilli()
	s.update(func(st domain.State) domain.State {
		return st.SelectPhoto(photoID, userID, emotionWord, now)
	})
}

// RotatePhoto turns a photo a quarter turn.
func (s *Service) RotatePhoto(photoID string) {
	s.update(func(st domain.State) domain.State {
		return st.RotatePhoto(photoID)
	})
}

// StartSpeakingTour freezes the round-one order and opens the tour.
func (s *Service) StartSpeakingTour() {
	s.update(domain.State.StartSpeakingTour)
}

// SetSpeaker gives or clears the floor.
func (s *Service) SetSpeaker(participantID string, markPreviousDone bool) {
	s.update(func(st domain.State) domain.State {
		return st.SetSpeaker(participantID, markPreviousDone)
	})
}

// GoToRoundTransition parks the session between rounds.
func (s *Service) GoToRoundTransition() {
	s.update(domain.State.GoToRoundTransition)
}

// StartDebateTour opens round two.
func (s *Service) StartDebateTour() {
	s.update(domain.State.StartDebateTour)
}

// NextSpeaker advances the debate pairing.
func (s *Service) NextSpeaker() {
	s.update(domain.State.NextSpeaker)
}

// EndSession moves the session into synthesis.
func (s *Service) EndSession() {
	s.update(domain.State.EndSession)
}

// CloseSession is the facilitator's explicit terminal close.
func (s *Service) CloseSession() {
	s.update(domain.State.Close)
}

// ResetSession restores the lobby defaults, keeping the session code and
// this client's role.
func (s *Service) ResetSession() {
	s.update(func(st domain.State) domain.State {
		return st.Reset(s.defaultPool)
	})
}

// ToggleTimer flips the countdown.
func (s *Service) ToggleTimer() {
	s.update(domain.State.ToggleTimer)
}

// AddTime extends the countdown and force-starts it.
func (s *Service) AddTime(seconds int) {
	s.update(func(st domain.State) domain.State {
		return st.AddTime(seconds)
	})
}

// UpdateNotes replaces the synthesis notes.
func (s *Service) UpdateNotes(text string) {
	s.update(func(st domain.State) domain.State {
		return st.WithNotes(text)
	})
}

// RemoveParticipant kicks a participant and releases their photo.
func (s *Service) RemoveParticipant(userID string) {
	s.update(func(st domain.State) domain.State {
		return st.RemoveParticipant(userID)
	})
}

// ForceRandomSelection pairs the remaining participants with random photos
// and jumps to the speaking tour.
func (s *Service) ForceRandomSelection() {
	now := s.now().UnixMilli()
	s.update(func(st domain.State) domain.State {
		return st.ForceRandomSelection(s.rng, now)
	})
}
