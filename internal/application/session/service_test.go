package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domain "github.com/photolangage/photolangage/internal/domain/session"
	"github.com/photolangage/photolangage/internal/replication"
	"github.com/photolangage/photolangage/internal/replication/local"
	"github.com/photolangage/photolangage/internal/replication/mocks"
)

func testPool(n int) []domain.Photo {
	photos := make([]domain.Photo, n)
	for i := range photos {
		photos[i] = domain.Photo{ID: string(rune('a' + i)), URL: "https://example.test/photo"}
	}
	return photos
}

func newTestService(t *testing.T, channel replication.Channel) *Service {
	t.Helper()
	svc := NewService("XJ9-2B", testPool(4), channel, zerolog.Nop())
	t.Cleanup(svc.Stop)
	return svc
}

func TestUpdate_PublishesIncreasingVersions(t *testing.T) {
	ctrl := gomock.NewController(t)
	channel := mocks.NewMockChannel(ctrl)

	var published []replication.Envelope
	channel.EXPECT().
		Publish(gomock.Any(), "XJ9-2B", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, env replication.Envelope) error {
			published = append(published, env)
			return nil
		}).
		Times(3)

	svc := newTestService(t, channel)
	svc.CreateSession("Changement", "Quelle image ?", testPool(3), false, "")
	svc.StartSession()
	svc.StartSelectionPhase()

	require.Len(t, published, 3)
	assert.EqualValues(t, 1, published[0].Version)
	assert.EqualValues(t, 2, published[1].Version)
	assert.EqualValues(t, 3, published[2].Version)
	assert.Equal(t, domain.StageSelectionPhase, published[2].Stage)
}

func TestUpdate_PublishFailureKeepsLocalState(t *testing.T) {
	ctrl := gomock.NewController(t)
	channel := mocks.NewMockChannel(ctrl)
	channel.EXPECT().
		Publish(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("store unreachable"))

	svc := newTestService(t, channel)
	svc.CreateSession("Changement", "Quelle image ?", testPool(3), false, "")

	// Optimistic local-first: the write failed but the replica believes it.
	assert.Equal(t, "Changement", svc.Snapshot().Theme)
	assert.EqualValues(t, 1, svc.Version())
}

func TestOnMessage_StaleSnapshotDiscarded(t *testing.T) {
	ctrl := gomock.NewController(t)
	channel := mocks.NewMockChannel(ctrl)
	channel.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	svc := newTestService(t, channel)
	svc.CreateSession("Changement", "Quelle image ?", testPool(3), false, "")
	svc.StartSession()
	require.EqualValues(t, 2, svc.Version())

	stale := replication.Envelope{Version: 1, State: domain.New("XJ9-2B", nil)}
	svc.onMessage(replication.Message{Envelope: stale})

	assert.Equal(t, domain.StagePresentation, svc.Snapshot().Stage)
	assert.EqualValues(t, 2, svc.Version())
}

func TestOnMessage_NewerSnapshotAdopted(t *testing.T) {
	ctrl := gomock.NewController(t)
	channel := mocks.NewMockChannel(ctrl)
	channel.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	svc := newTestService(t, channel)

	var seen []replication.Envelope
	svc.Watch(func(env replication.Envelope) { seen = append(seen, env) })

	remote := domain.New("XJ9-2B", testPool(2))
	remote.Theme = "Météo d'équipe"
	remote.Stage = domain.StageSelectionPhase
	svc.onMessage(replication.Message{Envelope: replication.Envelope{Version: 7, State: remote}})

	assert.Equal(t, "Météo d'équipe", svc.Snapshot().Theme)
	assert.EqualValues(t, 7, svc.Version())
	require.Len(t, seen, 1)
	assert.EqualValues(t, 7, seen[0].Version)
}

func TestOnMessage_SyncRequestAnsweredOnlyWhenActive(t *testing.T) {
	ctrl := gomock.NewController(t)
	channel := mocks.NewMockChannel(ctrl)

	svc := newTestService(t, channel)

	// No active session: the sync request goes unanswered.
	svc.onMessage(replication.Message{SyncRequest: true})

	channel.EXPECT().Publish(gomock.Any(), "XJ9-2B", gomock.Any()).Return(nil).Times(2)
	svc.CreateSession("Changement", "Quelle image ?", testPool(3), false, "")
	svc.onMessage(replication.Message{SyncRequest: true})
}

func TestJoinSession_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	channel := mocks.NewMockChannel(ctrl)
	channel.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	svc := newTestService(t, channel)

	tests := []struct {
		name    string
		code    string
		user    string
		wantErr error
	}{
		{name: "empty name", code: "XJ9-2B", user: "", wantErr: ErrEmptyName},
		{name: "wrong code", code: "ZZ0-0Z", user: "Ana", wantErr: ErrInvalidCode},
		{name: "case insensitive code", code: " xj9-2b ", user: "Ana", wantErr: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.JoinSession(tt.code, tt.user, "u-"+tt.name)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.RoleParticipant, svc.Role())
			_, ok := svc.Snapshot().Participant("u-" + tt.name)
			assert.True(t, ok)
		})
	}
}

func TestTimer_FacilitatorDrivesCountdown(t *testing.T) {
	broker := local.NewBroker()
	svc := newTestService(t, broker)
	svc.tick = time.Millisecond
	svc.SetRole(domain.RoleFacilitator)

	svc.CreateSession("Changement", "Quelle image ?", testPool(3), false, "")
	svc.StartSelectionPhase()

	assert.Eventually(t, func() bool {
		return svc.Snapshot().TimerSeconds < domain.DefaultTimerSeconds
	}, time.Second, time.Millisecond, "facilitator timer never ticked")

	svc.ToggleTimer()
	after := svc.Snapshot().TimerSeconds
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, svc.Snapshot().TimerSeconds, "paused timer kept ticking")
}

func TestTimer_FacilitatorKeepsDrivingAfterJoin(t *testing.T) {
	broker := local.NewBroker()
	svc := newTestService(t, broker)
	svc.tick = time.Millisecond
	svc.SetRole(domain.RoleFacilitator)

	svc.CreateSession("Changement", "Quelle image ?", testPool(3), false, "")
	// Joins handled on behalf of remote clients must not demote the
	// facilitator replica.
	require.NoError(t, svc.JoinSession("XJ9-2B", "Ana", "u1"))
	svc.StartSelectionPhase()

	assert.Equal(t, domain.RoleFacilitator, svc.Role())
	assert.Eventually(t, func() bool {
		return svc.Snapshot().TimerSeconds < domain.DefaultTimerSeconds
	}, time.Second, time.Millisecond, "countdown stopped after a participant joined")
}

func TestTimer_ParticipantNeverDrives(t *testing.T) {
	broker := local.NewBroker()
	svc := newTestService(t, broker)
	svc.tick = time.Millisecond
	svc.SetRole(domain.RoleParticipant)

	svc.CreateSession("Changement", "Quelle image ?", testPool(3), false, "")
	svc.StartSelectionPhase()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, domain.DefaultTimerSeconds, svc.Snapshot().TimerSeconds)
}

func TestTimer_ExpiryForcesSelection(t *testing.T) {
	broker := local.NewBroker()
	svc := newTestService(t, broker)
	svc.tick = time.Millisecond
	svc.SetRole(domain.RoleFacilitator)

	svc.CreateSession("Changement", "Quelle image ?", testPool(3), false, "")
	svc.update(func(st domain.State) domain.State {
		st = st.AddParticipant("u1", "Ana", "avatar")
		st = st.StartSelection()
		st.TimerSeconds = 2
		return st
	})

	assert.Eventually(t, func() bool {
		st := svc.Snapshot()
		return st.Stage == domain.StageSpeakingTour
	}, time.Second, time.Millisecond, "expiry did not force a selection")

	st := svc.Snapshot()
	p, _ := st.Participant("u1")
	assert.True(t, p.HasPhoto())
	assert.False(t, st.IsTimerRunning)
}

func TestReplicas_ConvergeOverLocalBroker(t *testing.T) {
	broker := local.NewBroker()
	facilitator := newTestService(t, broker)
	participant := newTestService(t, broker)

	ctx := context.Background()
	require.NoError(t, facilitator.Start(ctx))
	require.NoError(t, participant.Start(ctx))

	facilitator.SetRole(domain.RoleFacilitator)
	facilitator.CreateSession("Changement", "Quelle image ?", testPool(3), false, "")
	facilitator.StartSession()

	assert.Eventually(t, func() bool {
		return participant.Snapshot().Stage == domain.StagePresentation
	}, time.Second, time.Millisecond)

	require.NoError(t, participant.JoinSession("XJ9-2B", "Ana", "u1"))
	assert.Eventually(t, func() bool {
		_, ok := facilitator.Snapshot().Participant("u1")
		return ok
	}, time.Second, time.Millisecond)

	// Late joiner bootstraps through the sync handshake.
	late := newTestService(t, broker)
	require.NoError(t, late.Start(ctx))
	assert.Eventually(t, func() bool {
		return late.Snapshot().Theme == "Changement"
	}, time.Second, time.Millisecond)
}

func TestResetSession_KeepsRole(t *testing.T) {
	broker := local.NewBroker()
	svc := newTestService(t, broker)
	svc.SetRole(domain.RoleFacilitator)
	svc.CreateSession("Changement", "Quelle image ?", testPool(2), false, "")

	svc.ResetSession()

	st := svc.Snapshot()
	assert.Equal(t, "XJ9-2B", st.Code)
	assert.Equal(t, domain.StageLobby, st.Stage)
	assert.Empty(t, st.Theme)
	assert.Len(t, st.Photos, 4)
	assert.Equal(t, domain.RoleFacilitator, svc.Role())
}
