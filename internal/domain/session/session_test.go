package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(n int) []Photo {
	photos := make([]Photo, n)
	for i := range photos {
		photos[i] = Photo{ID: string(rune('a' + i)), URL: "https://example.test/photo"}
	}
	return photos
}

func TestNew(t *testing.T) {
	st := New("XJ9-2B", testPool(3))

	assert.Equal(t, "XJ9-2B", st.Code)
	assert.Equal(t, StageLobby, st.Stage)
	assert.Equal(t, DefaultTimerSeconds, st.TimerSeconds)
	assert.False(t, st.IsTimerRunning)
	assert.Empty(t, st.Participants)
	assert.Len(t, st.Photos, 3)
}

func TestClone_Isolation(t *testing.T) {
	st := New("XJ9-2B", testPool(2))
	st = st.AddParticipant("u1", "Ana", "avatar")

	clone := st.Clone()
	clone.Participants[0].Name = "changed"
	clone.Photos[0].SelectedByUserID = "u1"

	assert.Equal(t, "Ana", st.Participants[0].Name)
	assert.Empty(t, st.Photos[0].SelectedByUserID)
}

func TestCodeMatches(t *testing.T) {
	st := New("XJ9-2B", nil)

	tests := []struct {
		name  string
		code  string
		match bool
	}{
		{name: "exact", code: "XJ9-2B", match: true},
		{name: "lowercase", code: "xj9-2b", match: true},
		{name: "surrounding whitespace", code: "  XJ9-2B  ", match: true},
		{name: "wrong code", code: "AA1-1A", match: false},
		{name: "empty", code: "", match: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, st.CodeMatches(tt.code))
		})
	}
}

func TestAddParticipant_JoinTwiceIsNoOp(t *testing.T) {
	st := New("XJ9-2B", testPool(2))
	st = st.AddParticipant("u1", "Ana", "avatar-a")
	again := st.AddParticipant("u1", "Other", "avatar-b")

	require.Len(t, again.Participants, 1)
	assert.Equal(t, "Ana", again.Participants[0].Name)
	assert.Equal(t, StatusWaiting, again.Participants[0].Status)
}

func TestSelectPhoto_ClaimsAndStamps(t *testing.T) {
	st := New("XJ9-2B", testPool(3))
	st = st.AddParticipant("u1", "Ana", "avatar")

	st = st.SelectPhoto("a", "u1", "joie", 1000)

	photo, ok := st.Photo("a")
	require.True(t, ok)
	assert.Equal(t, "u1", photo.SelectedByUserID)

	p, ok := st.Participant("u1")
	require.True(t, ok)
	assert.Equal(t, "a", p.SelectedPhotoID)
	assert.Equal(t, "joie", p.EmotionWord)
	assert.Equal(t, StatusSelected, p.Status)
	assert.EqualValues(t, 1000, p.SelectionTimestamp)
}

func TestSelectPhoto_ClaimedByOtherIsNoOp(t *testing.T) {
	// Scenario D: two users race for one photo; the second command leaves
	// the state untouched.
	st := New("XJ9-2B", testPool(2))
	st = st.AddParticipant("u1", "Ana", "a")
	st = st.AddParticipant("u2", "Ben", "b")

	st = st.SelectPhoto("a", "u1", "", 1000)
	after := st.SelectPhoto("a", "u2", "", 1001)

	assert.Equal(t, st, after)
	photo, _ := after.Photo("a")
	assert.Equal(t, "u1", photo.SelectedByUserID)
	p2, _ := after.Participant("u2")
	assert.False(t, p2.HasPhoto())
}

func TestSelectPhoto_ReselectionReleasesPrevious(t *testing.T) {
	// Scenario C: picking Y after X releases X.
	st := New("XJ9-2B", testPool(3))
	st = st.AddParticipant("u1", "Ana", "a")

	st = st.SelectPhoto("a", "u1", "", 1000)
	st = st.SelectPhoto("b", "u1", "", 1001)

	photoA, _ := st.Photo("a")
	photoB, _ := st.Photo("b")
	assert.Empty(t, photoA.SelectedByUserID)
	assert.Equal(t, "u1", photoB.SelectedByUserID)

	p, _ := st.Participant("u1")
	assert.Equal(t, "b", p.SelectedPhotoID)
}

func TestSelectPhoto_ExclusivityInvariant(t *testing.T) {
	// A long interleaving of selections never leaves a photo owned by two
	// participants or a participant pointing at a photo they do not own.
	st := New("XJ9-2B", testPool(4))
	for _, id := range []string{"u1", "u2", "u3"} {
		st = st.AddParticipant(id, id, "avatar")
	}

	moves := []struct {
		photo string
		user  string
	}{
		{"a", "u1"}, {"a", "u2"}, {"b", "u2"}, {"b", "u1"}, {"c", "u1"},
		{"a", "u3"}, {"c", "u2"}, {"d", "u2"}, {"b", "u3"},
	}
	var now int64 = 1
	for _, m := range moves {
		st = st.SelectPhoto(m.photo, m.user, "", now)
		now++
		assertExclusive(t, st)
	}
}

func assertExclusive(t *testing.T, st State) {
	t.Helper()
	owners := map[string]string{}
	for _, photo := range st.Photos {
		if photo.SelectedByUserID != "" {
			owners[photo.ID] = photo.SelectedByUserID
		}
	}
	seen := map[string]bool{}
	for _, p := range st.Participants {
		if !p.HasPhoto() {
			continue
		}
		assert.Equal(t, p.ID, owners[p.SelectedPhotoID],
			"photo %s owner mismatch for participant %s", p.SelectedPhotoID, p.ID)
		assert.False(t, seen[p.SelectedPhotoID], "photo %s assigned twice", p.SelectedPhotoID)
		seen[p.SelectedPhotoID] = true
	}
	assert.Len(t, owners, len(seen))
}

func TestRotatePhoto_FourTurnsIsIdentity(t *testing.T) {
	st := New("XJ9-2B", testPool(1))

	for i := 1; i <= 3; i++ {
		st = st.RotatePhoto("a")
		photo, _ := st.Photo("a")
		assert.Equal(t, i*90, photo.Rotation)
	}
	st = st.RotatePhoto("a")
	photo, _ := st.Photo("a")
	assert.Equal(t, 0, photo.Rotation)
}

func TestRemoveParticipant_ReleasesPhotoAndClearsFloor(t *testing.T) {
	st := New("XJ9-2B", testPool(2))
	st = st.AddParticipant("u1", "Ana", "a")
	st = st.AddParticipant("u2", "Ben", "b")
	st = st.SelectPhoto("a", "u1", "", 1000)
	st = st.SetSpeaker("u1", true)

	st = st.RemoveParticipant("u1")

	_, ok := st.Participant("u1")
	assert.False(t, ok)
	photo, _ := st.Photo("a")
	assert.Empty(t, photo.SelectedByUserID)
	assert.Empty(t, st.CurrentSpeakerID)
}

func TestAddGuest(t *testing.T) {
	st := New("XJ9-2B", nil)
	st = st.AddGuest("guest-1", "Claire", "observatrice", "avatar")

	require.Len(t, st.Participants, 1)
	p := st.Participants[0]
	assert.True(t, p.IsGuest)
	assert.Equal(t, "observatrice", p.RoleLabel)
	assert.Equal(t, StatusWaiting, p.Status)
}

func TestReset_RestoresLobbyDefaultsKeepingCode(t *testing.T) {
	st := New("XJ9-2B", testPool(2))
	st = st.WithSession("Changement", "Quelle image ?", testPool(2), true, "tpl-1")
	st = st.AddParticipant("u1", "Ana", "a")
	st = st.StartPresentation()

	st = st.Reset(testPool(3))

	assert.Equal(t, "XJ9-2B", st.Code)
	assert.Equal(t, StageLobby, st.Stage)
	assert.Empty(t, st.Theme)
	assert.Empty(t, st.Participants)
	assert.Len(t, st.Photos, 3)
	assert.Equal(t, DefaultTimerSeconds, st.TimerSeconds)
}

func TestWithSession_KeepsRoster(t *testing.T) {
	st := New("XJ9-2B", testPool(1))
	st = st.AddParticipant("u1", "Ana", "a")
	st = st.StartPresentation()

	st = st.WithSession("Valeurs", "Quelle image ?", testPool(4), false, "")

	assert.Equal(t, StageLobby, st.Stage)
	assert.Len(t, st.Participants, 1)
	assert.Len(t, st.Photos, 4)
	assert.Equal(t, "Valeurs", st.Theme)
}
