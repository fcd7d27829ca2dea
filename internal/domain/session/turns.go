package session

import (
	"sort"
)

// SpeakingOrder computes the round-one queue: participants with a confirmed
// photo, ordered by ascending selection timestamp. A missing timestamp sorts
// last. The result is captured once when the tour starts and never
// recomputed while speakers are given the floor.
func SpeakingOrder(participants []Participant) []string {
	eligible := make([]Participant, 0, len(participants))
	for _, p := range participants {
		if p.HasPhoto() {
			eligible = append(eligible, p)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return orderKey(eligible[i]) < orderKey(eligible[j])
	})
	order := make([]string, len(eligible))
	for i, p := range eligible {
		order[i] = p.ID
	}
	return order
}

func orderKey(p Participant) int64 {
	if p.SelectionTimestamp == 0 {
		return int64(^uint64(0) >> 1)
	}
	return p.SelectionTimestamp
}

// debateCursor locates the current subject/speaker pair inside the fixed
// eligible list of the debate round.
type debateCursor struct {
	subject int
	speaker int
}

func currentCursor(s State, eligible []Participant) debateCursor {
	c := debateCursor{}
	for i, p := range eligible {
		if p.ID == s.CurrentSubjectID {
			c.subject = i
		}
		if p.ID == s.CurrentSpeakerID {
			c.speaker = i
		}
	}
	return c
}

// resumeDebateFloor relocates the floor after the participant holding it
// left mid-tour. Positions are taken from the pre-removal eligible order
// (prev still contains the removed participant): a removed speaker hands the
// floor to the next speaker for the same subject, a removed subject to the
// following subject's first pair. When no pair remains the tour ends in
// synthesis, consistent with the other degenerate paths.
func resumeDebateFloor(next, prev State, removed string) State {
	prevEligible := prev.ParticipantsWithPhotos()
	removedIdx := -1
	for i, p := range prevEligible {
		if p.ID == removed {
			removedIdx = i
		}
	}
	if removedIdx < 0 {
		// Floor-holder had no photo; nothing to resume from.
		next.CurrentSubjectID = ""
		next.CurrentSpeakerID = ""
		return next
	}

	c := currentCursor(prev, prevEligible)
	eligible := next.ParticipantsWithPhotos()

	// Map the cursor into the post-removal index space: everything after
	// the removed slot shifts left by one.
	var resume debateCursor
	if removedIdx == c.subject {
		// The successor subject now sits at the removed subject's index.
		resume = debateCursor{subject: removedIdx, speaker: -1}
	} else {
		subject := c.subject
		if removedIdx < subject {
			subject--
		}
		// The removed speaker's successor now sits at the removed index.
		resume = debateCursor{subject: subject, speaker: removedIdx - 1}
	}

	cur, ok := resume.advance(len(eligible))
	if !ok {
		next.Stage = StageSynthesis
		next.CurrentSubjectID = ""
		next.CurrentSpeakerID = ""
		return next
	}
	next.CurrentSubjectID = eligible[cur.subject].ID
	next.CurrentSpeakerID = eligible[cur.speaker].ID
	return next
}

// advance moves the cursor to the next ordered (subject, speaker) pair in
// subject-major order, skipping self-pairs. The second return value is false
// when every subject has been exhausted.
func (c debateCursor) advance(n int) (debateCursor, bool) {
	c.speaker++
	for {
		if c.speaker >= n {
			c.subject++
			c.speaker = 0
		}
		if c.subject >= n {
			return c, false
		}
		if c.speaker == c.subject {
			// A participant never reacts to their own photo; the skip is
			// re-applied after any wrap.
			c.speaker++
			continue
		}
		return c, true
	}
}
