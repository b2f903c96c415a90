package codeforces

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotFromDTOs_UnratedUser(t *testing.T) {
	mapper := NewMapper()

	snap := mapper.SnapshotFromDTOs("newbie", &UserDTO{Handle: "newbie"}, nil, nil)

	assert.EqualValues(t, 0, snap.CurrentRating)
	assert.EqualValues(t, 0, snap.MaxRating)
	assert.Empty(t, snap.Contests)
	assert.Empty(t, snap.Submissions)
}

func TestSubmissionFromDTO_VerdictPassthrough(t *testing.T) {
	mapper := NewMapper()

	// Verdicts the upstream may add later must survive unmapped.
	rec := mapper.SubmissionFromDTO(SubmissionDTO{
		ID:                  5,
		CreationTimeSeconds: 1722783600,
		Verdict:             "SOME_FUTURE_VERDICT",
		Author:              PartyDTO{Members: []PartyMemberDTO{{Handle: "bob_cf"}}},
	})

	assert.Equal(t, "SOME_FUTURE_VERDICT", rec.Verdict)
	assert.Equal(t, "bob_cf", rec.Author)
	assert.Equal(t, time.Unix(1722783600, 0).UTC(), rec.CreatedAt)
}

func TestSubmissionFromDTO_EmptyParty(t *testing.T) {
	mapper := NewMapper()

	rec := mapper.SubmissionFromDTO(SubmissionDTO{ID: 1})
	require.Equal(t, "", rec.Author)
}
