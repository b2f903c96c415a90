// Package codeforces implements the Codeforces public API client.
package codeforces

import (
	"time"

	"github.com/spms-hub/student-progress-hub/internal/domain/profile"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER - DTO to Domain Entity transformations
// ══════════════════════════════════════════════════════════════════════════════

// Mapper handles transformation between Codeforces API DTOs and domain types.
// It shields the domain model from upstream schema changes.
type Mapper struct{}

// NewMapper creates a new Mapper instance.
func NewMapper() *Mapper {
	return &Mapper{}
}

// SnapshotFromDTOs assembles a full profile snapshot out of the three API
// payloads fetched for one handle.
func (m *Mapper) SnapshotFromDTOs(handle profile.Handle, user *UserDTO, history []RatingChangeDTO, submissions []SubmissionDTO) *profile.Snapshot {
	snap := &profile.Snapshot{
		Handle:        handle,
		CurrentRating: profile.Rating(user.Rating),
		MaxRating:     profile.Rating(user.MaxRating),
	}

	if len(history) > 0 {
		snap.Contests = make([]profile.ContestResult, len(history))
		for i, rc := range history {
			snap.Contests[i] = m.ContestFromDTO(rc)
		}
	}

	if len(submissions) > 0 {
		snap.Submissions = make([]profile.SubmissionRecord, len(submissions))
		for i, sub := range submissions {
			snap.Submissions[i] = m.SubmissionFromDTO(sub)
		}
	}

	return snap
}

// ContestFromDTO converts a rating change entry to a domain contest result.
func (m *Mapper) ContestFromDTO(dto RatingChangeDTO) profile.ContestResult {
	return profile.ContestResult{
		ContestID:       dto.ContestID,
		ContestName:     dto.ContestName,
		Handle:          dto.Handle,
		Rank:            dto.Rank,
		OldRating:       profile.Rating(dto.OldRating),
		NewRating:       profile.Rating(dto.NewRating),
		RatingUpdatedAt: time.Unix(dto.RatingUpdateTimeSeconds, 0).UTC(),
	}
}

// SubmissionFromDTO converts a submission entry to a domain record.
// Verdicts pass through untranslated; an empty verdict means the submission
// was still testing when fetched.
func (m *Mapper) SubmissionFromDTO(dto SubmissionDTO) profile.SubmissionRecord {
	return profile.SubmissionRecord{
		ID:                  dto.ID,
		ContestID:           dto.ContestID,
		CreatedAt:           time.Unix(dto.CreationTimeSeconds, 0).UTC(),
		RelativeTimeSeconds: dto.RelativeTimeSeconds,
		Problem: profile.Problem{
			ContestID: dto.Problem.ContestID,
			Index:     dto.Problem.Index,
			Name:      dto.Problem.Name,
			Type:      dto.Problem.Type,
			Rating:    profile.Rating(dto.Problem.Rating),
			Tags:      dto.Problem.Tags,
		},
		Author:              dto.Author.FirstHandle(),
		Language:            dto.ProgrammingLanguage,
		Verdict:             dto.Verdict,
		Testset:             dto.Testset,
		PassedTestCount:     dto.PassedTestCount,
		TimeConsumedMillis:  dto.TimeConsumedMillis,
		MemoryConsumedBytes: dto.MemoryConsumedBytes,
	}
}
