// Package codeforces implements the Codeforces public API client.
// This package handles all communication with codeforces.com, including
// fetching user identity, rating history, and recent submissions.
package codeforces

import (
	"encoding/json"
)

// ══════════════════════════════════════════════════════════════════════════════
// API RESPONSE WRAPPER
// ══════════════════════════════════════════════════════════════════════════════

// Envelope statuses returned by the Codeforces API.
const (
	StatusOK     = "OK"
	StatusFailed = "FAILED"
)

// APIResponse represents the generic Codeforces response envelope.
// Every endpoint wraps its payload in {"status": ..., "result": ...};
// on failure the payload is replaced by a human-readable "comment".
type APIResponse[T any] struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
	Result  T      `json:"result,omitempty"`
}

// IsOK reports whether the API accepted the request.
func (r *APIResponse[T]) IsOK() bool {
	return r.Status == StatusOK
}

// ══════════════════════════════════════════════════════════════════════════════
// USER DTOs
// ══════════════════════════════════════════════════════════════════════════════

// UserDTO represents a user as returned by user.info.
// Rating fields are absent for unrated accounts.
type UserDTO struct {
	// Handle is the Codeforces handle.
	Handle string `json:"handle"`

	// Email is only returned for the authorized user.
	Email string `json:"email,omitempty"`

	// FirstName is the user's first name (optional).
	FirstName string `json:"firstName,omitempty"`

	// LastName is the user's last name (optional).
	LastName string `json:"lastName,omitempty"`

	// Country and City locate the user (optional).
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`

	// Rating is the current rating; zero when unrated.
	Rating int `json:"rating,omitempty"`

	// MaxRating is the all-time maximum rating.
	MaxRating int `json:"maxRating,omitempty"`

	// Rank and MaxRank are the textual titles ("expert", ...).
	Rank    string `json:"rank,omitempty"`
	MaxRank string `json:"maxRank,omitempty"`

	// Contribution is the community contribution score.
	Contribution int `json:"contribution,omitempty"`

	// LastOnlineTimeSeconds is the last seen time, epoch seconds.
	LastOnlineTimeSeconds int64 `json:"lastOnlineTimeSeconds,omitempty"`

	// RegistrationTimeSeconds is the account creation time, epoch seconds.
	RegistrationTimeSeconds int64 `json:"registrationTimeSeconds,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// RATING HISTORY DTOs
// ══════════════════════════════════════════════════════════════════════════════

// RatingChangeDTO represents one entry of user.rating.
type RatingChangeDTO struct {
	// ContestID identifies the rated contest.
	ContestID int `json:"contestId"`

	// ContestName is the display name of the contest.
	ContestName string `json:"contestName"`

	// Handle is the participant's handle.
	Handle string `json:"handle"`

	// Rank is the place taken in the contest.
	Rank int `json:"rank"`

	// RatingUpdateTimeSeconds is when the rating was recalculated, epoch seconds.
	RatingUpdateTimeSeconds int64 `json:"ratingUpdateTimeSeconds"`

	// OldRating and NewRating are the ratings before and after the contest.
	OldRating int `json:"oldRating"`
	NewRating int `json:"newRating"`
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBMISSION DTOs
// ══════════════════════════════════════════════════════════════════════════════

// ProblemDTO describes the problem a submission targets.
type ProblemDTO struct {
	// ContestID is absent for problemset-only problems.
	ContestID int `json:"contestId,omitempty"`

	// Index is the problem letter within the contest ("A", "B1", ...).
	Index string `json:"index"`

	// Name is the problem title.
	Name string `json:"name"`

	// Type is "PROGRAMMING" or "QUESTION".
	Type string `json:"type"`

	// Rating is the problem difficulty; absent when not yet assigned.
	Rating int `json:"rating,omitempty"`

	// Tags are the problem topic tags.
	Tags []string `json:"tags,omitempty"`
}

// PartyMemberDTO is one member of the submitting party.
type PartyMemberDTO struct {
	Handle string `json:"handle"`
}

// PartyDTO describes who made the submission.
type PartyDTO struct {
	ContestID       int              `json:"contestId,omitempty"`
	Members         []PartyMemberDTO `json:"members"`
	ParticipantType string           `json:"participantType,omitempty"`
	Ghost           bool             `json:"ghost,omitempty"`
}

// FirstHandle returns the handle of the first party member.
func (p *PartyDTO) FirstHandle() string {
	if len(p.Members) == 0 {
		return ""
	}
	return p.Members[0].Handle
}

// SubmissionDTO represents one entry of user.status.
type SubmissionDTO struct {
	// ID is the submission identifier.
	ID int64 `json:"id"`

	// ContestID is absent for problemset submissions.
	ContestID int `json:"contestId,omitempty"`

	// CreationTimeSeconds is when the submission was made, epoch seconds.
	CreationTimeSeconds int64 `json:"creationTimeSeconds"`

	// RelativeTimeSeconds is seconds since contest start; a sentinel huge
	// value for out-of-contest submissions.
	RelativeTimeSeconds int64 `json:"relativeTimeSeconds"`

	// Problem is the submitted problem.
	Problem ProblemDTO `json:"problem"`

	// Author is the submitting party.
	Author PartyDTO `json:"author"`

	// ProgrammingLanguage is the language the solution was written in.
	ProgrammingLanguage string `json:"programmingLanguage"`

	// Verdict is absent while testing is still in progress.
	Verdict string `json:"verdict,omitempty"`

	// Testset is the testset used ("TESTS", "PRETESTS", ...).
	Testset string `json:"testset"`

	// PassedTestCount is the number of passed tests.
	PassedTestCount int `json:"passedTestCount"`

	// TimeConsumedMillis is the maximum time used on a single test.
	TimeConsumedMillis int `json:"timeConsumedMillis"`

	// MemoryConsumedBytes is the maximum memory used on a single test.
	MemoryConsumedBytes int64 `json:"memoryConsumedBytes"`
}

// decodeEnvelope parses a raw API body into the typed envelope.
func decodeEnvelope[T any](body []byte) (*APIResponse[T], error) {
	var resp APIResponse[T]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
