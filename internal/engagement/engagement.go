// Package engagement implements the like/dislike toggle state machine.
//
// Each (post, subject) pair is in one of three states. An input toggles:
// repeating the same input returns to neutral, and the opposite input
// moves directly across, clearing the previous reaction.
//
//	current   like       dislike
//	neutral   liked      disliked
//	liked     neutral    disliked
//	disliked  liked      neutral
package engagement

import (
	"fmt"

	"github.com/blog-engagement-api/internal/models"
)

// State is the reaction of one subject on one post
type State string

const (
	Neutral  State = "neutral"
	Liked    State = "liked"
	Disliked State = "disliked"
)

// Input is a reaction request
type Input string

const (
	Like    Input = "like"
	Dislike Input = "dislike"
)

// Valid reports whether in is a known input
func (in Input) Valid() bool {
	return in == Like || in == Dislike
}

// Next returns the state reached from s on input in
func Next(s State, in Input) State {
	switch in {
	case Like:
		if s == Liked {
			return Neutral
		}
		return Liked
	case Dislike:
		if s == Disliked {
			return Neutral
		}
		return Disliked
	}
	return s
}

// Sets is the pair of membership sets stored on a post
type Sets struct {
	LikedBy    SubjectSet
	DislikedBy SubjectSet
}

// FromPost copies the engagement sets of a post
func FromPost(p *models.Post) Sets {
	return Sets{
		LikedBy:    NewSubjectSet(p.LikedBy...),
		DislikedBy: NewSubjectSet(p.DislikedBy...),
	}
}

// State returns the state of subject
func (s Sets) State(subject string) State {
	switch {
	case s.LikedBy.Has(subject):
		return Liked
	case s.DislikedBy.Has(subject):
		return Disliked
	}
	return Neutral
}

// Apply computes the sets after subject issues in. The receiver is not
// modified.
func (s Sets) Apply(subject string, in Input) (Sets, State, error) {
	if subject == "" {
		return s, Neutral, fmt.Errorf("empty subject: %w", models.ErrValidation)
	}
	if !in.Valid() {
		return s, Neutral, fmt.Errorf("unknown input %q: %w", in, models.ErrValidation)
	}

	next := Next(s.State(subject), in)
	out := Sets{
		LikedBy:    s.LikedBy.Remove(subject),
		DislikedBy: s.DislikedBy.Remove(subject),
	}
	switch next {
	case Liked:
		out.LikedBy = out.LikedBy.Add(subject)
	case Disliked:
		out.DislikedBy = out.DislikedBy.Add(subject)
	}
	return out, next, nil
}

// Equal reports whether both sets have the same members as o, ignoring
// order
func (s Sets) Equal(o Sets) bool {
	return s.LikedBy.Equal(o.LikedBy) && s.DislikedBy.Equal(o.DislikedBy)
}

// Disjoint reports whether no subject appears in both sets
func (s Sets) Disjoint() bool {
	small, large := s.LikedBy, s.DislikedBy
	if small.Len() > large.Len() {
		small, large = large, small
	}
	for _, id := range small.ids {
		if large.Has(id) {
			return false
		}
	}
	return true
}

// View returns the API view of the sets for subject. An empty subject
// yields counts only.
func (s Sets) View(subject string) models.Engagement {
	state := Neutral
	if subject != "" {
		state = s.State(subject)
	}
	return models.Engagement{
		LikeCount:    s.LikedBy.Len(),
		DislikeCount: s.DislikedBy.Len(),
		IsLiked:      state == Liked,
		IsDisliked:   state == Disliked,
	}
}

// Counts returns the subject-free counts of the sets
func (s Sets) Counts() models.EngagementCounts {
	return models.EngagementCounts{
		LikeCount:    s.LikedBy.Len(),
		DislikeCount: s.DislikedBy.Len(),
	}
}
