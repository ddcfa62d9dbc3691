package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/blog-engagement-api/internal/models"
	"github.com/google/uuid"
)

// Validator provides validation methods for incoming writes
type Validator struct {
	maxCommentLength int
}

// NewValidator creates a new validator instance. A non-positive
// maxCommentLength falls back to models.MaxCommentLength.
func NewValidator(maxCommentLength int) *Validator {
	if maxCommentLength <= 0 {
		maxCommentLength = models.MaxCommentLength
	}
	return &Validator{maxCommentLength: maxCommentLength}
}

// ValidateComment validates the content of a new comment and returns it
// trimmed. The parent is checked by ValidateParentID.
func (v *Validator) ValidateComment(req *models.CreateCommentRequest) (string, []models.ValidationError) {
	var errors []models.ValidationError

	content := strings.TrimSpace(req.Content)
	if content == "" {
		errors = append(errors, models.ValidationError{Field: "content", Message: "content is required"})
	} else if n := utf8.RuneCountInString(content); n > v.maxCommentLength {
		errors = append(errors, models.ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("content exceeds maximum of %d characters (has %d)", v.maxCommentLength, n),
		})
	}

	return content, errors
}

// ValidateParentID rejects parent ids that cannot name a comment. A
// malformed id is an invalid parent, not a malformed request.
func (v *Validator) ValidateParentID(id string) error {
	if !isValidUUID(id) {
		return fmt.Errorf("parent %q is not a comment id: %w", id, models.ErrInvalidParent)
	}
	return nil
}

// ValidatePost validates a new post
func (v *Validator) ValidatePost(req *models.CreatePostRequest) []models.ValidationError {
	var errors []models.ValidationError

	title := strings.TrimSpace(req.Title)
	if title == "" {
		errors = append(errors, models.ValidationError{Field: "title", Message: "title is required"})
	} else if n := utf8.RuneCountInString(title); n > models.MaxPostTitleLength {
		errors = append(errors, models.ValidationError{
			Field:   "title",
			Message: fmt.Sprintf("title exceeds maximum of %d characters (has %d)", models.MaxPostTitleLength, n),
		})
	}

	if strings.TrimSpace(req.Body) == "" {
		errors = append(errors, models.ValidationError{Field: "body", Message: "body is required"})
	}

	return errors
}

// ValidateDepth checks a requested thread depth. Depths above the
// configured ceiling are clamped by the service, not rejected.
func (v *Validator) ValidateDepth(depth int) []models.ValidationError {
	if depth < 0 {
		return []models.ValidationError{{Field: "depth", Message: "depth must not be negative", Value: depth}}
	}
	return nil
}

// isValidUUID checks if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
