package services

import (
	"errors"
	"fmt"
)

var (
	ErrQuizNotFound            = errors.New("quiz not found")
	ErrQuestionNotFound        = errors.New("question not found")
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrQuizNotActive           = errors.New("quiz is not active")
	ErrAttemptLimitExceeded    = errors.New("maximum number of attempts reached")
	ErrAttemptConflict         = errors.New("attempt was created concurrently, please retry")
	ErrAttemptAlreadySubmitted = errors.New("attempt has already been submitted")
)

// PermissionError is returned when the caller may not act on a resource.
type PermissionError struct {
	UserID       string
	ResourceID   uint
	ResourceType string
	Action       string
	Reason       string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.ResourceType, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resourceType, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:       userID,
		ResourceID:   resourceID,
		ResourceType: resourceType,
		Action:       action,
		Reason:       reason,
	}
}

// BusinessRuleError is a request that is well-formed but not allowed in the
// current state.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}

func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

func IsBusinessRuleError(err error) bool {
	var be *BusinessRuleError
	return errors.As(err, &be)
}
