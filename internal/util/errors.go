package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUserBanned         = errors.New("user is banned")
	ErrNotApproved        = errors.New("lecturer account not approved")
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrQuizNotAccessible  = errors.New("quiz not accessible")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrNoActiveAttempt    = errors.New("no active attempt")
	ErrInvalidRating      = errors.New("difficulty rating must be between 1 and 5")
	ErrBadgeNotFound      = errors.New("badge not found")
	ErrInvalidFileType    = errors.New("invalid file type")
	ErrInvalidPeriod      = errors.New("period must be weekly or monthly")
)
