package attempt

import "errors"

var (
	ErrUnknownQuestionType = errors.New("unknown question type")
	ErrInvalidQuestion     = errors.New("invalid question")
	ErrNoQuestions         = errors.New("quiz has no questions")
	ErrDuplicateQuestion   = errors.New("duplicate question id")
	ErrAttemptInProgress   = errors.New("attempt already in progress")
	ErrNotInProgress       = errors.New("no attempt in progress")
	ErrAttemptCompleted    = errors.New("attempt already completed")
	ErrAlreadyAnswered     = errors.New("question already answered")
	ErrQuestionMismatch    = errors.New("answer does not belong to the current question")
	ErrQuestionResolved    = errors.New("question already resolved")
	ErrAdvancePending      = errors.New("advance to next question pending")
	ErrUnknownOption       = errors.New("unknown option")
	ErrUnsupportedAction   = errors.New("action not supported for this question type")
	ErrNoLabelSelected     = errors.New("no label selected")
	ErrNothingPlaced       = errors.New("no labels placed")
	ErrNotCompleted        = errors.New("attempt not completed")
	ErrAlreadySubmitted    = errors.New("attempt already submitted")
	ErrSessionClosed       = errors.New("session closed")
)
