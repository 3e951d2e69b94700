package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"watchlearn/internal/attempt"
	"watchlearn/internal/model"
	"watchlearn/internal/repository"
	"watchlearn/internal/util"

	"gorm.io/gorm"
)

// QuizService handles lecturer authoring and the student catalogue.
type QuizService struct {
	QuizRepo    *repository.QuizRepository
	AttemptRepo *repository.AttemptRepository
	Media       *MediaService
}

func NewQuizService(quizRepo *repository.QuizRepository, attemptRepo *repository.AttemptRepository, media *MediaService) *QuizService {
	return &QuizService{
		QuizRepo:    quizRepo,
		AttemptRepo: attemptRepo,
		Media:       media,
	}
}

// Actor identifies the caller of an authoring operation.
type Actor struct {
	UserID uint
	Role   model.UserRole
}

type QuizRequest struct {
	Name             string `json:"name" binding:"required,max=200"`
	Description      string `json:"description"`
	PublicVisibility bool   `json:"publicVisibility"`
}

type OptionRequest struct {
	Text      string   `json:"optionText"`
	URL       string   `json:"optionUrl"`
	IsCorrect bool     `json:"isCorrect"`
	PosX      *float64 `json:"posX"`
	PosY      *float64 `json:"posY"`
}

// MatchRequest pairs two options by their index in the request.
type MatchRequest struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

type QuestionRequest struct {
	Type      string          `json:"questionType" binding:"required"`
	Text      string          `json:"questionText"`
	ImageURLs []string        `json:"imageUrls"`
	VideoURL  string          `json:"videoUrl"`
	Options   []OptionRequest `json:"options"`
	Matches   []MatchRequest  `json:"matches"`
}

// QuizDetail is the catalogue view of one quiz.
type QuizDetail struct {
	Quiz          *model.Quiz `json:"quiz"`
	Creator       string      `json:"creator"`
	QuestionCount int         `json:"questionCount"`
	AverageRating *float64    `json:"averageRating"`
}

func (s *QuizService) findOwned(actor Actor, quizID string) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	if quiz.OwnerID != actor.UserID && actor.Role != model.Admin {
		return nil, util.ErrPermissionDenied
	}
	return quiz, nil
}

func (s *QuizService) CreateQuiz(actor Actor, req QuizRequest) (*model.Quiz, error) {
	quiz := &model.Quiz{
		OwnerID:          actor.UserID,
		Name:             strings.TrimSpace(req.Name),
		Description:      req.Description,
		PublicVisibility: req.PublicVisibility,
	}
	if err := s.QuizRepo.Create(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) UpdateQuiz(actor Actor, quizID string, req QuizRequest) (*model.Quiz, error) {
	quiz, err := s.findOwned(actor, quizID)
	if err != nil {
		return nil, err
	}
	quiz.Name = strings.TrimSpace(req.Name)
	quiz.Description = req.Description
	quiz.PublicVisibility = req.PublicVisibility
	if err := s.QuizRepo.Update(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) SetVisibility(actor Actor, quizID string, public bool) error {
	if _, err := s.findOwned(actor, quizID); err != nil {
		return err
	}
	return s.QuizRepo.SetVisibility(quizID, public)
}

func (s *QuizService) DeleteQuiz(actor Actor, quizID string) error {
	if _, err := s.findOwned(actor, quizID); err != nil {
		return err
	}
	return s.QuizRepo.Delete(quizID)
}

// AddQuestion validates req against the rules of its question type and
// stores it at the end of the quiz.
func (s *QuizService) AddQuestion(actor Actor, quizID string, req QuestionRequest) (*model.QuizQuestion, error) {
	if _, err := s.findOwned(actor, quizID); err != nil {
		return nil, err
	}
	typ, err := attempt.ParseQuestionType(req.Type)
	if err != nil {
		return nil, err
	}

	ref := func(i int) string { return fmt.Sprintf("#%d", i) }

	draft := attempt.Question{ID: "draft", Type: typ, Text: req.Text}
	row := &model.QuizQuestion{
		QuizID:    quizID,
		Type:      string(typ),
		Text:      req.Text,
		ImageURLs: req.ImageURLs,
		VideoURL:  req.VideoURL,
		IsActive:  true,
	}
	for i, o := range req.Options {
		draft.Options = append(draft.Options, attempt.Option{ID: ref(i), Text: o.Text, URL: o.URL, IsCorrect: o.IsCorrect, IsActive: true})
		row.Options = append(row.Options, model.QuestionOption{
			Text:      o.Text,
			URL:       o.URL,
			IsCorrect: o.IsCorrect,
			PosX:      o.PosX,
			PosY:      o.PosY,
			IsActive:  true,
		})
	}
	for _, m := range req.Matches {
		if m.Left < 0 || m.Left >= len(req.Options) || m.Right < 0 || m.Right >= len(req.Options) {
			return nil, fmt.Errorf("%w: match refers to a missing option", attempt.ErrInvalidQuestion)
		}
		draft.Matches = append(draft.Matches, attempt.Match{Left: ref(m.Left), Right: ref(m.Right)})
		row.Matches = append(row.Matches, model.QuestionMatch{LeftOptionID: ref(m.Left), RightOptionID: ref(m.Right)})
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	if err := s.QuizRepo.AddQuestion(row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *QuizService) questionOf(actor Actor, quizID, questionID string) (*model.QuizQuestion, error) {
	if _, err := s.findOwned(actor, quizID); err != nil {
		return nil, err
	}
	q, err := s.QuizRepo.FindQuestion(questionID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && q.QuizID != quizID) {
		return nil, util.ErrQuestionNotFound
	}
	return q, err
}

func (s *QuizService) SetQuestionActive(actor Actor, quizID, questionID string, active bool) error {
	if _, err := s.questionOf(actor, quizID, questionID); err != nil {
		return err
	}
	return s.QuizRepo.SetQuestionActive(questionID, active)
}

func (s *QuizService) DeleteQuestion(actor Actor, quizID, questionID string) error {
	if _, err := s.questionOf(actor, quizID, questionID); err != nil {
		return err
	}
	return s.QuizRepo.DeleteQuestion(questionID)
}

// UploadQuestionImage appends an uploaded image to the question's gallery.
func (s *QuizService) UploadQuestionImage(ctx context.Context, actor Actor, quizID, questionID string, fh *multipart.FileHeader) (*StoredMedia, error) {
	if _, err := s.questionOf(actor, quizID, questionID); err != nil {
		return nil, err
	}
	media, err := s.Media.SaveImage(ctx, "questions/"+questionID, fh)
	if err != nil {
		return nil, err
	}
	if err := s.QuizRepo.AppendQuestionImage(questionID, media.URL); err != nil {
		s.Media.Remove(ctx, media.Key)
		return nil, err
	}
	return media, nil
}

// UploadQuestionVideo replaces the question's video and poster.
func (s *QuizService) UploadQuestionVideo(ctx context.Context, actor Actor, quizID, questionID string, fh *multipart.FileHeader) (*StoredMedia, error) {
	if _, err := s.questionOf(actor, quizID, questionID); err != nil {
		return nil, err
	}
	media, err := s.Media.SaveVideo(ctx, "questions/"+questionID, fh)
	if err != nil {
		return nil, err
	}
	if err := s.QuizRepo.UpdateQuestionMedia(questionID, media.URL, media.PosterURL, media.Duration); err != nil {
		s.Media.Remove(ctx, media.Key)
		return nil, err
	}
	return media, nil
}

func (s *QuizService) ListPublic(search string) ([]model.Quiz, error) {
	return s.QuizRepo.ListPublic(search)
}

func (s *QuizService) ListMine(actor Actor) ([]model.Quiz, error) {
	return s.QuizRepo.ListByOwner(actor.UserID)
}

// GetForEdit returns the full quiz, inactive questions included.
func (s *QuizService) GetForEdit(actor Actor, quizID string) (*model.Quiz, error) {
	if _, err := s.findOwned(actor, quizID); err != nil {
		return nil, err
	}
	return s.QuizRepo.FindWithQuestions(quizID)
}

// Detail returns the catalogue view. Private quizzes are visible to their
// owner and admins only.
func (s *QuizService) Detail(actor Actor, quizID string) (*QuizDetail, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	if !quiz.PublicVisibility && quiz.OwnerID != actor.UserID && actor.Role != model.Admin {
		return nil, util.ErrQuizNotAccessible
	}

	_, questions, err := s.QuizRepo.LoadForAttempt(quizID)
	if err != nil {
		return nil, err
	}
	detail := &QuizDetail{Quiz: quiz, Creator: quiz.Owner.Name, QuestionCount: len(questions)}
	if avg, ok, err := s.AttemptRepo.AverageRating(quizID); err != nil {
		return nil, err
	} else if ok {
		detail.AverageRating = &avg
	}
	return detail, nil
}
