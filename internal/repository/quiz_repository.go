package repository

import (
	"errors"
	"fmt"

	"watchlearn/internal/attempt"
	"watchlearn/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) Create(quiz *model.Quiz) error {
	return r.DB.Create(quiz).Error
}

func (r *QuizRepository) Update(quiz *model.Quiz) error {
	return r.DB.Model(quiz).Select("name", "description", "public_visibility").Updates(quiz).Error
}

func (r *QuizRepository) SetVisibility(quizID string, public bool) error {
	return r.DB.Model(&model.Quiz{}).Where("id = ?", quizID).Update("public_visibility", public).Error
}

// Delete removes a quiz together with its questions, options and matches.
func (r *QuizRepository) Delete(quizID string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		questionIDs := func() *gorm.DB {
			return tx.Model(&model.QuizQuestion{}).Select("id").Where("quiz_id = ?", quizID)
		}
		if err := tx.Where("question_id IN (?)", questionIDs()).Delete(&model.QuestionOption{}).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id IN (?)", questionIDs()).Delete(&model.QuestionMatch{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&model.QuizQuestion{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", quizID).Delete(&model.Quiz{}).Error
	})
}

func (r *QuizRepository) FindByID(quizID string) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.DB.Preload("Owner").First(&quiz, "id = ?", quizID).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

// FindWithQuestions loads a quiz for its author, inactive rows included.
func (r *QuizRepository) FindWithQuestions(quizID string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Questions.Matches").
		First(&quiz, "id = ?", quizID).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizRepository) ListPublic(search string) ([]model.Quiz, error) {
	query := r.DB.Preload("Owner").Where("public_visibility = ?", true)
	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}
	var quizzes []model.Quiz
	err := query.Order("created_at DESC").Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) ListByOwner(ownerID uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&quizzes).Error
	return quizzes, err
}

// AddQuestion stores q with its options and matches. Matches may refer to
// options by their position ("#0", "#1") when the option ids are not known
// yet; they are resolved after the options are inserted.
func (r *QuizRepository) AddQuestion(q *model.QuizQuestion) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.QuizQuestion{}).Where("quiz_id = ?", q.QuizID).Count(&count).Error; err != nil {
			return err
		}
		q.Position = int(count)

		options, matches := q.Options, q.Matches
		q.Options, q.Matches = nil, nil
		if err := tx.Create(q).Error; err != nil {
			return err
		}

		for i := range options {
			options[i].QuestionID = q.ID
			options[i].Position = i
		}
		if len(options) > 0 {
			if err := tx.Create(&options).Error; err != nil {
				return err
			}
		}

		for i := range matches {
			matches[i].QuestionID = q.ID
			left, err := resolveOptionRef(matches[i].LeftOptionID, options)
			if err != nil {
				return err
			}
			right, err := resolveOptionRef(matches[i].RightOptionID, options)
			if err != nil {
				return err
			}
			matches[i].LeftOptionID, matches[i].RightOptionID = left, right
		}
		if len(matches) > 0 {
			if err := tx.Create(&matches).Error; err != nil {
				return err
			}
		}

		q.Options, q.Matches = options, matches
		return nil
	})
}

func resolveOptionRef(ref string, options []model.QuestionOption) (string, error) {
	var idx int
	if _, err := fmt.Sscanf(ref, "#%d", &idx); err != nil {
		return ref, nil
	}
	if idx < 0 || idx >= len(options) {
		return "", fmt.Errorf("%w: match refers to option %s", attempt.ErrInvalidQuestion, ref)
	}
	return options[idx].ID, nil
}

func (r *QuizRepository) FindQuestion(questionID string) (*model.QuizQuestion, error) {
	var q model.QuizQuestion
	if err := r.DB.First(&q, "id = ?", questionID).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuizRepository) UpdateQuestionMedia(questionID, videoURL, posterURL string, duration float64) error {
	return r.DB.Model(&model.QuizQuestion{}).Where("id = ?", questionID).Updates(map[string]interface{}{
		"video_url":      videoURL,
		"poster_url":     posterURL,
		"video_duration": duration,
	}).Error
}

func (r *QuizRepository) AppendQuestionImage(questionID, url string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var q model.QuizQuestion
		if err := tx.First(&q, "id = ?", questionID).Error; err != nil {
			return err
		}
		q.ImageURLs = append(q.ImageURLs, url)
		return tx.Model(&q).Update("image_urls", q.ImageURLs).Error
	})
}

func (r *QuizRepository) SetQuestionActive(questionID string, active bool) error {
	return r.DB.Model(&model.QuizQuestion{}).Where("id = ?", questionID).Update("is_active", active).Error
}

func (r *QuizRepository) DeleteQuestion(questionID string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", questionID).Delete(&model.QuestionOption{}).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", questionID).Delete(&model.QuestionMatch{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", questionID).Delete(&model.QuizQuestion{}).Error
	})
}

// LoadForAttempt returns the quiz metadata and its active questions in
// order, with active options only, ready for an attempt.
func (r *QuizRepository) LoadForAttempt(quizID string) (attempt.Quiz, []attempt.Question, error) {
	var quiz model.Quiz
	err := r.DB.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("position ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("position ASC")
		}).
		Preload("Questions.Matches").
		First(&quiz, "id = ?", quizID).Error
	if err != nil {
		return attempt.Quiz{}, nil, err
	}

	meta := attempt.Quiz{
		ID:          quiz.ID,
		OwnerID:     quiz.OwnerID,
		Name:        quiz.Name,
		Description: quiz.Description,
	}

	questions := make([]attempt.Question, 0, len(quiz.Questions))
	for _, row := range quiz.Questions {
		q, err := toAttemptQuestion(row)
		if err != nil {
			return meta, nil, err
		}
		questions = append(questions, q)
	}
	return meta, questions, nil
}

func toAttemptQuestion(row model.QuizQuestion) (attempt.Question, error) {
	typ, err := attempt.ParseQuestionType(row.Type)
	if err != nil {
		return attempt.Question{}, fmt.Errorf("question %s: %w", row.ID, err)
	}
	q := attempt.Question{
		ID:        row.ID,
		Type:      typ,
		Text:      row.Text,
		ImageURLs: row.ImageURLs,
		VideoURL:  row.VideoURL,
	}
	for _, o := range row.Options {
		q.Options = append(q.Options, attempt.Option{
			ID:         o.ID,
			QuestionID: o.QuestionID,
			Text:       o.Text,
			URL:        o.URL,
			IsCorrect:  o.IsCorrect,
			PosX:       o.PosX,
			PosY:       o.PosY,
			IsActive:   o.IsActive,
		})
	}
	for _, m := range row.Matches {
		q.Matches = append(q.Matches, attempt.Match{Left: m.LeftOptionID, Right: m.RightOptionID})
	}
	return q, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
