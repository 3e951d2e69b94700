package attempt

// AnswerRecord is the immutable outcome of one answered question.
type AnswerRecord struct {
	QuestionID     string       `json:"questionId"`
	QuestionType   QuestionType `json:"questionType"`
	QuestionText   string       `json:"questionText"`
	SelectedOption string       `json:"selectedOption"`
	CorrectOption  string       `json:"correctOption"`
	IsCorrect      bool         `json:"isCorrect"`
	// MistakeCount is nil for single-select types.
	MistakeCount *int `json:"mistakeCount"`
}

func newRecord(q Question) AnswerRecord {
	return AnswerRecord{
		QuestionID:   q.ID,
		QuestionType: q.Type,
		QuestionText: q.Text,
	}
}

func withMistakes(rec AnswerRecord, mistakes int) AnswerRecord {
	m := mistakes
	rec.MistakeCount = &m
	return rec
}
