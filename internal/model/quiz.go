package model

// swagger:model Quiz
type Quiz struct {
	UUIDBase
	OwnerID          uint           `gorm:"index;not null" json:"ownerId"`
	Name             string         `gorm:"size:200;not null" json:"name"`
	Description      string         `gorm:"type:text" json:"description"`
	PublicVisibility bool           `gorm:"default:false" json:"publicVisibility"`
	Owner            User           `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Questions        []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuizQuestion stores one question of a quiz. Type holds the canonical
// question type name; older rows may still carry a legacy alias.
type QuizQuestion struct {
	UUIDBase
	QuizID        string           `gorm:"type:varchar(36);index;not null" json:"quizId"`
	Position      int              `gorm:"default:0" json:"position"`
	Type          string           `gorm:"size:40;not null" json:"questionType"`
	Text          string           `gorm:"type:text" json:"questionText"`
	ImageURLs     []string         `gorm:"serializer:json;type:text" json:"imageUrls"`
	VideoURL      string           `gorm:"size:500" json:"videoUrl,omitempty"`
	PosterURL     string           `gorm:"size:500" json:"posterUrl,omitempty"`
	VideoDuration float64          `json:"videoDuration,omitempty"`
	IsActive      bool             `gorm:"default:true" json:"isActive"`
	Options       []QuestionOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
	Matches       []QuestionMatch  `gorm:"foreignKey:QuestionID" json:"matches,omitempty"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

type QuestionOption struct {
	UUIDBase
	QuestionID string   `gorm:"type:varchar(36);index;not null" json:"questionId"`
	Position   int      `gorm:"default:0" json:"position"`
	Text       string   `gorm:"size:500" json:"optionText"`
	URL        string   `gorm:"size:500" json:"optionUrl"`
	IsCorrect  bool     `gorm:"default:false" json:"isCorrect"`
	PosX       *float64 `json:"posX,omitempty"`
	PosY       *float64 `json:"posY,omitempty"`
	IsActive   bool     `gorm:"default:true" json:"isActive"`
}

func (QuestionOption) TableName() string {
	return "question_options"
}

// QuestionMatch is one ground-truth pair of a picture-to-picture question.
type QuestionMatch struct {
	BaseModel
	QuestionID    string `gorm:"type:varchar(36);index;not null" json:"questionId"`
	LeftOptionID  string `gorm:"type:varchar(36);not null" json:"leftOptionId"`
	RightOptionID string `gorm:"type:varchar(36);not null" json:"rightOptionId"`
}

func (QuestionMatch) TableName() string {
	return "question_matches"
}
