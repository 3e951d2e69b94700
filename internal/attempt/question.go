package attempt

import (
	"fmt"
	"strings"
)

// QuestionType is the closed set of interactive question variants.
type QuestionType string

const (
	Slideshow        QuestionType = "slideshow"
	Video            QuestionType = "video"
	PictureToPicture QuestionType = "picture-to-picture"
	LabelToHotspot   QuestionType = "label-to-hotspot"
	ImageMCQ         QuestionType = "image-mcq"
	HotspotMCQ       QuestionType = "hotspot-mcq"
)

// legacy names still stored by older quizzes
var typeAliases = map[string]QuestionType{
	"label-matching": LabelToHotspot,
	"image-hotspot":  HotspotMCQ,
}

// QuestionTypes lists every supported type in display order.
func QuestionTypes() []QuestionType {
	return []QuestionType{Slideshow, Video, ImageMCQ, HotspotMCQ, LabelToHotspot, PictureToPicture}
}

// ParseQuestionType normalises a stored type name.
func ParseQuestionType(s string) (QuestionType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, t := range QuestionTypes() {
		if string(t) == name {
			return t, nil
		}
	}
	if t, ok := typeAliases[name]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownQuestionType, s)
}

// SingleAnswer reports whether exactly one option carries correctness.
func (t QuestionType) SingleAnswer() bool {
	switch t {
	case Slideshow, Video, ImageMCQ, HotspotMCQ:
		return true
	}
	return false
}

type Option struct {
	ID         string   `json:"optionId"`
	QuestionID string   `json:"questionId"`
	Text       string   `json:"optionText,omitempty"`
	URL        string   `json:"optionUrl,omitempty"`
	IsCorrect  bool     `json:"isCorrect"`
	PosX       *float64 `json:"posX,omitempty"`
	PosY       *float64 `json:"posY,omitempty"`
	IsActive   bool     `json:"isActive"`
}

// Match is one ground-truth pair of a picture-to-picture question.
type Match struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Pairs reports whether a and b form this match in either order.
func (m Match) Pairs(a, b string) bool {
	return (m.Left == a && m.Right == b) || (m.Left == b && m.Right == a)
}

type Question struct {
	ID        string       `json:"questionId"`
	Type      QuestionType `json:"questionType"`
	Text      string       `json:"questionText"`
	ImageURLs []string     `json:"imageUrls,omitempty"`
	VideoURL  string       `json:"videoUrl,omitempty"`
	Options   []Option     `json:"options"`
	Matches   []Match      `json:"matches,omitempty"`
}

type Quiz struct {
	ID          string `json:"quizId"`
	OwnerID     uint   `json:"ownerId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Option looks up an option by id.
func (q Question) Option(id string) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// CorrectOption returns the single correct option of a single-answer question.
func (q Question) CorrectOption() (Option, bool) {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o, true
		}
	}
	return Option{}, false
}

// Validate checks the correctness invariant for the question's type.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: empty question id", ErrInvalidQuestion)
	}
	t, err := ParseQuestionType(string(q.Type))
	if err != nil {
		return err
	}
	if t != q.Type {
		return fmt.Errorf("%w: question %s uses legacy type %q", ErrInvalidQuestion, q.ID, q.Type)
	}

	seen := make(map[string]bool, len(q.Options))
	correct := 0
	for _, o := range q.Options {
		if o.ID == "" || seen[o.ID] {
			return fmt.Errorf("%w: question %s has empty or duplicate option id", ErrInvalidQuestion, q.ID)
		}
		seen[o.ID] = true
		if o.IsCorrect {
			correct++
		}
	}

	switch {
	case q.Type.SingleAnswer():
		if correct != 1 {
			return fmt.Errorf("%w: question %s needs exactly one correct option, has %d", ErrInvalidQuestion, q.ID, correct)
		}
	case q.Type == LabelToHotspot:
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: question %s has no labels", ErrInvalidQuestion, q.ID)
		}
	case q.Type == PictureToPicture:
		if len(q.Matches) == 0 {
			return fmt.Errorf("%w: question %s has no matches", ErrInvalidQuestion, q.ID)
		}
		used := make(map[string]bool, len(q.Matches)*2)
		for _, m := range q.Matches {
			if m.Left == m.Right || used[m.Left] || used[m.Right] {
				return fmt.Errorf("%w: question %s has overlapping matches", ErrInvalidQuestion, q.ID)
			}
			used[m.Left], used[m.Right] = true, true
		}
	}
	return nil
}
