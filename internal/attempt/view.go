package attempt

import "math/rand"

// OptionView is an option as the learner sees it, without its correctness.
type OptionView struct {
	ID   string   `json:"optionId"`
	Text string   `json:"optionText,omitempty"`
	URL  string   `json:"optionUrl,omitempty"`
	PosX *float64 `json:"posX,omitempty"`
	PosY *float64 `json:"posY,omitempty"`
}

// QuestionView is the learner projection of a Question. Picture-to-picture
// questions carry their two sides as separately shuffled columns instead of
// the ground-truth pairs.
type QuestionView struct {
	ID        string       `json:"questionId"`
	Type      QuestionType `json:"questionType"`
	Text      string       `json:"questionText"`
	ImageURLs []string     `json:"imageUrls,omitempty"`
	VideoURL  string       `json:"videoUrl,omitempty"`
	Options   []OptionView `json:"options"`
	Left      []OptionView `json:"left,omitempty"`
	Right     []OptionView `json:"right,omitempty"`
}

func optionView(o Option) OptionView {
	return OptionView{ID: o.ID, Text: o.Text, URL: o.URL, PosX: o.PosX, PosY: o.PosY}
}

// ProjectQuestion strips q down to what the learner may see. shuffle
// reorders the picture-to-picture columns; nil keeps match order.
func ProjectQuestion(q Question, shuffle func(n int, swap func(i, j int))) QuestionView {
	v := QuestionView{
		ID:        q.ID,
		Type:      q.Type,
		Text:      q.Text,
		ImageURLs: q.ImageURLs,
		VideoURL:  q.VideoURL,
		Options:   make([]OptionView, 0, len(q.Options)),
	}
	for _, o := range q.Options {
		v.Options = append(v.Options, optionView(o))
	}
	if q.Type != PictureToPicture {
		return v
	}

	for _, m := range q.Matches {
		if o, ok := q.Option(m.Left); ok {
			v.Left = append(v.Left, optionView(o))
		} else {
			v.Left = append(v.Left, OptionView{ID: m.Left})
		}
		if o, ok := q.Option(m.Right); ok {
			v.Right = append(v.Right, optionView(o))
		} else {
			v.Right = append(v.Right, OptionView{ID: m.Right})
		}
	}
	if shuffle != nil {
		shuffle(len(v.Left), func(i, j int) { v.Left[i], v.Left[j] = v.Left[j], v.Left[i] })
		shuffle(len(v.Right), func(i, j int) { v.Right[i], v.Right[j] = v.Right[j], v.Right[i] })
	}
	return v
}

func shuffleColumns(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}
