package attempt

import "fmt"

type Action string

const (
	ActionSelect Action = "select"
	ActionClick  Action = "click"
	ActionPick   Action = "pick"
	ActionPlace  Action = "place"
	ActionSubmit Action = "submit"
	ActionReset  Action = "reset"
	ActionSlide  Action = "slide"
)

// Interaction is one learner gesture on the active question.
type Interaction struct {
	Action   Action `json:"action" binding:"required"`
	OptionID string `json:"optionId,omitempty"`
	TargetID string `json:"targetId,omitempty"`
	Slide    int    `json:"slide,omitempty"`
}

// Outcome is the controller's feedback for one interaction. Record is set
// exactly once, on the interaction that resolves the question.
type Outcome struct {
	Accepted     bool              `json:"accepted"`
	Correct      *bool             `json:"correct,omitempty"`
	MistakeCount int               `json:"mistakeCount"`
	Selected     string            `json:"selected,omitempty"`
	Rejected     []string          `json:"rejected,omitempty"`
	Placements   map[string]string `json:"placements,omitempty"`
	Matched      []Match           `json:"matched,omitempty"`
	Slide        int               `json:"slide"`
	Resolved     bool              `json:"resolved"`
	Record       *AnswerRecord     `json:"-"`
}

// Controller owns the local interaction state of one question. Controllers
// never mutate their question.
type Controller interface {
	Question() Question
	Handle(in Interaction) (Outcome, error)
	Resolved() bool
}

// Visitor dispatches over the closed set of question types. Adding a type
// adds a method here, so every dispatcher must handle it before it compiles.
type Visitor[T any] interface {
	Slideshow(q Question) T
	Video(q Question) T
	ImageMCQ(q Question) T
	HotspotMCQ(q Question) T
	LabelToHotspot(q Question) T
	PictureToPicture(q Question) T
}

func Visit[T any](q Question, v Visitor[T]) (T, error) {
	switch q.Type {
	case Slideshow:
		return v.Slideshow(q), nil
	case Video:
		return v.Video(q), nil
	case ImageMCQ:
		return v.ImageMCQ(q), nil
	case HotspotMCQ:
		return v.HotspotMCQ(q), nil
	case LabelToHotspot:
		return v.LabelToHotspot(q), nil
	case PictureToPicture:
		return v.PictureToPicture(q), nil
	}
	var zero T
	return zero, fmt.Errorf("%w: %q", ErrUnknownQuestionType, q.Type)
}

type controllerFactory struct{}

func (controllerFactory) Slideshow(q Question) Controller {
	return &choiceController{question: q, slides: len(q.ImageURLs)}
}
func (controllerFactory) Video(q Question) Controller    { return &choiceController{question: q} }
func (controllerFactory) ImageMCQ(q Question) Controller { return &choiceController{question: q} }
func (controllerFactory) HotspotMCQ(q Question) Controller {
	return &hotspotController{question: q}
}
func (controllerFactory) LabelToHotspot(q Question) Controller {
	return &labelHotspotController{question: q, placements: map[string]string{}}
}
func (controllerFactory) PictureToPicture(q Question) Controller {
	return newPictureMatchController(q)
}

// NewController builds the controller for q's type.
func NewController(q Question) (Controller, error) {
	return Visit[Controller](q, controllerFactory{})
}

func boolPtr(b bool) *bool { return &b }
