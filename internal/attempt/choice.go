package attempt

// choiceController serves slideshow, video and image-mcq questions: one
// selection decides the question.
type choiceController struct {
	question Question
	slides   int
	slide    int
	resolved bool
}

func (c *choiceController) Question() Question { return c.question }
func (c *choiceController) Resolved() bool     { return c.resolved }

func (c *choiceController) Handle(in Interaction) (Outcome, error) {
	if c.resolved {
		return Outcome{}, ErrQuestionResolved
	}
	switch in.Action {
	case ActionSlide:
		if c.question.Type != Slideshow {
			return Outcome{}, ErrUnsupportedAction
		}
		// clamp to the available slides
		if in.Slide >= 0 && in.Slide < c.slides {
			c.slide = in.Slide
		}
		return Outcome{Accepted: true, Slide: c.slide}, nil
	case ActionSelect:
		return c.choose(in.OptionID)
	}
	return Outcome{}, ErrUnsupportedAction
}

func (c *choiceController) choose(optionID string) (Outcome, error) {
	opt, ok := c.question.Option(optionID)
	if !ok {
		return Outcome{}, ErrUnknownOption
	}
	correct, _ := c.question.CorrectOption()

	rec := newRecord(c.question)
	rec.SelectedOption = opt.ID
	rec.CorrectOption = correct.ID
	rec.IsCorrect = opt.IsCorrect
	c.resolved = true

	return Outcome{
		Accepted: true,
		Correct:  boolPtr(opt.IsCorrect),
		Selected: opt.ID,
		Slide:    c.slide,
		Resolved: true,
		Record:   &rec,
	}, nil
}

// hotspotController serves hotspot-mcq: a single click on one target, no retry.
type hotspotController struct {
	question Question
	resolved bool
}

func (c *hotspotController) Question() Question { return c.question }
func (c *hotspotController) Resolved() bool     { return c.resolved }

func (c *hotspotController) Handle(in Interaction) (Outcome, error) {
	if c.resolved {
		return Outcome{}, ErrQuestionResolved
	}
	if in.Action != ActionClick {
		return Outcome{}, ErrUnsupportedAction
	}
	target, ok := c.question.Option(in.OptionID)
	if !ok {
		return Outcome{}, ErrUnknownOption
	}
	correct, _ := c.question.CorrectOption()

	rec := newRecord(c.question)
	rec.SelectedOption = target.ID
	rec.CorrectOption = correct.ID
	rec.IsCorrect = target.IsCorrect
	c.resolved = true

	return Outcome{
		Accepted: true,
		Correct:  boolPtr(target.IsCorrect),
		Selected: target.ID,
		Resolved: true,
		Record:   &rec,
	}, nil
}
