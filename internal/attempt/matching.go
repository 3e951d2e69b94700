package attempt

// labelHotspotController serves label-to-hotspot. Every label must sit on
// its own hotspot before the question counts as answered; any wrong or
// missing placement on submit clears all placements.
type labelHotspotController struct {
	question   Question
	selected   string
	placements map[string]string // label id -> hotspot id
	mistakes   int
	resolved   bool
}

func (c *labelHotspotController) Question() Question { return c.question }
func (c *labelHotspotController) Resolved() bool     { return c.resolved }

func (c *labelHotspotController) Handle(in Interaction) (Outcome, error) {
	if c.resolved {
		return Outcome{}, ErrQuestionResolved
	}
	switch in.Action {
	case ActionPick:
		if _, ok := c.question.Option(in.OptionID); !ok {
			return Outcome{}, ErrUnknownOption
		}
		if c.selected == in.OptionID {
			c.selected = ""
		} else {
			c.selected = in.OptionID
		}
		return c.outcome(true), nil
	case ActionPlace:
		return c.place(in.TargetID)
	case ActionSubmit:
		return c.submit()
	case ActionReset:
		c.clear()
		return c.outcome(true), nil
	}
	return Outcome{}, ErrUnsupportedAction
}

func (c *labelHotspotController) place(hotspotID string) (Outcome, error) {
	if c.selected == "" {
		return Outcome{}, ErrNoLabelSelected
	}
	if _, ok := c.question.Option(hotspotID); !ok {
		return Outcome{}, ErrUnknownOption
	}
	for label, spot := range c.placements {
		if spot == hotspotID {
			delete(c.placements, label)
		}
	}
	c.placements[c.selected] = hotspotID
	c.selected = ""
	return c.outcome(true), nil
}

func (c *labelHotspotController) submit() (Outcome, error) {
	if len(c.placements) == 0 {
		return Outcome{}, ErrNothingPlaced
	}
	correct := 0
	for label, spot := range c.placements {
		if label == spot {
			correct++
		}
	}

	if correct != len(c.question.Options) {
		submitted := c.copyPlacements()
		c.mistakes++
		c.clear()
		out := c.outcome(true)
		out.Correct = boolPtr(false)
		out.Placements = submitted
		return out, nil
	}

	rec := withMistakes(newRecord(c.question), c.mistakes)
	rec.IsCorrect = true
	c.resolved = true

	out := c.outcome(true)
	out.Correct = boolPtr(true)
	out.Resolved = true
	out.Record = &rec
	return out, nil
}

func (c *labelHotspotController) clear() {
	c.placements = map[string]string{}
	c.selected = ""
}

func (c *labelHotspotController) copyPlacements() map[string]string {
	cp := make(map[string]string, len(c.placements))
	for k, v := range c.placements {
		cp[k] = v
	}
	return cp
}

func (c *labelHotspotController) outcome(accepted bool) Outcome {
	return Outcome{
		Accepted:     accepted,
		MistakeCount: c.mistakes,
		Selected:     c.selected,
		Placements:   c.copyPlacements(),
	}
}

// pictureMatchController serves picture-to-picture. Pairs are checked as
// soon as the second item is picked; wrong pairs never stick.
type pictureMatchController struct {
	question Question
	items    map[string]bool
	selected string
	matched  []Match
	mistakes int
	resolved bool
}

func newPictureMatchController(q Question) *pictureMatchController {
	items := make(map[string]bool, len(q.Matches)*2)
	for _, m := range q.Matches {
		items[m.Left] = true
		items[m.Right] = true
	}
	return &pictureMatchController{question: q, items: items}
}

func (c *pictureMatchController) Question() Question { return c.question }
func (c *pictureMatchController) Resolved() bool     { return c.resolved }

func (c *pictureMatchController) Handle(in Interaction) (Outcome, error) {
	if c.resolved {
		return Outcome{}, ErrQuestionResolved
	}
	switch in.Action {
	case ActionPick:
		return c.pick(in.OptionID)
	case ActionReset:
		c.matched = nil
		c.selected = ""
		return c.outcome(true), nil
	}
	return Outcome{}, ErrUnsupportedAction
}

func (c *pictureMatchController) isMatched(id string) bool {
	for _, m := range c.matched {
		if m.Left == id || m.Right == id {
			return true
		}
	}
	return false
}

func (c *pictureMatchController) pick(id string) (Outcome, error) {
	if !c.items[id] {
		return Outcome{}, ErrUnknownOption
	}
	if c.isMatched(id) {
		return c.outcome(false), nil
	}
	if c.selected == "" {
		c.selected = id
		return c.outcome(true), nil
	}
	if c.selected == id {
		c.selected = ""
		return c.outcome(true), nil
	}

	first := c.selected
	c.selected = ""

	var hit *Match
	for i := range c.question.Matches {
		if c.question.Matches[i].Pairs(first, id) {
			hit = &c.question.Matches[i]
			break
		}
	}
	if hit == nil {
		c.mistakes++
		out := c.outcome(true)
		out.Correct = boolPtr(false)
		out.Rejected = []string{first, id}
		return out, nil
	}

	c.matched = append(c.matched, Match{Left: first, Right: id})
	out := c.outcome(true)
	out.Correct = boolPtr(true)
	if len(c.matched) < len(c.question.Matches) {
		return out, nil
	}

	rec := withMistakes(newRecord(c.question), c.mistakes)
	rec.IsCorrect = true
	c.resolved = true
	out.Resolved = true
	out.Record = &rec
	return out, nil
}

func (c *pictureMatchController) outcome(accepted bool) Outcome {
	return Outcome{
		Accepted:     accepted,
		MistakeCount: c.mistakes,
		Selected:     c.selected,
		Matched:      append([]Match(nil), c.matched...),
	}
}
