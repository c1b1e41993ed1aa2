package fulfillment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gnome-garden/domain/dialogue"
	"gnome-garden/domain/events"
	"gnome-garden/domain/garden"
	"gnome-garden/domain/player"
)

// onboardingRedirect returns the scene a player must visit before playing,
// or "" when the game can go on.
func (s *Service) onboardingRedirect(c *Conversation) string {
	p := c.Profile
	switch {
	case !p.StoryVisited:
		return SceneStory
	case !p.Onboarding1:
		return SceneOnBoarding
	case !p.Onboarding2 && p.Progress.Flowers == 1:
		return SceneOnBoarding
	}
	if !p.Onboarding3 {
		if at, ok := s.opts.LifeCycle.FirstWeedAt(c.Template, p.Garden); ok && at <= c.nowMillis() {
			c.Session.Returning = false
			return SceneFirstWeed
		}
	}
	if c.Session.Returning {
		return SceneOnBoarding
	}
	return ""
}

// gamePlay asks the pinned question again, or moves the gnome to a new slot
// and asks that slot's next question.
func (s *Service) gamePlay(_ context.Context, c *Conversation) error {
	if scene := s.onboardingRedirect(c); scene != "" {
		c.goTo(scene)
		return nil
	}

	q, pending, ok := c.pendingQuestion()
	moving := false
	if !ok || !c.Session.Available.Contains(pending.Spot) {
		spot, found := garden.SelectNext(c.Session.Available, c.Profile.Progress, s.rng)
		if !found {
			c.Session.ClearQuestion()
			c.Session.Next = nil
			c.emit(events.NewGardenFull(c.Profile.UserID, c.Profile.TemplateIndex, len(c.Profile.Garden), c.Now))
			s.metrics.RecordGardenFull()
			c.goTo(SceneGameOver)
			return nil
		}

		idx := c.Profile.Progress.Get(spot.Category)
		if n := c.script().Count(spot.Category); n > 0 && idx >= n {
			idx = 0
			c.Profile.Progress = c.Profile.Progress.With(spot.Category, 0)
		}
		var err error
		q, err = c.script().Question(spot.Category, idx)
		if err != nil {
			return fmt.Errorf("select question for %s: %w", spot, err)
		}

		moving = c.Session.Next == nil || *c.Session.Next != spot
		c.Session.Next = &spot
		pending = &player.PendingQuestion{Spot: spot, Index: idx}
		c.Session.Pending = pending
		c.Session.Errors = 0
	}

	prefix := ""
	if pending.Index > 1 || pending.Spot.Category != garden.Flowers {
		prefix = c.script().Variant("question_prefixes", s.rng)
	}
	cue, delay := "", 0.0
	if moving {
		if c.Profile.SoundOn {
			cue = c.script().Sound("gnome_moving")
		} else {
			delay = 1
		}
	}

	c.respond(cue+prefix+q.PromptSpeech, delay, RenderCommand{
		State:       CanvasGame,
		TextUI:      q.PromptText,
		Suggestions: q.Keys(),
	})
	return nil
}

func (s *Service) userAnswer(_ context.Context, c *Conversation) error {
	q, pending, ok := c.pendingQuestion()
	if !ok {
		s.logger.Warn("Answer without a pending question",
			zap.String("session_id", c.Turn.SessionID),
			zap.String("scene", c.Turn.Scene),
		)
	}
	res := s.opts.Matcher.Resolve(q, dialogue.InputAnswer, c.Turn.Word(), c.Session.Errors)
	return s.applyResolution(c, pending, res)
}

func (s *Service) bothQuestion(_ context.Context, c *Conversation) error {
	q, pending, _ := c.pendingQuestion()
	res := s.opts.Matcher.Resolve(q, dialogue.InputBoth, dialogue.Malformed(), c.Session.Errors)
	return s.applyResolution(c, pending, res)
}

func (s *Service) repeatQuestion(_ context.Context, c *Conversation) error {
	q, pending, _ := c.pendingQuestion()
	res := s.opts.Matcher.Resolve(q, dialogue.InputRepeat, dialogue.Malformed(), c.Session.Errors)
	return s.applyResolution(c, pending, res)
}

// rejectAnswer counts an utterance the platform could not match at all.
func (s *Service) rejectAnswer(c *Conversation) error {
	q, pending, _ := c.pendingQuestion()
	res := s.opts.Matcher.Resolve(q, dialogue.InputNoMatch, dialogue.Malformed(), c.Session.Errors)
	return s.applyResolution(c, pending, res)
}

// applyResolution turns the answer state machine's outcome into a reply.
func (s *Service) applyResolution(c *Conversation, pending *player.PendingQuestion, res dialogue.Resolution) error {
	s.metrics.RecordAnswer(res.Outcome.String())

	switch res.Outcome {
	case dialogue.Accepted:
		if pending == nil {
			return fmt.Errorf("accepted answer without a pending question")
		}
		return s.plant(c, *pending, res.Answer)
	case dialogue.Ambiguous:
		c.say(c.script().Line("question_both").Speech, 0)
		c.goTo(SceneGame)
	case dialogue.Repeated:
		c.say(c.script().Line("question_repeat").Speech, 0)
		c.goTo(SceneGame)
	case dialogue.Rejected:
		c.Session.Errors = res.Errors
		c.say(c.script().Variant(fmt.Sprintf("question_nomatch_%d", res.Errors), s.rng), 0)
		c.goTo(SceneGame)
	case dialogue.GaveUp:
		c.say(c.script().Variant(fmt.Sprintf("question_nomatch_%d", dialogue.MaxErrors), s.rng), 0)
		var spot garden.Spot
		if pending != nil {
			spot = pending.Spot
		}
		c.Session.ClearQuestion()
		c.emit(events.NewGaveUp(c.Profile.UserID, c.Session.SessionID, spot, c.Now))
		c.end()
	}
	return nil
}

// plant fills the pending slot with what the accepted answer plants.
func (s *Service) plant(c *Conversation, pending player.PendingQuestion, answer dialogue.Answer) error {
	cat := pending.Spot.Category
	c.Profile.Progress = dialogue.Advance(cat, c.Profile.Progress, c.script().Count(cat))

	if available, ok := c.Session.Available.Remove(pending.Spot); ok {
		item := garden.PlantedItem{
			Category:  cat,
			Slot:      pending.Spot.ID,
			AssetID:   answer.Plants.ID,
			Label:     answer.Plants.Label,
			Timestamp: s.opts.LifeCycle.PlantTimestamp(c.Now),
		}
		planted, err := c.Profile.Garden.Plant(item)
		if err != nil {
			return fmt.Errorf("plant %s: %w", pending.Spot, err)
		}
		c.Profile.Garden = planted
		c.Session.Available = available
		c.emit(events.NewItemPlanted(c.Profile.UserID, item, c.Now))
		s.metrics.RecordPlanted(cat.String())
	}
	c.Session.ClearQuestion()

	speech := answer.ResponseSpeech
	if speech == "" {
		speech = c.script().Line("default_response").Speech
	}
	speech = c.sound("growing_start") + speech + c.script().Sound("growing_end")

	c.respond(speech, 0.1, RenderCommand{
		State:       CanvasUpdateGarden,
		TextUI:      answer.ResponseText,
		SuppressMic: true,
	})
	c.goTo(SceneGardenAnimation)
	return nil
}

// skipQuestion moves past the pending question without planting.
func (s *Service) skipQuestion(_ context.Context, c *Conversation) error {
	if pending := c.Session.Pending; pending != nil {
		cat := pending.Spot.Category
		c.Profile.Progress = dialogue.Advance(cat, c.Profile.Progress, c.script().Count(cat))
	}
	c.Session.ClearQuestion()

	c.respond(c.script().Line("question_skip").Speech, 0, RenderCommand{
		State:       CanvasUpdateGarden,
		SuppressMic: true,
	})
	c.goTo(SceneGardenAnimation)
	return nil
}

func (s *Service) gameOver(_ context.Context, c *Conversation) error {
	line := c.script().Line("game_over")
	c.respond(line.Speech, 2, RenderCommand{
		State:       CanvasGameOver,
		TextUI:      line.Text,
		Suggestions: line.Suggestions,
	})
	return nil
}
