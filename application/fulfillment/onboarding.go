package fulfillment

import (
	"context"

	"go.uber.org/zap"
)

// initGame gates on device capabilities and preloads the canvas.
func (s *Service) initGame(_ context.Context, c *Conversation) error {
	if !c.Turn.HasCapability(CapabilityInteractiveCanvas) || c.Turn.HasCapability(CapabilityWebLink) {
		s.logger.Info("Device cannot render the garden",
			zap.String("user_id", c.Turn.UserID),
			zap.Strings("capabilities", c.Turn.Capabilities),
		)
		c.say(c.script().Line("device_error").Speech, 0)
		c.end()
		return nil
	}

	s.initGarden(c)
	c.Session.Returning = c.Profile.Returning()
	c.Session.ClearQuestion()

	tpl := c.Template
	c.show(RenderCommand{
		State:       CanvasPreload,
		Template:    &tpl,
		SuppressMic: true,
	})
	return nil
}

func (s *Service) welcome(_ context.Context, c *Conversation) error {
	line := c.script().Line("welcome")
	suggestions := line.Suggestions
	if !c.Profile.StoryVisited {
		suggestions = c.script().Line("welcome_new").Suggestions
	}
	c.respond(line.Speech, 0, RenderCommand{
		State:       CanvasWelcome,
		Suggestions: suggestions,
		SuppressMic: true,
	})
	return nil
}

func (s *Service) story(_ context.Context, c *Conversation) error {
	c.Profile.StoryVisited = true
	c.Session.ClearQuestion()

	line := c.script().Line("story")
	c.respond(line.Speech, 1.5, RenderCommand{
		State:       CanvasStory,
		Suggestions: line.Suggestions,
		SuppressMic: true,
	})
	return nil
}

// onBoarding greets returning players, or walks new players through the two
// onboarding steps.
func (s *Service) onBoarding(_ context.Context, c *Conversation) error {
	switch {
	case c.Session.Returning:
		c.Session.Returning = false
		c.respond(c.script().Variant("welcome_back", s.rng), 2, RenderCommand{
			State:       CanvasUpdateGarden,
			SuppressMic: true,
		})
	case !c.Profile.Onboarding1:
		c.Profile.Onboarding1 = true
		line := c.script().Line("onboarding")
		c.respond(line.Speech, 2, RenderCommand{
			State:       CanvasOnBoarding,
			Suggestions: line.Suggestions,
			SuppressMic: true,
		})
	default:
		c.Profile.Onboarding2 = true
		line := c.script().Line("onboarding2")
		c.respond(line.Speech, 1, RenderCommand{
			State:       CanvasOnBoarding,
			TextUI:      line.Text,
			Suggestions: line.Suggestions,
			SuppressMic: true,
		})
	}
	return nil
}

// firstWeed introduces weeding the first time a flower overgrows.
func (s *Service) firstWeed(_ context.Context, c *Conversation) error {
	c.Profile.Onboarding3 = true
	line := c.script().Line("onboarding_weeding")
	c.respond(line.Speech, 1, RenderCommand{
		State:       CanvasGame,
		TextUI:      line.Text,
		Suggestions: line.Suggestions,
	})
	return nil
}
