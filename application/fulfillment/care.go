package fulfillment

import (
	"context"
	"strings"

	"gnome-garden/domain/events"
	"gnome-garden/domain/garden"
)

// weedGarden clears every overgrown flower.
func (s *Service) weedGarden(_ context.Context, c *Conversation) error {
	res := s.opts.LifeCycle.Weed(c.Profile.Garden, c.Now, s.rng)
	c.Profile.Garden = res.Items
	c.Session.ClearQuestion()
	if res.Changed() {
		c.emit(events.NewGardenWeeded(c.Profile.UserID, res.Weeded, c.Now))
		s.metrics.RecordWeeded(res.Weeded)
	}

	name := "weeding_response"
	if c.Turn.Scene == SceneFirstWeed {
		name = "first_weeding_response"
	}
	line := c.script().Line(name)

	speech := line.Speech
	if res.Changed() {
		speech = c.sound("removing") + speech
	}
	c.respond(speech, 0, RenderCommand{
		State:  CanvasUpdateGarden,
		TextUI: line.Text,
	})
	c.goTo(SceneGardenAnimation)
	return nil
}

func (s *Service) skipWeeding(_ context.Context, c *Conversation) error {
	line := c.script().Line("skip_weeding_response")
	c.respond(line.Speech, 2, RenderCommand{
		State:       CanvasUpdateGarden,
		TextUI:      line.Text,
		SuppressMic: true,
	})
	return nil
}

func (s *Service) openRemove(_ context.Context, c *Conversation) error {
	c.Session.ClearQuestion()
	line := c.script().Line("remove_intro")
	c.respond(line.Speech, 2, RenderCommand{
		State:  CanvasRemove,
		TextUI: line.Text,
	})
	return nil
}

// removeByID removes the flowers the user named by badge number. Badge
// numbers resolve against the garden as shown before this turn.
func (s *Service) removeByID(_ context.Context, c *Conversation) error {
	index := garden.NumberRemovable(c.Template, c.Profile.Garden)
	removal := garden.RemoveByDisplayID(c.Profile.Garden, index, c.Turn.Numbers())
	c.goTo(SceneCloseRemove)
	if removal.Removed() == 0 {
		return nil
	}

	c.Profile.Garden = removal.Items
	for _, spot := range removal.Freed {
		c.Session.Available = c.Session.Available.Add(spot)
	}
	c.emit(events.NewItemsRemoved(c.Profile.UserID, removal.Freed, removal.Labels, c.Now))
	s.metrics.RecordRemoved(removal.Removed())

	response := strings.ReplaceAll(c.script().Line("remove_response").Speech,
		"<plant_plural_name>", garden.JoinLabels(removal.Labels))
	c.say(c.sound("removing")+response, 0)
	return nil
}

func (s *Service) closeRemove(_ context.Context, c *Conversation) error {
	line := c.script().Line("remove_end")
	c.respond(line.Speech, 2, RenderCommand{
		State:       CanvasGame,
		TextUI:      line.Text,
		Suggestions: line.Suggestions,
	})
	return nil
}
