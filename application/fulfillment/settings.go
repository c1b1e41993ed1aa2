package fulfillment

import (
	"context"
	"fmt"
	"strings"

	"gnome-garden/domain/events"
)

func (s *Service) openSettings(_ context.Context, c *Conversation) error {
	c.Session.ClearQuestion()
	c.respond(c.script().Line("menu").Speech, 2, RenderCommand{State: CanvasSettings})
	return nil
}

// updateSound switches sound cues on or off. Without a state parameter the
// current setting is repeated back.
func (s *Service) updateSound(_ context.Context, c *Conversation) error {
	state, ok := c.Turn.Value(ParamState)
	if !ok {
		state = "off"
		if c.Profile.SoundOn {
			state = "on"
		}
	}
	c.Profile.SoundOn = state != "off"

	speech := strings.ReplaceAll(c.script().Line("audio_config_response").Speech, "<audio-state>", state)
	c.respond(speech, 0, RenderCommand{State: CanvasSettings})
	return nil
}

func (s *Service) openInstructions(_ context.Context, c *Conversation) error {
	c.Session.ClearQuestion()
	c.respond(c.script().Line("instructions").Speech, 2, RenderCommand{State: CanvasInstructions})
	return nil
}

func (s *Service) confirmNewGarden(_ context.Context, c *Conversation) error {
	line := c.script().Line("confirm_new_garden")
	c.respond(line.Speech, 0.5, RenderCommand{
		State:       CanvasGameOver,
		TextUI:      line.Text,
		Suggestions: line.Suggestions,
	})
	return nil
}

// gameReset discards the garden and starts over on a freshly picked
// template. Question progress carries over.
func (s *Service) gameReset(_ context.Context, c *Conversation) error {
	c.Profile.ResetGarden()
	c.Session.Reset()
	s.initGarden(c)
	c.emit(events.NewGardenReset(c.Profile.UserID, c.Profile.TemplateIndex, c.Now))

	tpl := c.Template
	c.say(c.script().Sound("removing")+c.script().Line("new_garden").Speech, 0)
	c.show(RenderCommand{
		State:       CanvasResetGame,
		Template:    &tpl,
		SuppressMic: true,
	})
	return nil
}

func (s *Service) keepGarden(_ context.Context, c *Conversation) error {
	line := c.script().Line("keep_intro")
	c.respond(line.Speech, 0, RenderCommand{
		State:       CanvasGameOver,
		TextUI:      line.Text,
		SuppressMic: true,
	})
	return nil
}

func (s *Service) gameCloses(_ context.Context, c *Conversation) error {
	c.say(c.script().Line("game_exit").Speech, 0)
	return nil
}

// noMatchLines maps a scene to the prefix of its no-match lines.
var noMatchLines = map[string]string{
	SceneWelcome:          "default_nomatch",
	SceneStory:            "default_nomatch",
	SceneOnBoarding:       "default_nomatch",
	SceneInstructions:     "instructions_nomatch",
	SceneSettings:         "settings_nomatch",
	SceneFirstWeed:        "first_weed_nomatch",
	SceneGameOver:         "gardenfull_nomatch",
	SceneConfirmNewGarden: "newgarden_nomatch",
	SceneRemove:           "remove_nomatch",
	SceneCloseRemove:      "remove_end_nomatch",
}

// noMatch returns the handler for the n-th consecutive unrecognised
// utterance. In the game scene it counts as a wrong answer.
func (s *Service) noMatch(n int) func(context.Context, *Conversation) error {
	return func(_ context.Context, c *Conversation) error {
		if c.Turn.Scene == SceneGame {
			return s.rejectAnswer(c)
		}
		if prefix, ok := noMatchLines[c.Turn.Scene]; ok {
			c.say(c.script().Line(fmt.Sprintf("%s_%d", prefix, n)).Speech, 0)
		}
		c.show(RenderCommand{State: CanvasDefault})
		return nil
	}
}
