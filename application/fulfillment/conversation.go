package fulfillment

import (
	"time"

	"gnome-garden/application/ports"
	"gnome-garden/domain/dialogue"
	"gnome-garden/domain/events"
	"gnome-garden/domain/garden"
	"gnome-garden/domain/player"
)

// Conversation is the working state of one turn.
type Conversation struct {
	Turn     Turn
	Profile  *player.Profile
	Session  *player.Session
	Content  *ports.Content
	Template garden.Template
	Now      time.Time
	Reply    *Reply

	events []events.DomainEvent
}

func (c *Conversation) script() *dialogue.Script {
	return c.Content.Script
}

func (c *Conversation) nowMillis() int64 {
	return c.Now.UnixMilli()
}

// say queues a spoken prompt.
func (c *Conversation) say(text string, delay float64) {
	if text == "" {
		return
	}
	c.Reply.Speech = append(c.Reply.Speech, SSML(text, delay))
}

// show sets the canvas update. Suggestions also become the expected speech.
func (c *Conversation) show(cmd RenderCommand) {
	c.Reply.Canvas = &cmd
	if cmd.TextUI != "" {
		c.Reply.Text = cmd.TextUI
	}
	if len(cmd.Suggestions) > 0 {
		c.Reply.Expected = cmd.Suggestions
	}
}

// respond speaks a line and shows the canvas in one step.
func (c *Conversation) respond(speech string, delay float64, cmd RenderCommand) {
	c.say(speech, delay)
	c.show(cmd)
}

func (c *Conversation) goTo(scene string) {
	c.Reply.NextScene = scene
}

func (c *Conversation) end() {
	c.Reply.NextScene = SceneEndConversation
	c.Reply.EndConversation = true
}

func (c *Conversation) emit(e events.DomainEvent) {
	c.events = append(c.events, e)
}

// sound returns a sound cue when the user has audio on.
func (c *Conversation) sound(name string) string {
	if !c.Profile.SoundOn {
		return ""
	}
	return c.script().Sound(name)
}

// pendingQuestion returns the pinned question, if any.
func (c *Conversation) pendingQuestion() (dialogue.Question, *player.PendingQuestion, bool) {
	pq := c.Session.Pending
	if pq == nil {
		return dialogue.Question{}, nil, false
	}
	q, err := c.script().Question(pq.Spot.Category, pq.Index)
	if err != nil {
		return dialogue.Question{}, nil, false
	}
	return q, pq, true
}
