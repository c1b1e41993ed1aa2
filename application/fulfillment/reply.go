package fulfillment

import (
	"fmt"
	"strconv"

	"gnome-garden/domain/garden"
	"gnome-garden/domain/player"
)

// CanvasState tells the canvas which scene to draw.
type CanvasState string

const (
	CanvasPreload      CanvasState = "PRELOAD"
	CanvasWelcome      CanvasState = "WELCOME"
	CanvasStory        CanvasState = "STORY"
	CanvasOnBoarding   CanvasState = "ON_BOARDING"
	CanvasGame         CanvasState = "GAME"
	CanvasUpdateGarden CanvasState = "UPDATE_GARDEN"
	CanvasGameOver     CanvasState = "GAME_OVER"
	CanvasRemove       CanvasState = "REMOVE"
	CanvasSettings     CanvasState = "SETTINGS"
	CanvasInstructions CanvasState = "INSTRUCTIONS"
	CanvasResetGame    CanvasState = "RESET_GAME"
	CanvasDefault      CanvasState = "DEFAULT"
)

// GardenView is the garden as the canvas renders it.
type GardenView struct {
	GnomeSize int                   `json:"gnomeSize"`
	GnomeSlot *garden.Spot          `json:"gnomeSlot,omitempty"`
	GnomePos  *garden.Point         `json:"gnomePos,omitempty"`
	Data      []garden.RenderedItem `json:"data"`
}

// ProfileView is the subset of the profile the canvas reads.
type ProfileView struct {
	Progress     garden.UserProgress `json:"userProgress"`
	StoryVisited bool                `json:"storyVisited"`
	Onboarding1  bool                `json:"onboarding_1"`
	Onboarding2  bool                `json:"onboarding_2"`
	Onboarding3  bool                `json:"onboarding_3"`
	SoundState   int                 `json:"soundState"`
}

func viewOf(p *player.Profile) ProfileView {
	v := ProfileView{
		Progress:     p.Progress,
		StoryVisited: p.StoryVisited,
		Onboarding1:  p.Onboarding1,
		Onboarding2:  p.Onboarding2,
		Onboarding3:  p.Onboarding3,
	}
	if p.SoundOn {
		v.SoundState = 1
	}
	return v
}

// RenderCommand is the presentation message sent to the canvas.
type RenderCommand struct {
	State       CanvasState      `json:"state"`
	Params      ProfileView      `json:"params"`
	Garden      *GardenView      `json:"userGarden,omitempty"`
	Template    *garden.Template `json:"gardenData,omitempty"`
	TextUI      string           `json:"text_ui,omitempty"`
	Suggestions []string         `json:"suggestions,omitempty"`
	SuppressMic bool             `json:"-"`
	URL         string           `json:"-"`
}

// Reply is what a turn sends back to the platform.
type Reply struct {
	Speech          []string
	Text            string
	Canvas          *RenderCommand
	NextScene       string
	EndConversation bool
	Expected        []string
}

// SSML wraps text in the prompt envelope with a leading pause of delay
// seconds.
func SSML(text string, delay float64) string {
	return fmt.Sprintf(`<speak><prosody volume="default"><break time="%ss"/>%s</prosody></speak>`,
		strconv.FormatFloat(delay, 'f', -1, 64), text)
}
