package fulfillment

import (
	"strconv"
	"strings"

	"gnome-garden/domain/dialogue"
)

// Scene names understood by the conversation platform.
const (
	SceneWelcome          = "Welcome"
	SceneStory            = "Story"
	SceneOnBoarding       = "OnBoarding"
	SceneGame             = "Game"
	SceneGardenAnimation  = "GardenAnimation"
	SceneFirstWeed        = "FirstWeedScene"
	SceneGameOver         = "GameOver"
	SceneRemove           = "Remove"
	SceneCloseRemove      = "CloseRemove"
	SceneSettings         = "Settings"
	SceneInstructions     = "Instructions"
	SceneConfirmNewGarden = "ConfirmNewGarden"
	SceneEndConversation  = "actions.page.END_CONVERSATION"
)

// Device capabilities checked before a game starts.
const (
	CapabilityInteractiveCanvas = "INTERACTIVE_CANVAS"
	CapabilityWebLink           = "WEB_LINK"
)

// Intent parameter names.
const (
	ParamWord   = "Word"
	ParamNumber = "number"
	ParamState  = "state"
)

// Param is a resolved intent parameter. List parameters carry several values.
type Param struct {
	Original string
	Values   []string
}

// Turn is one webhook invocation.
type Turn struct {
	Handler      string
	Scene        string
	UserID       string
	SessionID    string
	Intent       string
	Query        string
	Params       map[string]Param
	Capabilities []string
}

// Word reads the answer parameter.
func (t Turn) Word() dialogue.ParseResult {
	p, ok := t.Params[ParamWord]
	if !ok || len(p.Values) == 0 || strings.TrimSpace(p.Values[0]) == "" {
		return dialogue.Malformed()
	}
	return dialogue.Ok(p.Values[0])
}

// Numbers reads the removal badge numbers. Values that are not integers are
// dropped.
func (t Turn) Numbers() []int {
	p, ok := t.Params[ParamNumber]
	if !ok {
		return nil
	}
	out := make([]int, 0, len(p.Values))
	for _, v := range p.Values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || f != float64(int(f)) {
			continue
		}
		out = append(out, int(f))
	}
	return out
}

// Value returns the first resolved value of a parameter, lowercased.
func (t Turn) Value(name string) (string, bool) {
	p, ok := t.Params[name]
	if !ok || len(p.Values) == 0 {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(p.Values[0])), true
}

// HasCapability reports whether the device advertised c.
func (t Turn) HasCapability(c string) bool {
	for _, have := range t.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}
