package content

import (
	"fmt"
	"sort"

	"gnome-garden/application/ports"
	"gnome-garden/domain/dialogue"
	"gnome-garden/domain/garden"
)

// RequiredLines are the scene lines every handler expects to find.
var RequiredLines = []string{
	"device_error", "welcome", "welcome_new", "story", "onboarding", "onboarding2",
	"onboarding_weeding", "weeding_response", "first_weeding_response",
	"skip_weeding_response", "game_over", "remove_intro", "remove_response",
	"remove_end", "menu", "instructions", "confirm_new_garden", "new_garden",
	"keep_intro", "question_both", "question_repeat", "question_skip",
	"default_response", "audio_config_response", "game_exit",
}

// NoMatchPrefixes name the per-scene no-match line families. Each needs
// lines _1 to _3.
var NoMatchPrefixes = []string{
	"default_nomatch", "instructions_nomatch", "settings_nomatch",
	"first_weed_nomatch", "gardenfull_nomatch", "newgarden_nomatch",
	"remove_nomatch", "remove_end_nomatch",
}

// RequiredVariants are the response pools picked from at random.
var RequiredVariants = []string{
	"welcome_back", "question_prefixes",
	"question_nomatch_1", "question_nomatch_2", "question_nomatch_3",
}

// RequiredSounds are the sound cues referenced by handlers.
var RequiredSounds = []string{"gnome_moving", "growing_start", "growing_end", "removing"}

// Problem severities
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Problem is one finding of Check.
type Problem struct {
	Severity string
	Message  string
}

func (p Problem) String() string {
	return p.Severity + ": " + p.Message
}

// Check reports content that parses but would leave players stuck or
// silent: missing lines, categories without questions, templates whose
// slots have no question category to fill them.
func Check(c *ports.Content) []Problem {
	var out []Problem
	script := c.Script

	missing := func(kind, name string) {
		out = append(out, Problem{Severity: SeverityError, Message: fmt.Sprintf("missing %s %q", kind, name)})
	}
	for _, name := range RequiredLines {
		if _, ok := script.Lines[name]; !ok {
			missing("line", name)
		}
	}
	for _, prefix := range NoMatchPrefixes {
		for i := 1; i <= dialogue.MaxErrors; i++ {
			name := fmt.Sprintf("%s_%d", prefix, i)
			if _, ok := script.Lines[name]; !ok {
				missing("line", name)
			}
		}
	}
	for _, name := range RequiredVariants {
		if len(script.Variants[name]) == 0 {
			missing("variant", name)
		}
	}
	for _, name := range RequiredSounds {
		if _, ok := script.Sounds[name]; !ok {
			missing("sound", name)
		}
	}

	used := map[garden.Category]bool{}
	for _, t := range c.Templates.All() {
		for _, s := range t.Slots {
			used[s.Category] = true
		}
	}
	cats := make([]string, 0, len(used))
	for cat := range used {
		cats = append(cats, string(cat))
	}
	sort.Strings(cats)
	for _, name := range cats {
		if script.Count(garden.Category(name)) == 0 {
			out = append(out, Problem{Severity: SeverityError, Message: fmt.Sprintf("templates use %q but no questions exist", name)})
		}
	}
	if script.Count(garden.Flowers) == 1 {
		out = append(out, Problem{Severity: SeverityWarning, Message: "only the onboarding flower question exists; flowers will repeat it"})
	}
	return out
}
