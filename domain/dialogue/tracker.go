package dialogue

import (
	"fmt"

	"gnome-garden/domain/garden"
)

// NextQuestion returns the question at the category's current progress
// index. Out-of-range indexes are reported, never dereferenced.
func (s *Script) NextQuestion(c garden.Category, progress garden.UserProgress) (Question, error) {
	return s.Question(c, progress.Get(c))
}

// Question returns question idx of category c.
func (s *Script) Question(c garden.Category, idx int) (Question, error) {
	qs := s.Questions[c]
	if len(qs) == 0 {
		return Question{}, fmt.Errorf("%w %q", ErrNoQuestions, c)
	}
	if idx < 0 || idx >= len(qs) {
		return Question{}, fmt.Errorf("%w: %s[%d] of %d", ErrQuestionOutOfRange, c, idx, len(qs))
	}
	return qs[idx], nil
}

// Advance moves the category's question index forward. Indexes wrap to 0,
// except flowers which wrap to 1: flowers question 0 belongs to onboarding
// and is asked only once.
func Advance(c garden.Category, progress garden.UserProgress, questionCount int) garden.UserProgress {
	if questionCount <= 0 {
		return progress
	}
	next := progress.Get(c) + 1
	if next >= questionCount {
		next = 0
		if c == garden.Flowers && questionCount > 1 {
			next = 1
		}
	}
	return progress.With(c, next)
}
