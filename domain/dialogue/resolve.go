package dialogue

// MaxErrors is the number of unrecognised answers to one question after
// which the conversation is closed.
const MaxErrors = 3

// ParseResult is the outcome of reading the answer parameter from the
// platform: either a usable value or malformed input.
type ParseResult struct {
	value string
	ok    bool
}

// Ok wraps a successfully parsed utterance.
func Ok(value string) ParseResult {
	return ParseResult{value: value, ok: true}
}

// Malformed marks a missing or unusable parameter.
func Malformed() ParseResult {
	return ParseResult{}
}

// Value returns the parsed utterance.
func (p ParseResult) Value() (string, bool) {
	return p.value, p.ok
}

// Input is what the user did while a question was pending.
type Input int

const (
	InputAnswer Input = iota
	InputBoth
	InputRepeat
	InputNoMatch
)

// Outcome is the state the answer resolution lands in.
type Outcome int

const (
	Awaiting Outcome = iota
	Accepted
	Rejected
	Ambiguous
	Repeated
	GaveUp
)

var outcomeNames = map[Outcome]string{
	Awaiting:  "awaiting",
	Accepted:  "accepted",
	Rejected:  "rejected",
	Ambiguous: "ambiguous",
	Repeated:  "repeated",
	GaveUp:    "gave_up",
}

func (o Outcome) String() string {
	if n, ok := outcomeNames[o]; ok {
		return n
	}
	return "unknown"
}

// Resolution is the result of one resolution step. Errors is the updated
// session error counter.
type Resolution struct {
	Outcome Outcome
	Answer  Answer
	Errors  int
}

// Resolve runs one step of the answer state machine for question q. errCount
// is the error counter before this turn.
func (m Matcher) Resolve(q Question, in Input, parsed ParseResult, errCount int) Resolution {
	switch in {
	case InputBoth:
		return Resolution{Outcome: Ambiguous, Errors: errCount}
	case InputRepeat:
		return Resolution{Outcome: Repeated, Errors: errCount}
	case InputAnswer:
		if v, ok := parsed.Value(); ok {
			if a, ok := m.Match(q, v); ok {
				return Resolution{Outcome: Accepted, Answer: a, Errors: 0}
			}
		}
	}

	errCount++
	if errCount >= MaxErrors {
		return Resolution{Outcome: GaveUp, Errors: errCount}
	}
	return Resolution{Outcome: Rejected, Errors: errCount}
}
