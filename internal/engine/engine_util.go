package engine

// NewState returns the all-zero idle aggregate a host session starts with.
func NewState() State {
	return State{
		Status:               StatusIdle,
		CurrentQuestionIndex: 0,
		Questions:            []Question{},
		WrongAnswerCount:     0,
		ShowWrongOverlay:     false,
	}
}

// cloneQuestions deep-copies a question list so Apply never aliases the
// caller's slices.
func cloneQuestions(qs []Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = Question{Text: q.Text, Answers: make([]Answer, len(q.Answers))}
		copy(out[i].Answers, q.Answers)
	}
	return out
}

// CurrentQuestion returns the question the board is showing, or false while
// no set is loaded.
func CurrentQuestion(s State) (Question, bool) {
	if len(s.Questions) == 0 {
		return Question{}, false
	}
	return s.Questions[s.CurrentQuestionIndex], true
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
