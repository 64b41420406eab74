package engine

import "errors"

var ErrGameNotActive = errors.New("game not active")
var ErrGameNotWaiting = errors.New("game not waiting to start")
var ErrEmptyQuestionSet = errors.New("question set is empty")
var ErrAnswerOutOfRange = errors.New("answer index out of range")
var ErrTeamOutOfRange = errors.New("team index out of range")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Status string

const (
	StatusIdle     Status = "IDLE"
	StatusWaiting  Status = "WAITING"
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
)

// NumTeams is fixed: the scoreboard always renders six team slots.
const NumTeams = 6

// MaxStrikes caps WrongAnswerCount; the board only renders three markers.
const MaxStrikes = 3

// NoTeam advances the round without awarding the pot to anyone.
const NoTeam = -1

type Answer struct {
	Text     string `json:"text"`
	Points   int    `json:"points"`
	Revealed bool   `json:"revealed"`
}

type Question struct {
	Text    string   `json:"text"`
	Answers []Answer `json:"answers"`
}

// State is the canonical replicated aggregate. The host owns the single
// mutable copy; every client holds the last snapshot it received, verbatim.
type State struct {
	Status               Status        `json:"status"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	Questions            []Question    `json:"questions"`
	WrongAnswerCount     int           `json:"wrongAnswerCount"`
	ShowWrongOverlay     bool          `json:"showWrongOverlay"`
	TeamScores           [NumTeams]int `json:"teamScores"`
}

type CommandType string

const (
	CmdLoadQuestions CommandType = "LoadQuestions"
	CmdStartGame     CommandType = "StartGame"
	CmdRevealAnswer  CommandType = "RevealAnswer"
	CmdStrike        CommandType = "Strike"
	CmdHideOverlay   CommandType = "HideOverlay"
	CmdAssignPoints  CommandType = "AssignPoints"
	CmdReset         CommandType = "Reset"
)

type Command struct {
	Type        CommandType
	Questions   []Question // LoadQuestions only
	AnswerIndex int        // RevealAnswer only
	Team        int        // AssignPoints only; NoTeam skips scoring
}

type EventType string

const (
	EvtQuestionsLoaded EventType = "QuestionsLoaded"
	EvtGameStarted     EventType = "GameStarted"
	EvtAnswerRevealed  EventType = "AnswerRevealed"
	EvtWrongShown      EventType = "WrongShown"
	EvtRoundAdvanced   EventType = "RoundAdvanced"
	EvtGameFinished    EventType = "GameFinished"
	EvtGameReset       EventType = "GameReset"
)

type Event struct {
	Type        EventType
	AnswerIndex int
	Team        int
	Points      int
}

// Apply is the only way state transitions happen. It never mutates s; on
// error the returned state is s unchanged.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdLoadQuestions:
		if len(cmd.Questions) == 0 {
			return nil, s, ErrEmptyQuestionSet
		}
		newState := NewState()
		newState.Status = StatusWaiting
		newState.Questions = cloneQuestions(cmd.Questions)
		for qi := range newState.Questions {
			for ai := range newState.Questions[qi].Answers {
				newState.Questions[qi].Answers[ai].Revealed = false
			}
		}
		return []Event{{Type: EvtQuestionsLoaded}}, newState, nil

	case CmdStartGame:
		if s.Status != StatusWaiting || len(s.Questions) == 0 {
			return nil, s, ErrGameNotWaiting
		}
		newState := s
		newState.Status = StatusActive
		return []Event{{Type: EvtGameStarted}}, newState, nil

	case CmdRevealAnswer:
		if s.Status != StatusActive {
			return nil, s, ErrGameNotActive
		}
		q := s.Questions[s.CurrentQuestionIndex]
		if cmd.AnswerIndex < 0 || cmd.AnswerIndex >= len(q.Answers) {
			return nil, s, ErrAnswerOutOfRange
		}
		if q.Answers[cmd.AnswerIndex].Revealed {
			// Idempotent: already face-up, nothing to do.
			return nil, s, nil
		}
		newState := s
		newState.Questions = cloneQuestions(s.Questions)
		newState.Questions[s.CurrentQuestionIndex].Answers[cmd.AnswerIndex].Revealed = true
		return []Event{{Type: EvtAnswerRevealed, AnswerIndex: cmd.AnswerIndex}}, newState, nil

	case CmdStrike:
		if s.Status != StatusActive {
			return nil, s, ErrGameNotActive
		}
		newState := s
		if newState.WrongAnswerCount < MaxStrikes {
			newState.WrongAnswerCount++
		}
		newState.ShowWrongOverlay = true
		return []Event{{Type: EvtWrongShown}}, newState, nil

	case CmdHideOverlay:
		if !s.ShowWrongOverlay {
			return nil, s, nil
		}
		newState := s
		newState.ShowWrongOverlay = false
		return nil, newState, nil

	case CmdAssignPoints:
		if s.Status != StatusActive {
			return nil, s, ErrGameNotActive
		}
		if cmd.Team != NoTeam && (cmd.Team < 0 || cmd.Team >= NumTeams) {
			return nil, s, ErrTeamOutOfRange
		}
		total := RoundTotal(s)
		newState := s
		if cmd.Team != NoTeam {
			newState.TeamScores[cmd.Team] += total
		}
		newState.WrongAnswerCount = 0
		newState.ShowWrongOverlay = false

		events := []Event{{Type: EvtRoundAdvanced, Team: cmd.Team, Points: total}}
		if s.CurrentQuestionIndex+1 >= len(s.Questions) {
			// Board freezes on the last question.
			newState.Status = StatusFinished
			events = append(events, Event{Type: EvtGameFinished})
		} else {
			newState.CurrentQuestionIndex++
		}
		return events, newState, nil

	case CmdReset:
		return []Event{{Type: EvtGameReset}}, NewState(), nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// RoundTotal sums the points of every revealed answer on the current
// question. Zero when no question set is loaded.
func RoundTotal(s State) int {
	if len(s.Questions) == 0 {
		return 0
	}
	total := 0
	for _, a := range s.Questions[s.CurrentQuestionIndex].Answers {
		if a.Revealed {
			total += a.Points
		}
	}
	return total
}
