package protocol

import (
	"errors"
	"testing"

	"github.com/TheJagStudio/Family-Fued/internal/engine"
)

func TestSyncState_CarriesFullSnapshot(t *testing.T) {
	s := engine.NewState()
	s.Status = engine.StatusActive
	s.Questions = []engine.Question{
		{Text: "Name a fruit", Answers: []engine.Answer{
			{Text: "Apple", Points: 40, Revealed: true},
			{Text: "Banana", Points: 30},
		}},
	}
	s.WrongAnswerCount = 2
	s.TeamScores[4] = 70

	msg, err := SyncState(s)
	if err != nil {
		t.Fatalf("SyncState: %v", err)
	}

	data, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	got, err := decoded.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if got.Status != engine.StatusActive || got.WrongAnswerCount != 2 || got.TeamScores[4] != 70 {
		t.Fatalf("snapshot fields lost: %+v", got)
	}
	if len(got.Questions) != 1 || !got.Questions[0].Answers[0].Revealed {
		t.Fatalf("question payload lost: %+v", got.Questions)
	}
}

func TestDecode_RejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"FULL_SEND"}`))
	if !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("want ErrUnknownMessage, got %v", err)
	}
}

func TestState_RejectsNonSnapshotMessages(t *testing.T) {
	_, err := ShowWrong().State()
	if !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("want ErrUnknownMessage, got %v", err)
	}
}
