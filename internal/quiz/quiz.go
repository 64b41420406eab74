package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/TheJagStudio/Family-Fued/internal/engine"
)

var ErrInvalidFormat = errors.New("invalid quiz format")

// Document is the upload schema. Answers never carry a revealed flag in the
// file; the loader injects it as false.
type Document struct {
	Title     string `json:"title"`
	Questions []struct {
		Text    string `json:"text"`
		Answers []struct {
			Text   string `json:"text"`
			Points int    `json:"points"`
		} `json:"answers"`
	} `json:"questions"`
}

// Parse decodes and validates a quiz document, returning the title and the
// normalized question list ready for engine.CmdLoadQuestions.
func Parse(r io.Reader) (string, []engine.Question, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if doc.Questions == nil {
		return "", nil, fmt.Errorf("%w: 'questions' array missing", ErrInvalidFormat)
	}
	if len(doc.Questions) == 0 {
		return "", nil, fmt.Errorf("%w: 'questions' array is empty", ErrInvalidFormat)
	}

	questions := make([]engine.Question, len(doc.Questions))
	for qi, q := range doc.Questions {
		if q.Text == "" {
			return "", nil, fmt.Errorf("%w: question %d has no text", ErrInvalidFormat, qi+1)
		}
		if len(q.Answers) == 0 {
			return "", nil, fmt.Errorf("%w: question %d has no answers", ErrInvalidFormat, qi+1)
		}
		answers := make([]engine.Answer, len(q.Answers))
		for ai, a := range q.Answers {
			if a.Text == "" {
				return "", nil, fmt.Errorf("%w: question %d answer %d has no text", ErrInvalidFormat, qi+1, ai+1)
			}
			if a.Points < 0 {
				return "", nil, fmt.Errorf("%w: question %d answer %d has negative points", ErrInvalidFormat, qi+1, ai+1)
			}
			answers[ai] = engine.Answer{Text: a.Text, Points: a.Points, Revealed: false}
		}
		questions[qi] = engine.Question{Text: q.Text, Answers: answers}
	}
	return doc.Title, questions, nil
}

// LoadFile parses a quiz document from disk.
func LoadFile(path string) (string, []engine.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	return Parse(f)
}
