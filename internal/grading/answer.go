package grading

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// Answer is a learner's response to one question. The concrete type always
// matches the question type it was decoded for.
type Answer interface {
	QuestionType() models.QuestionType
}

// SingleChoice answers a single_correct question with an option text.
type SingleChoice struct {
	Text string
}

func (SingleChoice) QuestionType() models.QuestionType { return models.SingleCorrect }

// MultipleChoice answers a multiple_correct question with option texts.
type MultipleChoice struct {
	Texts []string
}

func (MultipleChoice) QuestionType() models.QuestionType { return models.MultipleCorrect }

// TrueFalse answers a true_false question. Value holds the raw submitted
// string; only "true" and "false" can earn credit.
type TrueFalse struct {
	Value string
}

func (TrueFalse) QuestionType() models.QuestionType { return models.TrueFalse }

func (a TrueFalse) IsLiteral() bool {
	return a.Value == "true" || a.Value == "false"
}

// AnswerSheet maps question id to the learner's answer.
type AnswerSheet map[uint]Answer

// Warning records a submission entry that was coerced or dropped.
type Warning struct {
	QuestionID string `json:"question_id"`
	Reason     string `json:"reason"`
}

// DecodeAnswers normalizes a raw submission against the quiz's questions.
// Shape mismatches never fail: the entry is dropped (zero credit) and a
// warning is returned instead.
func DecodeAnswers(questions []models.Question, raw map[string]json.RawMessage) (AnswerSheet, []Warning) {
	sheet := make(AnswerSheet, len(raw))
	var warnings []Warning

	byID := make(map[string]*models.Question, len(questions))
	for i := range questions {
		byID[strconv.FormatUint(uint64(questions[i].ID), 10)] = &questions[i]
	}

	for key, value := range raw {
		question, ok := byID[key]
		if !ok {
			warnings = append(warnings, Warning{QuestionID: key, Reason: "question not part of quiz"})
			continue
		}

		answer, err := decodeAnswer(question.Type, value)
		if err != nil {
			warnings = append(warnings, Warning{QuestionID: key, Reason: err.Error()})
			continue
		}
		if answer != nil {
			sheet[question.ID] = answer
		}
	}

	return sheet, warnings
}

func decodeAnswer(questionType models.QuestionType, value json.RawMessage) (Answer, error) {
	if len(value) == 0 || string(value) == "null" {
		return nil, nil
	}

	switch questionType {
	case models.SingleCorrect:
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			return nil, fmt.Errorf("expected string for %s", questionType)
		}
		return SingleChoice{Text: text}, nil

	case models.TrueFalse:
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			return nil, fmt.Errorf("expected string for %s", questionType)
		}
		return TrueFalse{Value: text}, nil

	case models.MultipleCorrect:
		var texts []string
		if err := json.Unmarshal(value, &texts); err == nil {
			return MultipleChoice{Texts: texts}, nil
		}
		var text string
		if err := json.Unmarshal(value, &text); err == nil {
			return MultipleChoice{Texts: []string{text}}, nil
		}
		return nil, fmt.Errorf("expected string array for %s", questionType)
	}

	return nil, fmt.Errorf("unsupported question type %q", questionType)
}
