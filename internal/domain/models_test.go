package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func validQuiz() Quiz {
	return Quiz{
		Title:     "Basics",
		CreatedBy: "teacher",
		Questions: []Question{
			{Text: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: "4", TimeLimitSeconds: 10},
		},
	}
}

func TestValidateQuiz(t *testing.T) {
	if err := ValidateQuiz(validQuiz()); err != nil {
		t.Fatalf("valid quiz rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Quiz)
	}{
		{"blank title", func(q *Quiz) { q.Title = "  " }},
		{"no questions", func(q *Quiz) { q.Questions = nil }},
		{"blank question text", func(q *Quiz) { q.Questions[0].Text = "" }},
		{"single option", func(q *Quiz) { q.Questions[0].Options = []string{"4"} }},
		{"answer not an option", func(q *Quiz) { q.Questions[0].CorrectAnswer = "5" }},
		{"negative time limit", func(q *Quiz) { q.Questions[0].TimeLimitSeconds = -1 }},
	}
	for _, tc := range cases {
		quiz := validQuiz()
		tc.mutate(&quiz)
		if err := ValidateQuiz(quiz); !IsKind(err, KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestQuestionTimeLimitDefaults(t *testing.T) {
	q := Question{TimeLimitSeconds: 15}
	if q.TimeLimit() != 15*time.Second {
		t.Fatalf("got %s", q.TimeLimit())
	}
	if (Question{}).TimeLimit() != DefaultTimeLimitSeconds*time.Second {
		t.Fatalf("default not applied: %s", (Question{}).TimeLimit())
	}
}

func TestErrorKinds(t *testing.T) {
	err := Errorf(KindStaleQuestion, "question %s expired", "q1")
	if !IsKind(err, KindStaleQuestion) || IsKind(err, KindNotFound) {
		t.Fatalf("kind mismatch: %v", err)
	}
	if err.Error() != "question q1 expired" {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if KindOf(wrapped) != KindStaleQuestion {
		t.Fatalf("kind lost through wrapping")
	}

	cause := errors.New("connection refused")
	unavailable := WrapUnavailable("save quiz", cause)
	if KindOf(unavailable) != KindUnavailable || !errors.Is(unavailable, cause) {
		t.Fatalf("unavailable wrapping broken: %v", unavailable)
	}

	if KindOf(errors.New("plain")) != KindUnavailable {
		t.Fatalf("untyped errors should default to unavailable")
	}
}
