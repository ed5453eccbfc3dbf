package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Inbound message types.
const (
	msgGrantXP          = "grantXP"
	msgCompleteLesson   = "completeLesson"
	msgPassQuiz         = "passQuiz"
	msgCompleteExercise = "completeExercise"
	msgChatMessage      = "chatMessage"
	msgClaimChallenge   = "claimChallenge"
	msgReset            = "reset"
)

// Outbound message types.
const (
	msgProgress    = "progress"
	msgAchievement = "achievement"
	msgChallenges  = "challenges"
	msgError       = "error"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type grantXPPayload struct {
	Amount int    `json:"amount" validate:"gte=0,lte=10000"`
	Reason string `json:"reason" validate:"max=200"`
}

type completeLessonPayload struct {
	LessonID string `json:"lessonId" validate:"required"`
	ModuleID string `json:"moduleId" validate:"required"`
}

type passQuizPayload struct {
	LessonID string `json:"lessonId" validate:"required"`
	Score    *int   `json:"score" validate:"required,gte=0,lte=100"`
}

type completeExercisePayload struct {
	LessonID string `json:"lessonId" validate:"required"`
}

type claimChallengePayload struct {
	ChallengeID string `json:"challengeId" validate:"required"`
}

var validate = validator.New()

// decodePayload unmarshals raw into dst and checks its validate tags. An
// absent payload decodes as an empty object.
func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		fields := make([]string, 0, len(ve))
		for _, fe := range ve {
			fields = append(fields, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("invalid payload: %s", strings.Join(fields, ", "))
	}
	return nil
}
