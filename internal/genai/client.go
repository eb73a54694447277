// Package genai adapts an OpenAI-compatible chat completion API into
// the four content operations the application needs: exam generation,
// open-answer grading, editing suggestions, and whole-exam
// regeneration. Responses are requested as JSON objects and validated
// against the documented shapes; anything else is a hard failure of
// that operation.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nitzanh/examgen/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrNoAttachments is returned when generation is requested without
	// any source documents.
	ErrNoAttachments = errors.New("no source documents provided")
	// ErrEmptyResponse is returned when the model produced no content.
	ErrEmptyResponse = errors.New("model returned an empty response")
	// ErrInvalidResponse is returned when the response does not conform
	// to the expected shape.
	ErrInvalidResponse = errors.New("model returned an invalid structure")
)

// Attachment is one uploaded source document.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// GenerateRequest describes the exam a teacher asked for.
type GenerateRequest struct {
	Files             []Attachment
	NumSingleChoice   int
	NumMultipleChoice int
	NumOpenEnded      int
}

// GeneratedExam is the adapter's output for generation and
// regeneration: a title and a question list with points already
// distributed to sum to exactly 100.
type GeneratedExam struct {
	Title     string
	Questions []model.Question
}

// QuestionSuggestion is one candidate closed question proposed by the
// editor assistant.
type QuestionSuggestion struct {
	QuestionText string               `json:"questionText"`
	Options      []model.AnswerOption `json:"options"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new content generation client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("model endpoint health check: %w", err)
	}
	return nil
}

// generatedQuestion mirrors the question shape the model is asked to
// produce. Points are assigned locally, never by the model.
type generatedQuestion struct {
	ID            string               `json:"id"`
	Type          model.QuestionType   `json:"type"`
	QuestionText  string               `json:"questionText"`
	Options       []model.AnswerOption `json:"options,omitempty"`
	CorrectAnswer string               `json:"correctAnswer,omitempty"`
}

type examEnvelope struct {
	Title     string              `json:"title"`
	Questions []generatedQuestion `json:"questions"`
}

// GenerateExam drafts a new exam from the attached documents. The
// returned questions carry the deterministic 100-point distribution.
func (c *Client) GenerateExam(ctx context.Context, req GenerateRequest) (*GeneratedExam, error) {
	if len(req.Files) == 0 {
		return nil, ErrNoAttachments
	}

	parts := attachmentParts(req.Files)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: buildGeneratePrompt(req),
	})

	var envelope examEnvelope
	err := c.completeJSON(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: generateSystemPrompt},
		{Role: openai.ChatMessageRoleUser, MultiContent: parts},
	}, 0.4, &envelope)
	if err != nil {
		return nil, fmt.Errorf("generate exam: %w", err)
	}

	questions, err := validateExamEnvelope(envelope)
	if err != nil {
		return nil, fmt.Errorf("generate exam: %w", err)
	}
	return &GeneratedExam{Title: envelope.Title, Questions: questions}, nil
}

// RegenerateExam produces entirely new content with the same
// structural counts as the given exam. The original title is kept
// regardless of what the model returns.
func (c *Client) RegenerateExam(ctx context.Context, exam model.Exam) (*GeneratedExam, error) {
	var envelope examEnvelope
	err := c.completeJSON(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: generateSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: buildRegeneratePrompt(exam)},
	}, 0.6, &envelope)
	if err != nil {
		return nil, fmt.Errorf("regenerate exam: %w", err)
	}

	questions, err := validateExamEnvelope(envelope)
	if err != nil {
		return nil, fmt.Errorf("regenerate exam: %w", err)
	}
	return &GeneratedExam{Title: exam.Title, Questions: questions}, nil
}

// GradeOpenAnswer asks the model to grade one open-ended answer
// against the question's model answer.
func (c *Client) GradeOpenAnswer(ctx context.Context, question model.Question, answer string) (model.GradedAnswer, error) {
	var graded model.GradedAnswer
	err := c.completeJSON(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: gradeSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: buildGradePrompt(question, answer)},
	}, 0.1, &graded)
	if err != nil {
		return model.GradedAnswer{}, fmt.Errorf("grade open answer: %w", err)
	}
	return graded, nil
}

// SuggestionKind selects what the editor assistant should propose.
type SuggestionKind string

const (
	// SuggestRewordQuestion asks for alternative phrasings of a question.
	SuggestRewordQuestion SuggestionKind = "reword_question"
	// SuggestRewordOption asks for alternative phrasings of one option.
	SuggestRewordOption SuggestionKind = "reword_option"
	// SuggestIncorrectOption asks for plausible wrong options.
	SuggestIncorrectOption SuggestionKind = "incorrect_option"
	// SuggestCorrectOption asks for additional correct options.
	SuggestCorrectOption SuggestionKind = "correct_option"
	// SuggestNewOpenQuestion asks for new open-ended questions.
	SuggestNewOpenQuestion SuggestionKind = "new_open_question"
)

type textSuggestions struct {
	Suggestions []string `json:"suggestions"`
}

type questionSuggestions struct {
	Suggestions []QuestionSuggestion `json:"suggestions"`
}

// SuggestText returns candidate strings for the teacher to pick from.
// qIndex addresses the question in exam order; oIndex addresses an
// option and is only meaningful for SuggestRewordOption.
func (c *Client) SuggestText(ctx context.Context, exam model.Exam, kind SuggestionKind, qIndex, oIndex int) ([]string, error) {
	prompt, err := buildSuggestPrompt(exam, kind, qIndex, oIndex)
	if err != nil {
		return nil, err
	}

	var envelope textSuggestions
	err = c.completeJSON(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: suggestSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}, 0.7, &envelope)
	if err != nil {
		return nil, fmt.Errorf("suggest %s: %w", kind, err)
	}
	if len(envelope.Suggestions) == 0 {
		return nil, fmt.Errorf("suggest %s: %w", kind, ErrInvalidResponse)
	}
	return envelope.Suggestions, nil
}

// SuggestNewChoiceQuestions returns candidate closed questions of the
// given type, each with a full option set.
func (c *Client) SuggestNewChoiceQuestions(ctx context.Context, exam model.Exam, qType model.QuestionType) ([]QuestionSuggestion, error) {
	if qType != model.SingleChoice && qType != model.MultipleChoice {
		return nil, fmt.Errorf("suggest new question: type %q is not a choice type", qType)
	}

	var envelope questionSuggestions
	err := c.completeJSON(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: suggestSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: buildNewChoiceQuestionPrompt(exam, qType)},
	}, 0.7, &envelope)
	if err != nil {
		return nil, fmt.Errorf("suggest new question: %w", err)
	}
	if len(envelope.Suggestions) == 0 {
		return nil, fmt.Errorf("suggest new question: %w", ErrInvalidResponse)
	}
	for _, s := range envelope.Suggestions {
		if s.QuestionText == "" || len(s.Options) == 0 {
			return nil, fmt.Errorf("suggest new question: %w", ErrInvalidResponse)
		}
	}
	return envelope.Suggestions, nil
}

// AssistantReply answers a free-form editing question about the exam.
// The reply is plain text, not schema-constrained.
func (c *Client) AssistantReply(ctx context.Context, exam model.Exam, message string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: assistantSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildAssistantPrompt(exam, message)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("assistant reply: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("assistant reply: %w", ErrEmptyResponse)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// completeJSON runs a chat completion in JSON-object mode and decodes
// the first choice into out.
func (c *Client) completeJSON(ctx context.Context, messages []openai.ChatCompletionMessage, temperature float32, out any) error {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: temperature,
	})
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ErrEmptyResponse
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("model response", "raw", raw)
	if raw == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// validateExamEnvelope checks the generation response shape and
// converts it to domain questions with points distributed.
func validateExamEnvelope(envelope examEnvelope) ([]model.Question, error) {
	if envelope.Title == "" || len(envelope.Questions) == 0 {
		return nil, ErrInvalidResponse
	}

	questions := make([]model.Question, 0, len(envelope.Questions))
	for i, gq := range envelope.Questions {
		switch gq.Type {
		case model.SingleChoice, model.MultipleChoice:
			if len(gq.Options) == 0 {
				return nil, fmt.Errorf("%w: question %d has no options", ErrInvalidResponse, i+1)
			}
		case model.OpenEnded:
		default:
			return nil, fmt.Errorf("%w: question %d has unknown type %q", ErrInvalidResponse, i+1, gq.Type)
		}
		if gq.QuestionText == "" {
			return nil, fmt.Errorf("%w: question %d has no text", ErrInvalidResponse, i+1)
		}
		id := gq.ID
		if id == "" {
			id = fmt.Sprintf("q%d", i+1)
		}
		q := model.Question{
			ID:           id,
			Type:         gq.Type,
			QuestionText: gq.QuestionText,
		}
		if gq.Type == model.OpenEnded {
			q.CorrectAnswer = gq.CorrectAnswer
		} else {
			q.Options = gq.Options
		}
		questions = append(questions, q)
	}

	return DistributePoints(questions), nil
}

// attachmentParts turns uploaded documents into chat message parts.
// Images travel as data URLs; everything else is inlined as text.
func attachmentParts(files []Attachment) []openai.ChatMessagePart {
	parts := make([]openai.ChatMessagePart, 0, len(files))
	for _, f := range files {
		if strings.HasPrefix(f.MIMEType, "image/") {
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: dataURL(f)},
			})
			continue
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: fmt.Sprintf("--- Document: %s ---\n%s", f.Name, f.Data),
		})
	}
	return parts
}
