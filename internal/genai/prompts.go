package genai

import (
	"fmt"
	"strings"

	"github.com/nitzanh/examgen/internal/model"
)

const generateSystemPrompt = `You are an educational expert who writes exams from study material.
Analyze the supplied content and produce questions that test understanding, not recall.
All question and answer text must be written in Hebrew.
Respond ONLY with a single JSON object matching the requested shape.`

const gradeSystemPrompt = `You are grading one open-ended exam answer.
Evaluate the student's answer against the question and the model answer.
Grade fairly: an answer that differs from the model answer but is still correct deserves credit.
The feedback must be written in Hebrew.
Respond ONLY with a JSON object: {"score": <number>, "feedback": "<brief reasoned feedback>"}`

const suggestSystemPrompt = `You are assisting a teacher who is editing an exam.
Provide focused suggestions only. All suggestion text must be written in Hebrew.
Respond ONLY with a single JSON object matching the requested shape.`

const assistantSystemPrompt = `You are an assistant for a teacher editing an existing exam.
Help with phrasing, new questions, and time estimates for the exam as a whole.
Answer in Hebrew, in plain text.`

func buildGeneratePrompt(req GenerateRequest) string {
	var sb strings.Builder
	sb.WriteString("Create an exam from the attached documents.\n\n")
	sb.WriteString("RULES:\n")
	sb.WriteString("1. Choose an overall title reflecting the central topic of the documents.\n")
	sb.WriteString("2. Produce exactly this question mix:\n")
	fmt.Fprintf(&sb, "   - %d questions of type 'single-choice' (exactly one correct option).\n", req.NumSingleChoice)
	fmt.Fprintf(&sb, "   - %d questions of type 'multiple-choice' (at least two correct options).\n", req.NumMultipleChoice)
	fmt.Fprintf(&sb, "   - %d questions of type 'open-ended' (free-text answer).\n", req.NumOpenEnded)
	sb.WriteString("3. Every choice question has 4 options; distractors must be plausible but clearly wrong per the documents.\n")
	sb.WriteString("4. Every open-ended question MUST include a complete model answer in 'correctAnswer' and MUST NOT include 'options'.\n")
	sb.WriteString("5. Questions must cover distinct topics and rely only on the attached documents.\n\n")
	sb.WriteString("Respond with a JSON object:\n")
	sb.WriteString(`{"title": "<exam title>", "questions": [{"id": "q1", "type": "single-choice|multiple-choice|open-ended", "questionText": "...", "options": [{"text": "...", "isCorrect": true}], "correctAnswer": "..."}]}`)
	sb.WriteString("\n")
	return sb.String()
}

func buildRegeneratePrompt(exam model.Exam) string {
	sourceFiles := `"` + exam.Title + `"`
	if len(exam.SourceFileNames) > 0 {
		sourceFiles = `"` + strings.Join(exam.SourceFileNames, `", "`) + `"`
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Regenerate the exam titled %q, originally based on the source files %s.\n", exam.Title, sourceFiles)
	sb.WriteString("Produce a completely new set of questions and answers on the same subject.\n\n")
	sb.WriteString("The new exam MUST keep exactly the same structure as the original:\n")
	fmt.Fprintf(&sb, "- %d questions of type 'single-choice'.\n", exam.CountByType(model.SingleChoice))
	fmt.Fprintf(&sb, "- %d questions of type 'multiple-choice'.\n", exam.CountByType(model.MultipleChoice))
	fmt.Fprintf(&sb, "- %d questions of type 'open-ended'.\n", exam.CountByType(model.OpenEnded))
	sb.WriteString("\nRULES:\n")
	sb.WriteString("1. Every 'single-choice' question has 4 options with exactly one marked correct.\n")
	sb.WriteString("2. Every 'multiple-choice' question has 4 options with at least two marked correct.\n")
	sb.WriteString("3. Every 'open-ended' question includes a complete model answer in 'correctAnswer' and no 'options'.\n")
	fmt.Fprintf(&sb, "4. The 'title' property must be %q.\n\n", exam.Title)
	sb.WriteString("Respond with a JSON object:\n")
	sb.WriteString(`{"title": "...", "questions": [{"id": "q1", "type": "...", "questionText": "...", "options": [...], "correctAnswer": "..."}]}`)
	sb.WriteString("\n")
	return sb.String()
}

func buildGradePrompt(q model.Question, answer string) string {
	var sb strings.Builder
	sb.WriteString("QUESTION: " + q.QuestionText + "\n\n")
	sb.WriteString("MODEL ANSWER: " + q.CorrectAnswer + "\n\n")
	fmt.Fprintf(&sb, "MAX POINTS: %d\n\n", q.Points)
	sb.WriteString("STUDENT ANSWER:\n" + answer + "\n\n")
	fmt.Fprintf(&sb, "Return a score between 0 and %d and brief feedback explaining it.\n", q.Points)
	return sb.String()
}

func buildSuggestPrompt(exam model.Exam, kind SuggestionKind, qIndex, oIndex int) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The teacher is editing an exam titled %q.\n\n", exam.Title)

	question, err := questionAt(exam, qIndex, kind)
	if err != nil {
		return "", err
	}

	switch kind {
	case SuggestRewordQuestion:
		fmt.Fprintf(&sb, "Provide 3 alternative phrasings for this question:\n%q\n", question.QuestionText)

	case SuggestRewordOption:
		if oIndex < 0 || oIndex >= len(question.Options) {
			return "", fmt.Errorf("suggestion %s: option index %d out of range", kind, oIndex)
		}
		fmt.Fprintf(&sb, "For the question %q, provide 3 alternative phrasings for this answer option:\n%q\n",
			question.QuestionText, question.Options[oIndex].Text)

	case SuggestIncorrectOption:
		fmt.Fprintf(&sb, "For the question %q, provide 3 plausible but incorrect answer options.\n", question.QuestionText)
		fmt.Fprintf(&sb, "The correct option(s): %s\n", joinOrNone(question.CorrectOptionTexts()))

	case SuggestCorrectOption:
		var incorrect []string
		for _, opt := range question.Options {
			if !opt.IsCorrect {
				incorrect = append(incorrect, opt.Text)
			}
		}
		fmt.Fprintf(&sb, "For the question %q, provide 3 possible correct answer options.\n", question.QuestionText)
		fmt.Fprintf(&sb, "Existing incorrect options: %s\n", joinOrNone(incorrect))

	case SuggestNewOpenQuestion:
		sb.WriteString("Provide 3 new open-ended questions not already covered by the exam.\n")
		fmt.Fprintf(&sb, "Existing questions: %s\n", joinOrNone(questionTexts(exam)))

	default:
		return "", fmt.Errorf("unknown suggestion kind %q", kind)
	}

	sb.WriteString("\nRespond with a JSON object: {\"suggestions\": [\"...\", \"...\", \"...\"]}\n")
	return sb.String(), nil
}

func buildNewChoiceQuestionPrompt(exam model.Exam, qType model.QuestionType) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The teacher is editing an exam titled %q.\n\n", exam.Title)
	fmt.Fprintf(&sb, "Provide 3 new questions of type %q not already covered by the exam.\n", qType)
	fmt.Fprintf(&sb, "Existing questions: %s\n\n", joinOrNone(questionTexts(exam)))
	sb.WriteString("Each suggestion has 'questionText' and exactly 4 'options', each with 'text' and 'isCorrect'.\n")
	if qType == model.SingleChoice {
		sb.WriteString("Exactly one option per question is marked correct.\n")
	} else {
		sb.WriteString("At least two options per question are marked correct.\n")
	}
	sb.WriteString("\nRespond with a JSON object:\n")
	sb.WriteString(`{"suggestions": [{"questionText": "...", "options": [{"text": "...", "isCorrect": true}]}]}`)
	sb.WriteString("\n")
	return sb.String()
}

func buildAssistantPrompt(exam model.Exam, message string) string {
	var sb strings.Builder
	sb.WriteString("--- Current exam ---\n")
	sb.WriteString("Title: " + exam.Title + "\n")
	fmt.Fprintf(&sb, "Duration: %d minutes\n", exam.Duration)
	fmt.Fprintf(&sb, "Total questions: %d\n", len(exam.Questions))
	for i, q := range exam.Questions {
		fmt.Fprintf(&sb, "%d. (%d pts) (%s): %s\n", i+1, q.Points, q.Type, q.QuestionText)
	}
	sb.WriteString("\n--- Teacher message ---\n")
	sb.WriteString(message + "\n")
	return sb.String()
}

// questionAt returns the addressed question for kinds that need one.
// Kinds that operate on the whole exam pass any index and get a zero
// Question back.
func questionAt(exam model.Exam, qIndex int, kind SuggestionKind) (model.Question, error) {
	if kind == SuggestNewOpenQuestion {
		return model.Question{}, nil
	}
	if qIndex < 0 || qIndex >= len(exam.Questions) {
		return model.Question{}, fmt.Errorf("suggestion %s: question index %d out of range", kind, qIndex)
	}
	return exam.Questions[qIndex], nil
}

func questionTexts(exam model.Exam) []string {
	texts := make([]string, len(exam.Questions))
	for i, q := range exam.Questions {
		texts[i] = q.QuestionText
	}
	return texts
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return `"` + strings.Join(items, `", "`) + `"`
}
