package assistant

import (
	"strings"

	"hercure/internal/agent"
	"hercure/internal/conversation"
	"hercure/internal/risk"
)

const promptRules = `You are a women's health assistant.

RULES:
- Be empathetic and simple, avoid medical jargon
- Do NOT diagnose
- Do NOT suggest medicines
- Explain simply, suggest next steps and what to avoid
- If risk is urgent, advise visiting a doctor
- Never claim to be a doctor and remind the user that you are not one
- Reply in the user's language when possible`

const urgentInstruction = `The risk level is Urgent. Clearly tell the user to see a doctor or visit the nearest health facility as soon as possible.`

// PromptInput is the health context embedded into one model request.
type PromptInput struct {
	Level    risk.Level
	Symptoms []string
	Reasons  []string
	Message  string
}

func BuildPrompt(in PromptInput) string {
	var b strings.Builder
	b.WriteString(promptRules)
	b.WriteString("\n\nHealth context:\n")
	b.WriteString("Risk Level: " + in.Level.String() + "\n")
	b.WriteString("Symptoms: " + joinOrNone(in.Symptoms, ", ") + "\n")
	b.WriteString("Reasons: " + joinOrNone(in.Reasons, "; ") + "\n")
	if in.Level == risk.Urgent {
		b.WriteString("\n" + urgentInstruction + "\n")
	}
	b.WriteString("\nUser message:\n")
	b.WriteString(in.Message)
	b.WriteString("\n")
	return b.String()
}

func joinOrNone(items []string, sep string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, sep)
}

// promptHistory keeps the newest limit turns for the model. limit <= 0
// passes the whole history.
func promptHistory(turns []conversation.Turn, limit int) []agent.Message {
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]agent.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, agent.Message{Role: string(t.Role), Content: t.Content})
	}
	return out
}
