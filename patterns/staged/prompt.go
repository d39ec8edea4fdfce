package staged

import (
	"fmt"
	"strings"

	"github.com/leofalp/stageflow/core/plan"
	"github.com/leofalp/stageflow/internal/utils"
)

const (
	agentAnswerStyle = "Answer in <=50 words using short bullet sentences."
	defaultTask      = "Next step."
	noPreviousOutput = "None yet."

	// SummaryInstruction is the system prompt of the conclusion call.
	SummaryInstruction = "Summarize in <=120 words and include 2 follow-up recommendations."

	// SummaryExcerptLimit caps each agent output quoted in the conclusion
	// prompt.
	SummaryExcerptLimit = 200
)

// AgentSystemPrompt appends the answer style to an agent's instruction.
func AgentSystemPrompt(instruction string) string {
	instruction = strings.TrimRight(strings.TrimSpace(instruction), ". ")
	if instruction == "" {
		return agentAnswerStyle
	}
	return instruction + ". " + agentAnswerStyle
}

// AgentUserPrompt renders the user turn an agent receives. previous is the
// already truncated rolling context.
func AgentUserPrompt(problem, data, task, previous string) string {
	if strings.TrimSpace(task) == "" {
		task = defaultTask
	}
	if strings.TrimSpace(previous) == "" {
		previous = noPreviousOutput
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Problem:\n%s\n\n", problem)
	fmt.Fprintf(&b, "Input Data:\n%s\n\n", data)
	fmt.Fprintf(&b, "Task:\n%s\n\n", task)
	fmt.Fprintf(&b, "Previous Output:\n%s\n", previous)
	return b.String()
}

// ContextBlock tags an agent's text for the rolling context.
func ContextBlock(phase float64, agentName, text string) string {
	return fmt.Sprintf("[Stage %s · %s]\n%s", plan.FormatPhase(phase), agentName, strings.TrimSpace(text))
}

// SummaryUserPrompt renders the conclusion prompt from the problem, the
// formatted data and the finished outputs, in the order given.
func SummaryUserPrompt(problem, data string, outputs []ExecutionOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Problem:\n%s\n\n", problem)
	fmt.Fprintf(&b, "Input Data:\n%s\n\n", data)
	b.WriteString("Agent Outputs:")
	n := 0
	for _, output := range outputs {
		if output.Status != StatusDone || strings.TrimSpace(output.Text) == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "\n%d. %s: %s", n, output.Name, utils.Truncate(strings.TrimSpace(output.Text), SummaryExcerptLimit))
	}
	if n == 0 {
		b.WriteString("\nNone.")
	}
	return b.String()
}
