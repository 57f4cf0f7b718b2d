package engine

import (
	"fmt"

	"github.com/openclaw/instant-agent/internal/task"
)

func researchPrompt(goal, memoryContext string) string {
	return fmt.Sprintf(`Query: %s

Previous execution context:
%s

Research this query thoroughly. What information do you need to execute this successfully?`, goal, memoryContext)
}

func planPrompt(goal, research, memoryContext string) string {
	return fmt.Sprintf(`Original Query: %s

Research Summary:
%s

Memory Context:
%s

Create a detailed execution plan with specific steps.`, goal, research, memoryContext)
}

func verifyPrompt(spec task.StepSpec, result string) string {
	return fmt.Sprintf(`Step: %s
Command: %s
Result: %s

Did this step succeed? Should we continue, retry, or replan?`, spec.Description, spec.Command, result)
}
