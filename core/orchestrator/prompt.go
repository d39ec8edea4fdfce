package orchestrator

import "fmt"

// ArchitectPrompt is the system prompt of the planning call.
func ArchitectPrompt(minAgents, maxAgents int) string {
	return fmt.Sprintf(`Respond with JSON only: {"plan":[...],"inputs":[...]}.
"plan": %d-%d agents, each { "agentName","systemInstruction","initialTask","stage","stageLabel","branch","next","dependsOn" }.
"stage" is a number; agents sharing a stage run in parallel. "next" and "dependsOn" list other agentNames. "branch" names a parallel track.
"inputs": up to 3 items, each { "title","type","sample" } where "type" is "text","csv", or "json". Keep sentences short.`, minAgents, maxAgents)
}
