package forge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Prompt templates are application data, not logic. Each builder combines
// the instruction text with the relevant state snapshot.

func promptClarify(idea string) string {
	return fmt.Sprintf(`You are the scoping expert of Idea Forge. Ask 4 strategic questions (between 3 and 5) that remove the biggest ambiguities in this product idea: %q.
Return ONLY JSON of the form: {"questions": [{"id": "q1", "text": "...", "kind": "text"}]}.
Use "kind": "choice" with an "options" array when a closed question fits better.`, idea)
}

func promptIntent(idea string, answers map[string]string) string {
	return fmt.Sprintf(`Product idea: %q.
Clarification answers: %s.
Extract the core intent. Return ONLY JSON: {"goal": "...", "target": "...", "constraints": ["..."]}.`, idea, compactJSON(answers))
}

func promptModuleMap(intent Intent) string {
	return fmt.Sprintf(`Intent: %s.
Map the product into roughly 4 key functional modules. Return ONLY JSON: {"modules": [{"name": "", "description": "", "features": []}]}.`, compactJSON(intent))
}

// roleTasks holds role-specific task text appended to the expert prompt.
var roleTasks = map[ExpertRole]string{
	RoleComponents: "Produce a minimal design system (palette, typography) and a list of reusable UI components with a technical description and example Tailwind markup for each.",
	RoleArchitect:  "Produce the system architecture, including a component diagram.",
	RoleData:       "Produce the data schema, including an entity-relationship diagram.",
	RoleAuditor:    "Audit the project plan produced so far: risks, gaps, inconsistencies, and a go/no-go recommendation.",
}

func promptExpert(role ExpertRole, state SessionState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the %s expert. Analyze the project: %q.", role.Label(), state.Idea)
	if state.Intent != nil {
		fmt.Fprintf(&b, " Intent: %s.", compactJSON(state.Intent))
	}
	if state.AppMap != nil {
		fmt.Fprintf(&b, " Module map: %s.", compactJSON(state.AppMap))
	}
	if task := roleTasks[role]; task != "" {
		b.WriteString(" " + task)
	}
	b.WriteString(`
Produce an exhaustive strategic document. Always propose 2 variants (A vs B).
Include Mermaid diagrams where useful (Gantt, C4, sequence, ERD, quadrant).
Return ONLY JSON: {"title": "...", "summary": "...", "content": "markdown...", "confidence": 0.0, "vitals": {}, "audit": {}, "variants": []}.`)
	return b.String()
}

func promptSynthesis(state SessionState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a complete HTML/Tailwind prototype for: %q.", state.Idea)
	if state.Intent != nil {
		fmt.Fprintf(&b, " Base it on this intent: %s.", compactJSON(state.Intent))
	}
	if len(state.Artifacts) > 0 {
		b.WriteString(" Expert groundwork:")
		for _, a := range state.Artifacts {
			fmt.Fprintf(&b, " [%s] %s: %s.", a.Role.Label(), a.Title, a.Summary)
		}
	}
	b.WriteString(" Clean responsive layout, modern components. Return raw HTML only, no explanations.")
	return b.String()
}

func promptRefine(artifact Artifact, instruction string) string {
	return fmt.Sprintf(`You are the %s expert. Original document: %s.
Modification instruction: %s.
Rewrite the document, keeping any Mermaid diagrams intact.
Return ONLY JSON: {"title": "...", "summary": "...", "content": "markdown..."}.`, artifact.Role.Label(), artifact.Content, instruction)
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
