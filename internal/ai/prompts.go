package ai

import "fmt"

const classifySystemPrompt = `You moderate an educational content library.
Decide whether a submission is educational in nature.

Consider:
- Does it provide information or instruction on a particular subject?
- Is it intended to educate or inform the viewer or reader?
- Is it objective and fact-based, or primarily entertainment or promotion?

Return ONLY valid JSON: {"isEducational": true|false, "reason": "<one or two sentences>"}`

const tagSystemPrompt = `You tag educational content so learners can discover it.
Generate 3 to 5 concise tags that reflect the educational focus of the content.

Return ONLY valid JSON: {"tags": ["tag one", "tag two", "tag three"]}`

func classifyUserPrompt(req ClassifyRequest) string {
	return fmt.Sprintf("Title: %s\nDescription: %s\nFile Type: %s", req.Title, req.Description, req.FileType)
}

func tagUserPrompt(req TagRequest) string {
	return fmt.Sprintf("Title: %s\nDescription: %s\nContent Type: %s", req.Title, req.Description, req.ContentType)
}
