package gemini

// defaultMaxPromptChars bounds how much contract text goes into one prompt.
// Over-long documents are analyzed partially, which beats failing outright.
const defaultMaxPromptChars = 30000

func buildAnalysisPrompt(text string, maxChars int) string {
	snippet := text
	if len(snippet) > maxChars {
		snippet = snippet[:maxChars]
	}

	return `You are a legal expert AI.
Analyze the contract text below and return ONLY structured JSON in this exact format:

{
  "summary": "Plain english summary of the contract",
  "clauses": [
    {
      "id": "clause_1",
      "text": "Exact text snippet from contract",
      "riskLevel": "high/medium/low",
      "riskReason": "Explanation of why this is risky"
    }
  ]
}

Contract Text:
` + snippet
}
