package bot

import _ "embed"

//go:embed prompts/system.md
var systemPrompt string

//go:embed prompts/summary.md
var summaryPrompt string

//go:embed prompts/vision.md
var visionPrompt string
