package ai

import "sort"

// ModelInfo is the context window of a known model, used for overflow warnings.
type ModelInfo struct {
	Name          string `json:"name"`
	ContextTokens int    `json:"context_tokens"`
}

var models = map[string]ModelInfo{
	"openai/gpt-4o-mini":                {Name: "openai/gpt-4o-mini", ContextTokens: 128000},
	"openai/gpt-4o":                     {Name: "openai/gpt-4o", ContextTokens: 128000},
	"openai/gpt-4.1-mini":               {Name: "openai/gpt-4.1-mini", ContextTokens: 128000},
	"anthropic/claude-3.5-sonnet":       {Name: "anthropic/claude-3.5-sonnet", ContextTokens: 200000},
	"anthropic/claude-3-haiku":          {Name: "anthropic/claude-3-haiku", ContextTokens: 200000},
	"google/gemini-1.5-flash":           {Name: "google/gemini-1.5-flash", ContextTokens: 1000000},
	"meta-llama/llama-3.1-8b-instruct":  {Name: "meta-llama/llama-3.1-8b-instruct", ContextTokens: 131072},
	"meta-llama/llama-3.1-70b-instruct": {Name: "meta-llama/llama-3.1-70b-instruct", ContextTokens: 131072},
	"deepseek/deepseek-r1:free":         {Name: "deepseek/deepseek-r1:free", ContextTokens: 128000},
	// local (Ollama) tags
	"llama3:latest":           {Name: "llama3:latest", ContextTokens: 8192},
	"llama3.1:8b-instruct":    {Name: "llama3.1:8b-instruct", ContextTokens: 8192},
	"mistral:7b-instruct":     {Name: "mistral:7b-instruct", ContextTokens: 8192},
	"phi3:mini-4k-instruct":   {Name: "phi3:mini-4k-instruct", ContextTokens: 4096},
	"phi3:mini-128k-instruct": {Name: "phi3:mini-128k-instruct", ContextTokens: 128000},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// Catalog lists the known models sorted by name.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, mi := range models {
		out = append(out, mi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ContextOverflow reports by how many tokens prompt plus completion exceed
// the model's window. Unknown models never overflow.
func ContextOverflow(model string, promptTokens, maxTokens int) (int, bool) {
	mi, ok := LookupModel(model)
	if !ok || mi.ContextTokens <= 0 {
		return 0, false
	}
	over := promptTokens + maxTokens - mi.ContextTokens
	if over <= 0 {
		return 0, false
	}
	return over, true
}
