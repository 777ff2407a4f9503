package provider

import (
	"sort"
	"strings"
)

type Family string

const (
	FamilyGemini  Family = "gemini"
	FamilyLlama   Family = "llama"
	FamilyGeneric Family = "generic"
)

// ModelProfile describes a model a provider can be pointed at.
type ModelProfile struct {
	Key          string
	Provider     string
	Model        string
	Family       Family
	ContextLimit int
	Description  string
}

const genericContextLimit = 8192

var Models = map[string]ModelProfile{
	"gemini-flash": {
		Key:          "gemini-flash",
		Provider:     "gemini",
		Model:        defaultGeminiModel,
		Family:       FamilyGemini,
		ContextLimit: 1000000,
		Description:  "Default hosted model, fast with a large context window",
	},
	"gemini-pro": {
		Key:          "gemini-pro",
		Provider:     "gemini",
		Model:        "gemini-2.5-pro",
		Family:       FamilyGemini,
		ContextLimit: 1000000,
		Description:  "Deeper reasoning, slower and costlier",
	},
	"llama3.1": {
		Key:          "llama3.1",
		Provider:     "ollama",
		Model:        defaultOllamaModel,
		Family:       FamilyLlama,
		ContextLimit: 128000,
		Description:  "Default local model served by Ollama",
	},
	"llama3.2": {
		Key:          "llama3.2",
		Provider:     "ollama",
		Model:        "llama3.2",
		Family:       FamilyLlama,
		ContextLimit: 128000,
		Description:  "Smaller local model for slow machines",
	},
	"mistral": {
		Key:          "mistral",
		Provider:     "ollama",
		Model:        "mistral",
		Family:       FamilyLlama,
		ContextLimit: 32000,
		Description:  "Compact local model with a short context",
	},
}

func GetModel(key string) (ModelProfile, bool) {
	m, ok := Models[key]
	return m, ok
}

// ListModels returns the known profiles grouped by provider.
func ListModels() []ModelProfile {
	out := make([]ModelProfile, 0, len(Models))
	for _, m := range Models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// ProfileFor resolves the profile of the model cfg selects, falling back to
// a conservative generic profile for models it does not know.
func ProfileFor(cfg Config) ModelProfile {
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	model := cfg.Model
	switch name {
	case "gemini", "genai":
		name = "gemini"
		if model == "" {
			model = defaultGeminiModel
		}
	case "ollama", "":
		name = "ollama"
		if model == "" {
			model = defaultOllamaModel
		}
	}
	for _, m := range Models {
		if m.Provider == name && m.Model == model {
			return m
		}
	}
	return ModelProfile{
		Key:          model,
		Provider:     name,
		Model:        model,
		Family:       FamilyGeneric,
		ContextLimit: genericContextLimit,
	}
}

// PromptBudget is the share of the context window left for the prompt; the
// rest is kept for the answer.
func (m ModelProfile) PromptBudget() int {
	return m.ContextLimit / 2
}

// EstimateTokens approximates the token count of text from its length.
// Tokenizers average roughly four characters per token for English prose and
// fewer for identifier-heavy text.
func EstimateTokens(text string, family Family) int {
	return int(float64(len(text)) / charsPerToken(family))
}

func charsPerToken(family Family) float64 {
	switch family {
	case FamilyGemini:
		return 3.8
	case FamilyLlama:
		return 3.5
	default:
		return 3.0
	}
}
