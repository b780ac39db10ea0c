package config

// ModelConfig controls which model a turn talks to and the limits the
// AgentRunner enforces while it does so.
type ModelConfig struct {
	// Default is the model string passed to the ModelAdapter when an Agent
	// doesn't name one of its own.
	Default string `yaml:"default"`

	MaxTokens int64 `yaml:"max_tokens"`

	// MaxModelCalls caps model calls within a single turn (the "max-turns"
	// runaway guard), matching the teacher's default of 200.
	MaxModelCalls int `yaml:"max_model_calls"`

	// Concurrency bounds parallel tool-handler execution within a model
	// call, matching the teacher's ExecutorConfig.MaxConcurrency default of 5.
	Concurrency int `yaml:"concurrency"`

	EnableThinking       bool  `yaml:"enable_thinking"`
	ThinkingBudgetTokens int64 `yaml:"thinking_budget_tokens"`
}
