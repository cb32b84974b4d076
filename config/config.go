package config

import "time"

const (
	WorldModeSim    = "sim"
	WorldModeBridge = "bridge"
)

type Config struct {
	Name              string `yaml:"name"`
	Username          string `yaml:"username"`
	WorldMode         string `yaml:"world_mode"`
	BridgeURL         string `yaml:"bridge_url"`
	LLMProvider       string `yaml:"llm_provider"`
	APIKey            string `yaml:"api_key"`
	APIKeyFile        string `yaml:"api_key_file"`
	Model             string `yaml:"model"`
	LLMURL            string `yaml:"llm_url"`
	LLMTimeoutSeconds int    `yaml:"llm_timeout_seconds"`

	MemorySize       int `yaml:"memory_size"`
	FailureThreshold int `yaml:"failure_threshold"`
	MaxFailureCount  int `yaml:"max_failure_count"`
	CoderMaxRetries  int `yaml:"coder_max_retries"`
	StepLimit        int `yaml:"step_limit"`
	IdlePollMillis   int `yaml:"idle_poll_millis"`
	BackoffMillis    int `yaml:"backoff_millis"`
	IdleNudgePolls   int `yaml:"idle_nudge_polls"`

	ObserveRadius int `yaml:"observe_radius"`
	EntityRadius  int `yaml:"entity_radius"`
	SpatialRadius int `yaml:"spatial_radius"`

	DataDir     string `yaml:"data_dir"`
	LearnSkills bool   `yaml:"learn_skills"`
	Debug       bool   `yaml:"debug"`
}

func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func (c Config) IdlePoll() time.Duration {
	return time.Duration(c.IdlePollMillis) * time.Millisecond
}

func (c Config) Backoff() time.Duration {
	return time.Duration(c.BackoffMillis) * time.Millisecond
}
