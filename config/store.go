package config

import (
	"os"
	"path/filepath"

	"github.com/kardolus/minebot/internal"
	"gopkg.in/yaml.v3"
)

const (
	defaultName              = "minebot"
	defaultUsername          = "minebot"
	defaultWorldMode         = WorldModeSim
	defaultBridgeURL         = "ws://localhost:3001/bridge"
	defaultLLMProvider       = "openai"
	defaultModel             = "gpt-4o-mini"
	defaultLLMTimeoutSeconds = 60
	defaultMemorySize        = 10
	defaultFailureThreshold  = 2
	defaultMaxFailureCount   = 3
	defaultCoderMaxRetries   = 3
	defaultStepLimit         = 300
	defaultIdlePollMillis    = 1000
	defaultBackoffMillis     = 5000
	defaultIdleNudgePolls    = 60
	defaultObserveRadius     = 5
	defaultEntityRadius      = 10
	defaultSpatialRadius     = 12

	configFileName = "config.yaml"
)

//go:generate mockgen -destination=configmocks_test.go -package=config_test github.com/kardolus/minebot/config ConfigStore
type ConfigStore interface {
	Read() (Config, error)
	ReadDefaults() Config
	Write(Config) error
}

// Ensure FileIO implements ConfigStore interface
var _ ConfigStore = &FileIO{}

type FileIO struct {
	configFilePath string
}

func New() *FileIO {
	configPath, _ := getPath()

	return &FileIO{
		configFilePath: configPath,
	}
}

func (f *FileIO) WithConfigPath(configFilePath string) *FileIO {
	f.configFilePath = configFilePath
	return f
}

func (f *FileIO) Path() string {
	return f.configFilePath
}

func (f *FileIO) Read() (Config, error) {
	return parseFile(f.configFilePath)
}

func (f *FileIO) ReadDefaults() Config {
	dataDir, _ := internal.GetDataHome()

	return Config{
		Name:              defaultName,
		Username:          defaultUsername,
		WorldMode:         defaultWorldMode,
		BridgeURL:         defaultBridgeURL,
		LLMProvider:       defaultLLMProvider,
		Model:             defaultModel,
		LLMTimeoutSeconds: defaultLLMTimeoutSeconds,
		MemorySize:        defaultMemorySize,
		FailureThreshold:  defaultFailureThreshold,
		MaxFailureCount:   defaultMaxFailureCount,
		CoderMaxRetries:   defaultCoderMaxRetries,
		StepLimit:         defaultStepLimit,
		IdlePollMillis:    defaultIdlePollMillis,
		BackoffMillis:     defaultBackoffMillis,
		IdleNudgePolls:    defaultIdleNudgePolls,
		ObserveRadius:     defaultObserveRadius,
		EntityRadius:      defaultEntityRadius,
		SpatialRadius:     defaultSpatialRadius,
		DataDir:           dataDir,
	}
}

func (f *FileIO) Write(config Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.configFilePath), 0o755); err != nil {
		return err
	}

	return os.WriteFile(f.configFilePath, data, 0o600)
}

func getPath() (string, error) {
	homeDir, err := internal.GetConfigHome()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, configFileName), nil
}

func parseFile(fileName string) (Config, error) {
	var result Config

	buf, err := os.ReadFile(fileName)
	if err != nil {
		return Config{}, err
	}

	if err := yaml.Unmarshal(buf, &result); err != nil {
		return Config{}, err
	}

	return result, nil
}
