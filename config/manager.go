package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Manager struct {
	configStore ConfigStore
	Config      Config
}

func NewManager(cs ConfigStore) *Manager {
	configuration := cs.ReadDefaults()

	userConfig, err := cs.Read()
	if err == nil {
		configuration = replaceByConfigFile(configuration, userConfig)
	}

	return &Manager{configStore: cs, Config: configuration}
}

func (c *Manager) WithEnvironment() *Manager {
	c.Config = replaceByEnvironment(c.Config)
	return c
}

func (c *Manager) APIKeyEnvVarName() string {
	return strings.ToUpper(c.Config.Name) + "_" + "API_KEY"
}

// ShowConfig serializes the current configuration to a YAML string.
func (c *Manager) ShowConfig() (string, error) {
	data, err := yaml.Marshal(c.Config)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// Keys lists every settable key.
func (c *Manager) Keys() []string {
	t := reflect.TypeOf(c.Config)
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		keys = append(keys, t.Field(i).Tag.Get("yaml"))
	}
	sort.Strings(keys)
	return keys
}

// Set changes one key by its yaml name and persists the result.
func (c *Manager) Set(key, value string) error {
	t := reflect.TypeOf(c.Config)
	v := reflect.ValueOf(&c.Config).Elem()

	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("yaml") != key {
			continue
		}
		if err := setField(v.Field(i), value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return c.configStore.Write(c.Config)
	}

	return fmt.Errorf("unknown config key: %s", key)
}

// Validate rejects combinations the agent cannot start with.
func (c *Manager) Validate() error {
	switch c.Config.WorldMode {
	case WorldModeSim:
	case WorldModeBridge:
		if strings.TrimSpace(c.Config.BridgeURL) == "" {
			return errors.New("bridge_url is required when world_mode is bridge")
		}
	default:
		return fmt.Errorf("unsupported world_mode: %q", c.Config.WorldMode)
	}

	if c.Config.StepLimit <= 0 {
		return errors.New("step_limit must be positive")
	}
	return nil
}

// APIKey returns the configured key, falling back to api_key_file.
func (c *Manager) APIKey() (string, error) {
	if key := strings.TrimSpace(c.Config.APIKey); key != "" {
		return key, nil
	}
	if c.Config.APIKeyFile != "" {
		return ReadAPIKeyFile(c.Config.APIKeyFile)
	}
	return "", fmt.Errorf("api key is not set; use %s, api_key or api_key_file", c.APIKeyEnvVarName())
}

func replaceByConfigFile(defaultConfig, userConfig Config) Config {
	t := reflect.TypeOf(defaultConfig)
	vDefault := reflect.ValueOf(&defaultConfig).Elem()
	vUser := reflect.ValueOf(userConfig)

	for i := 0; i < t.NumField(); i++ {
		defaultField := vDefault.Field(i)
		userField := vUser.Field(i)

		switch defaultField.Kind() {
		case reflect.String:
			if userStr := userField.String(); userStr != "" {
				defaultField.SetString(userStr)
			}
		case reflect.Int:
			if userInt := int(userField.Int()); userInt != 0 {
				defaultField.SetInt(int64(userInt))
			}
		case reflect.Bool:
			defaultField.SetBool(userField.Bool())
		}
	}

	return defaultConfig
}

func replaceByEnvironment(configuration Config) Config {
	t := reflect.TypeOf(configuration)
	v := reflect.ValueOf(&configuration).Elem()

	prefix := strings.ToUpper(configuration.Name) + "_"
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("yaml")
		if tag == "name" {
			continue
		}

		if value := os.Getenv(prefix + strings.ToUpper(tag)); value != "" {
			_ = setField(v.Field(i), value)
		}
	}

	return configuration
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(intValue))
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
