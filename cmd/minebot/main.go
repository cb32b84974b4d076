package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kardolus/minebot/agent"
	"github.com/kardolus/minebot/agent/core"
	"github.com/kardolus/minebot/agent/factory"
	"github.com/kardolus/minebot/config"
	"github.com/kardolus/minebot/internal"
	"github.com/kardolus/minebot/llm"
	"github.com/kardolus/minebot/store"
	"github.com/kardolus/minebot/world"
	"github.com/kardolus/minebot/world/bridge"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const fallbackSecretEnv = "OPENAI_API_KEY"

var (
	consoleMode bool
	simMode     bool
	debugMode   bool
	initialGoal string

	setPair  string
	listKeys bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:           "minebot",
		Short:         "An autonomous Minecraft agent",
		Long:          "minebot observes the world, plans with a language model and acts through a game bridge.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the world and start the agent loop",
		RunE:  run,
	}
	runCmd.Flags().BoolVarP(&consoleMode, "console", "c", false, "Read chat commands from the terminal")
	runCmd.Flags().BoolVar(&simMode, "sim", false, "Use the in-memory simulation world")
	runCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	runCmd.Flags().StringVarP(&initialGoal, "goal", "g", "", "Start with this goal")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration",
		RunE:  showConfig,
	}
	configCmd.Flags().StringVar(&setPair, "set", "", "Set a value, as key=value")
	configCmd.Flags().BoolVar(&listKeys, "list", false, "List the available keys")

	rootCmd.AddCommand(runCmd, configCmd)

	_ = viper.BindPFlag("debug", runCmd.Flags().Lookup("debug"))
	viper.AutomaticEnv()

	internal.InitLogger()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() *config.Manager {
	return config.NewManager(config.New()).WithEnvironment()
}

func showConfig(cmd *cobra.Command, _ []string) error {
	mgr := loadConfig()

	switch {
	case listKeys:
		for _, k := range mgr.Keys() {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	case setPair != "":
		key, value, ok := strings.Cut(setPair, "=")
		if !ok {
			return errors.New("--set expects key=value")
		}
		if err := mgr.Set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", key)
		return nil
	}

	out, err := mgr.ShowConfig()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	mgr := loadConfig()
	if simMode {
		mgr.Config.WorldMode = config.WorldModeSim
	}
	cfg := mgr.Config

	if viper.GetBool("debug") || cfg.Debug {
		internal.SetAllowedLogLevels(zapcore.DebugLevel, zapcore.InfoLevel)
	}
	if err := mgr.Validate(); err != nil {
		return err
	}

	logger := zap.S()
	defer func() { _ = logger.Sync() }()

	apiKey, err := mgr.APIKey()
	if err != nil {
		if apiKey = viper.GetString(fallbackSecretEnv); apiKey == "" {
			return err
		}
	}

	model, err := llm.New(llm.Settings{
		Provider: cfg.LLMProvider,
		APIKey:   apiKey,
		Model:    cfg.Model,
		URL:      cfg.LLMURL,
		Timeout:  cfg.LLMTimeout(),
	})
	if err != nil {
		return err
	}

	logs, err := core.NewLogs(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open agent logs: %w", err)
	}
	defer logs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := newWorld(cfg, logger)
	if err := w.Connect(ctx, world.ConnectConfig{Username: cfg.Username, URL: cfg.BridgeURL}); err != nil {
		return fmt.Errorf("connect to world: %w", err)
	}
	defer w.Close()

	bot, err := factory.New(factory.Deps{
		Clock: core.NewRealClock(),
		World: w,
		LLM:   model,
		Files: store.NewFileStore(cfg.DataDir),
	}, settingsFrom(cfg), logger,
		core.WithHumanLogger(logs.HumanLogger, logs.SyncHuman),
		core.WithDebugLogger(logs.DebugLogger, logs.SyncDebug),
	)
	if err != nil {
		return err
	}

	if goal := strings.TrimSpace(initialGoal); goal != "" {
		bot.Mailbox.Post(agent.GoalDirective(goal))
	}

	logger.Infof("minebot %s connected (%s world), logs in %s", cfg.Username, cfg.WorldMode, logs.Dir)

	if !consoleMode {
		return ignoreCancel(bot.Run(ctx))
	}

	errs := make(chan error, 1)
	go func() { errs <- bot.Run(ctx) }()

	if err := runConsole(ctx, bot.Chat, cmd.OutOrStdout()); err != nil {
		logger.Warnf("console: %v", err)
	}
	stop()
	return ignoreCancel(<-errs)
}

func newWorld(cfg config.Config, logger *zap.SugaredLogger) world.World {
	if cfg.WorldMode == config.WorldModeBridge {
		return bridge.New(bridge.Config{URL: cfg.BridgeURL}, bridge.WithLogger(logger))
	}
	return seededSim()
}

func settingsFrom(cfg config.Config) factory.Settings {
	return factory.Settings{
		Username:         cfg.Username,
		MemorySize:       cfg.MemorySize,
		FailureThreshold: cfg.FailureThreshold,
		MaxFailureCount:  cfg.MaxFailureCount,
		CoderMaxRetries:  cfg.CoderMaxRetries,
		StepLimit:        cfg.StepLimit,
		IdlePoll:         cfg.IdlePoll(),
		Backoff:          cfg.Backoff(),
		IdleNudgePolls:   cfg.IdleNudgePolls,
		ObserveRadius:    cfg.ObserveRadius,
		EntityRadius:     cfg.EntityRadius,
		SpatialRadius:    cfg.SpatialRadius,
		LearnSkills:      cfg.LearnSkills,
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
