// Package main provides the entry point for the ha-tools CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gitlab.com/rdelange/ha-tools/configs"
	"gitlab.com/rdelange/ha-tools/internal/config"
	"gitlab.com/rdelange/ha-tools/internal/homeassistant"
	"gitlab.com/rdelange/ha-tools/internal/logging"
	"gitlab.com/rdelange/ha-tools/internal/tools"
)

// App holds the CLI application state and dependencies.
type App struct {
	cfgFile   string
	haURL     string
	haToken   string
	timeout   time.Duration
	argPairs  []string
	argsJSON  string
	eventType string
	force     bool
	rootCmd   *cobra.Command

	// out and events default to stdout and stderr; tests override them.
	out    io.Writer
	events io.Writer
}

// NewApp creates a new CLI application instance with all dependencies.
func NewApp() *App {
	app := &App{
		out:    os.Stdout,
		events: os.Stderr,
	}
	app.rootCmd = app.buildRootCmd()
	app.setupFlags()
	app.addCommands()
	return app
}

// buildRootCmd creates the root cobra command.
func (a *App) buildRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ha-tools",
		Short: "Home Assistant tools for LLM function calling",
		Long: `ha-tools exposes Home Assistant through a set of LLM-callable tools.

Each tool queries the Home Assistant REST API and renders the response
as markdown for the model to reason over. Tool progress is reported as
JSON events on stderr; the final markdown result goes to stdout.`,
		SilenceUsage: true,
	}
}

// setupFlags configures CLI flags and binds them to viper.
func (a *App) setupFlags() {
	a.rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./config.yaml)")
	a.rootCmd.PersistentFlags().StringVar(&a.haURL, "ha-url", "", "Home Assistant URL")
	a.rootCmd.PersistentFlags().StringVar(&a.haToken, "ha-token", "", "Home Assistant long-lived access token")
	a.rootCmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "HTTP request timeout")

	bindPFlag("homeassistant.url", a.rootCmd.PersistentFlags().Lookup("ha-url"))
	bindPFlag("homeassistant.token", a.rootCmd.PersistentFlags().Lookup("ha-token"))
	bindPFlag("homeassistant.timeout", a.rootCmd.PersistentFlags().Lookup("timeout"))
}

// addCommands adds subcommands to the root command.
func (a *App) addCommands() {
	a.rootCmd.AddCommand(a.buildListCmd())
	a.rootCmd.AddCommand(a.buildCallCmd())
	a.rootCmd.AddCommand(a.buildWatchCmd())
	a.rootCmd.AddCommand(a.buildConfigCmd())
	a.rootCmd.AddCommand(a.buildInitCmd())
}

// buildListCmd creates the list subcommand.
func (a *App) buildListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available tools",
		Long:  `List every tool with its description and parameters.`,
		RunE:  a.runList,
	}
}

// buildCallCmd creates the call subcommand.
func (a *App) buildCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Call a tool and print its markdown result",
		Long: `Call a tool by name against the configured Home Assistant instance.

Arguments are passed with repeated --arg key=value pairs, or as a JSON
object with --json for nested values:

  ha-tools call get_entities_by_domain --arg domain=light
  ha-tools call set_entity_attribute --json '{"entity_id": "light.office",
      "domain": "light", "service": "turn_on", "data": {"brightness_pct": 40}}'

Progress events are written to stderr as JSON lines; the result markdown
is written to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runCall,
	}
	cmd.Flags().StringArrayVar(&a.argPairs, "arg", nil, "tool argument as key=value (repeatable)")
	cmd.Flags().StringVar(&a.argsJSON, "json", "", "tool arguments as a JSON object")
	return cmd
}

// buildWatchCmd creates the watch subcommand.
func (a *App) buildWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream Home Assistant events",
		Long: `Subscribe to the Home Assistant event bus over WebSocket and print
each event as a JSON line until interrupted.`,
		RunE: a.runWatch,
	}
	cmd.Flags().StringVar(&a.eventType, "event-type", homeassistant.EventStateChanged, "event type to subscribe to (empty for all)")
	return cmd
}

// buildConfigCmd creates the config subcommand that displays the effective configuration.
func (a *App) buildConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Display the effective configuration",
		Long: `Display the effective configuration with sensitive data masked.

This command shows the configuration that would be used for a tool call,
including values from the config file, environment variables, and CLI flags.
Sensitive data like tokens are masked for security.`,
		RunE: a.runConfig,
	}
}

// buildInitCmd creates the init subcommand that creates configuration files.
func (a *App) buildInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration files",
		Long: `Create configuration files in the current directory.

This command creates:
  - config.yaml: YAML configuration file
  - .env: Environment variables file

If files already exist, they will not be overwritten unless --force is specified.`,
		RunE: a.runInit,
	}
	cmd.Flags().BoolVar(&a.force, "force", false, "overwrite existing configuration files")
	return cmd
}

// runList prints every registered tool with its schema.
func (a *App) runList(_ *cobra.Command, _ []string) error {
	registry := tools.NewRegistry()
	tools.RegisterAllTools(registry)

	for _, tool := range registry.ListTools() {
		fmt.Fprintf(a.out, "%s\n", tool.Name)
		fmt.Fprintf(a.out, "  %s\n", tool.Description)
		for _, param := range sortedKeys(tool.InputSchema.Properties) {
			required := ""
			for _, r := range tool.InputSchema.Required {
				if r == param {
					required = " (required)"
					break
				}
			}
			fmt.Fprintf(a.out, "  --arg %s=...%s  %s\n", param, required, tool.InputSchema.Properties[param].Description)
		}
		fmt.Fprintln(a.out)
	}

	return nil
}

// runCall loads the configuration, calls the named tool, and prints the result.
func (a *App) runCall(cmd *cobra.Command, args []string) error {
	toolName := args[0]

	toolArgs, err := parseToolArgs(a.argsJSON, a.argPairs)
	if err != nil {
		return err
	}

	cfg, logger, err := a.loadRuntime()
	if err != nil {
		return err
	}

	registry := tools.NewRegistry()
	tools.RegisterAllTools(registry)
	registry.LogRegisteredTools(logger)

	handler, ok := registry.GetHandler(toolName)
	if !ok {
		return fmt.Errorf("unknown tool %q (run 'ha-tools list')", toolName)
	}

	client := homeassistant.NewRESTClientWithConfig(
		cfg.HomeAssistant.URL,
		cfg.HomeAssistant.Token,
		homeassistant.RESTClientConfig{Timeout: cfg.HomeAssistant.Timeout},
	)

	logger.Debug("Calling tool", "tool", toolName, "url", client.BaseURL())

	result, err := handler(cmd.Context(), client, toolArgs, a.jsonEmitter())
	if err != nil {
		return fmt.Errorf("calling %s: %w", toolName, err)
	}

	fmt.Fprintln(a.out, result.Markdown)
	if result.IsError {
		return fmt.Errorf("tool %s reported an error", toolName)
	}
	return nil
}

// runWatch subscribes to the event bus and prints events until interrupted.
func (a *App) runWatch(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := a.loadRuntime()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher := homeassistant.NewWatcher(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token)

	logger.Info("Connecting to Home Assistant WebSocket API", "url", cfg.HomeAssistant.URL)
	if err := watcher.Connect(ctx); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("Closing WebSocket connection", "error", closeErr)
		}
	}()

	if err := watcher.Subscribe(ctx, a.eventType); err != nil {
		return fmt.Errorf("subscribing: %w", err)
	}
	logger.Info("Subscribed", "event_type", a.eventType)

	encoder := json.NewEncoder(a.out)
	return watcher.Run(ctx, func(_ context.Context, event homeassistant.WSEvent) {
		if err := encoder.Encode(event); err != nil {
			logger.Error("Encoding event", "error", err)
		}
	})
}

// runInit creates configuration files from embedded templates.
func (a *App) runInit(_ *cobra.Command, _ []string) error {
	created := 0

	wasCreated, err := a.writeConfigFile("config.yaml", configs.ConfigYAML)
	if err != nil {
		return err
	}
	if wasCreated {
		created++
	}

	wasCreated, err = a.writeConfigFile(".env", configs.EnvExample)
	if err != nil {
		return err
	}
	if wasCreated {
		created++
	}

	if created == 0 {
		fmt.Fprintln(a.out, "All configuration files already exist. Nothing to do.")
		return nil
	}

	fmt.Fprintf(a.out, "Created %d configuration file(s) in current directory.\n", created)
	fmt.Fprintln(a.out, "\nNext steps:")
	fmt.Fprintln(a.out, "  1. Edit config.yaml or .env with your Home Assistant settings")
	fmt.Fprintln(a.out, "  2. Run 'ha-tools config' to verify your configuration")
	fmt.Fprintln(a.out, "  3. Run 'ha-tools list' to see the available tools")

	return nil
}

// writeConfigFile writes content to a file if it doesn't already exist.
// Returns true if the file was created, false if it was skipped.
func (a *App) writeConfigFile(filename string, content []byte) (bool, error) {
	if _, err := os.Stat(filename); err == nil && !a.force {
		fmt.Fprintf(a.out, "Skipping %s (already exists)\n", filename)
		return false, nil
	}

	if err := os.WriteFile(filename, content, 0600); err != nil {
		return false, fmt.Errorf("writing %s: %w", filename, err)
	}

	fmt.Fprintf(a.out, "Created %s\n", filename)
	return true, nil
}

// runConfig loads and displays the effective configuration with masked sensitive data.
func (a *App) runConfig(_ *cobra.Command, _ []string) error {
	// Load configuration without validation (allow missing token for display)
	cfg, err := config.LoadForDisplay(a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	masked := cfg.MaskedConfig()

	fmt.Fprintln(a.out, "Effective Configuration")
	fmt.Fprintln(a.out, "=======================")
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Home Assistant:")
	fmt.Fprintf(a.out, "  URL:     %s\n", masked.HomeAssistant.URL)
	fmt.Fprintf(a.out, "  Token:   %s\n", masked.HomeAssistant.Token)
	fmt.Fprintf(a.out, "  Timeout: %s\n", masked.HomeAssistant.Timeout)
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Logging:")
	fmt.Fprintf(a.out, "  Level: %s\n", masked.Logging.Level)

	return nil
}

// loadRuntime loads the validated configuration and builds the logger.
func (a *App) loadRuntime() (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadWithViper(viper.GetViper(), a.cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	logLevel, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Printf("Warning: invalid log level %q, using INFO", cfg.Logging.Level)
		logLevel = logging.LevelInfo
	}
	logger := logging.New(logLevel)
	logging.SetDefault(logger)

	return cfg, logger, nil
}

// jsonEmitter returns an emitter that writes each event as one JSON line.
func (a *App) jsonEmitter() tools.Emitter {
	encoder := json.NewEncoder(a.events)
	return func(_ context.Context, event tools.Event) error {
		return encoder.Encode(event)
	}
}

// parseToolArgs builds the tool argument map from --json and --arg flags.
// --arg pairs override keys from the JSON object.
func parseToolArgs(argsJSON string, pairs []string) (map[string]any, error) {
	args := make(map[string]any)

	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return nil, fmt.Errorf("parsing --json: %w", err)
		}
	}

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --arg %q, expected key=value", pair)
		}
		args[key] = value
	}

	return args, nil
}

// sortedKeys returns the map keys in sorted order.
func sortedKeys(m map[string]tools.JSONSchema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// bindPFlag binds a flag to viper and logs an error if binding fails.
func bindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		log.Printf("warning: failed to bind flag %s: %v", key, err)
	}
}

func main() {
	app := NewApp()
	if err := app.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
