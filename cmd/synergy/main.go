// Package main provides the Synergy CLI entry point: an interactive
// terminal client for LLM chat providers with a curated context stack and
// serializable conversation history.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/abiosoft/ishell/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/rmloveland/synergy/internal/logger"
	"github.com/rmloveland/synergy/internal/shell"
)

var (
	logLevel   string
	logFile    string
	root       string
	offline    bool
	startModel string
	testMode   bool
	version    = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "synergy",
	Short: "Synergy - terminal client for LLM chat providers",
	Long: `Synergy is an interactive terminal client for large-language-model chat
providers, with a curated context stack of files and command captures
attached to every outgoing query, and a session history that survives
across runs via dump/load.`,
	Run: runShell,
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start interactive shell mode (default)",
	Run:   runShell,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("Synergy v%s\n", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&root, "root", "", "Root directory for the .env config and dumps [default: $SYNERGY_ROOT or cwd]")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Skip HTTP and return a canned provider response")
	rootCmd.PersistentFlags().StringVar(&startModel, "model", "", "Active model shortname at startup")
	rootCmd.PersistentFlags().BoolVar(&testMode, "test-mode", false, "Run in deterministic test mode")

	for _, binding := range []struct {
		key  string
		flag string
	}{
		{"log-level", "log-level"},
		{"log-file", "log-file"},
		{"root", "root"},
		{"offline", "offline"},
		{"model", "model"},
		{"test-mode", "test-mode"},
	} {
		if err := viper.BindPFlag(binding.key, rootCmd.PersistentFlags().Lookup(binding.flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", binding.flag, err)
			os.Exit(1)
		}
	}

	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(versionCmd)

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if err := logger.Configure(logLevel, logFile, testMode); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
}

// resolveRoot picks SYNERGY_ROOT with precedence flag > env > cwd.
func resolveRoot() string {
	if root != "" {
		return root
	}
	if envRoot := os.Getenv("SYNERGY_ROOT"); envRoot != "" {
		return envRoot
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

func runShell(_ *cobra.Command, _ []string) {
	logger.Info("Starting Synergy", "version", version)

	synergyRoot := resolveRoot()

	if offline {
		os.Setenv("SYNERGY_OFFLINE", "1")
	}

	processor, err := shell.NewProcessor(synergyRoot)
	if err != nil {
		logger.Fatal("Failed to initialize services", "error", err)
	}

	if startModel != "" {
		if out, _ := processor.Dispatch(",model " + startModel); strings.HasPrefix(out, "ERROR") {
			logger.Warn("Failed to set startup model", "model", startModel, "detail", out)
		}
	}

	logger.Info("Services initialized successfully")

	sh := ishell.New()
	sh.SetPrompt("synergy> ")
	sh.DeleteCmd("exit")
	sh.DeleteCmd("help")

	if term.IsTerminal(int(os.Stdin.Fd())) {
		sh.Println(fmt.Sprintf("Synergy v%s - terminal client for LLM chat providers", version))
		sh.Println("Type ',help' for commands or ',exit' to quit.")
	}

	sh.NotFound(processor.ProcessInput)

	sh.Run()

	if msg, err := processor.Session().AutodumpIfNeeded(); err != nil {
		logger.Error("Autodump failed", "error", err)
	} else if msg != "" {
		fmt.Println(msg)
	}
}
