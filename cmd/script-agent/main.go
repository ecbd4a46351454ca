package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	logLevel   string
	verifyFlag bool

	rootCmd = &cobra.Command{
		Use:   "script-agent",
		Short: "Turn natural-language commands into AppleScript and run them",
		Long: `script-agent asks a language model for AppleScript that carries out a spoken
or typed command, shows it for approval and runs it with osascript.
Every attempt is logged, and the latest successful script for the same
command is offered to the model as a hint next time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInteractive,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "attempt log database path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "diagnostic log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&verifyFlag, "verify", false, "ask whether each successful script did what was wanted")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
