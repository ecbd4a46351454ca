package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hochfrequenz/script-agent/internal/attemptstore"
	"github.com/hochfrequenz/script-agent/internal/domain"
	"github.com/hochfrequenz/script-agent/tui"
)

var (
	historyCommand string
	historyLimit   int
	historyTUI     bool
)

func init() {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the interactive speak/type loop",
		RunE:  runInteractive,
	}
	rootCmd.AddCommand(runCmd)

	doCmd := &cobra.Command{
		Use:   "do COMMAND...",
		Short: "Generate, approve and run a single command",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDo,
	}
	rootCmd.AddCommand(doCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded attempts, newest first",
		RunE:  runHistory,
	}
	historyCmd.Flags().StringVar(&historyCommand, "command", "", "only attempts for this exact command")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of attempts (0 = all)")
	historyCmd.Flags().BoolVar(&historyTUI, "tui", false, "browse attempts interactively")
	rootCmd.AddCommand(historyCmd)

	showCmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one attempt including its script",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	rootCmd.AddCommand(showCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show attempt counts by outcome",
		RunE:  runStats,
	}
	rootCmd.AddCommand(statsCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	opts := attemptstore.ListOptions{Command: historyCommand, Limit: historyLimit}

	if historyTUI {
		model := tui.NewModel(tui.ModelConfig{
			Command: historyCommand,
			Load: func(ctx context.Context) ([]*domain.Attempt, error) {
				return a.store.List(ctx, opts)
			},
		})
		_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
		return err
	}

	attempts, err := a.store.List(cmd.Context(), opts)
	if err != nil {
		return err
	}
	printHistory(os.Stdout, attempts)
	return nil
}

func printHistory(out io.Writer, attempts []*domain.Attempt) {
	if len(attempts) == 0 {
		fmt.Fprintln(out, "No attempts recorded yet.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSTATUS\tCOMMAND")
	for _, at := range attempts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			at.ID, at.CreatedAt.Local().Format("2006-01-02 15:04:05"), at.Status(), at.Command)
	}
	w.Flush()
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid attempt id %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	at, err := a.store.Get(cmd.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("attempt %d not found", id)
	}
	if err != nil {
		return err
	}
	printAttempt(os.Stdout, at)
	return nil
}

func printAttempt(out io.Writer, at *domain.Attempt) {
	fmt.Fprintf(out, "ID:       %d\n", at.ID)
	fmt.Fprintf(out, "Created:  %s\n", at.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Command:  %s\n", at.Command)
	fmt.Fprintf(out, "Status:   %s\n", at.Status())
	if at.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:    %s\n", at.ErrorMessage)
	}
	if at.Feedback != "" {
		fmt.Fprintf(out, "Feedback: %s\n", at.Feedback)
	}
	fmt.Fprintf(out, "\n%s\n", at.Script)
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	printStats(os.Stdout, st)
	return nil
}

func printStats(out io.Writer, st attemptstore.Stats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Attempts:\t%d\n", st.Total)
	fmt.Fprintf(w, "Distinct commands:\t%d\n", st.Commands)
	fmt.Fprintf(w, "Succeeded:\t%d\n", st.Succeeded)
	fmt.Fprintf(w, "Failed:\t%d\n", st.Failed)
	fmt.Fprintf(w, "Confirmed by user:\t%d\n", st.VerifiedSuccess)
	fmt.Fprintf(w, "Rejected by user:\t%d\n", st.VerifiedFailure)
	w.Flush()
}
