package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"kanban/internal/confirm"
	"kanban/internal/reconcile"
)

// syncCmd runs one manual pull request sync.
func syncCmd(flags *rootFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Check every linked pull request once and update drifted tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			prompter := &linePrompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout(), yes: yes}
			engine := reconcile.New(a.board.Tasks, a.prs, prompter, reconcile.Options{Settings: a.store, Logger: a.logger})
			report, err := engine.SyncNow(ctx)
			if flushErr := a.board.Flush(ctx); flushErr != nil {
				a.logger.Error("flush after sync failed", slog.String("error", flushErr.Error()))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (checked %d, failed %d, moved %d)\n",
				report.Message(), report.Checked, report.Failed, report.Moved)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept every suggested column move")
	return cmd
}

// linePrompter answers confirmations on a terminal.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
	yes bool
}

// Show prints the prompt and reads a y/N answer. End of input declines.
func (p *linePrompter) Show(ctx context.Context, prompt confirm.Prompt) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(p.out, "%s\n%s [y/N] ", prompt.Title, prompt.Message)
	if p.yes {
		fmt.Fprintln(p.out, "y")
		return true, nil
	}
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
