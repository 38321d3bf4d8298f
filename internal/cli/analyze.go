package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/agentic-analyst/internal/config"
	"github.com/AngelCh415/agentic-analyst/internal/models"
)

func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [QUERY]",
		Short: "Run one analysis against the configured dataset",
		Long: `Run the planning, retrieving, diagnosing and recommending stages for a
single query and print the live log followed by insights and creative
recommendations.
Example: analyst analyze "Why did ROAS drop last week?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return runAnalyze(cmd, *cfg, strings.Join(args, " "), asJSON)
		},
	}
	cmd.Flags().Bool("json", false, "print the finished session as JSON instead of rendered output")
	return cmd
}

func runAnalyze(cmd *cobra.Command, cfg config.Config, query string, asJSON bool) error {
	out := cmd.OutOrStdout()
	logger := newLogger(cmd, cfg, os.Stderr)

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	onLog := func(e models.AgentLogEntry) { fmt.Fprintln(out, renderEntry(e)) }
	if asJSON {
		onLog = nil
	} else {
		fmt.Fprintln(out, titleStyle.Render("Query: "+query))
		fmt.Fprintln(out, renderTotals(a.svc.Context().Totals))
	}

	sess, runErr := a.svc.Analyze(cmd.Context(), query, onLog)
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sess); err != nil {
			return err
		}
		return runErr
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, renderSession(sess))
	return runErr
}
