package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/kai-companion/internal/db"
	"github.com/suPer8Hu/kai-companion/internal/safety"
)

var flagsLimit int

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Review messages the safety worker flagged",
	Long: `Inspect and resolve safety flags recorded by the worker.

Flags live in the SQL database named by DB_DRIVER and DB_DSN.`,
}

var flagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List unreviewed flags, oldest first",
	Args:  cobra.NoArgs,
	RunE:  runFlagsList,
}

var flagsResolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Mark a flag as reviewed",
	Args:  cobra.ExactArgs(1),
	RunE:  runFlagsResolve,
}

func init() {
	flagsListCmd.Flags().IntVarP(&flagsLimit, "limit", "n", 50, "max flags to show")
	flagsCmd.AddCommand(flagsListCmd)
	flagsCmd.AddCommand(flagsResolveCmd)
}

func openFlagRepo(cmd *cobra.Command) (*safety.Repo, error) {
	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	repo := safety.NewRepo(gdb)
	if err := repo.Migrate(cmd.Context()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return repo, nil
}

func runFlagsList(cmd *cobra.Command, args []string) error {
	repo, err := openFlagRepo(cmd)
	if err != nil {
		return err
	}
	flags, err := repo.ListUnreviewed(cmd.Context(), flagsLimit)
	if err != nil {
		return err
	}
	if len(flags) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No unreviewed flags.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tSESSION\tLABELS\tSENT\tMESSAGE")
	for _, f := range flags {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.UserID, f.SessionID, f.Labels, f.SentAt.Format("2006-01-02 15:04"), truncate(f.Message, 60))
	}
	return w.Flush()
}

func runFlagsResolve(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid flag id %q", args[0])
	}
	repo, err := openFlagRepo(cmd)
	if err != nil {
		return err
	}
	if err := repo.MarkReviewed(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Flag %d marked as reviewed.\n", id)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
