package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fivethreefive/legisync/internal/config"
	"github.com/fivethreefive/legisync/internal/record"
	"github.com/fivethreefive/legisync/internal/store"
)

func newUntrackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "untrack <bill|vote> <id>",
		Short: "Stop tracking a record",
		Long: `Decommission a stored record. Untracked records are never published or amended
again; their snapshot is kept. Bill ids without a congress suffix get the configured
congress appended.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, key, err := openRecord(args[0], args[1])
			if err != nil {
				return err
			}

			err = st.Update(cmd.Context(), key, func(rec record.Record) error {
				rec.Book().Tracking = false
				return nil
			})
			if err != nil {
				if store.IsNotFound(err) {
					return fmt.Errorf("no stored %s %q", key.Kind, key.ID)
				}
				return fmt.Errorf("failed to untrack %s: %w", key, err)
			}

			slog.Info("Record untracked", "key", key.String())
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s untracked\n", key)
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show <bill|vote> [id]",
		Short: "Print a stored record",
		Long: `Print the stored snapshot of a record as JSON. Without an id, the ids of all
stored records of that kind are listed.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runShow,
	}
	showCmd.Flags().Bool("votes", false, "Include the votes a bill references")
	return showCmd
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		kind, err := record.ParseKind(args[0])
		if err != nil {
			return err
		}
		_, st, err := openStore()
		if err != nil {
			return err
		}
		keys, err := st.List(ctx, kind)
		if err != nil {
			return err
		}
		for _, key := range keys {
			_, _ = fmt.Fprintln(out, key.ID)
		}
		return nil
	}

	st, key, err := openRecord(args[0], args[1])
	if err != nil {
		return err
	}
	rec, err := st.Load(ctx, key)
	if err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("no stored %s %q", key.Kind, key.ID)
		}
		return err
	}

	withVotes, err := cmd.Flags().GetBool("votes")
	if err != nil {
		return err
	}
	bill, isBill := rec.(*record.Bill)
	if !withVotes || !isBill {
		return writeJSON(out, rec)
	}

	votes, err := st.ResolveVotes(ctx, bill)
	if err != nil {
		return err
	}
	return writeJSON(out, struct {
		*record.Bill
		ResolvedVotes []*record.Vote `json:"resolvedVotes"`
	}{Bill: bill, ResolvedVotes: votes})
}

func openStore() (*config.Config, *store.FileStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

// openRecord opens the store and builds the key named on the command line.
func openRecord(kindArg, id string) (*store.FileStore, record.Key, error) {
	kind, err := record.ParseKind(kindArg)
	if err != nil {
		return nil, record.Key{}, err
	}
	cfg, st, err := openStore()
	if err != nil {
		return nil, record.Key{}, err
	}
	if kind == record.KindBill {
		id = cfg.QualifyBillID(id)
	}
	key := record.Key{Kind: kind, ID: id}
	if err := key.Validate(); err != nil {
		return nil, record.Key{}, err
	}
	return st, key, nil
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
