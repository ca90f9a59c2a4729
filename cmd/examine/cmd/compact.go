package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zhhbo/Examine/internal/store"
)

func newCompactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Force a full compaction of the store",
		Long: `Rebuilds the persistent index into a fresh set of segments and swaps
it in. Requires that no writer is active.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(cmd.OutOrStdout())
		},
	}
}

func runCompact(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.New(store.Options{
		Path:      cfg.Store.Path,
		CacheSize: cfg.Store.CacheSize,
	})
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if !st.Exists() {
		return fmt.Errorf("store %s does not exist", cfg.Store.Path)
	}

	w, err := st.OpenWriter(false)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := w.Compact(true); err != nil {
		return err
	}

	count, err := st.DocCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "compacted %s (%d documents)\n", cfg.Store.Path, count)
	return nil
}
