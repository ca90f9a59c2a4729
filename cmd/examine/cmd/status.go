package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zhhbo/Examine/internal/store"
)

// storeStatus is the machine-readable status output.
type storeStatus struct {
	Path      string `json:"path"`
	Exists    bool   `json:"exists"`
	Locked    bool   `json:"locked"`
	Documents uint64 `json:"documents"`
}

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store existence, lock state, and document count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runStatus(out io.Writer, jsonOutput bool) error {
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

	status := storeStatus{
		Path:   cfg.Store.Path,
		Exists: st.Exists(),
		Locked: st.IsLocked(),
	}
	if status.Exists && !status.Locked {
		if count, err := st.DocCount(); err == nil {
			status.Documents = count
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Fprintf(out, "store:     %s\n", status.Path)
	fmt.Fprintf(out, "exists:    %v\n", status.Exists)
	fmt.Fprintf(out, "locked:    %v\n", status.Locked)
	fmt.Fprintf(out, "documents: %d\n", status.Documents)
	return nil
}
