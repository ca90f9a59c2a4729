package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zhhbo/Examine/internal/config"
	"github.com/zhhbo/Examine/internal/pipeline"
	"github.com/zhhbo/Examine/internal/store"
	"github.com/zhhbo/Examine/pkg/index"
)

// feedDocument is the JSON-lines wire form of one operation.
type feedDocument struct {
	ID       string      `json:"id"`
	Category string      `json:"category"`
	Fields   []feedField `json:"fields"`
}

type feedField struct {
	Name     string `json:"name"`
	Value    any    `json:"value"`
	Type     string `json:"type"`
	Sortable bool   `json:"sortable"`
}

func newFeedCmd() *cobra.Command {
	var (
		deleteMode bool
		overwrite  bool
	)

	cmd := &cobra.Command{
		Use:   "feed [files...]",
		Short: "Submit documents from JSON-lines files",
		Long: `Read documents from JSON-lines files (or stdin with "-") and submit
them through the indexing pipeline. Each line is one document:

  {"id":"1","category":"article","fields":[{"name":"title","value":"Hello","type":"string"}]}

With --delete, each line only needs an "id" and the documents are
removed instead of indexed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(cmd.Context(), cmd.OutOrStdout(), args, deleteMode, overwrite)
		},
	}

	cmd.Flags().BoolVar(&deleteMode, "delete", false, "Delete the listed document ids instead of adding")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Discard any existing store before indexing")
	return cmd
}

func runFeed(ctx context.Context, out io.Writer, files []string, deleteMode, overwrite bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.New(store.Options{
		Path:      cfg.Store.Path,
		CacheSize: cfg.Store.CacheSize,
		Overwrite: overwrite,
	})
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	// The CLI always drains inline so the process cannot exit with
	// operations still queued.
	idxCfg := cfg.Index
	idxCfg.Mode = config.ModeSynchronous
	pipe := pipeline.New(st, idxCfg, index.LogSink{})

	// Parse all files concurrently, then submit as one batch so the
	// pipeline's dedup sees the whole submission.
	batches := make([][]index.Operation, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			ops, err := readOperations(gctx, file, deleteMode)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			batches[i] = ops
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var ops []index.Operation
	for _, b := range batches {
		ops = append(ops, b...)
	}
	if len(ops) == 0 {
		fmt.Fprintln(out, "nothing to submit")
		return nil
	}

	if err := pipe.Submit(ctx, ops); err != nil {
		return err
	}

	count, err := st.DocCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "submitted %d operations, store now holds %d documents\n", len(ops), count)
	return nil
}

// readOperations parses one JSON-lines file into operations.
func readOperations(ctx context.Context, path string, deleteMode bool) ([]index.Operation, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var ops []index.Operation
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var fd feedDocument
		if err := json.Unmarshal(text, &fd); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if deleteMode {
			ops = append(ops, index.Delete(fd.ID))
			continue
		}
		ops = append(ops, index.Add(toItem(fd)))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

func toItem(fd feedDocument) index.Item {
	item := index.Item{ID: fd.ID, Category: fd.Category}
	for _, f := range fd.Fields {
		ft, _ := index.ParseFieldType(f.Type)
		item.Fields = append(item.Fields, index.Field{
			Name:     f.Name,
			Value:    f.Value,
			Type:     ft,
			Sortable: f.Sortable,
		})
	}
	return item
}
