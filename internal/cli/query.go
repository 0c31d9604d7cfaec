package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/qwiq"
	"github.com/roach88/qwiq/internal/model"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	FilterOptions
	Limit int
}

// GraphEntry is one root item of a traversal and its related items.
type GraphEntry struct {
	ID      int64          `json:"id"`
	Item    model.Record   `json:"item"`
	Related []model.Record `json:"related"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <model>",
		Short: "Run a query and print the mapped items",
		Long: `Run a query over a model and print every result.

--where takes a WIQL condition. Bracketed names that are properties of
the model are read through the model's bindings; anything else is used
as a field reference. With --children each result is printed with its
children; with --parents each parent of the results is printed with the
results under it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	addFilterFlags(cmd, &opts.FilterOptions)
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "stop after this many results (0 for all)")

	return cmd
}

func runQuery(opts *QueryOptions, modelName string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	sess, err := opts.openSession(formatter)
	if err != nil {
		return err
	}
	defer sess.Close()

	root, err := sess.model(formatter, modelName)
	if err != nil {
		return err
	}
	q, err := opts.build(sess.client, root)
	if err != nil {
		return formatter.Fail(ErrCodeSyntax, "parse query", err)
	}

	name, end, traverse, err := opts.traversal()
	if err != nil {
		return formatter.Fail(ErrCodeCommand, "parse flags", err)
	}
	if traverse {
		related, err := sess.model(formatter, name)
		if err != nil {
			return err
		}
		var g *qwiq.Graph[model.Record, model.Record]
		if end == qwiq.EndChildren {
			g, err = qwiq.Children(ctx, q, related)
		} else {
			g, err = qwiq.Parents(ctx, q, related)
		}
		if err != nil {
			return formatter.Fail(ErrCodeCommand, "run query", err)
		}
		return outputGraph(formatter, g, opts.Limit)
	}

	items, err := q.Items(ctx)
	if err != nil {
		return formatter.Fail(ErrCodeCommand, "run query", err)
	}
	records := []model.Record{}
	for r, err := range items {
		if err != nil {
			return formatter.Fail(ErrCodeCommand, "read results", err)
		}
		records = append(records, r)
		if opts.Limit > 0 && len(records) == opts.Limit {
			break
		}
	}
	formatter.VerboseLog("%d item(s)", len(records))

	if formatter.Format == "json" {
		return formatter.Success(records)
	}
	for _, r := range records {
		fmt.Fprintln(formatter.Writer, formatRecord(r))
	}
	return nil
}

func outputGraph(f *OutputFormatter, g *qwiq.Graph[model.Record, model.Record], limit int) error {
	entries := make([]GraphEntry, 0, g.Len())
	for _, e := range g.Entries {
		if limit > 0 && len(entries) == limit {
			break
		}
		entries = append(entries, GraphEntry{ID: e.ID, Item: e.Key, Related: e.Related})
	}
	f.VerboseLog("%d root(s)", len(entries))

	if f.Format == "json" {
		return f.Success(entries)
	}
	for _, e := range entries {
		writeEntry(f.Writer, e)
	}
	return nil
}

func writeEntry(w io.Writer, e GraphEntry) {
	fmt.Fprintf(w, "%d: %s\n", e.ID, formatRecord(e.Item))
	if len(e.Related) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, r := range e.Related {
		fmt.Fprintf(w, "  %s\n", formatRecord(r))
	}
}

// formatRecord prints a record as space separated name=value pairs,
// values first, then links, then the parent id.
func formatRecord(r model.Record) string {
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(r.Values)) {
		parts = append(parts, k+"="+formatValue(r.Values[k]))
	}
	for _, k := range slices.Sorted(maps.Keys(r.Links)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, r.Links[k]))
	}
	if r.ParentID != nil {
		parts = append(parts, fmt.Sprintf("parent=%d", *r.ParentID))
	}
	return strings.Join(parts, " ")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return fmt.Sprintf("%q", x)
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}
