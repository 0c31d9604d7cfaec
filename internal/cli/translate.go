package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qwiq"
)

// TranslateOptions holds flags for the translate command.
type TranslateOptions struct {
	*RootOptions
	FilterOptions
}

// TranslateResult is the WIQL a query would run.
type TranslateResult struct {
	Model string `json:"model"`
	Wiql  string `json:"wiql"`
	Links string `json:"links,omitempty"`
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TranslateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "translate <model>",
		Short: "Print the WIQL a query would run",
		Long: `Translate a query over a model to WIQL without running it.

With --children or --parents the link query of the traversal is printed
as well. Field names and store types are still resolved against the
store.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(opts, args[0], cmd)
		},
	}

	addFilterFlags(cmd, &opts.FilterOptions)

	return cmd
}

func addFilterFlags(cmd *cobra.Command, o *FilterOptions) {
	cmd.Flags().StringVarP(&o.Where, "where", "w", "", "WIQL condition, e.g. \"[Priority] <= 2 AND [System.State] <> 'Closed'\"")
	cmd.Flags().StringVarP(&o.Order, "order", "o", "", "order keys, e.g. \"Priority desc, Title\"")
	cmd.Flags().StringVar(&o.Children, "children", "", "group the children of each result, of this model")
	cmd.Flags().StringVar(&o.Parents, "parents", "", "group the results under their parents, of this model")
}

func runTranslate(opts *TranslateOptions, modelName string, cmd *cobra.Command) error {
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

	result := TranslateResult{Model: root.Name()}
	if !traverse {
		result.Wiql, err = q.Wiql(ctx)
	} else {
		related, rerr := sess.model(formatter, name)
		if rerr != nil {
			return rerr
		}
		if end == qwiq.EndChildren {
			result.Wiql, result.Links, err = qwiq.ChildrenWiql(ctx, q, related)
		} else {
			result.Wiql, result.Links, err = qwiq.ParentsWiql(ctx, q, related)
		}
	}
	if err != nil {
		return formatter.Fail(ErrCodeCommand, "translate query", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintln(formatter.Writer, result.Wiql)
	if result.Links != "" {
		fmt.Fprintln(formatter.Writer, result.Links)
	}
	return nil
}
