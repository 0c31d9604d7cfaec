package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qwiq/internal/modelcue"
)

// ModelsOptions holds flags for the models command.
type ModelsOptions struct {
	*RootOptions
}

// ModelSummary describes one declared model.
type ModelSummary struct {
	Name       string   `json:"name"`
	StoreTypes []string `json:"store_types"`
	Properties []string `json:"properties"`
	Links      []string `json:"links,omitempty"`
	Parent     string   `json:"parent,omitempty"`
}

// NewModelsCommand creates the models command.
func NewModelsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ModelsOptions{RootOptions: rootOpts}

	return &cobra.Command{
		Use:           "models",
		Short:         "List the models declared in the models directory",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(opts, cmd)
		},
	}
}

func runModels(opts *ModelsOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	dir := opts.settings().Models.Dir

	models, err := modelcue.LoadDir(dir)
	if err != nil {
		var ce *modelcue.CompileError
		if errors.As(err, &ce) && ce.Pos.IsValid() {
			formatter.VerboseLog("%s:%d:%d", ce.Pos.Filename(), ce.Pos.Line(), ce.Pos.Column())
		}
		return formatter.Fail(ErrCodeModels, "load models", err)
	}

	summaries := make([]ModelSummary, 0, models.Len())
	for _, name := range models.Names() {
		d, _ := models.Lookup(name)
		s := ModelSummary{Name: d.Name(), StoreTypes: d.StoreTypes(), Properties: []string{}}
		for _, f := range d.Fields() {
			s.Properties = append(s.Properties, f.Property)
		}
		for _, l := range d.Links() {
			s.Links = append(s.Links, fmt.Sprintf("%s:%s", l.Property, l.End))
		}
		if p, ok := d.ParentID(); ok {
			s.Parent = p.Property
		}
		summaries = append(summaries, s)
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}
	for _, s := range summaries {
		fmt.Fprintf(formatter.Writer, "%s [%s]: %s\n", s.Name, strings.Join(s.StoreTypes, ", "), strings.Join(s.Properties, ", "))
	}
	return nil
}
