package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qwiq/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
}

// SeedResult reports what a seed wrote and where.
type SeedResult struct {
	Store string `json:"store"`
	store.SeedStats
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load a YAML fixture into the store",
		Long: `Load work item types, fields, items and links from a YAML fixture.

The store is created if it does not exist. Seeding the same fixture
again leaves the store unchanged.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, args[0], cmd)
		},
	}

	return cmd
}

func runSeed(opts *SeedOptions, fixturePath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	fixture, err := store.LoadFixture(fixturePath)
	if err != nil {
		return formatter.Fail(ErrCodeFixture, "load fixture", err)
	}
	formatter.VerboseLog("Fixture %s: %d type(s), %d field(s), %d item(s), %d link(s)",
		fixturePath, len(fixture.Types), len(fixture.Fields), len(fixture.Items), len(fixture.Links))

	s, err := opts.openStore(formatter)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.Seed(cmd.Context(), fixture)
	if err != nil {
		return formatter.Fail(ErrCodeFixture, "seed store", err)
	}

	result := SeedResult{Store: opts.settings().Store.Path, SeedStats: stats}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Seeded %d type(s), %d field(s), %d item(s), %d link(s) into %s\n",
		stats.Types, stats.Fields, stats.Items, stats.Links, result.Store)
	return nil
}
