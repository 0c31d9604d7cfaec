package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/qwiq/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Config is loaded before any subcommand runs. Tests may set it
	// directly and run a subcommand on its own.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the qwiq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	v := config.New()

	cmd := &cobra.Command{
		Use:   "qwiq",
		Short: "qwiq - typed work item queries",
		Long: `Query a work item store through typed models.

Models are declared in CUE (see models.dir). Queries are translated to
WIQL, run against the SQLite store (see store.path) and mapped back to
the model's properties.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.ConfigFile != "" {
				v.SetConfigFile(opts.ConfigFile)
			}
			cfg, err := config.Read(v)
			if err != nil {
				return opts.formatter(cmd).Fail(ErrCodeConfig, "load config", err)
			}
			opts.Config = cfg
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default ./qwiq.yaml)")
	flags.String("db", "", "path to the SQLite store")
	flags.String("models", "", "directory of CUE model declarations")
	flags.Bool("day-precision", false, "compare dates by calendar day")
	flags.String("log-level", "", "log level (none|debug|info|warn|error)")

	mustBindPFlag(v, config.KeyStorePath, flags.Lookup("db"))
	mustBindPFlag(v, config.KeyModelsDir, flags.Lookup("models"))
	mustBindPFlag(v, config.KeyQueryDayPrecision, flags.Lookup("day-precision"))
	mustBindPFlag(v, config.KeyLogLevel, flags.Lookup("log-level"))

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewTranslateCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewModelsCommand(opts))

	return cmd
}

// mustBindPFlag binds a config key to a flag and panics if the binding
// fails.
func mustBindPFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic("failed to bind pflag: " + err.Error())
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) settings() *config.Config {
	if o.Config == nil {
		return config.DefaultConfig()
	}
	return o.Config
}
