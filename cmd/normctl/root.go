package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"lerian-normative-engine/internal/catalog"
	"lerian-normative-engine/internal/config"
	"lerian-normative-engine/internal/engine"
	"lerian-normative-engine/internal/logging"
	"lerian-normative-engine/pkg/types"
)

type app struct {
	out    io.Writer
	errOut io.Writer

	configPath  string
	catalogPath string
	noColor     bool

	engine *engine.Engine
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "normctl",
		Short:         "Detect and resolve conflicts between normative frameworks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file (environment only when empty)")
	root.PersistentFlags().StringVar(&a.catalogPath, "catalog", "", "framework catalogue to load (overrides NORMATIVE_CATALOG_PATH)")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		a.analyzeCmd(),
		a.searchCmd(),
		a.resolveCmd(),
		a.applicableCmd(),
		a.statsCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.noColor {
		color.NoColor = true
	}

	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadConfigFile(a.configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.catalogPath != "" {
		cfg.Catalog.Path = a.catalogPath
	}
	if cfg.Catalog.Path == "" {
		return fmt.Errorf("no catalogue given: use --catalog or NORMATIVE_CATALOG_PATH")
	}

	logger := logging.New(logging.Options{
		Level:  logging.ParseLogLevel(cfg.Logging.Level),
		JSON:   cfg.Logging.JSONLogs(),
		Output: a.errOut,
	})

	a.engine, err = engine.New(cfg, engine.WithLogger(logger))
	if err != nil {
		return err
	}

	frameworks, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("failed to load catalogue: %w", err)
	}
	imported := a.engine.ImportFrameworks(cmd.Context(), frameworks)
	logger.Debug("Catalogue loaded", "path", cfg.Catalog.Path, "frameworks", imported)
	return nil
}

// lookup accepts a framework id or a case-insensitive exact title.
func (a *app) lookup(ref string) (*types.NormativeFramework, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return a.engine.Framework(id)
	}
	for _, f := range a.engine.Frameworks() {
		if strings.EqualFold(f.Title, ref) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("framework not found: %s", ref)
}

func (a *app) title(id uuid.UUID) string {
	if f, err := a.engine.Framework(id); err == nil {
		return f.Title
	}
	return id.String()
}

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow)
	dangerColor  = color.New(color.FgRed, color.Bold)
)

func severityColor(s types.ConflictSeverity) *color.Color {
	switch s {
	case types.SeverityCritical, types.SeverityHigh:
		return dangerColor
	case types.SeverityMedium:
		return warnColor
	default:
		return color.New(color.Reset)
	}
}

func init() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		color.NoColor = true
	}
}
