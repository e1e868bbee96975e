package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/anilkmeesala/db-sense-editor/catalog"
	"github.com/anilkmeesala/db-sense-editor/complete"
	"github.com/anilkmeesala/db-sense-editor/config"
	"github.com/anilkmeesala/db-sense-editor/logging"
	"github.com/anilkmeesala/db-sense-editor/store"
)

type rootOptions struct {
	configPath string
	driver     string
	dsn        string
	project    string
	dataset    string
	dialect    string
	storePath  string
	logLevel   string
}

// appEnv is filled in by the root command before any subcommand runs.
type appEnv struct {
	cfg    *config.Config
	logger *slog.Logger
}

func execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rt := &appEnv{}

	cmd := &cobra.Command{
		Use:   "dbsense",
		Short: "SQL editor with schema-aware completion",
		Long: `dbsense is a desktop SQL editor for sqlite, postgres, duckdb and BigQuery.

Completions follow the statement being typed: table names after FROM and
JOIN, columns after SELECT, WHERE and operators, and the columns of a table
after its alias and a dot.

Settings are read from dbsense.yaml (or .toml), then DBSENSE_* environment
variables, then flags.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.setup(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGUI(cmd.Context(), rt.cfg, rt.logger)
		},
	}

	bindRootFlags(cmd.PersistentFlags(), opts)
	cmd.AddCommand(newCompleteCmd(rt))
	cmd.AddCommand(newSchemaCmd(rt))
	return cmd
}

func bindRootFlags(fs *pflag.FlagSet, o *rootOptions) {
	fs.StringVar(&o.configPath, "config", "", "config file (default: ./dbsense.yaml or the user config dir)")
	fs.StringVar(&o.driver, "driver", "", "database driver: "+strings.Join(config.Drivers, ", "))
	fs.StringVar(&o.dsn, "dsn", "", "database file path or connection URL")
	fs.StringVar(&o.project, "project", "", "BigQuery project")
	fs.StringVar(&o.dataset, "dataset", "", "BigQuery dataset")
	fs.StringVar(&o.dialect, "dialect", "", "lexicon dialect (default: the driver)")
	fs.StringVar(&o.storePath, "store", "", "path of the local history and schema database")
	fs.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// setup resolves the configuration. Flags override the file and environment
// only when given explicitly.
func (rt *appEnv) setup(cmd *cobra.Command, o *rootOptions) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Connection.Driver = strings.ToLower(o.driver)
	}
	if flags.Changed("dsn") {
		cfg.Connection.DSN = o.dsn
	}
	if flags.Changed("project") {
		cfg.Connection.Project = o.project
	}
	if flags.Changed("dataset") {
		cfg.Connection.Dataset = o.dataset
	}
	if flags.Changed("dialect") {
		cfg.Completion.Dialect = o.dialect
	}
	if flags.Changed("store") {
		cfg.Store.Path = o.storePath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	rt.cfg = cfg
	rt.logger = logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Writer: cmd.ErrOrStderr(),
	})
	slog.SetDefault(rt.logger)
	return nil
}

// openStore opens the local store, logging instead of failing: the CLI
// works without a schema cache.
func (rt *appEnv) openStore() *store.Store {
	st, err := store.Open(rt.cfg.Store.Path)
	if err != nil {
		rt.logger.Warn("local store unavailable", "path", rt.cfg.Store.Path, "error", err)
		return nil
	}
	return st
}

type completeOptions struct {
	sql    string
	caret  int
	asJSON bool
}

func newCompleteCmd(rt *appEnv) *cobra.Command {
	opts := &completeOptions{}
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Print completions for a statement",
		Long: `Classifies the caret position in a statement and prints the ranked
completion candidates, using the configured connection's schema.

The statement is taken from --sql, or read from stdin when --sql is absent.
The caret is a character offset and defaults to the end of the statement.`,
		Example: `  dbsense complete --driver sqlite --dsn app.db --sql "SELECT * FROM Em"
  echo "SELECT e. FROM employees e" | dbsense complete --caret 9 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runComplete(cmd, rt, opts)
		},
	}
	cmd.Flags().StringVar(&opts.sql, "sql", "", "statement text (default: stdin)")
	cmd.Flags().IntVar(&opts.caret, "caret", -1, "caret offset in characters (default: end of statement)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print JSON")
	return cmd
}

// completionReport is the JSON shape printed by the complete command.
type completionReport struct {
	Context    complete.Context     `json:"context"`
	Candidates []complete.Candidate `json:"candidates"`
}

func runComplete(cmd *cobra.Command, rt *appEnv, opts *completeOptions) error {
	sqlText := opts.sql
	if !cmd.Flags().Changed("sql") {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read statement: %w", err)
		}
		sqlText = strings.TrimRight(string(data), "\r\n")
	}
	caret := opts.caret
	if n := utf8.RuneCountInString(sqlText); caret < 0 || caret > n {
		caret = n
	}

	st := rt.openStore()
	if st != nil {
		defer st.Close()
	}
	cat, err := loadCatalog(cmd.Context(), rt.cfg, st, rt.logger)
	if err != nil {
		rt.logger.Warn("schema metadata unavailable", "error", err)
	}
	engine, err := newEngine(rt.cfg, catalog.NewHolder(cat))
	if err != nil {
		return err
	}

	res := engine.Complete(sqlText, caret)
	visible := res.Visible()
	if limit := rt.cfg.Completion.MaxVisible; limit > 0 && len(visible) > limit {
		visible = visible[:limit]
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		if visible == nil {
			visible = []complete.Candidate{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(completionReport{Context: res.Context, Candidates: visible})
	}

	fmt.Fprintf(out, "context: %s", res.Context.Kind)
	if res.Context.Alias != "" {
		fmt.Fprintf(out, " alias=%s", res.Context.Alias)
	}
	if res.Context.Table != "" {
		fmt.Fprintf(out, " table=%s", res.Context.Table)
	}
	fmt.Fprintf(out, " prefix=%q\n", res.Context.Prefix)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, c := range visible {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Text, c.Kind, c.Detail)
	}
	return w.Flush()
}

func newSchemaCmd(rt *appEnv) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the tables and columns of the configured connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfg.ConnectionKey() == "" {
				return errors.New("no connection configured: set connection.driver or pass --driver")
			}
			st := rt.openStore()
			if st != nil {
				defer st.Close()
			}
			cat, err := loadCatalog(cmd.Context(), rt.cfg, st, rt.logger)
			if err != nil && cat.Len() == 0 {
				return err
			}
			return printSchema(cmd.OutOrStdout(), cat, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printSchema(out io.Writer, cat *catalog.Catalog, asJSON bool) error {
	if asJSON {
		tables := cat.Snapshot()
		if tables == nil {
			tables = []catalog.TableMeta{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tables)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tCOLUMN\tTYPE")
	for _, t := range cat.Tables() {
		cols := cat.ColumnsOf(t)
		if len(cols) == 0 {
			fmt.Fprintf(w, "%s\t\t\n", t)
			continue
		}
		for _, c := range cols {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t, c.Name, c.Type)
		}
	}
	return w.Flush()
}
