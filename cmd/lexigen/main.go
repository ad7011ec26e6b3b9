// Package main provides the CLI entrypoint for lexigen.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CTAG07/Lexigen/pkg/wordgen"
)

var (
	Version = "dev"
)

var (
	configPath string
	logLevel   string
	dbPath     string

	genWeighted  bool
	genNumber    int
	genMin       int
	genMax       int
	genSegLen    int
	genAttempts  int
	genSavePath  string
	genLoadPath  string
	genModelName string

	trainName     string
	trainSegLen   int
	trainKeepCase bool

	pruneMinWeight int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "lexigen [FILE]",
		Short: "Generate word-like strings that follow the feel of an input language",
		Long: "lexigen builds a statistical model from a dictionary of words (one per\n" +
			"line, from FILE or standard input) and generates new, plausible-looking\n" +
			"words from it. Models can be persisted as JSON snapshots or stored under\n" +
			"a name in a SQLite database to skip re-parsing large dictionaries.",
		Args:          cobra.MaximumNArgs(1),
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runGenerateCmd,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a JSON config file (created with defaults if missing)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaults.LogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaults.DatabasePath, "path to the model database")

	rootCmd.Flags().BoolVarP(&genWeighted, "weighted", "w", defaults.Weighted, "sample segments in proportion to their frequency")
	rootCmd.Flags().IntVarP(&genNumber, "number", "n", defaults.Number, "number of words to generate")
	rootCmd.Flags().IntVar(&genMin, "min", defaults.MinLength, "minimum length of generated words")
	rootCmd.Flags().IntVarP(&genMax, "max", "m", defaults.MaxLength, "rough maximum length of generated words")
	rootCmd.Flags().IntVarP(&genSegLen, "segment-length", "k", defaults.SegmentLength, "segment window size used when building the model")
	rootCmd.Flags().IntVar(&genAttempts, "attempts", defaults.MaxAttempts, "restarts allowed before the minimum length is declared unsatisfiable")
	rootCmd.Flags().StringVarP(&genSavePath, "save", "s", "", "save the model as a JSON snapshot and skip generation")
	rootCmd.Flags().StringVarP(&genLoadPath, "load", "l", "", "load the model from a JSON snapshot instead of a dictionary")
	rootCmd.Flags().StringVar(&genModelName, "model", "", "load the model by name from the database instead of a dictionary")

	rootCmd.AddCommand(newTrainCmd())
	rootCmd.AddCommand(newModelsCmd())
	rootCmd.AddCommand(newPruneCmd())
	rootCmd.AddCommand(newRmCmd())

	return rootCmd
}

func newTrainCmd() *cobra.Command {
	defaults := DefaultConfig()

	trainCmd := &cobra.Command{
		Use:   "train [FILE]",
		Short: "Build a model from a dictionary and store it in the database",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTrainCmd,
	}
	trainCmd.Flags().StringVar(&trainName, "name", "", "name to store the model under")
	trainCmd.Flags().IntVarP(&trainSegLen, "segment-length", "k", defaults.SegmentLength, "segment window size used when building the model")
	trainCmd.Flags().BoolVar(&trainKeepCase, "keep-case", false, "do not fold dictionary words to lowercase")
	_ = trainCmd.MarkFlagRequired("name")

	return trainCmd
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models stored in the database",
		Args:  cobra.NoArgs,
		RunE:  runModelsCmd,
	}
}

func newPruneCmd() *cobra.Command {
	pruneCmd := &cobra.Command{
		Use:   "prune NAME",
		Short: "Remove rare transitions from a stored model",
		Args:  cobra.ExactArgs(1),
		RunE:  runPruneCmd,
	}
	pruneCmd.Flags().IntVar(&pruneMinWeight, "min-weight", 2, "transitions below this weight are removed")

	return pruneCmd
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME",
		Short: "Remove a stored model from the database",
		Args:  cobra.ExactArgs(1),
		RunE:  runRmCmd,
	}
}

func runGenerateCmd(cmd *cobra.Command, args []string) error {
	if err := applyConfig(cmd); err != nil {
		return err
	}
	logger := newLogger(logLevel)

	model, err := resolveModel(cmd.Context(), args, logger)
	if err != nil {
		return err
	}

	// When saving, other operations are skipped: the snapshot is the output.
	if genSavePath != "" {
		if err := model.SaveFile(genSavePath); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		logger.Info("Model snapshot saved",
			slog.String("path", genSavePath),
			slog.Int("contexts", model.Stats().Contexts),
		)
		return nil
	}

	generator := wordgen.NewGenerator(model,
		wordgen.WithWeighted(genWeighted),
		wordgen.WithMaxAttempts(genAttempts),
		wordgen.WithDefaultMaxLength(genMax),
	)
	generator.SetLogger(logger)

	words, err := generator.Generate(genMin, genMax, genNumber)
	if err != nil {
		return err
	}
	for _, word := range words {
		fmt.Println(word)
	}
	return nil
}

func runTrainCmd(cmd *cobra.Command, args []string) error {
	if err := applyConfig(cmd); err != nil {
		return err
	}
	logger := newLogger(logLevel)

	input, closeInput, err := openDictionary(args)
	if err != nil {
		return err
	}
	defer closeInput()

	opts := []wordgen.BuildOption{wordgen.WithSegmentLength(trainSegLen)}
	if trainKeepCase {
		opts = append(opts, wordgen.WithCaseFolding(false))
	}
	model, err := wordgen.BuildFromReader(input, opts...)
	if err != nil {
		return err
	}

	db, store, err := openStore(dbPath, logger)
	if err != nil {
		return err
	}
	defer closeStore(db, store)

	if err := store.SaveModel(cmd.Context(), trainName, model); err != nil {
		return err
	}
	stats := model.Stats()
	logger.Info("Model trained",
		slog.String("model_name", trainName),
		slog.Int("contexts", stats.Contexts),
		slog.Int("transitions", stats.Transitions),
	)
	return nil
}

func runModelsCmd(cmd *cobra.Command, _ []string) error {
	if err := applyConfig(cmd); err != nil {
		return err
	}
	logger := newLogger(logLevel)

	db, store, err := openStore(dbPath, logger)
	if err != nil {
		return err
	}
	defer closeStore(db, store)

	metas, err := store.ModelMetas(cmd.Context())
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("no models stored")
		return nil
	}
	for _, meta := range metas {
		fmt.Printf("%s\tsegment length %d\tword lengths %d-%d\n",
			meta.Name, meta.SegmentLength, meta.MinWordLen, meta.MaxWordLen)
	}
	return nil
}

func runPruneCmd(cmd *cobra.Command, args []string) error {
	if err := applyConfig(cmd); err != nil {
		return err
	}
	logger := newLogger(logLevel)

	db, store, err := openStore(dbPath, logger)
	if err != nil {
		return err
	}
	defer closeStore(db, store)

	removed, err := store.PruneModel(cmd.Context(), args[0], pruneMinWeight)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d transitions from %s\n", removed, args[0])
	return nil
}

func runRmCmd(cmd *cobra.Command, args []string) error {
	if err := applyConfig(cmd); err != nil {
		return err
	}
	logger := newLogger(logLevel)

	db, store, err := openStore(dbPath, logger)
	if err != nil {
		return err
	}
	defer closeStore(db, store)

	return store.DeleteModel(cmd.Context(), args[0])
}

// resolveModel obtains the model for generation: a JSON snapshot, a stored
// database model, or a freshly built one from the dictionary input, in that
// order of precedence.
func resolveModel(ctx context.Context, args []string, logger *slog.Logger) (*wordgen.Model, error) {
	switch {
	case genLoadPath != "":
		return wordgen.LoadFile(genLoadPath)
	case genModelName != "":
		db, store, err := openStore(dbPath, logger)
		if err != nil {
			return nil, err
		}
		defer closeStore(db, store)
		return store.LoadModel(ctx, genModelName)
	default:
		input, closeInput, err := openDictionary(args)
		if err != nil {
			return nil, err
		}
		defer closeInput()
		return wordgen.BuildFromReader(input, wordgen.WithSegmentLength(genSegLen))
	}
}

// openDictionary returns the dictionary input: the file named in args, or
// standard input when no argument is given.
func openDictionary(args []string) (io.Reader, func(), error) {
	if len(args) == 0 {
		return os.Stdin, func() {}, nil
	}
	file, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}

func openStore(path string, logger *slog.Logger) (*sql.DB, *wordgen.Store, error) {
	db, err := initDB(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := wordgen.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to set up schema: %w", err)
	}
	store, err := wordgen.NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	store.SetLogger(logger)
	return db, store, nil
}

func closeStore(db *sql.DB, store *wordgen.Store) {
	store.Close()
	_ = db.Close()
}

// applyConfig overlays file-configured defaults onto any flag the user did
// not set explicitly. Without --config, the built-in defaults already match.
func applyConfig(cmd *cobra.Command) error {
	if configPath == "" {
		return nil
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	applyStringConfig(cmd, "log-level", &logLevel, cfg.LogLevel)
	applyStringConfig(cmd, "db", &dbPath, cfg.DatabasePath)
	applyBoolConfig(cmd, "weighted", &genWeighted, cfg.Weighted)
	applyIntConfig(cmd, "number", &genNumber, cfg.Number)
	applyIntConfig(cmd, "min", &genMin, cfg.MinLength)
	applyIntConfig(cmd, "max", &genMax, cfg.MaxLength)
	applyIntConfig(cmd, "segment-length", &genSegLen, cfg.SegmentLength)
	applyIntConfig(cmd, "segment-length", &trainSegLen, cfg.SegmentLength)
	applyIntConfig(cmd, "attempts", &genAttempts, cfg.MaxAttempts)
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target *string, value string) {
	if cmd.Flags().Lookup(name) != nil && !cmd.Flags().Changed(name) {
		*target = value
	}
}

func applyIntConfig(cmd *cobra.Command, name string, target *int, value int) {
	if cmd.Flags().Lookup(name) != nil && !cmd.Flags().Changed(name) {
		*target = value
	}
}

func applyBoolConfig(cmd *cobra.Command, name string, target *bool, value bool) {
	if cmd.Flags().Lookup(name) != nil && !cmd.Flags().Changed(name) {
		*target = value
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
