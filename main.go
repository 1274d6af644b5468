// Copyright 2021 Jonathan Amsterdam.

// A command-line tool for basic operations on Google Cloud Firestore
// collections.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1 // store or I/O failure
	exitUsage = 2 // bad command line
	exitAuth  = 3 // missing or insufficient credentials
)

const usageLine = "usage: fsops [flags] (--sync COLL | --delete COLL ID | --add COLL [FIELD VALUE]... |\n" +
	"             --update COLL ID [FIELD VALUE]... | --csv COLL FILE | --query COLL [FIELD OP VALUE]...)"

// A usageError is a problem with the command line.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...interface{}) error {
	return &usageError{fmt.Errorf(format, args...)}
}

// storeOpener connects to the store described by a config.
type storeOpener func(context.Context, *config) (Store, error)

// flags are the options that are not operations.
type flags struct {
	configPath  string
	project     string
	database    string
	credentials string
	dir         string
	format      string
	typed       bool
	orderBy     []string
	limit       int
	importRate  float64
	verbose     bool
}

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	cmd := newRootCmd(openFirestore, &logger)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		code := exitCode(err)
		if code == exitUsage {
			fmt.Fprintln(os.Stderr, usageLine)
			fmt.Fprintf(os.Stderr, "fsops: error: %v\n", err)
		} else if st, ok := status.FromError(err); ok {
			logger.Error().Str("code", st.Code().String()).Msg(st.Message())
		} else {
			logger.Error().Err(err).Msg("failed")
		}
		os.Exit(code)
	}
	os.Exit(exitOK)
}

// exitCode classifies err for the process exit status.
func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return exitUsage
	}
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return exitAuth
	}
	return exitError
}

func newRootCmd(open storeOpener, logger *zerolog.Logger) *cobra.Command {
	var fl flags
	cmd := &cobra.Command{
		Use:   "fsops",
		Short: "Sync, edit, import and query Firestore collections",
		Long: `fsops performs one operation on a Firestore collection:

  --sync COLL                        write every document to DIR/COLL.txt
  --delete COLL ID                   delete a document
  --add COLL FIELD VALUE ...         add a document with a generated ID
  --update COLL ID FIELD VALUE ...   merge fields into a document
  --csv COLL FILE                    add one document per CSV row
  --query COLL FIELD OP VALUE ...    print the documents matching all conditions

If several operations are given, only the first in the order above runs.`,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, &fl, open, logger)
		},
	}
	f := cmd.Flags()
	f.StringVar(&fl.configPath, "config", defaultConfigPath(), "config file")
	f.StringVar(&fl.project, "project", "", "Google Cloud project ID")
	f.StringVar(&fl.database, "database", "", "Firestore database ID (default database if empty)")
	f.StringVar(&fl.credentials, "credentials", "", "service account key file")
	f.StringVar(&fl.dir, "dir", "", "directory for --sync output (default \""+defaultDir+"\")")
	f.StringVar(&fl.format, "format", "", "query output format ("+strings.Join(formats, ", ")+")")
	f.BoolVar(&fl.typed, "typed", false, "store and compare numeric values as numbers")
	f.StringArrayVar(&fl.orderBy, "order-by", nil, "order query results by FIELD[:asc|:desc]")
	f.IntVar(&fl.limit, "limit", 0, "maximum number of query results (0 for no limit)")
	f.Float64Var(&fl.importRate, "import-rate", 0, "maximum CSV rows written per second (0 for no limit)")
	f.BoolVarP(&fl.verbose, "verbose", "v", false, "log debug messages")
	return cmd
}

func run(cmd *cobra.Command, args []string, fl *flags, open storeOpener, logger *zerolog.Logger) error {
	req, rest, err := parseCommandLine(args)
	if err != nil {
		return err
	}
	fs := cmd.Flags()
	if err := fs.Parse(rest); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return cmd.Help()
		}
		return usageErrorf("%v", err)
	}
	if help, _ := fs.GetBool("help"); help {
		return cmd.Help()
	}
	if fs.NArg() > 0 {
		return usageErrorf("unrecognized arguments: %s", strings.Join(fs.Args(), " "))
	}

	log := logger.Level(zerolog.InfoLevel)
	if fl.verbose {
		log = logger.Level(zerolog.DebugLevel)
	}

	cfg, err := resolveConfig(fs, fl)
	if err != nil {
		return err
	}
	if !validFormat(cfg.Format) {
		return usageErrorf("%v %q", errUnknownFormat, cfg.Format)
	}
	if q, ok := req.(*query); ok {
		if q.orders, err = parseOrders(fl.orderBy); err != nil {
			return usageErrorf("%v", err)
		}
		q.limit = fl.limit
	}
	if req == nil {
		log.Debug().Msg("no operation given")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	d := &dispatcher{
		store:   store,
		out:     cmd.OutOrStdout(),
		dir:     cfg.Dir,
		format:  cfg.Format,
		typed:   fl.typed,
		limiter: newLimiter(fl.importRate),
		log:     log,
	}
	log.Debug().Str("operation", req.name()).Str("project", cfg.Project).Msg("dispatching")
	return d.run(ctx, req)
}

// resolveConfig combines the config file, the environment and the flags
// that were set explicitly.
func resolveConfig(fs *pflag.FlagSet, fl *flags) (*config, error) {
	cfg, err := loadConfig(fl.configPath)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	for name, val := range map[string]struct {
		dst *string
		src string
	}{
		"project":     {&cfg.Project, fl.project},
		"database":    {&cfg.Database, fl.database},
		"credentials": {&cfg.Credentials, fl.credentials},
		"dir":         {&cfg.Dir, fl.dir},
		"format":      {&cfg.Format, fl.format},
	} {
		if fs.Changed(name) {
			*val.dst = val.src
		}
	}
	cfg.setDefaults()
	return cfg, nil
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
