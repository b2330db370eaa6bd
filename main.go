package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ArcaneChat/chatmail/auth"
	"github.com/ArcaneChat/chatmail/config"
	"github.com/ArcaneChat/chatmail/proxy"
	"github.com/ArcaneChat/chatmail/server"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"golang.org/x/sync/errgroup"
)

// Functions

// initStore opens the account store specified in the
// config. The returned function releases it again.
func initStore(ctx context.Context, conf *config.Config) (auth.Store, func() error, error) {

	switch conf.Store.Adapter {
	case config.StorePostgres:
		// Connect to PostgreSQL database and migrate it.
		store, err := auth.OpenPostgresStore(ctx, conf.Store.PostgresDSN, conf)
		if err != nil {
			return nil, nil, err
		}

		return store, store.Close, nil
	default: // file
		// One directory per account below the mailboxes root.
		return auth.NewFileStore(conf), func() error { return nil }, nil
	}
}

// initLogger initializes a JSON gokit-logger set
// to the according log level supplied via cli flag.
func initLogger(loglevel string) log.Logger {

	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger,
		"ts", log.DefaultTimestampUTC,
		"caller", log.DefaultCaller,
	)

	switch strings.ToLower(loglevel) {
	case "info":
		logger = level.NewFilter(logger, level.AllowInfo())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		logger = level.NewFilter(logger, level.AllowDebug())
	}

	return logger
}

// resolveArgs lets the positional SOCKET CONFIG
// invocation override the flag values.
func resolveArgs(socketPath string, configPath string, args []string) (string, string, error) {

	switch len(args) {
	case 0:
		return socketPath, configPath, nil
	case 2:
		return args[0], args[1], nil
	}

	return "", "", fmt.Errorf("expected SOCKET and CONFIG arguments, got %d arguments", len(args))
}

// run wires store, policy, hasher and service together
// and answers dict requests on socketPath until ctx is
// cancelled.
func run(ctx context.Context, logger log.Logger, conf *config.Config, socketPath string, m *DoveauthMetrics) error {

	store, closeStore, err := initStore(ctx, conf)
	if err != nil {
		return fmt.Errorf("failed to initialize account store: %w", err)
	}
	defer closeStore()

	hasher, err := auth.NewHasher(conf.PasswordScheme)
	if err != nil {
		return err
	}

	authenticator := auth.NewAuthenticator(logger, store, auth.NewPolicy(logger, conf, nil), hasher, m.Auth)

	var service proxy.Service
	service = proxy.NewService(conf, authenticator)
	service = proxy.NewLoggingService(service, logger)
	service = proxy.NewMetricsService(service, m.Proxy.Lookups, m.Proxy.Iterations)

	srv, err := server.InitServer(logger, socketPath)
	if err != nil {
		return err
	}
	defer srv.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.RunServer(ctx, proxy.NewHandler(logger, service))
	})

	g.Go(func() error {
		return runPromHTTP(ctx, logger, conf.Metrics.PrometheusAddr)
	})

	return g.Wait()
}

func main() {

	// Parse command-line flags. Positional SOCKET CONFIG
	// arguments take precedence.
	configFlag := flag.String("config", "/usr/local/lib/chatmaild/chatmail.toml", "Provide path to configuration file in TOML syntax.")
	socketFlag := flag.String("socket", "/run/doveauth/doveauth.socket", "Unix socket Dovecot's dict proxy connects to.")
	loglevelFlag := flag.String("loglevel", "info", "This flag sets the default logging level.")
	flag.Parse()

	logger := initLogger(*loglevelFlag)

	socketPath, configPath, err := resolveArgs(*socketFlag, *configFlag, flag.Args())
	if err != nil {
		level.Error(logger).Log("msg", "invalid command line", "err", err)
		flag.Usage()
		os.Exit(1)
	}

	// Read configuration from file.
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to load the config", "err", err,
		)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err = run(ctx, logger, conf, socketPath, NewDoveauthMetrics(conf.Metrics.PrometheusAddr))
	stop()

	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to run doveauth",
			"err", err,
		)
		os.Exit(3)
	}

	level.Info(logger).Log("msg", "doveauth stopped")
}
