package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/balkashynov/checkmaster/internal/config"
	"github.com/balkashynov/checkmaster/internal/db"
	"github.com/balkashynov/checkmaster/internal/logging"
	"github.com/balkashynov/checkmaster/internal/store/dynamostore"
	"github.com/balkashynov/checkmaster/internal/store/memstore"
	"github.com/balkashynov/checkmaster/internal/syncserver"
)

type serveFlags struct {
	addr           string
	store          string
	dbPath         string
	dynamoTable    string
	dynamoRegion   string
	dynamoEndpoint string
	origins        []string
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	sf := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the checkmaster sync server",
		Long: `Serve templates and checklists over HTTP and push changes to connected
clients over a websocket. Data is kept in SQLite, in memory or in DynamoDB.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			sf.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			level := cfg.Log.Level
			if flags.debug {
				level = "debug"
			}
			logger, err := logging.New(logging.Options{Level: level, Console: true})
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			backend, closeBackend, err := openServerBackend(ctx, cfg.Server, logger)
			if err != nil {
				return err
			}
			defer closeBackend()

			srv := syncserver.New(backend,
				syncserver.WithLogger(logger.Named("server")),
				syncserver.WithAllowedOrigins(cfg.Server.AllowedOrigins),
			)
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	f := cmd.Flags()
	f.StringVar(&sf.addr, "addr", "", "listen address (overrides server.addr)")
	f.StringVar(&sf.store, "store", "", "storage: sqlite|memory|dynamodb")
	f.StringVar(&sf.dbPath, "db", "", "sqlite database path")
	f.StringVar(&sf.dynamoTable, "dynamo-table", "", "DynamoDB table name")
	f.StringVar(&sf.dynamoRegion, "dynamo-region", "", "DynamoDB region")
	f.StringVar(&sf.dynamoEndpoint, "dynamo-endpoint", "", "DynamoDB endpoint override, e.g. http://localhost:8000")
	f.StringSliceVar(&sf.origins, "allow-origin", nil, "allowed websocket/CORS origins (repeatable)")
	return cmd
}

// apply copies the flags the user actually set over the loaded config
func (sf *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("addr", &cfg.Server.Addr, sf.addr)
	set("store", &cfg.Server.Store, sf.store)
	set("db", &cfg.Server.DBPath, sf.dbPath)
	set("dynamo-table", &cfg.Server.DynamoTable, sf.dynamoTable)
	set("dynamo-region", &cfg.Server.DynamoRegion, sf.dynamoRegion)
	set("dynamo-endpoint", &cfg.Server.DynamoEndpoint, sf.dynamoEndpoint)
	if cmd.Flags().Changed("allow-origin") {
		cfg.Server.AllowedOrigins = sf.origins
	}
}

func openServerBackend(ctx context.Context, sc config.ServerConfig, logger *zap.Logger) (syncserver.Backend, func() error, error) {
	nop := func() error { return nil }

	switch sc.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		return memstore.New(), nop, nil

	case config.StoreDynamoDB:
		s, err := dynamostore.NewFromConfig(ctx, sc.DynamoTable, sc.DynamoRegion, sc.DynamoEndpoint,
			dynamostore.WithLogger(logger.Named("dynamodb")))
		if err != nil {
			return nil, nil, err
		}
		if err := s.EnsureTable(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to prepare table %s: %w", sc.DynamoTable, err)
		}
		logger.Info("using DynamoDB store", zap.String("table", sc.DynamoTable))
		return s, nop, nil

	default:
		s, err := db.Open(sc.DBPath, db.WithLogger(logger.Named("db")))
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite store", zap.String("path", s.Path()))
		return s, s.Close, nil
	}
}
