package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"impostor-be/internal/api/http"
	"impostor-be/internal/client"
	"impostor-be/internal/config"
	"impostor-be/internal/logger"
	"impostor-be/internal/service"
	"impostor-be/internal/service/game"
	"impostor-be/internal/state"
	"impostor-be/internal/store"
	"impostor-be/internal/store/migrations"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const REMOTE_TIMEOUT = 5 * time.Second

func newRootCmd() *cobra.Command {
	v := config.NewViper()

	// 加载配置并初始化日志器，返回的函数在命令结束时刷新日志
	setup := func() (*config.AppConfig, func(), error) {
		cfg, err := config.Load(v)
		if err != nil {
			return nil, nil, err
		}

		return cfg, logger.InitLogger(cfg.LogLevel, cfg.LogFormat), nil
	}

	cmd := &cobra.Command{
		Use:     "impostor-be",
		Short:   "Backend for the impostor word game.",
		Args:    cobra.NoArgs,
		Version: releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, done, err := setup()
			if err != nil {
				return err
			}
			defer done()

			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	config.AddFlags(fs)

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return config.BindFlags(v, cmd.Flags())
	}

	cmd.AddCommand(
		newServeCmd(setup),
		newMigrateCmd(setup),
		newJoinCmd(setup, v),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("impostor-be v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

type setupFunc func() (*config.AppConfig, func(), error)

func newServeCmd(setup setupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, done, err := setup()
			if err != nil {
				return err
			}
			defer done()

			return serve(cmd.Context(), cfg)
		},
	}
}

func newMigrateCmd(setup setupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the postgres store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, done, err := setup()
			if err != nil {
				return err
			}
			defer done()

			if cfg.Store.PostgresURL == "" {
				return errors.New("必须设置 store.postgres_url")
			}

			if err := migrations.Up(cmd.Context(), cfg.Store.PostgresURL); err != nil {
				return err
			}

			version, err := migrations.Version(cmd.Context(), cfg.Store.PostgresURL)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)

			return nil
		},
	}
}

// newJoinCmd 以客户端身份加入房间并打印状态变化，直到收到中断信号
func newJoinCmd(setup setupFunc, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join ROOM_CODE",
		Short: "Join a room as a client and follow its state.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, done, err := setup()
			if err != nil {
				return err
			}
			defer done()

			st, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			rs := service.NewRoomService(service.NewGameRepository(st), game.NewGameMachine(game.NewRuntime()), 0)
			defer rs.Close()

			session, err := client.LoadOrCreateSession(v.GetString("session"))
			if err != nil {
				return err
			}

			c := client.New(session, rs, cfg.PollInterval)

			return follow(cmd.Context(), c, args[0], v.GetString("name"))
		},
	}

	cmd.Flags().String("name", "", "display name, defaults to the one saved in the session")
	cmd.Flags().String("session", ".impostor_session.json", "path of the local session file")
	_ = v.BindPFlag("name", cmd.Flags().Lookup("name"))
	_ = v.BindPFlag("session", cmd.Flags().Lookup("session"))

	return cmd
}

func follow(ctx context.Context, c *client.Client, roomCode, name string) error {
	view, err := c.JoinRoom(ctx, roomCode, name)
	if err != nil {
		return err
	}

	zap.S().Infof("已加入房间 %s，当前阶段 %s", view.RoomCode, view.Phase)

	poller, err := c.Poller()
	if err != nil {
		return err
	}

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go poller.Run(pollCtx)

	for ev := range poller.Events() {
		switch ev.Type {
		case client.EventUpdate:
			zap.L().Info(
				"Room updated",
				zap.String("phase", string(ev.View.Phase)),
				zap.Int("round", ev.View.Round),
				zap.Int64("version", ev.View.Version),
				zap.Int("players", len(ev.View.Players)),
			)
		case client.EventKicked, client.EventRoomGone:
			zap.S().Warnf("已离开房间：%s", ev.Type)
			return c.Session().Leave()
		}
	}

	// 中断信号视为主动离开
	leaveCtx, cancelLeave := context.WithTimeout(context.Background(), REMOTE_TIMEOUT)
	defer cancelLeave()

	return c.Leave(leaveCtx)
}

// openStore 按配置创建共享存储
func openStore(ctx context.Context, cfg *config.AppConfig) (store.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.STORE_POSTGRES:
		if err := migrations.Up(ctx, cfg.Store.PostgresURL); err != nil {
			return nil, nil, err
		}

		ps, err := store.NewPostgresStore(ctx, cfg.Store.PostgresURL, cfg.Store.RoomTTL)
		if err != nil {
			return nil, nil, err
		}

		return ps, ps.Close, nil

	case config.STORE_REMOTE:
		return store.NewRemoteStore(cfg.Store.RemoteURL, REMOTE_TIMEOUT), func() {}, nil
	}

	ms := store.NewMemoryStore(cfg.Store.RoomTTL, cfg.Store.CleanupInterval)

	return ms, ms.Close, nil
}

func serve(ctx context.Context, cfg *config.AppConfig) error {
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	zap.S().Infof("使用 %s 存储", cfg.Store.Driver)

	roomSvc := service.NewRoomService(
		service.NewGameRepository(st),
		game.NewGameMachine(game.NewRuntime()),
		cfg.Store.CleanupInterval,
	)

	// 组装应用状态
	appState := state.NewAppState(cfg, roomSvc, st)
	appState.OnClose(closeStore)
	defer appState.Close()

	return http.RunServer(ctx, appState)
}
