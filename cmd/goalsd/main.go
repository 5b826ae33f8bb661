package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/arnold/milestones-api/internal/config"
	"github.com/arnold/milestones-api/internal/database"
	"github.com/arnold/milestones-api/internal/logger"
	"github.com/arnold/milestones-api/internal/middleware"
	"github.com/arnold/milestones-api/internal/routes"
	"github.com/arnold/milestones-api/internal/services"
)

// App is handed to every command's Run.
type App struct {
	Config *config.Config
}

var CLI struct {
	Version kong.VersionFlag
	Debug   bool   `help:"Enable debug logging." env:"DEBUG"`
	LogDir  string `help:"Directory for the rotating log file." type:"path"`

	Serve   ServeCmd   `cmd:"" help:"Run the HTTP API." default:"1"`
	Migrate MigrateCmd `cmd:"" help:"Run database migrations."`
	Token   TokenCmd   `cmd:"" help:"Mint a bearer token for an owner."`
}

type ServeCmd struct {
	Port          string        `help:"Port to listen on." short:"p"`
	SweepInterval time.Duration `help:"Interval between closure sweeps (0 disables)."`
}

func (s *ServeCmd) Run(app *App) error {
	cfg := app.Config
	if s.Port != "" {
		cfg.Port = s.Port
	}
	if s.SweepInterval != 0 {
		cfg.SweepInterval = s.SweepInterval
	}

	if err := database.Connect(cfg); err != nil {
		return err
	}
	if err := database.Migrate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := services.InitPush(ctx, cfg.FCMServiceAccount); err != nil {
		logger.Warn("push notifications disabled", "err", err)
	}
	services.StartSweeper(ctx, cfg.SweepInterval)

	srv := routes.NewApp(cfg.JWTSecret)
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = srv.ShutdownWithTimeout(10 * time.Second)
	}()

	logger.Info("listening", "port", cfg.Port, "timezone", cfg.Timezone)
	return srv.Listen(":" + cfg.Port)
}

type MigrateCmd struct{}

func (m *MigrateCmd) Run(app *App) error {
	if err := database.Connect(app.Config); err != nil {
		return err
	}
	if err := database.Migrate(); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}

type TokenCmd struct {
	User uuid.UUID     `help:"Owner ID the token scopes to." required:""`
	TTL  time.Duration `help:"Token lifetime." default:"720h"`
}

func (t *TokenCmd) Run(app *App) error {
	tok, err := middleware.GenerateToken(app.Config.JWTSecret, t.User, t.TTL)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("goalsd"),
		kong.Description("Goals, milestones and task calendar API"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": "v0.1.0"},
	)

	cfg := config.Load()
	if CLI.Debug {
		cfg.Debug = true
	}
	if CLI.LogDir != "" {
		cfg.LogDir = CLI.LogDir
	}
	if err := logger.Init(logger.Config{Debug: cfg.Debug, LogDir: cfg.LogDir}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	services.Location = cfg.Location()

	if err := ctx.Run(&App{Config: cfg}); err != nil {
		logger.Fatal("command failed", "cmd", ctx.Command(), "err", err)
	}
}
