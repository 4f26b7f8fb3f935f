package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/astorre88/chat/internal/app"
	"github.com/astorre88/chat/internal/chat"
	"github.com/astorre88/chat/internal/config"
	"github.com/astorre88/chat/internal/logging"
)

type flags struct {
	config   string
	url      string
	room     string
	logLevel string
	logFile  string
	plain    bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:          "chat",
		Short:        "Terminal client for the room chat server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			// The alt screen owns the terminal; logs only go to a file.
			return runTUI(cmd.Context(), cfg, !f.plain)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.config, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&f.url, "url", "", "WebSocket URL of the chat server (default "+config.DefaultURL+")")
	pf.StringVar(&f.room, "room", "", "room to join first (default "+config.DefaultRoom+")")
	pf.StringVar(&f.logLevel, "log-level", "", "trace, debug, info, warn or error")
	pf.StringVar(&f.logFile, "log-file", "", "append logs to this file")
	cmd.Flags().BoolVar(&f.plain, "plain", false, "show message bodies without markdown rendering")

	cmd.AddCommand(tailCmd(&f))
	return cmd
}

// load reads the config file and environment, then applies flags that were
// set explicitly.
func (f *flags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	changed := cmd.Flags().Changed
	if changed("url") {
		cfg.Server.URL = f.url
	}
	if changed("room") {
		cfg.Session.Room = f.room
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newSession(cfg *config.Config, notifier chat.Notifier, log *zerolog.Logger) *chat.Session {
	return chat.New(chat.Options{
		Room: cfg.Session.Room,
		Dialer: chat.WebSocketDialer{
			HandshakeTimeout: cfg.Server.HandshakeTimeout,
		},
		Notifier:          notifier,
		Logger:            log,
		KeepAliveInterval: cfg.Session.KeepAliveInterval,
	})
}

func runTUI(ctx context.Context, cfg *config.Config, markdown bool) error {
	log, closer, err := logging.New(cfg.Log, io.Discard)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The session needs the program for notifications and the model needs
	// the session for commands, so the bridge is bound after NewProgram.
	var p *tea.Program
	sess := newSession(cfg, app.NewBridge(func(msg tea.Msg) { p.Send(msg) }), &log)

	m := app.New(sess, cfg.Session.Room, app.Options{
		Slugify:  cfg.Session.SlugifyRooms,
		Markdown: markdown,
	})
	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	if err := sess.Start(ctx, cfg.Server.URL); err != nil {
		return err
	}
	defer sess.Close()

	log.Info().Str("url", cfg.Server.URL).Str("room", cfg.Session.Room).Msg("chat client started")
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
