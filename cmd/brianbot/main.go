package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Kirdow/BrianBot/pkg"
	"github.com/Kirdow/BrianBot/pkg/config"
	"github.com/Kirdow/BrianBot/pkg/db"
	"github.com/Kirdow/BrianBot/pkg/handlers"
	"github.com/Kirdow/BrianBot/pkg/rates"
	"github.com/Kirdow/BrianBot/pkg/scan"
	"github.com/Kirdow/BrianBot/pkg/session"
	"github.com/Kirdow/BrianBot/pkg/status"
	"github.com/Kirdow/BrianBot/pkg/tz"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "brianbot",
		Short:        "Discord bot converting times and currencies in messages",
		SilenceUsage: true,
		RunE:         runBot,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Start every configured bot session",
			RunE:  runBot,
		},
		newConvertCommand(),
		newZonesCommand(),
	)
	return root
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	err = sentry.Init(sentry.ClientOptions{
		Dsn:           cfg.SentryDSN,
		EnableTracing: false,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if cfg.IsProduction() { // only log events in prod
				return event
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	defer sentry.Flush(2 * time.Second)

	slog.SetDefault(newLogger(cfg))
	slog.Info("starting the bot...", slog.String("disgo.version", disgo.Version))

	sessions, err := cfg.LoadSessions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zones := tz.Load(cfg.TimezoneTable)
	slog.Info("loaded timezone table", slog.String("table.path", cfg.TimezoneTable), slog.Int("zones.count", len(zones)))

	var cacheOpts []rates.Option
	if cfg.RedisURL != "" {
		snapshots, err := rates.NewRedisSnapshots(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("error while connecting to redis, rates will not be shared", tint.Err(err))
		} else {
			defer snapshots.Close()
			cacheOpts = append(cacheOpts, rates.WithSnapshots(snapshots))
		}
	}
	cache := rates.NewCache(rates.NewHTTPFeed(rates.NewFeedClient(), cfg.FeedURL), cacheOpts...)

	connector := db.NewConnector(cfg.DBAddress, cfg.DBPort)
	defer connector.Close()

	b := &pkg.Bot{
		DB:       db.NewDB(connector, cfg.Database),
		Zones:    zones,
		Rates:    cache,
		Rewriter: scan.New(zones, cache),
	}
	h := handlers.NewHandler(b)

	clients, err := startSessions(ctx, sessions, h)
	defer func() {
		for _, client := range clients {
			if client != nil {
				client.Close(context.Background())
			}
		}
	}()
	if err != nil {
		return err
	}

	if cfg.StatusAddr != "" {
		go func() {
			if err := status.New(zones, cache).ListenAndServe(ctx, cfg.StatusAddr); err != nil {
				slog.Error("error while serving status", tint.Err(err))
			}
		}()
	}

	slog.Info("brianbot is now running.", slog.Int("sessions.count", len(clients)))
	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

func startSessions(ctx context.Context, sessions []config.Session, h *handlers.Handler) ([]*bot.Client, error) {
	clients := make([]*bot.Client, len(sessions))
	eg, ctx := errgroup.WithContext(ctx)
	for i, s := range sessions {
		eg.Go(func() error {
			applicationID, err := s.ApplicationID()
			if err != nil {
				return err
			}
			client, err := session.Start(ctx, session.Options{
				Name:          s.Prefix,
				Token:         s.Token,
				ApplicationID: applicationID,
				Commands:      handlers.Commands,
				Ready: func(event *events.Ready) {
					slog.Info("serving guilds", slog.String("session", s.Prefix), slog.Int("guilds.count", len(event.Guilds)))
				},
				Listeners: []bot.EventListener{h, h.Messages()},
			}, slog.Default())
			clients[i] = client
			return err
		})
	}
	return clients, eg.Wait()
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewMultiHandler(
		tint.NewHandler(os.Stdout, &tint.Options{
			Level: cfg.Level(),
		}),
		sentryslog.Option{
			EventLevel: []slog.Level{slog.LevelWarn, slog.LevelError},
		}.NewSentryHandler(context.Background())))
}

func newConvertCommand() *cobra.Command {
	var (
		zone    string
		offline bool
	)
	cmd := &cobra.Command{
		Use:   "convert [text]",
		Short: "Rewrite time and currency tokens the way the bot would",
		Long: `Rewrite time and currency tokens in text given as arguments, or read from stdin when no arguments are given.

Tokens start with a dash, so pass "--" before text that begins with one:

  brianbot convert --zone est -- "-3pm- works"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			if len(args) == 0 {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = strings.TrimRight(string(b), "\r\n")
			}
			var converter scan.Converter
			if !offline {
				converter = rates.NewCache(rates.NewHTTPFeed(rates.NewFeedClient(), cfg.FeedURL))
			}
			rewriter := scan.New(tz.Load(cfg.TimezoneTable), converter)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rewriter.Rewrite(cmd.Context(), text, zone))
			return err
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVarP(&zone, "zone", "z", scan.DefaultZone, "zone for time tokens without one")
	cmd.Flags().BoolVar(&offline, "offline", false, "leave currency tokens untouched")
	return cmd
}

func newZonesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "zones",
		Short: "List the known timezone abbreviations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			zones := tz.Load(cfg.TimezoneTable)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, abbr := range zones.Abbreviations() {
				entry := zones[abbr]
				fmt.Fprintf(w, "%s\t%d\t%s\n", entry.Abbr, entry.Minutes, entry.Raw)
			}
			return w.Flush()
		},
	}
}
