// Package session creates and runs a single Discord bot user.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"
	"github.com/lmittmann/tint"
	"github.com/pkg/errors"
)

var DefaultIntents = []gateway.Intents{
	gateway.IntentGuilds,
	gateway.IntentGuildMessages,
	gateway.IntentMessageContent,
}

type Options struct {
	// Name identifies the session in logs until the bot user is known.
	Name          string
	Token         string
	ApplicationID snowflake.ID
	Intents       []gateway.Intents
	Commands      []discord.ApplicationCommandCreate
	Ready         func(event *events.Ready)
	Listeners     []bot.EventListener
}

// Start builds the client and opens the gateway. Commands are registered in
// the background; the gateway does not wait for them.
func Start(ctx context.Context, opts Options, logger *slog.Logger) (*bot.Client, error) {
	logger = logger.With(slog.String("session", opts.Name))
	intents := opts.Intents
	if len(intents) == 0 {
		intents = DefaultIntents
	}

	listeners := make([]bot.EventListener, 0, len(opts.Listeners)+1)
	listeners = append(listeners, &events.ListenerAdapter{
		OnReady: func(event *events.Ready) {
			logger.Info("session: logged in", slog.String("user.name", event.User.Username), slog.Any("user.id", event.User.ID))
			if opts.Ready == nil {
				return
			}
			Recover(logger, "ready hook", func() {
				opts.Ready(event)
			})
		},
	})
	for _, l := range opts.Listeners {
		listeners = append(listeners, SafeListener(logger, l))
	}

	client, err := disgo.New(opts.Token,
		bot.WithLogger(slog.New(NewHeartbeatFilter(logger.Handler()))),
		bot.WithGatewayConfigOpts(gateway.WithIntents(intents...)),
		bot.WithEventListeners(listeners...))
	if err != nil {
		return nil, errors.Wrapf(err, "building client for session %s", opts.Name)
	}

	if len(opts.Commands) != 0 {
		go registerCommands(client, opts.ApplicationID, opts.Commands, logger)
	}

	if err := client.OpenGateway(ctx); err != nil {
		client.Close(context.Background())
		return nil, errors.Wrapf(err, "opening gateway for session %s", opts.Name)
	}
	logger.Info("session: gateway opened")
	return client, nil
}

func registerCommands(client *bot.Client, applicationID snowflake.ID, commands []discord.ApplicationCommandCreate, logger *slog.Logger) {
	logger.Info("session: refreshing application commands", slog.Int("commands.count", len(commands)))
	if _, err := client.Rest.SetGlobalCommands(applicationID, commands); err != nil {
		logger.Error("session: error while registering application commands", slog.Any("application.id", applicationID), tint.Err(err))
		return
	}
	logger.Info("session: reloaded application commands")
}

// Recover runs f and logs a panic instead of letting it take the session down.
func Recover(logger *slog.Logger, name string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("session: recovered from panic", slog.String("hook", name), slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		}
	}()
	f()
}

type safeListener struct {
	logger   *slog.Logger
	listener bot.EventListener
}

// SafeListener wraps l so that panics inside it are logged and swallowed.
func SafeListener(logger *slog.Logger, l bot.EventListener) bot.EventListener {
	return &safeListener{
		logger:   logger,
		listener: l,
	}
}

func (l *safeListener) OnEvent(event bot.Event) {
	Recover(l.logger, fmt.Sprintf("%T", event), func() {
		l.listener.OnEvent(event)
	})
}
