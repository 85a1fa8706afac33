package handlers

import (
	"log/slog"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/handler"
	"github.com/lmittmann/tint"

	"github.com/Kirdow/BrianBot/pkg"
)

var Commands = []discord.ApplicationCommandCreate{
	discord.SlashCommandCreate{
		Name:        "settimezone",
		Description: "Set your timezone",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionString{
				Name:        "tz",
				Description: "Your timezone abbreviation",
				Required:    true,
			},
		},
	},
	discord.SlashCommandCreate{
		Name:        "gettimezone",
		Description: "Get your timezone",
	},
}

func NewHandler(b *pkg.Bot) *Handler {
	mux := handler.New()
	mux.Error(func(e *handler.InteractionEvent, err error) {
		slog.Error("handlers: error while handling an interaction", interactionAttrs(e.Interaction, err)...)
		_ = e.Respond(discord.InteractionResponseTypeCreateMessage, discord.NewMessageCreate().
			WithContentf("There was an error while handling the command: %v", err).
			WithEphemeral(true))
	})
	mux.NotFound(func(e *handler.InteractionEvent) error {
		return e.Respond(discord.InteractionResponseTypeCreateMessage, discord.NewMessageCreate().
			WithContent(unknownCommand).
			WithEphemeral(true))
	})
	handlers := &Handler{
		Bot:    b,
		Router: mux,
	}
	handlers.SlashCommand("/settimezone", handlers.HandleSetTimezone)
	handlers.Command("/gettimezone", handlers.HandleGetTimezone)
	return handlers
}

// interactionAttrs names the command when the interaction is one.
func interactionAttrs(interaction discord.Interaction, err error) []any {
	attrs := []any{tint.Err(err)}
	if i, ok := interaction.(discord.ApplicationCommandInteraction); ok {
		attrs = append(attrs, slog.String("command.name", i.Data.CommandName()))
	}
	return attrs
}

type Handler struct {
	Bot *pkg.Bot
	handler.Router
}

// Messages returns the listener rewriting messages in channels the bot can read.
func (h *Handler) Messages() *events.ListenerAdapter {
	return &events.ListenerAdapter{
		OnMessageCreate: h.OnMessageCreate,
	}
}
