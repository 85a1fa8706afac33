package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"
	"github.com/lmittmann/tint"

	"github.com/Kirdow/BrianBot/pkg/scan"
)

const (
	invalidTimezone = "Invalid timezone"
	unknownCommand  = "Unknown command"
)

func (h *Handler) HandleSetTimezone(data discord.SlashCommandInteractionData, event *handler.CommandEvent) error {
	content := h.setTimezone(context.Background(), event.User().ID, data.String("tz"))
	return event.CreateMessage(discord.NewMessageCreate().
		WithContent(content).
		WithEphemeral(true))
}

func (h *Handler) HandleGetTimezone(event *handler.CommandEvent) error {
	content := h.currentTimezone(context.Background(), event.User().ID)
	return event.CreateMessage(discord.NewMessageCreate().
		WithContent(content).
		WithEphemeral(true))
}

func (h *Handler) setTimezone(ctx context.Context, userID snowflake.ID, input string) string {
	entry, ok := h.Bot.Zones.Lookup(strings.TrimSpace(input))
	if !ok {
		return invalidTimezone
	}
	if err := h.Bot.DB.SetTimezone(ctx, userID, entry.Abbr); err != nil {
		slog.Error("handlers: error while storing timezone", slog.Any("user.id", userID), slog.String("zone", entry.Abbr), tint.Err(err))
		return "There was an error while saving your timezone."
	}
	return "Your timezone is now set to " + entry.Abbr
}

func (h *Handler) currentTimezone(ctx context.Context, userID snowflake.ID) string {
	zone, ok, err := h.Bot.DB.GetTimezone(ctx, userID)
	if err != nil {
		slog.Error("handlers: error while getting timezone", slog.Any("user.id", userID), tint.Err(err))
		return "There was an error while getting your timezone."
	}
	if !ok {
		return "You have not set a timezone, " + scan.DefaultZone + " is used. Set one with /settimezone."
	}
	return "Your timezone is set to " + zone
}
