package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/lmittmann/tint"

	"github.com/Kirdow/BrianBot/pkg/scan"
)

func (h *Handler) OnMessageCreate(event *events.MessageCreate) {
	message := event.Message
	content, ok := h.rewrite(context.Background(), message)
	if !ok {
		return
	}
	_, err := event.Client().Rest.CreateMessage(event.ChannelID, discord.NewMessageCreate().
		WithContent(content).
		WithMessageReferenceByID(event.MessageID).
		WithAllowedMentions(&discord.AllowedMentions{}))
	if err != nil {
		slog.Error("handlers: error while sending reply", slog.Any("channel.id", event.ChannelID), slog.Any("parent.id", event.MessageID), tint.Err(err))
	}
}

// rewrite returns the converted content of message and whether anything changed.
func (h *Handler) rewrite(ctx context.Context, message discord.Message) (string, bool) {
	if message.Author.Bot || strings.Count(message.Content, "-") < 2 { // every token is wrapped in dashes
		return "", false
	}
	zone := h.userZone(ctx, message.Author.ID)
	content := h.Bot.Rewriter.Rewrite(ctx, message.Content, zone)
	if content == message.Content {
		return "", false
	}
	return content, true
}

// userZone is the stored zone of the user, or UTC when unset or unavailable.
func (h *Handler) userZone(ctx context.Context, userID snowflake.ID) string {
	zone, ok, err := h.Bot.DB.GetTimezone(ctx, userID)
	if err != nil {
		slog.Error("handlers: error while getting timezone", slog.Any("user.id", userID), tint.Err(err))
		return scan.DefaultZone
	}
	if !ok {
		return scan.DefaultZone
	}
	return zone
}
