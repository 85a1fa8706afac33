package pkg

import (
	"context"

	"github.com/disgoorg/snowflake/v2"

	"github.com/Kirdow/BrianBot/pkg/rates"
	"github.com/Kirdow/BrianBot/pkg/scan"
	"github.com/Kirdow/BrianBot/pkg/tz"
)

// Preferences persists the timezone each user picked.
type Preferences interface {
	GetTimezone(ctx context.Context, userID snowflake.ID) (string, bool, error)
	SetTimezone(ctx context.Context, userID snowflake.ID, tz string) error
}

// Bot holds the state shared by every session.
type Bot struct {
	DB       Preferences
	Zones    tz.Table
	Rates    *rates.Cache
	Rewriter *scan.Rewriter
}
