package config

import (
	"log/slog"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, cfg.Sessions)
	assert.Equal(t, "timezones.csv", cfg.TimezoneTable)
	assert.Equal(t, "brianbot", cfg.Database)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoad(t *testing.T) {
	t.Setenv("BOT_SESSIONS", "B,K")
	t.Setenv("DB_ADDRESS", "db.internal")
	t.Setenv("BRIANBOT_ENVIRONMENT", "PROD")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "K"}, cfg.Sessions)
	assert.Equal(t, "db.internal", cfg.DBAddress)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, slog.LevelDebug, cfg.Level())
}

func TestLevelFallback(t *testing.T) {
	cfg := &Config{LogLevel: "loud"}
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoadSessions(t *testing.T) {
	t.Setenv("BTOKEN", "token-b")
	t.Setenv("BCLIENT_ID", "1152621201447817308")
	t.Setenv("KTOKEN", "token-k")
	t.Setenv("KCLIENT_ID", "1152621201447817309")

	cfg := &Config{Sessions: []string{"B", " K ", ""}}
	sessions, err := cfg.LoadSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, Session{Prefix: "B", Token: "token-b", ClientID: "1152621201447817308"}, sessions[0])
	assert.Equal(t, Session{Prefix: "K", Token: "token-k", ClientID: "1152621201447817309"}, sessions[1])

	id, err := sessions[0].ApplicationID()
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(1152621201447817308), id)

}

func TestLoadSessionsErrors(t *testing.T) {
	_, err := (&Config{Sessions: []string{"MISSING"}}).LoadSessions()
	assert.Error(t, err)

	t.Setenv("XTOKEN", "token-x")
	_, err = (&Config{Sessions: []string{"X"}}).LoadSessions()
	assert.Error(t, err, "client id is required")

	_, err = (&Config{}).LoadSessions()
	assert.Error(t, err)

	_, err = Session{Prefix: "B", ClientID: "not-a-number"}.ApplicationID()
	assert.Error(t, err)
}
