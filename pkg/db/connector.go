package db

import (
	"context"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const keyBase = "KEYSBOAT"

// Connector lazily opens one pool per logical database and keeps it for the
// life of the process.
type Connector struct {
	Address string
	Port    string
	// LookupEnv resolves credentials; os.LookupEnv when nil.
	LookupEnv func(key string) (string, bool)

	mu    sync.Mutex
	pools map[string]*pgxpool.Pool
}

func NewConnector(address string, port string) *Connector {
	return &Connector{
		Address: address,
		Port:    port,
		pools:   make(map[string]*pgxpool.Pool),
	}
}

// Conn returns the pool for name, connecting and creating the users table on first use.
func (c *Connector) Conn(ctx context.Context, name string) (Querier, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pool, ok := c.pools[name]; ok {
		return pool, nil
	}
	pool, err := pgxpool.New(ctx, c.DSN(name))
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to database %s", name)
	}
	if _, err := pool.Exec(ctx, createUsersQuery); err != nil {
		pool.Close()
		return nil, errors.Wrapf(err, "creating users table in %s", name)
	}
	if c.pools == nil {
		c.pools = make(map[string]*pgxpool.Pool)
	}
	c.pools[name] = pool
	return pool, nil
}

// DSN builds the connection string for name. Credentials are read from
// DB_USER_<key> and DB_PASS_<key> where key is Key(name).
func (c *Connector) DSN(name string) string {
	lookup := c.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	key := Key(name)
	user, userOK := lookup("DB_USER_" + key)
	pass, passOK := lookup("DB_PASS_" + key)
	if !userOK || !passOK || user == "" || pass == "" {
		slog.Warn("db: missing database credentials", slog.String("db.key", key), slog.String("db.name", name))
		user, pass = "missing", "credentials"
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, pass),
		Host:   net.JoinHostPort(c.Address, c.Port),
		Path:   "/" + name,
	}
	return u.String()
}

func (c *Connector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, pool := range c.pools {
		pool.Close()
		delete(c.pools, name)
	}
}

// Key derives the credential key for a database name. It only keeps credential
// variables for several databases apart and is not a secret.
func Key(name string) string {
	name = strings.ToUpper(name)
	result := make([]int, 0, len(keyBase))
	n := 0
	push := func(c byte) {
		if n < len(keyBase) {
			result = append(result, int(c)-'A')
		} else {
			result[n%len(keyBase)] += int(c) - 'A'
		}
		n++
	}
	for i := 0; i < len(keyBase); i++ {
		push(keyBase[i])
	}
	if name != "" {
		for i := range max(len(keyBase)*16, len(name)) {
			push(name[i%len(name)])
		}
	}
	key := make([]byte, len(result))
	for i, v := range result {
		key[i] = byte(v%26 + 'A')
	}
	return string(key)
}
