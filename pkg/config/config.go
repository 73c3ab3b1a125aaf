package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/luxfi/explorer-init/pkg/core"
	"github.com/spf13/viper"
)

const (
	DefaultHost    = "localhost"
	DefaultPort    = 7432
	DefaultUser    = "postgres"
	DefaultDBName  = "blockscout"
	DefaultSSLMode = "disable"
)

// Connection describes how to reach the explorer database
type Connection struct {
	// URL is a full connection string and overrides every other field
	URL string

	Host    string
	Port    int
	User    string
	DBName  string
	SSLMode string
}

// FromArgs resolves the connection from viper settings and the optional
// positional [host] [port] arguments.
func FromArgs(v *viper.Viper, args []string) (Connection, error) {
	conn := Connection{
		Host:    DefaultHost,
		Port:    DefaultPort,
		User:    DefaultUser,
		DBName:  DefaultDBName,
		SSLMode: DefaultSSLMode,
	}

	if v != nil {
		conn.URL = v.GetString("database_url")
		if user := v.GetString("db-user"); user != "" {
			conn.User = user
		}
		if name := v.GetString("db-name"); name != "" {
			conn.DBName = name
		}
		if mode := v.GetString("sslmode"); mode != "" {
			conn.SSLMode = mode
		}
	}

	if len(args) > 0 && args[0] != "" {
		conn.Host = args[0]
	}
	if len(args) > 1 && args[1] != "" {
		port, err := strconv.Atoi(args[1])
		if err != nil || port <= 0 || port > 65535 {
			return Connection{}, core.ErrInvalidConfigf("port", "%q is not a TCP port", args[1])
		}
		conn.Port = port
	}

	return conn, nil
}

// DSN returns the string handed to the postgres driver
func (c Connection) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	parts := []string{
		"host=" + dsnValue(c.Host),
		"port=" + strconv.Itoa(c.Port),
		"user=" + dsnValue(c.User),
		"dbname=" + dsnValue(c.DBName),
	}
	if c.SSLMode != "" {
		parts = append(parts, "sslmode="+dsnValue(c.SSLMode))
	}
	return strings.Join(parts, " ")
}

// dsnValue quotes v for a key=value connection string when it is empty or
// holds a space, quote or backslash.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n\r\f\v'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// String describes the target without credentials embedded in URL
func (c Connection) String() string {
	if c.URL != "" {
		return "DATABASE_URL"
	}
	return fmt.Sprintf("%s@%s:%d/%s", c.User, c.Host, c.Port, c.DBName)
}
