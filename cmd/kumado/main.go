package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/kumado/kumado/internal/database"
	"github.com/kumado/kumado/internal/server"
	"github.com/muesli/coral"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const dbname = "kumado.db"

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cfg string
)

func main() {
	c := &coral.Command{
		Use:     "kumado",
		Short:   "Kumado to-do list server",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    coral.ExactArgs(0),
	}
	initCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(initCmd)

	serverCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(serverCmd)

	if err := c.Execute(); err != nil {
		logrus.Fatalf("%+v", err)
	}
}

// konf layers the configuration: defaults, then the optional yaml file,
// then KUMADO_* environment variables (KUMADO_SESSION__ACCESS_TOKEN_TTL
// maps to session.access_token_ttl).
func konf() (*koanf.Koanf, error) {
	k := koanf.New(".")

	err := k.Load(confmap.Provider(map[string]interface{}{
		"address":                   ":8080",
		"database_path":             "",
		"cors_origin":               "",
		"session.access_token_ttl":  "15m",
		"session.refresh_token_ttl": "168h",
	}, "."), nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not load default configuration")
	}

	if cfg != "" {
		if err := k.Load(file.Provider(cfg), yaml.Parser()); err != nil {
			return nil, errors.Wrap(err, "could not load configuration file")
		}
	}

	err = k.Load(env.Provider("KUMADO_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "KUMADO_")), "__", ".")
	}), nil)
	return k, errors.Wrap(err, "could not load environment configuration")
}

func dbnameWithPath(path string) string {
	if len(path) == 0 {
		return dbname
	}
	return filepath.Join(path, dbname)
}

var (
	initCmd = &coral.Command{
		Use:   "init",
		Short: "Init the database",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			k, err := konf()
			if err != nil {
				return err
			}

			return database.BoltInit(dbnameWithPath(k.String("database_path")))
		},
	}

	//
	//
	serverCmd = &coral.Command{
		Use:   "server",
		Short: "Start server",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			k, err := konf()
			if err != nil {
				return err
			}

			// No insecure fallback: tokens signed with a guessable key are
			// indistinguishable from forged ones.
			if k.String("secret_key") == "" {
				return errors.New("secret_key not found")
			}

			db, err := database.BoltOpen(dbnameWithPath(k.String("database_path")))
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			engine := server.EchoEngine(server.Controller{
				Version:                    version,
				Database:                   db,
				CORSOrigin:                 k.String("cors_origin"),
				SigningKey:                 k.MustBytes("secret_key"),
				AccessTokenExpirationTime:  k.MustDuration("session.access_token_ttl"),
				RefreshTokenExpirationTime: k.MustDuration("session.refresh_token_ttl"),
			})
			server.PrintRoutes(engine)

			address := k.String("address")
			message := "could not run server"
			logrus.Infof("Server listening on %s", address)
			parts := strings.Split(address, ":")
			if len(parts) == 2 && parts[0] == "unix" {
				socketFile := parts[1]
				if _, err := os.Stat(socketFile); err == nil {
					logrus.Infof("Removing existing %s", socketFile)
					os.Remove(socketFile)
				}
				defer os.Remove(socketFile)
				listener, err := net.Listen(parts[0], socketFile)
				if err != nil {
					return err
				}
				return errors.Wrap(engine.Server.Serve(listener), message)
			}
			return errors.Wrap(engine.Start(address), message)
		},
	}
)
