package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/toolcatalog/toolcatalog/internal/app"
	"github.com/toolcatalog/toolcatalog/internal/config"
	"github.com/urfave/cli/v2"
)

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "path to the YAML config file",
	EnvVars: []string{"CONFIG_PATH"},
}

func main() {
	cliApp := &cli.App{
		Name:  "toolcatalog",
		Usage: "tool catalog backend: exchange rates, api keys and ad placements",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: migrate,
			},
		},
		DefaultCommand: "serve",
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.WithError(err).Fatal("toolcatalog failed")
	}
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.RunServer(ctx, config.AppConfig{ConfigPath: c.String(configFlag.Name)})
}

func migrate(c *cli.Context) error {
	return app.Migrate(c.Context, config.AppConfig{ConfigPath: c.String(configFlag.Name)})
}
