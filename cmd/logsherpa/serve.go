package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/logsherpa/pkg/api"
	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"
)

type serveArguments struct {
	addr string
	port int
}

func serveCommand(args *arguments) *cli.Command {
	var cmdArgs serveArguments

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the parse API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Aliases:     []string{"a"},
				Value:       "127.0.0.1",
				Usage:       "Bind address",
				Destination: &cmdArgs.addr,
			},
			&cli.IntFlag{
				Name:        "port",
				Aliases:     []string{"p"},
				Value:       10080,
				Usage:       "Bind port number",
				Destination: &cmdArgs.port,
			},
		},
		Action: func(c *cli.Context) error {
			api.Logger = logger

			logger.WithFields(logrus.Fields{
				"addr": cmdArgs.addr,
				"port": cmdArgs.port,
			}).Info("Start API server")

			r := gin.Default()
			v1 := r.Group("/api/v1")
			api.SetupRoute(v1, api.NewHandler(args.Region))

			bindAddr := fmt.Sprintf("%s:%d", cmdArgs.addr, cmdArgs.port)
			return r.Run(bindAddr)
		},
	}
}
