package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/personakit/persona-go/pkg/avatar"
	"github.com/personakit/persona-go/pkg/hooks"
	"github.com/personakit/persona-go/pkg/rpc"
	"github.com/personakit/persona-go/pkg/service"
	"github.com/personakit/persona-go/pkg/ws"
)

const serverVersion = "0.3.0"

var (
	portFlag int
	hostFlag string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the avatar control server",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(
				context.Background(), syscall.SIGINT, syscall.SIGTERM,
			)
			defer stop()

			registry := hooks.NewRegistry()
			scene := avatar.NewScene(registry)

			scenarios, err := avatar.NewScenarioStore(viper.GetString("scenario.dir"))
			if err != nil {
				return err
			}

			deps := &rpc.Deps{
				Hooks:         registry,
				Chat:          avatar.NewEngine(registry, nil),
				Scene:         scene,
				Media:         avatar.NewMedia(nil, false),
				Config:        avatar.NewConfigStore(nil),
				Scenarios:     scenarios,
				ServerName:    projectName,
				ServerVersion: serverVersion,
			}

			server := rpc.NewServer(deps)

			transport := ws.NewTransport(server, registry, ws.Config{
				MaxConnections:    viper.GetInt("server.maxConnections"),
				HeartbeatInterval: viper.GetDuration("server.heartbeatInterval"),
				ServerName:        projectName,
				ServerVersion:     serverVersion,
			})

			host := hostFlag
			if host == "" {
				host = viper.GetString("server.host")
			}

			port := portFlag
			if port == 0 {
				port = viper.GetInt("server.port")
			}

			svc := service.New(service.Config{
				Host: host,
				Port: port,
				Path: viper.GetString("server.path"),
			}, transport)

			log.Info("starting persona control server", "version", serverVersion)
			return svc.Start(ctx)
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "Port to serve on (overrides config)")
	serveCmd.Flags().StringVarP(&hostFlag, "host", "H", "", "Host address to bind to (overrides config)")
}

var longServe = `
Serve the avatar control surface.

Examples:
  # Serve on the configured port
  persona-go serve

  # Serve on port 8080
  persona-go serve --port 8080
`
