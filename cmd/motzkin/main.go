package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/motzkin-store/app"
	"github.com/jrsteele09/motzkin-store/internal/config"
	"github.com/jrsteele09/motzkin-store/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// cli carries the state shared by every command of one invocation.
type cli struct {
	envFile string
	cfg     config.Config
	app     *app.App
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "motzkin",
		Short:         "Browse school equipment lists and collect them in a cart",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.envFile)
			if err != nil {
				return err
			}
			displayAppname(cfg.GetAppName())
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(
		c.loginCommand(),
		c.logoutCommand(),
		c.statusCommand(),
		c.schoolsCommand(),
		c.gradesCommand(),
		c.equipmentCommand(),
		c.cartCommand(),
		c.sessionCommand(),
	)
	return root
}

// open loads the configuration and resolves the session. Every command that
// talks to the stores goes through it.
func (c *cli) open(cmd *cobra.Command) error {
	cfg, err := config.Load(c.envFile)
	if err != nil {
		return err
	}
	logging.Setup(cfg.GetLogLevel(), cfg.GetEnv())
	c.cfg = cfg

	a, err := app.New(cmd.Context(), cfg, app.WithLogger(log.Logger))
	if err != nil {
		return err
	}
	c.app = a
	c.app.Start(cmd.Context())
	return nil
}

func (c *cli) close() {
	if c.app == nil {
		return
	}
	if err := c.app.Close(); err != nil {
		log.Error().Err(err).Msg("close app")
	}
}

// withApp wraps a command body with open and close.
func (c *cli) withApp(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := c.open(cmd); err != nil {
			return err
		}
		defer c.close()
		return run(cmd, args)
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
