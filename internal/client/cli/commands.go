package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/leftoverchef/internal/buildinfo"
	"github.com/urfave/cli/v2"
)

const appName = "leftoverchef"

// cliApp describes the command tree. It is rebuilt per call so that the
// shell can dispatch each line through it.
func (a *App) cliApp() *cli.App {
	return &cli.App{
		Name:      appName,
		Usage:     "recognise leftovers from a photo and keep a history of them",
		Version:   buildinfo.Version,
		Writer:    a.out,
		ErrWriter: a.out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Aliases: []string{"s"}, Usage: "API base URL"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a JSON config file"},
			&cli.StringFlag{Name: "session", Usage: "file that keeps the login token"},
		},
		Before: a.before,
		Commands: []*cli.Command{
			{Name: "register", Usage: "create an account", Action: a.action(a.Register)},
			{Name: "login", Usage: "log in and remember the session", Action: a.action(a.Login)},
			{Name: "logout", Usage: "forget the saved session", Action: a.action(a.Logout)},
			{Name: "me", Usage: "show the current user", Action: a.action(a.Me)},
			{Name: "passwd", Usage: "change password", Action: a.action(a.ChangePassword)},
			{
				Name:      "predict",
				Usage:     "upload an image and list the ingredients found",
				ArgsUsage: "<image-file>",
				Action: func(c *cli.Context) error {
					return a.Predict(c.Context, c.Args().First())
				},
			},
			{
				Name:  "history",
				Usage: "list past predictions",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Usage: "page number"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "items per page"},
				},
				Action: func(c *cli.Context) error {
					return a.History(c.Context, c.Int("page"), c.Int("limit"))
				},
			},
			{
				Name:      "show",
				Usage:     "show one prediction",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return a.Show(c.Context, c.Args().First())
				},
			},
			{
				Name:      "delete",
				Usage:     "delete one prediction",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return a.Delete(c.Context, c.Args().First())
				},
			},
			{
				Name:  "clear",
				Usage: "delete all predictions",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip confirmation"},
				},
				Action: func(c *cli.Context) error {
					return a.Clear(c.Context, c.Bool("yes"))
				},
			},
			{Name: "stats", Usage: "show ingredient statistics", Action: a.action(a.Stats)},
			{
				Name:  "version",
				Usage: "print build information",
				Action: func(c *cli.Context) error {
					buildinfo.PrintBuildData(a.out)
					return nil
				},
			},
			{
				Name:  "shell",
				Usage: "interactive mode",
				Action: func(c *cli.Context) error {
					return a.shell(c.Context)
				},
			},
		},
	}
}

func (a *App) action(fn func(ctx context.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error { return fn(c.Context) }
}

// before applies flag overrides on top of the loaded config and connects.
func (a *App) before(c *cli.Context) error {
	if v := c.String("server"); v != "" && v != a.config.ServerURL {
		a.config.ServerURL = v
		a.api = nil
	}
	if v := c.String("session"); v != "" {
		a.config.SessionFile = v
	}
	return a.connect()
}

func (a *App) shell(ctx context.Context) error {
	fmt.Fprintf(a.out, "%s shell, type 'help' for commands, 'exit' to leave\n", appName)

	dispatch := func(ctx context.Context, args []string) error {
		return a.cliApp().RunContext(ctx, append([]string{appName}, args...))
	}
	runREPL(ctx, dispatch, a.status, bufio.NewScanner(os.Stdin))
	return nil
}
