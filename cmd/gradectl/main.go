// Command gradectl runs maintenance tasks against the grading database.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "gradectl",
		Usage: "maintenance commands for the tests API",
		Commands: []*cli.Command{
			migrateCommand(),
			reconcileCommand(),
			tokenCommand(),
			exportCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:      "migrate",
		Usage:     "run a goose command against the embedded migrations",
		ArgsUsage: "<up|down|status|version|redo|up-to VERSION|down-to VERSION>",
		Action: func(c *cli.Context) error {
			command := c.Args().First()
			if command == "" {
				return cli.Exit("migrate: command required", 2)
			}
			env, err := bootstrap()
			if err != nil {
				return err
			}
			defer env.Close()
			return env.migrate(command, c.Args().Tail()...)
		},
	}
}

func reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "create missing and delete orphan result rows",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "test", Usage: "test id"},
			&cli.BoolFlag{Name: "all", Usage: "reconcile every test"},
		},
		Action: func(c *cli.Context) error {
			testID := c.String("test")
			if testID == "" && !c.Bool("all") {
				return cli.Exit("reconcile: --test or --all required", 2)
			}
			env, err := bootstrap()
			if err != nil {
				return err
			}
			defer env.Close()

			ids := []string{testID}
			if testID == "" {
				if ids, err = env.allTestIDs(c.Context); err != nil {
					return err
				}
			}
			for _, id := range ids {
				report, err := env.tests.Reconcile(c.Context, id)
				if err != nil {
					return fmt.Errorf("reconcile %s: %w", id, err)
				}
				fmt.Fprintf(c.App.Writer, "%s\tcreated=%d\tdeleted=%d\n", id, report.Created, report.Deleted)
			}
			return nil
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue an access token signed with the configured secret",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true},
			&cli.StringFlag{Name: "role", Value: "ADMIN", Usage: "ADMIN, TEACHER or VIEWER"},
			&cli.StringFlag{Name: "name"},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			auth, err := authFromConfig()
			if err != nil {
				return err
			}
			token, err := issueToken(auth, c.String("user"), c.String("name"), c.String("role"), c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token.AccessToken)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "render a report to a local file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Value: "report_card", Usage: "report_card, test_results or group_progress"},
			&cli.StringFlag{Name: "format", Value: "pdf", Usage: "csv or pdf"},
			&cli.StringFlag{Name: "student"},
			&cli.StringFlag{Name: "group"},
			&cli.StringFlag{Name: "test"},
			&cli.StringFlag{Name: "subject"},
			&cli.IntFlag{Name: "year", Usage: "academic year, defaults to the current one"},
			&cli.IntFlag{Name: "from", Value: int(time.September)},
			&cli.IntFlag{Name: "to", Value: int(time.August)},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			params, reportType, err := exportParams(c, time.Now())
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			env, err := bootstrap()
			if err != nil {
				return err
			}
			defer env.Close()

			payload, err := env.render(c.Context, reportType, params)
			if err != nil {
				return err
			}
			if err := os.WriteFile(c.String("out"), payload, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", c.String("out"), err)
			}
			fmt.Fprintf(c.App.Writer, "wrote %d bytes to %s\n", len(payload), c.String("out"))
			return nil
		},
	}
}
