package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"

	"github.com/qperfect-io/mimiqlink-go/config"
	"github.com/qperfect-io/mimiqlink-go/domain"
	"github.com/qperfect-io/mimiqlink-go/journal"
	"github.com/qperfect-io/mimiqlink-go/mimiqlink"
	"github.com/qperfect-io/mimiqlink-go/util"
)

func init() {
	util.LogInit()
}

func main() {
	app := cli.NewApp()
	app.Name = "mimiq"
	app.Usage = "Submit and track jobs on the MIMIQ remote emulation services"
	app.Version = mimiqlink.Version

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "url",
			Usage:  "MIMIQ server url",
			EnvVar: config.VarServer,
		},
		cli.StringFlag{
			Name:   "token-file",
			Usage:  "path of the saved session token",
			EnvVar: config.VarTokenFile,
		},
		cli.StringFlag{
			Name:   "workspace",
			Usage:  "directory for the token file and the submission journal",
			EnvVar: config.VarWorkspace,
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
	}

	app.Before = func(c *cli.Context) error {
		// .env is optional
		_ = godotenv.Load()

		if c.Bool("debug") {
			util.EnableDebugLog()
		}

		m := config.GetInstance()
		m.Debug = c.Bool("debug")
		m.Server = c.String("url")
		m.TokenFile = c.String("token-file")
		m.Workspace = c.String("workspace")

		if err := m.Init(); err != nil {
			return err
		}

		if m.Debug {
			m.PrintInfo()
		}
		return nil
	}

	app.After = func(c *cli.Context) error {
		config.GetInstance().Close()
		return nil
	}

	app.Commands = []cli.Command{
		loginCommand(),
		submitCommand(),
		statusCommand(),
		listCommand(),
		downloadCommand(),
		stopCommand(),
		rmFilesCommand(),
		limitsCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

// withConn opens the shared connection from the stored token before
// running the command.
func withConn(action func(ctx context.Context, m *config.Manager, c *cli.Context) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		m := config.GetInstance()
		if err := m.OpenConnection(m.AppCtx); err != nil {
			return err
		}
		return action(m.AppCtx, m, c)
	}
}

func requestID(c *cli.Context) (string, error) {
	id := c.Args().First()
	if id == "" {
		return "", errors.New("an execution request id is required")
	}
	return id, nil
}

// syncJournal reflects a server-observed status into the journal.
// Requests submitted elsewhere are not recorded, that is not an error.
func syncJournal(m *config.Manager, id string, status domain.Status) {
	err := m.Journal.UpdateStatus(id, status)
	if err != nil && !errors.Is(err, journal.ErrNotRecorded) {
		util.LogWarn("Journal update failed for %s: %v", id, err)
	}
}

func loginCommand() cli.Command {
	return cli.Command{
		Name:  "login",
		Usage: "Authenticate and save the session token",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:   "email, e",
				Usage:  "account email",
				EnvVar: config.VarEmail,
			},
			cli.StringFlag{
				Name:   "password, p",
				Usage:  "account password",
				EnvVar: config.VarPassword,
			},
			cli.StringFlag{
				Name:  "token, t",
				Usage: "connect with an existing refresh token",
			},
			cli.BoolFlag{
				Name:  "web, w",
				Usage: "login through the browser",
			},
		},
		Action: func(c *cli.Context) error {
			m := config.GetInstance()
			ctx := m.AppCtx
			conn := m.Conn

			var err error
			switch {
			case c.Bool("web"):
				err = conn.ConnectWeb(ctx)
			case util.HasString(c.String("token")):
				err = conn.ConnectToken(ctx, c.String("token"))
			case util.HasString(c.String("email")):
				err = conn.ConnectUser(ctx, c.String("email"), c.String("password"))
			default:
				err = conn.ConnectWeb(ctx)
			}
			if err != nil {
				return err
			}

			if err := conn.SaveToken(m.TokenFile); err != nil {
				return err
			}

			util.LogInfo("Session token saved to %s", m.TokenFile)
			fmt.Println(conn.String())
			return nil
		},
	}
}

func submitCommand() cli.Command {
	return cli.Command{
		Name:      "submit",
		Usage:     "Submit an execution request with its input files",
		ArgsUsage: "FILE [FILE...]",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "name, n",
				Usage: "name of the execution request",
				Value: "mimiq",
			},
			cli.StringFlag{
				Name:  "label, l",
				Usage: "label shown in the request listing",
				Value: "circuitsimu",
			},
			cli.StringFlag{
				Name:  "emulator",
				Usage: "emulator type to run on",
				Value: "MIMIQ",
			},
			cli.IntFlag{
				Name:  "timeout",
				Usage: "execution time limit in minutes",
				Value: 30,
			},
		},
		Action: withConn(func(ctx context.Context, m *config.Manager, c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New("at least one input file is required")
			}

			id, err := m.Conn.Request(ctx,
				c.String("emulator"), c.String("name"), c.String("label"), c.Int("timeout"),
				[]string(c.Args())...)
			if err != nil {
				return err
			}

			err = m.Journal.Record(&journal.Entry{
				ExecutionID:  id,
				Server:       m.Server,
				Name:         c.String("name"),
				Label:        c.String("label"),
				EmulatorType: c.String("emulator"),
			})
			util.LogIfError(err)

			fmt.Println(id)
			return nil
		}),
	}
}

func statusCommand() cli.Command {
	return cli.Command{
		Name:      "status",
		Usage:     "Show the status of an execution request",
		ArgsUsage: "ID",
		Action: withConn(func(ctx context.Context, m *config.Manager, c *cli.Context) error {
			id, err := requestID(c)
			if err != nil {
				return err
			}

			info, err := m.Conn.RequestInfo(ctx, id)
			if err != nil {
				return err
			}

			syncJournal(m, id, info.Status)
			fmt.Println(info)
			return nil
		}),
	}
}

func listCommand() cli.Command {
	return cli.Command{
		Name:  "list",
		Usage: "List execution requests",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "status, s",
				Usage: "only requests with this status (NEW, RUNNING, DONE, ERROR, CANCELED)",
			},
			cli.IntFlag{
				Name:  "limit",
				Usage: "page size",
			},
			cli.IntFlag{
				Name:  "page",
				Usage: "page number",
			},
			cli.BoolFlag{
				Name:  "local",
				Usage: "list the local submission journal instead of the server",
			},
		},
		Action: func(c *cli.Context) error {
			m := config.GetInstance()

			if c.Bool("local") {
				return listLocal(m)
			}

			if err := m.OpenConnection(m.AppCtx); err != nil {
				return err
			}

			filter := &domain.RequestFilter{
				Status: domain.Status(c.String("status")),
				Limit:  c.Int("limit"),
				Page:   c.Int("page"),
			}

			list, err := m.Conn.Requests(m.AppCtx, filter)
			if err != nil {
				return err
			}

			for _, info := range list {
				syncJournal(m, info.ID, info.Status)
			}

			fmt.Println(list)
			return nil
		},
	}
}

func listLocal(m *config.Manager) error {
	entries, err := m.Journal.List()
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No recorded submissions")
		return nil
	}

	for _, entry := range entries {
		fmt.Println(entry)
	}
	return nil
}

func downloadCommand() cli.Command {
	return cli.Command{
		Name:      "download",
		Usage:     "Download the files of an execution request",
		ArgsUsage: "ID",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "source, s",
				Usage: "file set to fetch: uploads or results",
				Value: string(domain.SourceResults),
			},
			cli.StringFlag{
				Name:  "dest, d",
				Usage: "destination directory, ./ID when empty",
			},
		},
		Action: withConn(func(ctx context.Context, m *config.Manager, c *cli.Context) error {
			id, err := requestID(c)
			if err != nil {
				return err
			}

			source := domain.FileSource(c.String("source"))
			if source != domain.SourceUploads && source != domain.SourceResults {
				return fmt.Errorf("unknown file source %q", source)
			}

			names, err := m.Conn.DownloadFiles(ctx, id, source, c.String("dest"))
			for _, name := range names {
				util.LogInfo("Downloaded %s", name)
			}
			return err
		}),
	}
}

func stopCommand() cli.Command {
	return cli.Command{
		Name:      "stop",
		Usage:     "Stop a running execution request",
		ArgsUsage: "ID",
		Action: withConn(func(ctx context.Context, m *config.Manager, c *cli.Context) error {
			id, err := requestID(c)
			if err != nil {
				return err
			}

			if err := m.Conn.StopExecution(ctx, id); err != nil {
				return err
			}

			syncJournal(m, id, domain.StatusCanceled)
			util.LogInfo("Requested stop of %s", id)
			return nil
		}),
	}
}

func rmFilesCommand() cli.Command {
	return cli.Command{
		Name:      "rm-files",
		Usage:     "Delete the remote files of an execution request",
		ArgsUsage: "ID",
		Action: withConn(func(ctx context.Context, m *config.Manager, c *cli.Context) error {
			id, err := requestID(c)
			if err != nil {
				return err
			}

			if err := m.Conn.DeleteFiles(ctx, id); err != nil {
				return err
			}

			util.LogInfo("Deleted remote files of %s", id)
			return nil
		}),
	}
}

func limitsCommand() cli.Command {
	return cli.Command{
		Name:  "limits",
		Usage: "Show the account usage limits",
		Action: withConn(func(ctx context.Context, m *config.Manager, c *cli.Context) error {
			fmt.Println(m.Conn.String())
			return nil
		}),
	}
}
