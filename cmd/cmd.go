// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, loginCommand, sessionsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// setupCommand initializes config and database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize config file, database, and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// serveCommand starts the web service
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the spindle web service",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Action: r.Serve,
	}
}

// loginCommand opens the browser at the local login URL
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Open the browser at the running server's login page",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Login,
	}
}

// sessionsCommand inspects and prunes the session table
func sessionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Inspect server-side sessions",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List all sessions",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SessionsList,
			},
			{
				Name:   "prune",
				Usage:  "Delete expired sessions",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SessionsPrune,
			},
		},
	}
}
