// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and initialize the database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles the OAuth login flow and credential management.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authenticate with Spotify using OAuth2",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the OAuth callback",
						Value: authTimeout,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Remove stored credentials",
				Action: r.AuthLogout,
			},
		},
	}
}

// statusCommand reports whether stored credentials are usable.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Check current authentication state",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// playlistCommand handles playlist inspection and edits.
func playlistCommand(r *Runner) *cli.Command {
	idFlag := &cli.StringFlag{
		Name:  "id",
		Usage: "Playlist ID (defaults to the configured station playlist)",
	}

	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Station playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "tracks",
				Usage: "List all tracks in the playlist",
				Flags: []cli.Flag{
					idFlag,
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.PlaylistTracks,
			},
			{
				Name:  "details",
				Usage: "Show playlist metadata",
				Flags: []cli.Flag{
					idFlag,
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.PlaylistDetails,
			},
			{
				Name:  "add",
				Usage: "Add tracks to the playlist by URI",
				Arguments: []cli.Argument{
					&cli.StringArgs{
						Name: "uris",
						Min:  1,
						Max:  -1,
					},
				},
				Flags: []cli.Flag{
					idFlag,
					&cli.IntFlag{
						Name:  "position",
						Usage: "Insert position (default: append)",
						Value: -1,
					},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove tracks from the playlist by URI",
				Arguments: []cli.Argument{
					&cli.StringArgs{
						Name: "uris",
						Min:  1,
						Max:  -1,
					},
				},
				Flags:  []cli.Flag{idFlag},
				Action: r.PlaylistRemove,
			},
			{
				Name:  "search",
				Usage: "Search the Spotify catalog for tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "query",
					},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.PlaylistSearch,
			},
		},
	}
}

// recommendCommand runs the vibe-match pipeline from the CLI.
func recommendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "recommend",
		Aliases: []string{"rec", "vibe-match"},
		Usage:   "Recommend tracks that match the playlist's vibe",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "Reference playlist ID (defaults to the configured station playlist)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of recommendations",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: text, json, csv, or markdown",
				Value: "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Action: r.Recommend,
	}
}

// historyCommand lists past recommendation runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent recommendation runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 10,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.History,
	}
}

// serveCommand starts the HTTP API server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides config)",
			},
		},
		Action: r.Serve,
	}
}
