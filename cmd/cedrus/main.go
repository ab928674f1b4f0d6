//
//  Copyright © the Cedrus authors. All rights reserved.
//

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/cedrus-authz/cedrus/cmd/cedrus/subcommands/check"
	"github.com/cedrus-authz/cedrus/cmd/cedrus/subcommands/lint"
	"github.com/cedrus-authz/cedrus/cmd/cedrus/subcommands/serve"
	"github.com/cedrus-authz/cedrus/cmd/cedrus/version"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "cedrus",
		Usage: "A CLI application for working with Cedrus policy bundles",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "trace",
				Aliases: []string{"t"},
				Usage:   "Emit decision records to stderr for commands that evaluate policies",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Runs a suite of authorization decisions against one or more policy bundles, simplifying policy authoring and verification",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Load the decision test suite from `FILE`",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "bundle",
						Aliases: []string{"b"},
						Usage:   "Load PolicyBundle from `FILE`.  Can be specified multiple times.",
					},
					&cli.StringSliceFlag{
						Name:  "test",
						Usage: "Run only tests matching this glob pattern.  Can be specified multiple times.",
					},
				},
				Action: check.Execute,
			},
			{
				Name:  "serve",
				Usage: "Creates a decision-point service",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "The TCP port to serve on.",
						Value: 9000,
					},
					&cli.StringSliceFlag{
						Name:    "bundle",
						Aliases: []string{"b"},
						Usage:   "Load PolicyBundle from `FILE`.  Can be specified multiple times.",
					},
				},
				Action: serve.Execute,
			},
			{
				Name:  "lint",
				Usage: "Validate PolicyBundle YAML files for structural and policy syntax errors",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "PolicyBundle YAML file to lint (.yml, .yaml). Can be specified multiple times.",
						Required: true,
					},
				},
				Action: lint.Execute,
			},
			{
				Name:  "version",
				Usage: "Print the cedrus version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Println(version.GetVersion())
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
