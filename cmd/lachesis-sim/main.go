// Command lachesis-sim is the driver of spec.md §6.1/§6.2/§6.3: it chooses
// an ingress adapter ("input" or "eventdb") based on the first argument and
// runs it. Grounded on the original C++ driver.cpp's name-based generator
// registry (_examples/original_source/cmd/conf_tester/driver.cpp), wired
// through github.com/urfave/cli the way the teacher's go.mod already
// anticipates (its replace directive for gopkg.in/urfave/cli.v1) and the
// wider pack's own CLI entrypoint (original_source/cmd/dbchecker/main.go)
// demonstrates in practice.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli"

	"lachesis-conformance/internal/console"
	"lachesis-conformance/internal/eventdb"
)

func main() {
	app := cli.NewApp()
	app.Name = "lachesis-sim"
	app.Usage = "Lachesis aBFT reference simulator and conformance tester"
	app.Commands = []cli.Command{
		{
			Name:      "input",
			Usage:     "drive the simulator from an N/C/R command script on stdin",
			ArgsUsage: "[legacy]",
			Action:    runInput,
		},
		{
			Name:      "eventdb",
			Usage:     "replay a recorded epoch from a sqlite event-db",
			ArgsUsage: "<eventdb> <epoch> [legacy]",
			Action:    runEventDB,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runInput(c *cli.Context) error {
	legacy := c.Args().Get(0) == "legacy"
	console.SetLegacy(legacy)
	_, err := console.Run(os.Stdin)
	return err
}

func runEventDB(c *cli.Context) error {
	if c.NArg() < 2 {
		return cli.NewExitError("usage: lachesis-sim eventdb <eventdb> <epoch> [legacy]", 1)
	}
	path := c.Args().Get(0)
	epoch, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("bad epoch %q: %v", c.Args().Get(1), err), 1)
	}
	legacy := c.Args().Get(2) == "legacy"

	_, err = eventdb.Run(path, epoch, legacy)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	return nil
}
