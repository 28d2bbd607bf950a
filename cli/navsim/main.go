// Package main is the navsim command itself.
package main

import (
	"log"
	"os"

	"go.viam.com/fieldnav/cli"
)

func main() {
	if err := cli.NewApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
