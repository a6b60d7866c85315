package main

import (
	"os"

	"github.com/psantana5/cmdexec/cmd/cmdexec/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
