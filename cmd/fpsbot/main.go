package main

import (
	"os"

	"github.com/fpsos/fpsbot/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
