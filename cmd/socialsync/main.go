package main

import (
	"os"

	"github.com/socialsync/socialsync/internal/cli"
)

func main() {
	os.Exit(cli.ExecuteWithErrorCode(os.Args[1:]))
}
