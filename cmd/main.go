package main

import (
	"github.com/dyike/GenieGo/internal/cli"
)

func main() {
	cli.Run()
}
