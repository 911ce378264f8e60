package main

import (
	"github.com/jewelcraft/sketchprep/cmd/sketchprep/cmd"
)

func main() {
	cmd.Execute()
}
