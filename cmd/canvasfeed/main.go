// canvasfeed is the CLI for the Canvas LMS change-detection engine.
package main

import (
	"os"

	"github.com/titulartarantula/canvas-rss-sub001/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
