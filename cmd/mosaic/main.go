package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/justyntemme/mosaic/internal/app"
	"github.com/justyntemme/mosaic/internal/config"
	"github.com/justyntemme/mosaic/internal/debug"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable verbose debug logging")
	library := flag.Bool("library", false, "Recursively scan the path for images instead of browsing")
	generateConfig := flag.Bool("generate-config", false, "Write a default config.json and exit")
	flag.Parse()

	if *debugFlag {
		debug.EnableAll()
	}

	if *generateConfig {
		backup, err := config.GenerateConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", config.ConfigPath())
		if backup != "" {
			fmt.Printf("Previous config backed up to %s\n", backup)
		}
		return
	}

	app.Main(flag.Arg(0), *library)
}
