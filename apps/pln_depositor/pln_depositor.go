package main

import (
	"flag"
	"fmt"
	"github.com/pkppln/depositor/context"
	"github.com/pkppln/depositor/models"
	"github.com/pkppln/depositor/workers"
	"os"
)

// pln_depositor packages tenant content into preservation archives
// and keeps the preservation network up to date. See printUsage().

func main() {
	pathToConfigFile := parseCommandLine()
	config, err := models.LoadConfigFile(pathToConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	depositor := workers.NewDepositor(_context)
	results := depositor.Run()
	_context.LogStats()
	_context.Store.Close()
	exitCode := 0
	for _, result := range results {
		if result.HasErrors() {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func parseCommandLine() (configFile string) {
	var pathToConfigFile string
	flag.StringVar(&pathToConfigFile, "config", "", "Path to depositor config file")
	flag.Parse()
	if pathToConfigFile == "" {
		printUsage()
		os.Exit(1)
	}
	return pathToConfigFile
}

// Tell the user about the program.
func printUsage() {
	message := `
pln_depositor runs the full deposit pipeline for every tenant in the
config file: it discovers new content, batches it into deposits,
packages each deposit as a checksummed tar archive with an Atom
metadata document, transfers the metadata to the preservation
network's staging server, and polls the server until each deposit
reaches durable preservation. This typically runs as a cron job.
There are separate config files for demo, production, etc.

Usage: pln_depositor -config=<absolute path to depositor config file>

Param -config is required.
`
	fmt.Println(message)
}
