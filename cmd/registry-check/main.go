// Command registry-check verifies governance consistency between the plugin
// directories on disk, the drivers the code actually registers, and the
// documentation table that references them.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"storagecore/internal/blob"
	"storagecore/internal/core"
	"storagecore/internal/validation"
	"storagecore/pkg/storageapi"
	"storagecore/plugins/dropbox"
	"storagecore/plugins/github"
	"storagecore/plugins/googledrive"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("registry-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	root := fs.String("root", ".", "repository root to check")
	docFile := fs.String("doc", "docs/SOLID.md", "documentation file referencing plugins")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	drivers, err := registeredDrivers()
	if err != nil {
		fmt.Fprintf(stderr, "registry-check: %v\n", err)
		return 2
	}

	issues, err := validation.CheckRegistry(*root, drivers, *docFile)
	if err != nil {
		fmt.Fprintf(stderr, "registry-check: %v\n", err)
		return 2
	}

	for _, issue := range issues {
		fmt.Fprintln(stderr, issue)
	}
	if len(issues) > 0 {
		fmt.Fprintf(stderr, "registry-check: %d issue(s) found\n", len(issues))
		return 1
	}
	return 0
}

// registeredDrivers installs every shipped plugin into a scratch registry and
// returns the resulting driver names alongside the built-ins.
func registeredDrivers() ([]string, error) {
	factory := blob.NewFactory()
	plugins := []storageapi.Plugin{dropbox.New(), github.New(), googledrive.New()}

	for _, plugin := range plugins {
		registry := core.NewPluginRegistry()
		if err := plugin.Register(registry); err != nil {
			return nil, fmt.Errorf("register plugin %s: %w", plugin.Name(), err)
		}
		for driver, opener := range registry.Drivers() {
			if err := factory.Register(driver, opener); err != nil {
				return nil, err
			}
		}
	}

	var names []string
	for _, d := range factory.Drivers() {
		names = append(names, string(d))
	}
	return names, nil
}
