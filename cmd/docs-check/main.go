// Command docs-check lints the repository documentation: every local
// markdown link must resolve and the principle tables must be well-formed.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"storagecore/internal/validation"
)

// solidTableColumns is Information | Violation | Rectification | Overview.
const solidTableColumns = 4

var checkedFiles = []string{
	"README.md",
	"CONTRIBUTING.md",
	"docs/SOLID.md",
	"docs/PATTERNS.md",
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("docs-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	root := fs.String("root", ".", "repository root to lint")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var issues []validation.Issue
	for _, file := range checkedFiles {
		found, err := validation.CheckLinks(*root, file)
		if err != nil {
			fmt.Fprintf(stderr, "docs-check: %v\n", err)
			return 2
		}
		issues = append(issues, found...)
	}

	tableIssues, err := validation.CheckTable(*root, "docs/SOLID.md", solidTableColumns)
	if err != nil {
		fmt.Fprintf(stderr, "docs-check: %v\n", err)
		return 2
	}
	issues = append(issues, tableIssues...)

	for _, issue := range issues {
		fmt.Fprintln(stderr, issue)
	}
	if len(issues) > 0 {
		fmt.Fprintf(stderr, "docs-check: %d issue(s) found\n", len(issues))
		return 1
	}
	return 0
}
