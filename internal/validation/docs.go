// Package validation lints the repository documentation: local markdown
// links must resolve and principle tables must be well-formed.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Issue is one documentation defect.
type Issue struct {
	File    string
	Line    int
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s:%d: %s", i.File, i.Line, i.Message)
}

var linkPattern = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)\)`)

// CheckLinks verifies every relative markdown link in file resolves to an
// existing path. External and anchor links are skipped.
func CheckLinks(root, file string) ([]Issue, error) {
	data, err := os.ReadFile(filepath.Join(root, file)) // #nosec G304 -- linting repo-local files
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}

	var issues []Issue
	for n, line := range strings.Split(string(data), "\n") {
		for _, m := range linkPattern.FindAllStringSubmatch(line, -1) {
			target := m[1]
			if isExternalLink(target) {
				continue
			}
			if i := strings.IndexByte(target, '#'); i >= 0 {
				target = target[:i]
			}
			if target == "" {
				continue
			}
			resolved := filepath.Join(root, filepath.Dir(file), target)
			if strings.HasPrefix(target, "/") {
				resolved = filepath.Join(root, target)
			}
			if _, err := os.Stat(resolved); err != nil {
				issues = append(issues, Issue{
					File:    file,
					Line:    n + 1,
					Message: fmt.Sprintf("broken link %q", m[1]),
				})
			}
		}
	}
	return issues, nil
}

func isExternalLink(target string) bool {
	return strings.HasPrefix(target, "http://") ||
		strings.HasPrefix(target, "https://") ||
		strings.HasPrefix(target, "mailto:") ||
		strings.HasPrefix(target, "#")
}

// CheckTable verifies that every data row of the first markdown table in
// file has exactly wantColumns cells and that no cell is empty.
func CheckTable(root, file string, wantColumns int) ([]Issue, error) {
	data, err := os.ReadFile(filepath.Join(root, file)) // #nosec G304 -- linting repo-local files
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}

	var issues []Issue
	inTable := false
	for n, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "|") {
			if inTable {
				break
			}
			continue
		}
		inTable = true
		if isSeparatorRow(trimmed) {
			continue
		}
		cells := splitRow(trimmed)
		if len(cells) != wantColumns {
			issues = append(issues, Issue{
				File:    file,
				Line:    n + 1,
				Message: fmt.Sprintf("table row has %d columns, want %d", len(cells), wantColumns),
			})
			continue
		}
		for _, cell := range cells {
			if cell == "" {
				issues = append(issues, Issue{
					File:    file,
					Line:    n + 1,
					Message: "table row has an empty cell",
				})
				break
			}
		}
	}
	if !inTable {
		issues = append(issues, Issue{File: file, Line: 1, Message: "no table found"})
	}
	return issues, nil
}

func isSeparatorRow(row string) bool {
	return strings.Trim(row, "|-: ") == ""
}

func splitRow(row string) []string {
	row = strings.Trim(row, "|")
	parts := strings.Split(row, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}
