package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// reserved names under plugins/ that are not plugin packages.
var nonPluginEntries = map[string]bool{
	"doc.go":               true,
	"architecture_test.go": true,
}

// PluginDirs returns the plugin package directories under root/plugins.
func PluginDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, "plugins"))
	if err != nil {
		return nil, fmt.Errorf("read plugins dir: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !nonPluginEntries[e.Name()] {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// CheckRegistry cross-checks three registries that drift independently: the
// plugin directories on disk, the driver names the running code reports, and
// the documentation table rows mentioning each plugin.
func CheckRegistry(root string, drivers []string, docFile string) ([]Issue, error) {
	dirs, err := PluginDirs(root)
	if err != nil {
		return nil, err
	}

	driverSet := make(map[string]bool, len(drivers))
	for _, d := range drivers {
		driverSet[d] = true
	}

	data, err := os.ReadFile(filepath.Join(root, docFile)) // #nosec G304 -- linting repo-local files
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", docFile, err)
	}
	doc := string(data)

	var issues []Issue
	for _, dir := range dirs {
		if !driverSet[dir] {
			issues = append(issues, Issue{
				File:    "plugins/" + dir,
				Line:    1,
				Message: fmt.Sprintf("plugin directory %q has no registered driver", dir),
			})
		}
		if !strings.Contains(doc, "plugins/"+dir) {
			issues = append(issues, Issue{
				File:    docFile,
				Line:    1,
				Message: fmt.Sprintf("plugin %q is not referenced in the documentation table", dir),
			})
		}
	}
	return issues, nil
}
