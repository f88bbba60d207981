package validation

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestCheckLinksResolvesRelativeTargets(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/guide.md", "see [the index](../README.md) and [site](https://example.com)")
	writeFile(t, root, "README.md", "# index")

	issues, err := CheckLinks(root, "docs/guide.md")
	if err != nil {
		t.Fatalf("CheckLinks: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestCheckLinksFlagsBrokenTargets(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "line one\nbroken [doc](docs/missing.md) here")

	issues, err := CheckLinks(root, "README.md")
	if err != nil {
		t.Fatalf("CheckLinks: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected one issue, got %v", issues)
	}
	if issues[0].Line != 2 {
		t.Fatalf("expected issue on line 2, got %d", issues[0].Line)
	}
}

func TestCheckLinksIgnoresAnchorsAndMailto(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "[top](#heading) [mail](mailto:dev@example.com)")

	issues, err := CheckLinks(root, "README.md")
	if err != nil {
		t.Fatalf("CheckLinks: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestCheckLinksStripsFragment(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "[section](docs/guide.md#setup)")
	writeFile(t, root, "docs/guide.md", "# setup")

	issues, err := CheckLinks(root, "README.md")
	if err != nil {
		t.Fatalf("CheckLinks: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestCheckTableAcceptsWellFormedRows(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/table.md", `# Principles

| Name | Violation | Fix |
| --- | --- | --- |
| SRP | [v](a.md) | [f](b.md) |
| OCP | [v](c.md) | [f](d.md) |
`)

	issues, err := CheckTable(root, "docs/table.md", 3)
	if err != nil {
		t.Fatalf("CheckTable: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestCheckTableFlagsShortAndEmptyRows(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/table.md", `| Name | Violation | Fix |
| --- | --- | --- |
| SRP | [v](a.md) |
| OCP | | [f](d.md) |
`)

	issues, err := CheckTable(root, "docs/table.md", 3)
	if err != nil {
		t.Fatalf("CheckTable: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("expected two issues, got %v", issues)
	}
}

func TestCheckTableRequiresTable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/table.md", "no table here")

	issues, err := CheckTable(root, "docs/table.md", 3)
	if err != nil {
		t.Fatalf("CheckTable: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected one issue, got %v", issues)
	}
}

func TestCheckRegistry(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "plugins/dropbox/plugin.go", "package dropbox")
	writeFile(t, root, "plugins/github/plugin.go", "package github")
	writeFile(t, root, "docs/SOLID.md", "| OCP | [plugins/dropbox](../plugins/dropbox) |")

	issues, err := CheckRegistry(root, []string{"dropbox"}, "docs/SOLID.md")
	if err != nil {
		t.Fatalf("CheckRegistry: %v", err)
	}
	// github has neither a registered driver nor a docs mention.
	if len(issues) != 2 {
		t.Fatalf("expected two issues, got %v", issues)
	}
}

func TestPluginDirsSkipsFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "plugins/doc.go", "package plugins")
	writeFile(t, root, "plugins/dropbox/plugin.go", "package dropbox")

	dirs, err := PluginDirs(root)
	if err != nil {
		t.Fatalf("PluginDirs: %v", err)
	}
	if len(dirs) != 1 || dirs[0] != "dropbox" {
		t.Fatalf("unexpected dirs %v", dirs)
	}
}
