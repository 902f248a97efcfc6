package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/locsync/locsync/cache"
	"github.com/locsync/locsync/flatpath"
	"github.com/locsync/locsync/gitrev"
	"github.com/locsync/locsync/translate"
	"github.com/locsync/locsync/verify"
)

// fakeService records requests and "translates" by prefixing each
// string with the language code.
type fakeService struct {
	calls []translate.Request
}

func (s *fakeService) Translate(_ context.Context, req translate.Request) (*translate.Result, error) {
	s.calls = append(s.calls, req)

	result := &translate.Result{
		Trees: make(map[string]map[string]any),
		Raw:   make(map[string]string),
	}
	for _, lang := range req.TargetLanguages {
		if req.Tree == nil {
			result.Raw[lang] = "[" + lang + "] " + req.Raw
			continue
		}
		flat, err := flatpath.Flatten(req.Tree)
		if err != nil {
			return nil, err
		}
		translated := make(map[string]any, len(flat))
		for path, value := range flat {
			if text, ok := value.(string); ok {
				translated[path] = "[" + lang + "] " + text
			} else {
				translated[path] = value
			}
		}
		result.Trees[lang] = flatpath.Unflatten(translated)
	}
	return result, nil
}

func writeJSON(t *testing.T, path string, tree map[string]any) {
	t.Helper()
	data, err := json.Marshal(tree)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		t.Fatalf("parsing %s: %v", path, err)
	}
	return tree
}

func TestRun_FullDirectoryMode(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "en")
	writeJSON(t, filepath.Join(srcDir, "app.json"), map[string]any{
		"greeting": "Hello",
		"nav":      map[string]any{"home": "Home"},
	})

	svc := &fakeService{}
	runner, err := New(Options{
		SourceDir:       srcDir,
		OutputDir:       root,
		SourceLanguage:  "en",
		TargetLanguages: []string{"de", "fr"},
		Service:         svc,
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(svc.calls) != 1 {
		t.Fatalf("service calls = %d, want 1", len(svc.calls))
	}
	if sum.FilesChanged != 1 || sum.KeysTranslated != 2 {
		t.Errorf("summary = %+v", sum)
	}

	de := readJSON(t, filepath.Join(root, "de", "app.json"))
	if de["greeting"] != "[de] Hello" {
		t.Errorf("de greeting = %v", de["greeting"])
	}
	nav, _ := de["nav"].(map[string]any)
	if nav["home"] != "[de] Home" {
		t.Errorf("de nav.home = %v", nav)
	}

	fr := readJSON(t, filepath.Join(root, "fr", "app.json"))
	if fr["greeting"] != "[fr] Hello" {
		t.Errorf("fr greeting = %v", fr["greeting"])
	}
}

func TestRun_SingleFileModeSiblingOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "en.json")
	writeJSON(t, src, map[string]any{"a": "one"})

	runner, err := New(Options{
		SourceFile:      src,
		SourceLanguage:  "en",
		TargetLanguages: []string{"de"},
		Service:         &fakeService{},
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	de := readJSON(t, filepath.Join(dir, "de.json"))
	if de["a"] != "[de] one" {
		t.Errorf("de.json a = %v", de["a"])
	}
}

func TestRun_Exclusions(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "en")
	writeJSON(t, filepath.Join(srcDir, "app.json"), map[string]any{
		"title":   "My App",
		"version": "1.2.3",
	})

	svc := &fakeService{}
	runner, err := New(Options{
		SourceDir:       srcDir,
		OutputDir:       root,
		SourceLanguage:  "en",
		TargetLanguages: []string{"de"},
		Exclusions:      translate.Exclusions{Keys: []string{"version"}},
		Service:         svc,
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if sum.KeysExcluded != 1 {
		t.Errorf("KeysExcluded = %d, want 1", sum.KeysExcluded)
	}
	sent, err := flatpath.Flatten(svc.calls[0].Tree)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sent["version"]; ok {
		t.Error("excluded key was sent to the service")
	}

	de := readJSON(t, filepath.Join(root, "de", "app.json"))
	if de["version"] != "1.2.3" {
		t.Errorf("excluded key not copied verbatim: %v", de["version"])
	}
	if de["title"] != "[de] My App" {
		t.Errorf("title = %v", de["title"])
	}
}

func TestRun_DryRun(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "en")
	writeJSON(t, filepath.Join(srcDir, "app.json"), map[string]any{"a": "one"})

	svc := &fakeService{}
	runner, err := New(Options{
		SourceDir:       srcDir,
		OutputDir:       root,
		SourceLanguage:  "en",
		TargetLanguages: []string{"de"},
		DryRun:          true,
		Service:         svc,
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(svc.calls) != 0 {
		t.Error("dry run made a service call")
	}
	if sum.FilesChanged != 0 {
		t.Error("dry run reported changed files")
	}
	if _, err := os.Stat(filepath.Join(root, "de")); !os.IsNotExist(err) {
		t.Error("dry run wrote output")
	}
}

func TestRun_CacheFullyCoveredSkipsService(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "en")
	writeJSON(t, filepath.Join(srcDir, "app.json"), map[string]any{"a": "one"})

	mem := cache.NewMemory(time.Hour)
	if err := mem.Set(cache.Key("one", "de"), "eins"); err != nil {
		t.Fatal(err)
	}

	svc := &fakeService{}
	runner, err := New(Options{
		SourceDir:       srcDir,
		OutputDir:       root,
		SourceLanguage:  "en",
		TargetLanguages: []string{"de"},
		Service:         svc,
		Cache:           mem,
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(svc.calls) != 0 {
		t.Error("cached run still called the service")
	}
	if sum.CacheHits != 1 {
		t.Errorf("CacheHits = %d, want 1", sum.CacheHits)
	}
	de := readJSON(t, filepath.Join(root, "de", "app.json"))
	if de["a"] != "eins" {
		t.Errorf("cached value not used: %v", de["a"])
	}
}

func TestRun_RawYAMLWholeFile(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "en")
	if err := os.MkdirAll(srcDir, 0755); err != nil {
		t.Fatal(err)
	}
	raw := "- one\n- two\n"
	if err := os.WriteFile(filepath.Join(srcDir, "list.yaml"), []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	runner, err := New(Options{
		SourceDir:       srcDir,
		OutputDir:       root,
		SourceLanguage:  "en",
		TargetLanguages: []string{"de"},
		Service:         &fakeService{},
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	out, err := os.ReadFile(filepath.Join(root, "de", "list.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "[de] "+raw {
		t.Errorf("raw output = %q", out)
	}
}

func TestDiscover_Errors(t *testing.T) {
	empty := t.TempDir()

	tests := []struct {
		name string
		opts Options
	}{
		{"neither source", Options{TargetLanguages: []string{"de"}, Service: &fakeService{}}},
		{"both sources", Options{
			SourceFile: "/tmp/en.json", SourceDir: "/tmp/locales",
			TargetLanguages: []string{"de"}, Service: &fakeService{},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); err == nil {
				t.Error("expected constructor error")
			}
		})
	}

	runner, err := New(Options{
		SourceDir:       empty,
		TargetLanguages: []string{"de"},
		Service:         &fakeService{},
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, err := runner.Run(context.Background()); err == nil {
		t.Error("expected error for directory with no locale files")
	}
}

func TestCheck_ReportsMissingAndDriftedFiles(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "en")
	writeJSON(t, filepath.Join(srcDir, "app.json"), map[string]any{
		"greeting": "Hello {{name}}",
		"bye":      "Goodbye",
	})
	// de exists but dropped a placeholder and a key; fr is missing.
	writeJSON(t, filepath.Join(root, "de", "app.json"), map[string]any{
		"greeting": "Hallo",
	})

	runner, err := New(Options{
		SourceDir:       srcDir,
		OutputDir:       root,
		SourceLanguage:  "en",
		TargetLanguages: []string{"de", "fr"},
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	sum, err := runner.Check(context.Background())
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}

	if sum.Errors == 0 {
		t.Error("expected error-severity issues")
	}

	var placeholder, missingFile bool
	for _, issue := range sum.Issues {
		if issue.Kind == verify.KindPlaceholder && issue.Language == "de" {
			placeholder = true
		}
		if issue.Kind == verify.KindOther && issue.Language == "fr" {
			missingFile = true
		}
	}
	if !placeholder {
		t.Error("missing placeholder issue for de")
	}
	if !missingFile {
		t.Error("missing issue for absent fr file")
	}
}

// ---------------------------------------------------------------------------
// Incremental mode (requires git)
// ---------------------------------------------------------------------------

// initRepo creates a git repository whose en/app.json has two commits
// and returns its directory.
func initRepo(t *testing.T, first, second map[string]any) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	run("init", "-q")
	writeJSON(t, filepath.Join(dir, "en", "app.json"), first)
	run("add", "-A")
	run("commit", "-q", "-m", "first")
	writeJSON(t, filepath.Join(dir, "en", "app.json"), second)
	run("add", "-A")
	run("commit", "-q", "--allow-empty", "-m", "second")
	return dir
}

func TestRun_IncrementalTranslatesOnlyChangedKeys(t *testing.T) {
	dir := initRepo(t,
		map[string]any{"a": "one", "b": "two", "gone": "bye"},
		map[string]any{"a": "one", "b": "two changed", "new": "fresh"},
	)

	// Pre-existing translation from the first run.
	writeJSON(t, filepath.Join(dir, "de", "app.json"), map[string]any{
		"a": "eins", "b": "zwei", "gone": "tschuess",
	})

	svc := &fakeService{}
	runner, err := New(Options{
		SourceDir:       filepath.Join(dir, "en"),
		OutputDir:       dir,
		SourceLanguage:  "en",
		TargetLanguages: []string{"de"},
		Incremental:     true,
		Service:         svc,
		Repo:            gitrev.New(dir),
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(svc.calls) != 1 {
		t.Fatalf("service calls = %d, want 1", len(svc.calls))
	}
	sent, err := flatpath.Flatten(svc.calls[0].Tree)
	if err != nil {
		t.Fatal(err)
	}
	if len(sent) != 2 {
		t.Errorf("sent keys = %v, want only b and new", sent)
	}
	if _, ok := sent["a"]; ok {
		t.Error("unchanged key a was sent")
	}

	de := readJSON(t, filepath.Join(dir, "de", "app.json"))
	if de["a"] != "eins" {
		t.Errorf("untouched key overwritten: %v", de["a"])
	}
	if de["b"] != "[de] two changed" {
		t.Errorf("modified key not updated: %v", de["b"])
	}
	if de["new"] != "[de] fresh" {
		t.Errorf("added key missing: %v", de["new"])
	}
	if _, ok := de["gone"]; ok {
		t.Error("deleted key not pruned")
	}

	if sum.KeysTranslated != 2 || sum.KeysDeleted != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRun_IncrementalSkipsUnchangedFile(t *testing.T) {
	same := map[string]any{"a": "one"}
	dir := initRepo(t, same, same)

	svc := &fakeService{}
	runner, err := New(Options{
		SourceDir:       filepath.Join(dir, "en"),
		OutputDir:       dir,
		SourceLanguage:  "en",
		TargetLanguages: []string{"de"},
		Incremental:     true,
		Service:         svc,
		Repo:            gitrev.New(dir),
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(svc.calls) != 0 {
		t.Error("unchanged file triggered a service call")
	}
	if sum.FilesSkipped != 1 {
		t.Errorf("FilesSkipped = %d, want 1", sum.FilesSkipped)
	}
	if _, err := os.Stat(filepath.Join(dir, "de")); !os.IsNotExist(err) {
		t.Error("unchanged file produced output")
	}
}

func TestRun_IncrementalDeletionsOnlySkipsService(t *testing.T) {
	dir := initRepo(t,
		map[string]any{"a": "one", "gone": "bye"},
		map[string]any{"a": "one"},
	)
	writeJSON(t, filepath.Join(dir, "de", "app.json"), map[string]any{
		"a": "eins", "gone": "tschuess",
	})

	svc := &fakeService{}
	runner, err := New(Options{
		SourceDir:       filepath.Join(dir, "en"),
		OutputDir:       dir,
		SourceLanguage:  "en",
		TargetLanguages: []string{"de"},
		Incremental:     true,
		Service:         svc,
		Repo:            gitrev.New(dir),
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(svc.calls) != 0 {
		t.Error("deletions-only file triggered a service call")
	}
	de := readJSON(t, filepath.Join(dir, "de", "app.json"))
	if _, ok := de["gone"]; ok {
		t.Error("deleted key not pruned")
	}
	if de["a"] != "eins" {
		t.Errorf("remaining key disturbed: %v", de["a"])
	}
	if sum.KeysDeleted != 1 {
		t.Errorf("KeysDeleted = %d, want 1", sum.KeysDeleted)
	}
}

func TestRun_NoRepositoryDegradesToFullFile(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "en")
	writeJSON(t, filepath.Join(srcDir, "app.json"), map[string]any{"a": "one"})

	svc := &fakeService{}
	runner, err := New(Options{
		SourceDir:       srcDir,
		OutputDir:       root,
		SourceLanguage:  "en",
		TargetLanguages: []string{"de"},
		Incremental:     true,
		Service:         svc,
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(svc.calls) != 1 {
		t.Fatalf("service calls = %d, want 1 (full file)", len(svc.calls))
	}
	de := readJSON(t, filepath.Join(root, "de", "app.json"))
	if de["a"] != "[de] one" {
		t.Errorf("a = %v", de["a"])
	}
}
