// Package pipeline sequences one translation run: discover source
// files, diff each against its prior git revision, send changed keys to
// the translation service, merge the results into the existing
// target-language files and verify the end state.
//
// Processing is strictly sequential. A translation failure aborts the
// whole run; a missing or unparseable prior revision only degrades the
// affected file to whole-file translation.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/locsync/locsync/cache"
	"github.com/locsync/locsync/flatpath"
	"github.com/locsync/locsync/gitrev"
	"github.com/locsync/locsync/keydiff"
	"github.com/locsync/locsync/localefile"
	"github.com/locsync/locsync/merge"
	"github.com/locsync/locsync/translate"
	"github.com/locsync/locsync/verify"
)

// Options configures a run. The CLI maps config and flags onto this.
type Options struct {
	// SourceFile is a single source locale file. Mutually exclusive
	// with SourceDir.
	SourceFile string
	// SourceDir is scanned non-recursively for supported locale files.
	SourceDir string
	// OutputDir is the root for per-language subdirectories in
	// directory mode (default: SourceDir's parent). Ignored in
	// single-file mode, where outputs are siblings of the source.
	OutputDir string

	// SourceLanguage is the language the sources are written in.
	SourceLanguage string
	// TargetLanguages are the languages to produce.
	TargetLanguages []string

	// Incremental diffs each file against its prior git revision and
	// translates only changed keys.
	Incremental bool
	// DryRun reports what would be translated without calling the
	// service or writing files.
	DryRun bool

	// Exclusions name keys copied from the source untranslated.
	Exclusions translate.Exclusions

	// Service performs the remote translation calls.
	Service translate.Service
	// Cache, when set, is consulted before the service and updated
	// after it.
	Cache cache.Cache
	// Repo, when set, supplies prior revisions for incremental diffs.
	Repo *gitrev.Repo

	// OnLog receives informational messages.
	OnLog func(format string, args ...any)
	// OnIssue receives each verification issue as it is found.
	OnIssue func(issue verify.Issue)
	// OnProgress is called before each file is processed.
	OnProgress func(path string, index, total int)
}

// Summary holds the per-run counters and the ordered verification
// issues, in per-file, per-language, per-check order.
type Summary struct {
	FilesProcessed int
	FilesSkipped   int
	FilesChanged   int
	KeysTranslated int
	KeysDeleted    int
	KeysExcluded   int
	CacheHits      int

	Issues   []verify.Issue
	Errors   int
	Warnings int
}

// Runner executes the pipeline.
type Runner struct {
	opts Options
}

// New validates the options and builds a Runner.
func New(opts Options) (*Runner, error) {
	switch {
	case opts.SourceFile == "" && opts.SourceDir == "":
		return nil, fmt.Errorf("no source configured: set a source file or a source directory")
	case opts.SourceFile != "" && opts.SourceDir != "":
		return nil, fmt.Errorf("source file and source directory are mutually exclusive")
	}
	if len(opts.TargetLanguages) == 0 {
		return nil, fmt.Errorf("no target languages configured")
	}

	if opts.OutputDir == "" && opts.SourceDir != "" {
		opts.OutputDir = filepath.Dir(opts.SourceDir)
	}
	if opts.OnLog == nil {
		opts.OnLog = func(string, ...any) {}
	}
	if opts.OnIssue == nil {
		opts.OnIssue = func(verify.Issue) {}
	}
	if opts.OnProgress == nil {
		opts.OnProgress = func(string, int, int) {}
	}

	return &Runner{opts: opts}, nil
}

// Run executes discover, per-file processing and verification, and
// returns the run summary. Any returned error is fatal for the run.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if r.opts.Service == nil && !r.opts.DryRun {
		return nil, fmt.Errorf("no translation service configured")
	}

	files, err := r.discover()
	if err != nil {
		return nil, err
	}

	sum := &Summary{}
	for i, path := range files {
		r.opts.OnProgress(path, i+1, len(files))
		if err := r.processFile(ctx, path, sum); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// Check runs the verifier against the existing translated files without
// calling the translation service. Used by the check subcommand as a CI
// gate.
func (r *Runner) Check(ctx context.Context) (*Summary, error) {
	files, err := r.discover()
	if err != nil {
		return nil, err
	}

	sum := &Summary{}
	for i, path := range files {
		r.opts.OnProgress(path, i+1, len(files))

		src, err := localefile.ParseFile(path)
		if err != nil {
			return nil, err
		}
		sum.FilesProcessed++
		if !src.IsTree() {
			r.opts.OnLog("%s: not tree-decomposable, skipping verification", path)
			continue
		}

		for _, lang := range r.opts.TargetLanguages {
			outPath := r.outputPath(path, lang)
			target, err := localefile.ParseFile(outPath)
			if err != nil {
				r.addIssue(sum, verify.Issue{
					Path:     outPath,
					Kind:     verify.KindOther,
					Severity: verify.SeverityError,
					Message:  fmt.Sprintf("translation file unreadable: %v", err),
					Language: lang,
				})
				continue
			}
			issues, err := verify.Check(src.Tree, target.Tree, lang)
			if err != nil {
				return nil, err
			}
			for _, issue := range issues {
				r.addIssue(sum, issue)
			}
		}
	}
	return sum, nil
}

// ---------------------------------------------------------------------------
// Discover
// ---------------------------------------------------------------------------

func (r *Runner) discover() ([]string, error) {
	if r.opts.SourceFile != "" {
		if !localefile.Supported(r.opts.SourceFile) {
			return nil, fmt.Errorf("unsupported source file: %s", r.opts.SourceFile)
		}
		if _, err := os.Stat(r.opts.SourceFile); err != nil {
			return nil, fmt.Errorf("source file: %w", err)
		}
		return []string{r.opts.SourceFile}, nil
	}

	entries, err := os.ReadDir(r.opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("source directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !localefile.Supported(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(r.opts.SourceDir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no supported locale files in %s", r.opts.SourceDir)
	}
	sort.Strings(files)
	return files, nil
}

// ---------------------------------------------------------------------------
// Per-file processing
// ---------------------------------------------------------------------------

func (r *Runner) processFile(ctx context.Context, path string, sum *Summary) error {
	src, err := localefile.ParseFile(path)
	if err != nil {
		return err
	}
	sum.FilesProcessed++

	if !src.IsTree() {
		return r.processRaw(ctx, src, sum)
	}

	// Incremental diff against the prior revision. A missing or
	// unparseable baseline degrades this file to whole-file mode.
	incremental := r.opts.Incremental
	var cs *keydiff.ChangeSet
	if incremental {
		cs = r.detectChanges(ctx, path, src.Tree)
		if cs == nil {
			incremental = false
		} else if cs.IsEmpty() {
			r.opts.OnLog("%s: no changes since prior revision, skipping", path)
			sum.FilesSkipped++
			return nil
		}
	}

	subset := src.Tree
	var deleted []string
	if incremental {
		subset, err = flatpath.ExtractSubset(src.Tree, cs.NeedsTranslation())
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		deleted = cs.Deleted
	}

	flatSubset, err := flatpath.Flatten(subset)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	toTranslate, skipped := r.opts.Exclusions.Partition(flatSubset)
	sum.KeysExcluded += len(skipped)
	sum.KeysDeleted += len(deleted)

	if r.opts.DryRun {
		r.opts.OnLog("%s: would translate %d keys, exclude %d, delete %d",
			path, len(toTranslate), len(skipped), len(deleted))
		return nil
	}

	// One batched service call covers every target language. A file
	// with only deletions skips the call and goes straight to pruning.
	perLang := make(map[string]map[string]any)
	if len(toTranslate) > 0 {
		perLang, err = r.translateFlat(ctx, src, toTranslate, sum)
		if err != nil {
			return err
		}
		sum.KeysTranslated += len(toTranslate)
	}

	changed := false
	for _, lang := range r.opts.TargetLanguages {
		outPath := r.outputPath(path, lang)

		incomingFlat := make(map[string]any, len(perLang[lang])+len(skipped))
		for k, v := range perLang[lang] {
			incomingFlat[k] = v
		}
		for k, v := range skipped {
			incomingFlat[k] = v
		}
		incoming := flatpath.Unflatten(incomingFlat)

		final := incoming
		if incremental {
			existing := readExisting(outPath)
			if existing == nil && len(incomingFlat) == 0 {
				continue
			}
			final, err = merge.ApplyIncremental(existing, incoming, deleted)
			if err != nil {
				return fmt.Errorf("%s: %w", outPath, err)
			}
		}

		if err := localefile.WriteFile(outPath, final, src.Format); err != nil {
			return err
		}
		changed = true

		issues, err := verify.Check(src.Tree, final, lang)
		if err != nil {
			return fmt.Errorf("%s: %w", outPath, err)
		}
		for _, issue := range issues {
			r.addIssue(sum, issue)
		}
	}
	if changed {
		sum.FilesChanged++
	}
	return nil
}

// processRaw translates a non-tree YAML document whole-file. No diff
// and no tree verification apply.
func (r *Runner) processRaw(ctx context.Context, src *localefile.File, sum *Summary) error {
	if r.opts.DryRun {
		r.opts.OnLog("%s: would translate whole file (not tree-decomposable)", src.Path)
		return nil
	}

	langs := r.opts.TargetLanguages
	texts := make(map[string]string, len(langs))

	var missing []string
	for _, lang := range langs {
		if r.opts.Cache != nil {
			if cached, ok := r.opts.Cache.Get(cache.Key(src.Raw, lang)); ok {
				texts[lang] = cached
				sum.CacheHits++
				continue
			}
		}
		missing = append(missing, lang)
	}

	if len(missing) > 0 {
		result, err := r.opts.Service.Translate(ctx, translate.Request{
			Raw:             src.Raw,
			SourceLanguage:  r.opts.SourceLanguage,
			TargetLanguages: missing,
			Format:          src.Format,
		})
		if err != nil {
			return fmt.Errorf("translating %s: %w", src.Path, err)
		}
		for _, lang := range missing {
			texts[lang] = result.Raw[lang]
			if r.opts.Cache != nil {
				if err := r.opts.Cache.Set(cache.Key(src.Raw, lang), result.Raw[lang]); err != nil {
					r.opts.OnLog("cache store failed: %v", err)
				}
			}
		}
	}

	for _, lang := range langs {
		if err := localefile.WriteRaw(r.outputPath(src.Path, lang), texts[lang]); err != nil {
			return err
		}
	}
	sum.FilesChanged++
	return nil
}

// detectChanges fetches and diffs the prior revision. A nil return
// degrades the file to whole-file mode; the log message distinguishes
// missing history from an unparseable baseline.
func (r *Runner) detectChanges(ctx context.Context, path string, tree map[string]any) *keydiff.ChangeSet {
	if r.opts.Repo == nil {
		r.opts.OnLog("%s: no repository configured, translating whole file", path)
		return nil
	}

	data, err := r.opts.Repo.PriorRevision(ctx, path)
	if err != nil {
		r.opts.OnLog("%s: no prior revision, translating whole file", path)
		return nil
	}

	format, err := localefile.DetectFormat(path)
	if err != nil {
		return nil
	}
	prior, err := localefile.Parse(data, format)
	if err != nil || !prior.IsTree() {
		r.opts.OnLog("%s: prior revision not parseable, translating whole file", path)
		return nil
	}

	cs, err := keydiff.Diff(prior.Tree, tree)
	if err != nil {
		r.opts.OnLog("%s: diff failed (%v), translating whole file", path, err)
		return nil
	}
	return cs
}

// translateFlat resolves a flat path-to-value map into per-language
// flat maps, consulting the cache first and making a single batched
// service call when anything is uncovered.
func (r *Runner) translateFlat(ctx context.Context, src *localefile.File, flat map[string]any, sum *Summary) (map[string]map[string]any, error) {
	langs := r.opts.TargetLanguages
	out := make(map[string]map[string]any, len(langs))

	covered := true
	for _, lang := range langs {
		out[lang] = make(map[string]any, len(flat))
		for path, value := range flat {
			text, isString := value.(string)
			if !isString {
				// Non-string leaves pass through untouched.
				out[lang][path] = value
				continue
			}
			if r.opts.Cache != nil {
				if cached, ok := r.opts.Cache.Get(cache.Key(text, lang)); ok {
					out[lang][path] = cached
					sum.CacheHits++
					continue
				}
			}
			covered = false
		}
	}
	if covered {
		return out, nil
	}

	result, err := r.opts.Service.Translate(ctx, translate.Request{
		Tree:            flatpath.Unflatten(flat),
		SourceLanguage:  r.opts.SourceLanguage,
		TargetLanguages: langs,
		Format:          src.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("translating %s: %w", src.Path, err)
	}

	for _, lang := range langs {
		translatedFlat, err := flatpath.Flatten(result.Trees[lang])
		if err != nil {
			return nil, fmt.Errorf("translating %s: %s response: %w", src.Path, lang, err)
		}
		out[lang] = translatedFlat

		if r.opts.Cache == nil {
			continue
		}
		for path, value := range translatedFlat {
			srcText, ok := flat[path].(string)
			transText, ok2 := value.(string)
			if !ok || !ok2 {
				continue
			}
			if err := r.opts.Cache.Set(cache.Key(srcText, lang), transText); err != nil {
				r.opts.OnLog("cache store failed: %v", err)
			}
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// outputPath places single-file outputs as {lang}.{ext} siblings of the
// source and directory-mode outputs under {outputRoot}/{lang}/{name}.
func (r *Runner) outputPath(srcPath, lang string) string {
	if r.opts.SourceFile != "" {
		return filepath.Join(filepath.Dir(srcPath), lang+filepath.Ext(srcPath))
	}
	return filepath.Join(r.opts.OutputDir, lang, filepath.Base(srcPath))
}

// readExisting loads a target file's tree, treating a missing or
// corrupt file as no existing content.
func readExisting(path string) map[string]any {
	f, err := localefile.ParseFile(path)
	if err != nil || !f.IsTree() {
		return nil
	}
	return f.Tree
}

func (r *Runner) addIssue(sum *Summary, issue verify.Issue) {
	sum.Issues = append(sum.Issues, issue)
	switch issue.Severity {
	case verify.SeverityError:
		sum.Errors++
	case verify.SeverityWarning:
		sum.Warnings++
	}
	r.opts.OnIssue(issue)
}
