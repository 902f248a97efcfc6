// Package verify checks merged translation output against the full
// current source tree. It never fails a run: findings are collected
// into an ordered issue list, with error severity reserved for
// placeholder corruption (a real defect) and warnings for structural
// or heuristic drift that needs human judgment.
package verify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/locsync/locsync/flatpath"
)

// Kind classifies a verification finding.
type Kind string

const (
	KindPlaceholder Kind = "placeholder"
	KindKeyParity   Kind = "key_parity"
	KindLength      Kind = "length"
	KindOther       Kind = "other"
)

// Severity ranks a verification finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single immutable verification finding.
type Issue struct {
	// Path is the dot-path of the affected key, empty for batched
	// per-language findings.
	Path string
	// Kind classifies the check that produced the finding.
	Kind Kind
	// Severity is error for placeholder corruption, warning otherwise.
	Severity Severity
	// Message describes the finding.
	Message string
	// Language is the target language code.
	Language string
}

func (i Issue) String() string {
	if i.Path != "" {
		return fmt.Sprintf("[%s] %s %s: %s", i.Severity, i.Language, i.Path, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Language, i.Message)
}

// maxParityExamples caps the example paths listed in a batched
// key-parity issue.
const maxParityExamples = 5

// minLengthCheckRunes exempts short source strings from the length
// check; ratios on tiny strings are all noise.
const minLengthCheckRunes = 5

// Check verifies one (source tree, translated tree, language) triple
// post-merge. Issues are emitted in check order: key parity, then
// placeholders, then length, each over sorted paths.
func Check(source, translated map[string]any, lang string) ([]Issue, error) {
	srcFlat, err := flatpath.Flatten(source)
	if err != nil {
		return nil, fmt.Errorf("flattening source: %w", err)
	}
	transFlat, err := flatpath.Flatten(translated)
	if err != nil {
		return nil, fmt.Errorf("flattening %s translation: %w", lang, err)
	}

	var issues []Issue
	issues = append(issues, checkKeyParity(srcFlat, transFlat, lang)...)

	for _, path := range sharedStringPaths(srcFlat, transFlat) {
		src := srcFlat[path].(string)
		trans := transFlat[path].(string)
		if issue, ok := checkPlaceholders(path, src, trans, lang); ok {
			issues = append(issues, issue)
		}
	}

	for _, path := range sharedStringPaths(srcFlat, transFlat) {
		src := srcFlat[path].(string)
		trans := transFlat[path].(string)
		if issue, ok := checkLength(path, src, trans, lang); ok {
			issues = append(issues, issue)
		}
	}

	return issues, nil
}

// ---------------------------------------------------------------------------
// Key parity
// ---------------------------------------------------------------------------

func checkKeyParity(srcFlat, transFlat map[string]any, lang string) []Issue {
	var missing, extra []string
	for path := range srcFlat {
		if _, ok := transFlat[path]; !ok {
			missing = append(missing, path)
		}
	}
	for path := range transFlat {
		if _, ok := srcFlat[path]; !ok {
			extra = append(extra, path)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)

	var issues []Issue
	if len(missing) > 0 {
		issues = append(issues, Issue{
			Kind:     KindKeyParity,
			Severity: SeverityWarning,
			Message:  batchMessage("missing from translation", missing),
			Language: lang,
		})
	}
	if len(extra) > 0 {
		issues = append(issues, Issue{
			Kind:     KindKeyParity,
			Severity: SeverityWarning,
			Message:  batchMessage("absent from source", extra),
			Language: lang,
		})
	}
	return issues
}

func batchMessage(what string, paths []string) string {
	examples := paths
	if len(examples) > maxParityExamples {
		examples = examples[:maxParityExamples]
	}
	msg := fmt.Sprintf("%d keys %s: %s", len(paths), what, strings.Join(examples, ", "))
	if rest := len(paths) - len(examples); rest > 0 {
		msg += fmt.Sprintf(" (+%d more)", rest)
	}
	return msg
}

// ---------------------------------------------------------------------------
// Placeholders
// ---------------------------------------------------------------------------

// Token families, extracted in order. Double-brace tokens are removed
// from the text before the single-brace scan so {{name}} is not also
// counted as {name}.
var (
	reDoubleBrace = regexp.MustCompile(`\{\{[^{}]*\}\}`)
	reSingleBrace = regexp.MustCompile(`\{[^{}]*\}`)
	rePositional  = regexp.MustCompile(`%\d+\$[sd@]`)
	rePrintf      = regexp.MustCompile(`%[sd@]`)
)

// Placeholders extracts the distinct placeholder tokens of a string,
// sorted. Order and repetition in the text carry no weight: only the
// set of distinct tokens matters for verification.
func Placeholders(s string) []string {
	set := make(map[string]bool)

	for _, tok := range reDoubleBrace.FindAllString(s, -1) {
		set[tok] = true
	}
	rest := reDoubleBrace.ReplaceAllString(s, " ")

	for _, tok := range reSingleBrace.FindAllString(rest, -1) {
		set[tok] = true
	}
	for _, tok := range rePositional.FindAllString(rest, -1) {
		set[tok] = true
	}
	for _, tok := range rePrintf.FindAllString(rest, -1) {
		set[tok] = true
	}

	tokens := make([]string, 0, len(set))
	for tok := range set {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens
}

// checkPlaceholders compares placeholder token sets. At most one issue
// is raised per key; missing tokens take priority over unexpected ones.
func checkPlaceholders(path, src, trans, lang string) (Issue, bool) {
	srcTokens := Placeholders(src)
	transTokens := Placeholders(trans)

	missing := tokenSetDiff(srcTokens, transTokens)
	extra := tokenSetDiff(transTokens, srcTokens)
	if len(missing) == 0 && len(extra) == 0 {
		return Issue{}, false
	}

	var msg string
	if len(missing) > 0 {
		msg = fmt.Sprintf("missing placeholders: %s", strings.Join(missing, ", "))
	} else {
		msg = fmt.Sprintf("unexpected placeholders: %s", strings.Join(extra, ", "))
	}

	return Issue{
		Path:     path,
		Kind:     KindPlaceholder,
		Severity: SeverityError,
		Message:  msg,
		Language: lang,
	}, true
}

func tokenSetDiff(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, tok := range b {
		inB[tok] = true
	}
	var diff []string
	for _, tok := range a {
		if !inB[tok] {
			diff = append(diff, tok)
		}
	}
	return diff
}

// ---------------------------------------------------------------------------
// Length sanity
// ---------------------------------------------------------------------------

// checkLength flags gross truncation or runaway expansion, e.g. an API
// error string returned in place of a translation. Heuristic only.
func checkLength(path, src, trans, lang string) (Issue, bool) {
	srcLen := utf8.RuneCountInString(src)
	if srcLen < minLengthCheckRunes {
		return Issue{}, false
	}

	ratio := float64(utf8.RuneCountInString(trans)) / float64(srcLen)
	if ratio <= 5 && ratio >= 0.2 {
		return Issue{}, false
	}

	return Issue{
		Path:     path,
		Kind:     KindLength,
		Severity: SeverityWarning,
		Message: fmt.Sprintf("suspicious length ratio %.1f (source %d, translation %d)",
			ratio, srcLen, utf8.RuneCountInString(trans)),
		Language: lang,
	}, true
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// sharedStringPaths returns the sorted paths present in both flat maps
// whose values are strings on both sides.
func sharedStringPaths(srcFlat, transFlat map[string]any) []string {
	var paths []string
	for path, srcValue := range srcFlat {
		if _, ok := srcValue.(string); !ok {
			continue
		}
		transValue, ok := transFlat[path]
		if !ok {
			continue
		}
		if _, ok := transValue.(string); !ok {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
