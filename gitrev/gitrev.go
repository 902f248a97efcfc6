// Package gitrev is the version-control collaborator. It shells out to
// git for the two things the pipeline needs: the content of a source
// file as of the immediately prior recorded revision (the diff
// baseline), and the commit/push write-back after a run.
package gitrev

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Repo represents a working tree managed by git.
type Repo struct {
	// Dir is any directory inside the working tree.
	Dir string
}

// New returns a Repo rooted at dir.
func New(dir string) *Repo {
	return &Repo{Dir: dir}
}

func (r *Repo) git(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", r.Dir}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("git %s: %s", args[0], msg)
	}
	return stdout.Bytes(), nil
}

// Toplevel returns the absolute path of the working tree root.
func (r *Repo) Toplevel(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// PriorRevision returns the content of path as it existed at the
// revision before HEAD. Any failure (shallow clone, first commit, file
// not tracked, not a repository) returns an error; callers degrade to
// full-file translation rather than aborting.
func (r *Repo) PriorRevision(ctx context.Context, path string) ([]byte, error) {
	top, err := r.Toplevel(ctx)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	rel, err := filepath.Rel(top, abs)
	if err != nil {
		return nil, fmt.Errorf("relativizing %s: %w", path, err)
	}

	return r.git(ctx, "show", "HEAD~1:"+filepath.ToSlash(rel))
}

// CheckoutBranch creates (or resets) and switches to the named branch.
func (r *Repo) CheckoutBranch(ctx context.Context, name string) error {
	_, err := r.git(ctx, "checkout", "-B", name)
	return err
}

// HasChanges reports whether the working tree has uncommitted changes.
func (r *Repo) HasChanges(ctx context.Context) (bool, error) {
	out, err := r.git(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return len(bytes.TrimSpace(out)) > 0, nil
}

// CommitAll stages everything and commits with the given message.
func (r *Repo) CommitAll(ctx context.Context, message string) error {
	if _, err := r.git(ctx, "add", "-A"); err != nil {
		return err
	}
	_, err := r.git(ctx, "commit", "-m", message)
	return err
}

// Push pushes the branch to the remote.
func (r *Repo) Push(ctx context.Context, remote, branch string) error {
	_, err := r.git(ctx, "push", "-u", remote, branch)
	return err
}
