package enum

import (
	"context"
	"fmt"
	"path"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/praetorian-inc/overcol/pkg/types"
)

// GitEnumerator enumerates the text files of one commit of a git
// repository. Worktree changes are not seen.
type GitEnumerator struct {
	config Config
	// CommitRef selects the commit (defaults to HEAD).
	CommitRef string
}

// NewGitEnumerator creates a new git enumerator.
func NewGitEnumerator(config Config) *GitEnumerator {
	return &GitEnumerator{
		config:    config,
		CommitRef: "HEAD",
	}
}

// Enumerate walks the commit tree. Files with identical content at
// different paths are each yielded, since findings are per path.
func (e *GitEnumerator) Enumerate(ctx context.Context, callback Callback) error {
	repo, err := git.PlainOpenWithOptions(e.config.Root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return fmt.Errorf("opening git repository: %w", err)
	}

	ref, err := repo.ResolveRevision(plumbing.Revision(e.CommitRef))
	if err != nil {
		return fmt.Errorf("resolving %s: %w", e.CommitRef, err)
	}

	commit, err := repo.CommitObject(*ref)
	if err != nil {
		return fmt.Errorf("loading commit %s: %w", ref, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("loading tree of %s: %w", ref, err)
	}

	var ignore *gitignore.GitIgnore
	if len(e.config.Ignore) > 0 {
		ignore = gitignore.CompileIgnoreLines(e.config.Ignore...)
	}

	meta := &types.CommitMetadata{
		CommitID:        commit.Hash.String(),
		AuthorName:      commit.Author.Name,
		AuthorEmail:     commit.Author.Email,
		AuthorTimestamp: commit.Author.When,
	}

	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !f.Mode.IsFile() || f.Mode == filemode.Symlink {
			return nil
		}
		if !e.config.IncludeHidden && hiddenPath(f.Name) {
			return nil
		}
		if ignore != nil && ignore.MatchesPath(f.Name) {
			return nil
		}
		if e.config.MaxFileSize > 0 && f.Size > e.config.MaxFileSize {
			return nil
		}

		content, err := f.Contents()
		if err != nil {
			return fmt.Errorf("reading %s: %w", f.Name, err)
		}
		data := []byte(content)
		if !isText(data) {
			return nil
		}

		prov := types.GitProvenance{
			RepoPath: e.config.Root,
			Commit:   meta,
			BlobPath: f.Name,
		}
		return callback(data, types.BlobID(f.Hash), prov)
	})
	if err != nil {
		return fmt.Errorf("walking tree: %w", err)
	}
	return nil
}

// hiddenPath reports whether any element of a slash-separated path is
// hidden.
func hiddenPath(p string) bool {
	for p != "" && p != "." {
		dir, file := path.Split(p)
		if isHidden(file) {
			return true
		}
		p = path.Clean(dir)
		if p == "/" {
			break
		}
	}
	return false
}
