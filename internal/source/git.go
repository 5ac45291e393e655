// Package source fetches an unreleased Den payload straight from its git
// repository.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	denerrors "deninstall/internal/errors"
)

// TokenEnv holds an optional access token for private forks.
const TokenEnv = "DEN_INSTALLER_SOURCE_TOKEN"

type Fetcher struct {
	// Depth limits history; zero fetches everything.
	Depth int
	Token string
}

func NewFetcher() *Fetcher {
	return &Fetcher{Depth: 1, Token: os.Getenv(TokenEnv)}
}

// FetchHead clones branch of url into dest and returns the checked out
// commit. The .git directory is removed so dest is a plain payload root.
func (f *Fetcher) FetchHead(ctx context.Context, url, branch, dest string) (string, error) {
	slog.Info("Fetching Den source", "url", url, "branch", branch, "dest", dest)

	opts := &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         f.Depth,
		Tags:          git.NoTags,
	}
	if f.Token != "" {
		opts.Auth = &http.BasicAuth{
			Username: "x-access-token",
			Password: f.Token,
		}
	}

	repo, err := git.PlainCloneContext(ctx, dest, false, opts)
	if err != nil {
		suggestion := "Check the source URL and branch, and your network connection"
		if err == transport.ErrAuthenticationRequired {
			suggestion = "Set " + TokenEnv + " to a token with read access to the repository"
		}
		return "", denerrors.NewSourceError(
			"Failed to fetch the Den source",
			fmt.Sprintf("could not clone %s (branch %s)", url, branch),
			suggestion,
			fmt.Errorf("failed to clone %s: %w", url, err),
		)
	}

	head, err := repo.Head()
	if err != nil {
		return "", denerrors.NewSourceError(
			"Failed to fetch the Den source",
			"cloned repository has no HEAD",
			"Check that branch "+branch+" has at least one commit",
			fmt.Errorf("failed to resolve HEAD: %w", err),
		)
	}

	if err := os.RemoveAll(filepath.Join(dest, git.GitDirName)); err != nil {
		return "", denerrors.NewFileSystemError(
			"Failed to prepare the fetched Den source",
			err.Error(),
			"Check permissions on "+dest,
			fmt.Errorf("failed to remove git metadata: %w", err),
		)
	}

	commit := head.Hash().String()
	slog.Info("Den source fetched", "branch", branch, "commit", commit)
	return commit, nil
}
