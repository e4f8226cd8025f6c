package sync

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ankora/ankora/internal/cardid"
	"github.com/ankora/ankora/internal/domain"
	"github.com/ankora/ankora/internal/gitsource"
	"github.com/ankora/ankora/internal/parser"
	"github.com/ankora/ankora/internal/storage"
)

// Options configures a sync run.
type Options struct {
	User     string           // owner assigned to imported cards
	ReposDir string           // checkout directory for git sources
	Now      func() time.Time // clock; defaults to time.Now
}

// DetectType classifies a source path as either a git URL or a local
// directory.
func DetectType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return "git"
	}
	return "local"
}

// Run iterates over all configured sources and reconciles each one:
// new cards are inserted with fresh scheduling state, cards whose
// content disappeared from the source are deleted. Cards that already
// exist keep their scheduling state untouched.
func Run(db *storage.DB, opts Options) error {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	slog.Info("starting sync for all sources")
	sources, err := db.GetAllSources()
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("no sources configured")
		return nil
	}

	if err := os.MkdirAll(opts.ReposDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, source := range sources {
		slog.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		sourceToReconcile := source

		if source.Type == "git" {
			localRepoPath, err := gitURLToLocalPath(opts.ReposDir, source.Path)
			if err != nil {
				slog.Error("error determining local path for git repo", "url", source.Path, "error", err)
				continue
			}

			if err := gitsource.Sync(source.Path, localRepoPath); err != nil {
				slog.Error("error syncing git repo", "url", source.Path, "error", err)
				continue
			}

			sourceToReconcile.Path = localRepoPath
		}

		reconcileLocalSource(db, &sourceToReconcile, opts)
	}
	slog.Info("sync complete")
	return nil
}

func reconcileLocalSource(db *storage.DB, source *storage.Source, opts Options) {
	var parsedCards, insertedCards int
	var parseErrors []error
	foundCardIDs := make(map[string]bool)

	walkErr := filepath.WalkDir(source.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		fileCards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			parseErrors = append(parseErrors, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, parsed := range fileCards {
			id := cardid.Derive(parsed.Question, parsed.Answer, parsed.Context)
			parsedCards++
			foundCardIDs[id] = true

			existing, findErr := db.FindCard(id, opts.User)
			if findErr != nil {
				parseErrors = append(parseErrors, fmt.Errorf("db check for %s: %w", id, findErr))
				continue
			}
			if existing != nil {
				continue // keep its scheduling state
			}

			card := domain.NewCard(id, opts.User, parsed.Question, parsed.Answer, opts.Now())
			card.Context = parsed.Context
			card.SourceID = source.ID
			slog.Info("new card found, inserting", "id", id)
			if insertErr := db.InsertCard(card); insertErr != nil {
				parseErrors = append(parseErrors, fmt.Errorf("db insert for %s: %w", id, insertErr))
				continue
			}
			insertedCards++
		}
		return nil
	})

	if walkErr != nil {
		slog.Error("error walking directory", "path", source.Path, "error", walkErr)
		return
	}

	dbCards, err := db.CardsBySource(source.ID)
	if err != nil {
		slog.Error("error getting cards for source", "source_id", source.ID, "error", err)
		return
	}

	var orphanedCards int
	for _, dbCard := range dbCards {
		if _, found := foundCardIDs[dbCard.ID]; !found {
			slog.Info("orphaned card, deleting", "id", dbCard.ID)
			orphanedCards++
			if err := db.DeleteCard(dbCard.ID); err != nil {
				slog.Warn("failed to delete orphaned card", "id", dbCard.ID, "error", err)
			}
		}
	}

	if err := db.UpdateSourceLastScanned(source.ID); err != nil {
		slog.Warn("failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", source.Path,
		"parsed_cards", parsedCards,
		"inserted", insertedCards,
		"orphaned_deleted", orphanedCards,
		"errors", len(parseErrors),
	)
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		// scp-style syntax: git@host:owner/repo.git
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
