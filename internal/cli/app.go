package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/cwygoda/thumbcap/internal/adapter/sqlite"
	"github.com/cwygoda/thumbcap/internal/adapter/ytimg"
	"github.com/cwygoda/thumbcap/internal/adapter/ytweb"
	"github.com/cwygoda/thumbcap/internal/domain"
	"github.com/cwygoda/thumbcap/internal/extract"
	"github.com/cwygoda/thumbcap/internal/repository"
)

// openRepo resolves and opens the target repository plus its index store.
func (a *app) openRepo(explicit string) (*repository.Repository, *sqlite.Repository, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	root, err := repository.Resolve(cwd, explicit, a.cfg.Repo)
	if err != nil {
		return nil, nil, wrapCategory(CategoryNotRepository, err)
	}
	repo, err := repository.Open(root)
	if err != nil {
		return nil, nil, wrapCategory(CategoryNotRepository, err)
	}
	store, err := sqlite.New(repo.IndexPath())
	if err != nil {
		return nil, nil, err
	}
	return repo, store, nil
}

// service wires the lifecycle orchestrator over one repository.
func (a *app) service(repo *repository.Repository, store *sqlite.Repository) (*domain.Service, *ytimg.Client) {
	fetcher := ytimg.New(a.cfg.Timeout)
	scraper := ytweb.New(a.cfg.Timeout)
	svc := domain.NewService(store, fetcher, scraper, extract.New(), repo, a.cfg.MaxAttempts, a.log)
	return svc, fetcher
}

// requireConnectivity gates bulk network passes with a short probe.
// Purely local commands never call this.
func (a *app) requireConnectivity(ctx context.Context, fetcher *ytimg.Client) error {
	if err := fetcher.Probe(ctx); err != nil {
		return wrapCategory(CategoryNoConnectivity, fmt.Errorf("no connectivity: %w", err))
	}
	return nil
}

// readSources concatenates link text from files, or from an editor buffer
// when no files were named.
func (a *app) readSources(ctx context.Context, files []string) (string, error) {
	if len(files) == 0 {
		return a.editBuffer(ctx)
	}
	var text string
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return "", badArgument("read %s: %v", f, err)
		}
		text += string(data) + "\n"
	}
	return text, nil
}
