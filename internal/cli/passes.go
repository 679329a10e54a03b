package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/cwygoda/thumbcap/internal/adapter/ytimg"
	"github.com/cwygoda/thumbcap/internal/domain"
)

func (a *app) runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	repoFlag := fs.String("repo", "", "repository directory")
	if err := fs.Parse(args); err != nil {
		return wrapCategory(CategoryBadArgument, err)
	}

	repo, store, err := a.openRepo(*repoFlag)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	text, err := a.readSources(ctx, fs.Args())
	if err != nil {
		return err
	}

	svc, _ := a.service(repo, store)
	rep, err := svc.Index(ctx, text)
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d new of %d found\n", rep.Inserted, rep.Found)
	return nil
}

func (a *app) runFetch(args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	repoFlag := fs.String("repo", "", "repository directory")
	idFlag := fs.String("id", "", "fetch one indexed video instead of running the batch pass")
	qualityFlag := fs.String("quality", "", "fixed quality level 1-5 (with --id)")
	allFlag := fs.Bool("all", false, "fetch every quality level (with --id)")
	overwrite := fs.Bool("overwrite", false, "replace existing image files")
	quiet := fs.Bool("quiet", false, "suppress the progress bar")
	if err := fs.Parse(args); err != nil {
		return wrapCategory(CategoryBadArgument, err)
	}

	repo, store, err := a.openRepo(*repoFlag)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, fetcher := a.service(repo, store)
	ctx := context.Background()
	if err := a.requireConnectivity(ctx, fetcher); err != nil {
		return err
	}

	if *idFlag != "" {
		return a.fetchOne(ctx, fetcher, repo, store, *idFlag, *qualityFlag, *allFlag, *overwrite)
	}
	if *qualityFlag != "" || *allFlag {
		return badArgument("--quality and --all require --id")
	}

	rep, err := svc.Download(ctx, newBarSink("fetch", *quiet))
	if err != nil {
		return err
	}
	fmt.Printf("fetched %d of %d (%d failed)\n", rep.Succeeded, rep.Total, rep.Failed)
	return nil
}

// fetchOne exposes the fixed-level and all-levels fetcher modes for a
// single already-indexed video.
func (a *app) fetchOne(ctx context.Context, fetcher *ytimg.Client, repo storeLayout, store entryGetter, id, quality string, all, overwrite bool) error {
	entry, err := store.Get(ctx, id)
	if err != nil {
		return badArgument("id %s is not indexed: %v", id, err)
	}

	sel := ytimg.Selector{Mode: ytimg.ModeBest}
	switch {
	case all && quality != "":
		return badArgument("--quality and --all are mutually exclusive")
	case all:
		sel.Mode = ytimg.ModeAll
	case quality != "":
		n, err := strconv.Atoi(quality)
		if err != nil || n < 1 || n > len(domain.Ladder) {
			return badArgument("quality must be 1-%d, got %q", len(domain.Ladder), quality)
		}
		sel = ytimg.Selector{Mode: ytimg.ModeFixed, Level: domain.Ladder[n-1]}
	}

	results, err := fetcher.FetchWith(ctx, id, sel, repo.StoreDir(entry.Form), overwrite)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("%s (%s, %d bytes)\n", r.Path, r.Quality, r.Bytes)
	}
	return nil
}

type storeLayout interface {
	StoreDir(form domain.Form) string
}

type entryGetter interface {
	Get(ctx context.Context, id string) (*domain.Entry, error)
}

func (a *app) runScrape(args []string) error {
	fs := flag.NewFlagSet("scrape", flag.ContinueOnError)
	repoFlag := fs.String("repo", "", "repository directory")
	quiet := fs.Bool("quiet", false, "suppress the progress bar")
	if err := fs.Parse(args); err != nil {
		return wrapCategory(CategoryBadArgument, err)
	}

	repo, store, err := a.openRepo(*repoFlag)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, fetcher := a.service(repo, store)
	ctx := context.Background()
	if err := a.requireConnectivity(ctx, fetcher); err != nil {
		return err
	}

	rep, err := svc.Scrape(ctx, newBarSink("scrape", *quiet))
	if err != nil {
		return err
	}
	fmt.Printf("scraped %d of %d (%d failed)\n", rep.Succeeded, rep.Total, rep.Failed)
	return nil
}

func (a *app) runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	repoFlag := fs.String("repo", "", "repository directory")
	quiet := fs.Bool("quiet", false, "suppress the progress bar")
	if err := fs.Parse(args); err != nil {
		return wrapCategory(CategoryBadArgument, err)
	}

	repo, store, err := a.openRepo(*repoFlag)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, fetcher := a.service(repo, store)
	ctx := context.Background()
	if err := a.requireConnectivity(ctx, fetcher); err != nil {
		return err
	}

	text, err := a.readSources(ctx, fs.Args())
	if err != nil {
		return err
	}

	rep, err := svc.Get(ctx, text, newBarSink("get", *quiet))
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d new, fetched %d/%d, scraped %d/%d\n",
		rep.Index.Inserted,
		rep.Download.Succeeded, rep.Download.Total,
		rep.Scrape.Succeeded, rep.Scrape.Total)
	return nil
}
