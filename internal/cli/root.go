package cli

import (
	"fmt"

	"github.com/cwygoda/thumbcap/internal/config"
	"github.com/cwygoda/thumbcap/pkg/logger"
	"github.com/rs/zerolog"
)

// Run dispatches a subcommand invocation and returns its error, already
// categorized for ExitCode.
func Run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return badArgument("load config: %v", err)
	}
	log := logger.New(cfg.LogLevel)

	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	app := &app{cfg: cfg, log: log}

	switch args[0] {
	case "init":
		return app.runInit(args[1:])
	case "add":
		return app.runAdd(args[1:])
	case "fetch":
		return app.runFetch(args[1:])
	case "scrape":
		return app.runScrape(args[1:])
	case "get":
		return app.runGet(args[1:])
	case "stats":
		return app.runStats(args[1:])
	case "search":
		return app.runSearch(args[1:])
	case "absorb":
		return app.runAbsorb(args[1:])
	case "doctor":
		return app.runDoctor(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return wrapCategory(CategoryUnknownCommand, fmt.Errorf("unknown command %q", args[0]))
	}
}

type app struct {
	cfg *config.Config
	log zerolog.Logger
}

func printRootUsage() {
	fmt.Println("thumbcap: bulk YouTube thumbnail downloader and offline repository")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  thumbcap init")
	fmt.Println("  thumbcap get links.txt")
	fmt.Println("  thumbcap search")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init     create an empty repository in the current directory")
	fmt.Println("  add      index video links from files or an editor buffer")
	fmt.Println("  fetch    download thumbnails for indexed entries")
	fmt.Println("  scrape   fill in title/channel for downloaded entries")
	fmt.Println("  get      add + fetch + scrape in one pass")
	fmt.Println("  stats    entry counts and store sizes per form")
	fmt.Println("  search   interactive fuzzy search over scraped entries")
	fmt.Println("  absorb   merge another repository into this one")
	fmt.Println("  doctor   diagnostic report (index/store sync, connectivity)")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Pass --repo <dir> to any command, or set THUMBCAP_REPO")
	fmt.Println("  - fetch --id <id> downloads one video at a fixed or all qualities")
}
