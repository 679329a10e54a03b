package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/cwygoda/thumbcap/internal/domain"
	"github.com/cwygoda/thumbcap/internal/search"
)

func (a *app) runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	repoFlag := fs.String("repo", "", "repository directory")
	formFlag := fs.String("form", "", "restrict to a form: long or short")
	byChannel := fs.Bool("by-channel", false, "pick channels first, then search within them")
	urls := fs.Bool("urls", false, "print the watch URL instead of the image path")
	if err := fs.Parse(args); err != nil {
		return wrapCategory(CategoryBadArgument, err)
	}

	var form domain.Form
	if *formFlag != "" {
		form = domain.Form(*formFlag)
		if !domain.ValidForm(form) {
			return badArgument("form must be long or short, got %q", *formFlag)
		}
	}

	repo, store, err := a.openRepo(*repoFlag)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := search.NewEngine(store, repo)
	picked, err := engine.Run(context.Background(), search.NewTUI(), form, *byChannel)
	if err != nil {
		return err
	}
	if picked == nil {
		return nil
	}
	fmt.Println(engine.Resolve(*picked, *urls))
	return nil
}
