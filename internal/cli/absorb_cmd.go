package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cwygoda/thumbcap/internal/absorb"
)

func (a *app) runAbsorb(args []string) error {
	fs := flag.NewFlagSet("absorb", flag.ContinueOnError)
	repoFlag := fs.String("repo", "", "primary repository directory")
	dryRun := fs.Bool("dry-run", false, "report what the merge would do, mutate nothing")
	deleteSecondary := fs.Bool("delete", false, "delete the secondary repository after a successful merge")
	yes := fs.Bool("yes", false, "skip the deletion confirmation prompt")
	quiet := fs.Bool("quiet", false, "suppress the progress bar")
	if err := fs.Parse(args); err != nil {
		return wrapCategory(CategoryBadArgument, err)
	}
	if fs.NArg() != 1 {
		return badArgument("absorb takes exactly one secondary repository path")
	}
	secondary := fs.Arg(0)

	repo, store, err := a.openRepo(*repoFlag)
	if err != nil {
		return err
	}
	// The engine opens its own store handle on the primary index.
	store.Close()

	rep, err := absorb.Run(context.Background(), repo, secondary, absorb.Options{
		DryRun:          *dryRun,
		DeleteSecondary: *deleteSecondary,
		Confirm:         confirmFn(*yes, secondary),
		Sink:            newBarSink("absorb", *quiet),
	})
	if err != nil {
		return err
	}

	if *dryRun {
		fmt.Printf("would insert %d entries (%d long, %d short)\n", rep.Inserted(), rep.Long, rep.Short)
		if *deleteSecondary {
			fmt.Printf("would delete %s after the merge\n", secondary)
		}
		return nil
	}

	fmt.Printf("inserted %d entries (%d long, %d short), copied %d files\n",
		rep.Inserted(), rep.Long, rep.Short, rep.FilesCopied)
	if *deleteSecondary {
		if rep.SecondaryDeleted {
			fmt.Printf("deleted %s\n", secondary)
		} else {
			fmt.Printf("kept %s\n", secondary)
		}
	}
	return nil
}

// confirmFn gates secondary deletion behind a final prompt unless --yes.
func confirmFn(yes bool, secondary string) func() bool {
	if yes {
		return func() bool { return true }
	}
	return func() bool {
		fmt.Printf("delete %s and everything in it? [y/N] ", secondary)
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}
