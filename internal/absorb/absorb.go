// Package absorb merges a secondary repository's unique entries and image
// files into a primary one.
package absorb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwygoda/thumbcap/internal/adapter/sqlite"
	"github.com/cwygoda/thumbcap/internal/domain"
	"github.com/cwygoda/thumbcap/internal/repository"
)

// Options control one merge run.
type Options struct {
	DryRun          bool
	DeleteSecondary bool
	// Confirm gates secondary deletion after a successful merge. Nil
	// means "not confirmed".
	Confirm func() bool
	Sink    domain.ProgressSink
}

// Report summarizes a merge (or, for a dry run, what a merge would do).
type Report struct {
	Long             int
	Short            int
	FilesCopied      int
	SecondaryDeleted bool
}

// Inserted returns the total entry count pulled from the secondary.
func (r Report) Inserted() int {
	return r.Long + r.Short
}

// Run merges secondary into primary. Ids are the sole key: entries and
// files already present in primary are never overwritten or duplicated, so
// running the same merge twice inserts and copies nothing the second time.
func Run(ctx context.Context, primary *repository.Repository, secondaryRoot string, opts Options) (Report, error) {
	secondary, err := repository.Open(secondaryRoot)
	if err != nil {
		return Report{}, err
	}
	if samePath(primary.Root(), secondary.Root()) {
		return Report{}, fmt.Errorf("cannot absorb a repository into itself: %s", primary.Root())
	}
	if opts.Sink == nil {
		opts.Sink = domain.NoopSink{}
	}

	store, err := sqlite.New(primary.IndexPath())
	if err != nil {
		return Report{}, err
	}
	defer store.Close()

	missing, err := store.NewFrom(ctx, secondary.IndexPath())
	if err != nil {
		return Report{}, err
	}

	var rep Report
	for _, e := range missing {
		switch e.Form {
		case domain.FormShort:
			rep.Short++
		default:
			rep.Long++
		}
	}

	if opts.DryRun {
		return rep, nil
	}

	if _, err := store.AbsorbFrom(ctx, secondary.IndexPath()); err != nil {
		return rep, err
	}

	// Copy every secondary image file the primary lacks, keeping file
	// names as-is so a webp stays a webp. Keying on file absence rather
	// than on the missing-entry list lets a merge interrupted mid-copy
	// finish its copies on a re-run.
	files, err := pendingCopies(primary, secondary)
	if err != nil {
		return rep, err
	}
	opts.Sink.Progress(0, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		copied, err := copyAbsent(f.src, f.dst)
		if err != nil {
			return rep, err
		}
		if copied {
			rep.FilesCopied++
		}
		opts.Sink.Progress(i+1, len(files))
	}

	if opts.DeleteSecondary {
		if opts.Confirm != nil && opts.Confirm() {
			if err := os.RemoveAll(secondary.Root()); err != nil {
				return rep, fmt.Errorf("merge succeeded but deleting secondary failed: %w", err)
			}
			rep.SecondaryDeleted = true
		}
	}
	return rep, nil
}

type copyJob struct {
	src, dst string
}

// pendingCopies lists the secondary's image files under the matching
// primary store paths. copyAbsent still decides per file; this only
// enumerates.
func pendingCopies(primary, secondary *repository.Repository) ([]copyJob, error) {
	var files []copyJob
	for _, form := range []domain.Form{domain.FormLong, domain.FormShort} {
		entries, err := os.ReadDir(secondary.StoreDir(form))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			files = append(files, copyJob{
				src: filepath.Join(secondary.StoreDir(form), e.Name()),
				dst: filepath.Join(primary.StoreDir(form), e.Name()),
			})
		}
	}
	return files, nil
}

// copyAbsent copies src to dst unless dst already exists.
func copyAbsent(src, dst string) (bool, error) {
	if _, err := os.Stat(dst); err == nil {
		return false, nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return false, err
	}
	return true, os.WriteFile(dst, data, 0644)
}

func samePath(a, b string) bool {
	ai, err1 := os.Stat(a)
	bi, err2 := os.Stat(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return os.SameFile(ai, bi)
}
