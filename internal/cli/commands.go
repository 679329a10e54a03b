package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/cwygoda/thumbcap/internal/adapter/sqlite"
	"github.com/cwygoda/thumbcap/internal/adapter/ytimg"
	"github.com/cwygoda/thumbcap/internal/domain"
	"github.com/cwygoda/thumbcap/internal/repository"
)

var (
	statsHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statsLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	checkOKStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	checkFailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
)

func (a *app) runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	repoFlag := fs.String("repo", "", "directory to initialize (default: current directory)")
	if err := fs.Parse(args); err != nil {
		return wrapCategory(CategoryBadArgument, err)
	}

	root := *repoFlag
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		root = cwd
	}

	created, err := repository.Init(root)
	if err != nil {
		return err
	}
	repo := repository.At(root)
	store, err := sqlite.New(repo.IndexPath())
	if err != nil {
		return err
	}
	store.Close()

	if created {
		fmt.Printf("initialized empty repository in %s\n", root)
	} else {
		fmt.Printf("repository already initialized in %s\n", root)
	}
	return nil
}

func (a *app) runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
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
	counts, err := store.FormCounts(ctx)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(statsHeaderStyle.Render(fmt.Sprintf("%-8s %8s %10s %10s", "form", "indexed", "downloaded", "size")))
	b.WriteString("\n")
	var totalIndexed, totalDownloaded int
	var totalBytes int64
	for _, form := range []domain.Form{domain.FormLong, domain.FormShort} {
		u, err := repo.Usage(form)
		if err != nil {
			return err
		}
		c := counts[form]
		b.WriteString(fmt.Sprintf("%-8s %8d %10d %10s\n", form, c.Indexed, c.Downloaded, humanize.Bytes(uint64(u.Bytes))))
		totalIndexed += c.Indexed
		totalDownloaded += c.Downloaded
		totalBytes += u.Bytes
	}
	b.WriteString(statsLabelStyle.Render(fmt.Sprintf("%-8s %8d %10d %10s", "total", totalIndexed, totalDownloaded, humanize.Bytes(uint64(totalBytes)))))
	fmt.Println(b.String())
	return nil
}

// Check is one doctor probe's outcome.
type Check struct {
	Name    string
	OK      bool
	Message string
}

func (a *app) runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
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
	checks := []Check{{
		Name:    "repository",
		OK:      true,
		Message: repo.Root(),
	}}

	counts, err := store.FormCounts(ctx)
	if err != nil {
		checks = append(checks, Check{Name: "index", OK: false, Message: err.Error()})
	} else {
		checks = append(checks, Check{Name: "index", OK: true, Message: repo.IndexPath()})
		drifts, err := repo.Reconcile(counts)
		if err != nil {
			return err
		}
		for _, d := range drifts {
			c := Check{
				Name:    "store:" + string(d.Form),
				OK:      d.Delta() == 0,
				Message: fmt.Sprintf("%d downloaded, %d files on disk", d.Downloaded, d.Files),
			}
			checks = append(checks, c)
		}
	}

	// Connectivity is reported as data; an offline doctor run still works.
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	probeErr := ytimg.New(a.cfg.Timeout).Probe(probeCtx)
	cancel()
	checks = append(checks, Check{
		Name:    "connectivity",
		OK:      probeErr == nil,
		Message: probeMessage(probeErr),
	})

	if path, err := exec.LookPath(a.cfg.Editor); err != nil {
		checks = append(checks, Check{Name: "editor", OK: false, Message: a.cfg.Editor + " not found"})
	} else {
		checks = append(checks, Check{Name: "editor", OK: true, Message: path})
	}

	for _, c := range checks {
		mark := checkOKStyle.Render("ok")
		if !c.OK {
			mark = checkFailStyle.Render("FAIL")
		}
		fmt.Printf("%-16s %-4s %s\n", c.Name, mark, c.Message)
	}
	return nil
}

func probeMessage(err error) string {
	if err == nil {
		return "image host reachable"
	}
	return err.Error()
}
