// Package repository models a thumbnail repository on disk: one index
// database plus a long-form and a short-form image store.
package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwygoda/thumbcap/internal/domain"
)

// MarkerFile is the index database; a directory is a valid repository iff
// it contains it.
const MarkerFile = "thumbs.db"

// EnvDefault names the environment variable holding the fallback
// repository location.
const EnvDefault = "THUMBCAP_REPO"

var storeDirs = map[domain.Form]string{
	domain.FormLong:  "long",
	domain.FormShort: "short",
}

var imageExts = []string{".jpg", ".webp"}

// Repository is a handle on one repository root. It implements
// domain.StoreLayout.
type Repository struct {
	root string
}

// At returns a handle for root without checking validity.
func At(root string) *Repository {
	return &Repository{root: root}
}

// Open returns a handle for root, or domain.ErrNotRepository if the
// marker is absent.
func Open(root string) (*Repository, error) {
	if !IsRepository(root) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotRepository, root)
	}
	return At(root), nil
}

// Resolve picks the repository root: the explicit flag if given, else the
// working directory if it is a repository, else the default from the
// environment. Pure resolution; Open still validates explicit targets.
func Resolve(cwd, explicit, defaultEnv string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if IsRepository(cwd) {
		return cwd, nil
	}
	if defaultEnv != "" && IsRepository(defaultEnv) {
		return defaultEnv, nil
	}
	return "", fmt.Errorf("%w: %s (set %s or pass --repo)", domain.ErrNotRepository, cwd, EnvDefault)
}

// IsRepository reports whether dir contains the index marker.
func IsRepository(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, MarkerFile))
	return err == nil && !info.IsDir()
}

// Init creates the index marker's directory and both image stores.
// Initializing an existing repository is safe and reports created=false.
func Init(root string) (created bool, err error) {
	existed := IsRepository(root)
	for _, dir := range storeDirs {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return false, err
		}
	}
	return !existed, nil
}

// Root returns the repository root directory.
func (r *Repository) Root() string {
	return r.root
}

// IndexPath returns the index database path.
func (r *Repository) IndexPath() string {
	return filepath.Join(r.root, MarkerFile)
}

// StoreDir returns the image store directory for a form.
func (r *Repository) StoreDir(form domain.Form) string {
	return filepath.Join(r.root, storeDirs[form])
}

// ImagePath returns the canonical single-quality image path for an entry.
func (r *Repository) ImagePath(id string, form domain.Form) string {
	return filepath.Join(r.StoreDir(form), id+".jpg")
}

// FindImage returns the absolute path of an entry's image file, trying
// each known extension. Returns "" if no file is present.
func (r *Repository) FindImage(id string, form domain.Form) string {
	for _, ext := range imageExts {
		p := filepath.Join(r.StoreDir(form), id+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// RemoveImages deletes every image file stored for an entry, including
// per-level variants from all-quality downloads.
func (r *Repository) RemoveImages(id string, form domain.Form) error {
	dir := r.StoreDir(form)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == id+".jpg" || name == id+".webp" || strings.HasPrefix(name, id+"-") {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				return err
			}
		}
	}
	return nil
}

// StoreUsage describes one form's store on disk.
type StoreUsage struct {
	Files int
	Bytes int64
}

// Usage walks a form's store and totals its image files.
func (r *Repository) Usage(form domain.Form) (StoreUsage, error) {
	var u StoreUsage
	entries, err := os.ReadDir(r.StoreDir(form))
	if err != nil {
		if os.IsNotExist(err) {
			return u, nil
		}
		return u, err
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return u, err
		}
		u.Files++
		u.Bytes += info.Size()
	}
	return u, nil
}

// Drift is one form's index/filesystem disagreement found by Reconcile.
type Drift struct {
	Form       domain.Form
	Downloaded int // entries the index says are downloaded
	Files      int // image files actually present
}

// Delta returns files minus downloaded; zero means in sync.
func (d Drift) Delta() int {
	return d.Files - d.Downloaded
}

// Reconcile compares indexed-downloaded counts against files present per
// form. Desync is reported as data for the doctor command, not an error.
func (r *Repository) Reconcile(counts map[domain.Form]domain.FormStats) ([]Drift, error) {
	var drifts []Drift
	for _, form := range []domain.Form{domain.FormLong, domain.FormShort} {
		u, err := r.Usage(form)
		if err != nil {
			return nil, err
		}
		drifts = append(drifts, Drift{
			Form:       form,
			Downloaded: counts[form].Downloaded,
			Files:      u.Files,
		})
	}
	return drifts, nil
}
