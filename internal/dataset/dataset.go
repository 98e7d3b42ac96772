// Package dataset provides the ordered image list the editor walks through.
package dataset

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"boxmark/internal/viewport"
)

// Extensions lists the file suffixes picked up by Open.
var Extensions = []string{".bmp", ".gif", ".jpeg", ".jpg", ".png", ".tif", ".tiff", ".webp"}

// decodeLimit bounds concurrent header reads during a scan.
const decodeLimit = 8

// Image is one entry of the dataset. ID is the slash separated path relative
// to the dataset root and doubles as the annotation store key.
type Image struct {
	ID     string
	Path   string
	Width  int
	Height int
}

func (i Image) Size() viewport.Size {
	return viewport.Size{Width: float64(i.Width), Height: float64(i.Height)}
}

type Dataset struct {
	root   string
	images []Image
	index  map[string]int
}

// Open scans dir recursively for images and reads their dimensions. Files
// whose header cannot be decoded are skipped and logged.
func Open(dir string, logger *slog.Logger) (*Dataset, error) {
	logger = logger.With("system", "dataset")

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if Supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	images := make([]Image, len(paths))
	ok := make([]bool, len(paths))

	var (
		mu      sync.Mutex
		skipped int
	)
	g := new(errgroup.Group)
	g.SetLimit(decodeLimit)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			w, h, err := DecodeSize(path)
			if err != nil {
				logger.Warn("skipping unreadable image", "path", path, "error", err)
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			images[i] = Image{ID: filepath.ToSlash(rel), Path: path, Width: w, Height: h}
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	d := &Dataset{root: root, index: make(map[string]int, len(paths))}
	for i, img := range images {
		if ok[i] {
			d.images = append(d.images, img)
		}
	}
	slices.SortFunc(d.images, func(a, b Image) int { return strings.Compare(a.ID, b.ID) })
	for i, img := range d.images {
		d.index[img.ID] = i
	}

	if len(d.images) == 0 {
		return nil, fmt.Errorf("%s: %w", root, ErrEmpty)
	}
	logger.Info("dataset opened", "root", root, "images", len(d.images), "skipped", skipped)
	return d, nil
}

// Supported reports whether path has an image extension Open picks up.
func Supported(path string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(path)))
}

// DecodeSize reads only the image header.
func DecodeSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("decode %s: empty image", filepath.Base(path))
	}
	return cfg.Width, cfg.Height, nil
}

// Decode loads the full image at index i.
func (d *Dataset) Decode(i int) (image.Image, error) {
	img, ok := d.At(i)
	if !ok {
		return nil, ErrNotFound
	}
	f, err := os.Open(img.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", img.ID, err)
	}
	return m, nil
}

func (d *Dataset) Root() string { return d.root }

func (d *Dataset) Len() int { return len(d.images) }

func (d *Dataset) Images() []Image { return slices.Clone(d.images) }

func (d *Dataset) At(i int) (Image, bool) {
	if i < 0 || i >= len(d.images) {
		return Image{}, false
	}
	return d.images[i], true
}

// Index returns the position of id, or -1.
func (d *Dataset) Index(id string) int {
	if i, ok := d.index[id]; ok {
		return i
	}
	return -1
}

func (d *Dataset) IDs() []string {
	ids := make([]string, len(d.images))
	for i, img := range d.images {
		ids[i] = img.ID
	}
	return ids
}
