// Package assets resolves background video styles into usable sets of loop videos.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnavailable reports that no style directory anywhere contains a usable video.
var ErrUnavailable = errors.New("no usable background videos available")

// BackgroundSet is a resolved style with its candidate loop videos.
// Videos is never empty when resolution succeeds.
type BackgroundSet struct {
	Style  string
	Videos []string
}

// Resolver finds background videos under a root directory whose immediate
// subdirectories are style names. It only reads the filesystem.
type Resolver struct {
	root       string
	extensions map[string]struct{}
}

// NewResolver builds a resolver for root, accepting the given container
// extensions (e.g. ".mp4"). Extensions are matched case-insensitively.
func NewResolver(root string, extensions []string) *Resolver {
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}
	return &Resolver{root: root, extensions: exts}
}

// Resolve matches style case-insensitively against the style directories.
// When the requested style is missing or holds no accepted videos, it falls
// back to the first style in sorted order that does. With no usable style
// anywhere it returns ErrUnavailable.
func (r *Resolver) Resolve(style string) (BackgroundSet, error) {
	styles, err := r.listStyles()
	if err != nil {
		return BackgroundSet{}, fmt.Errorf("list background styles: %w", err)
	}
	if len(styles) == 0 {
		return BackgroundSet{}, fmt.Errorf("%w: %s has no style directories", ErrUnavailable, r.root)
	}

	want := strings.ToLower(strings.TrimSpace(style))
	for _, s := range styles {
		if strings.ToLower(s) != want {
			continue
		}
		videos := r.listVideos(s)
		if len(videos) > 0 {
			return BackgroundSet{Style: s, Videos: videos}, nil
		}
		break
	}

	// Deterministic fallback: first style in enumeration order with videos.
	for _, s := range styles {
		videos := r.listVideos(s)
		if len(videos) > 0 {
			return BackgroundSet{Style: s, Videos: videos}, nil
		}
	}
	return BackgroundSet{}, fmt.Errorf("%w: searched %d styles under %s", ErrUnavailable, len(styles), r.root)
}

// Styles returns the available style directory names in sorted order.
func (r *Resolver) Styles() ([]string, error) {
	return r.listStyles()
}

func (r *Resolver) listStyles() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	styles := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			styles = append(styles, e.Name())
		}
	}
	sort.Strings(styles)
	return styles, nil
}

func (r *Resolver) listVideos(style string) []string {
	dir := filepath.Join(r.root, style)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	videos := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if _, ok := r.extensions[ext]; ok {
			videos = append(videos, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(videos)
	return videos
}
