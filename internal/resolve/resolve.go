// Package resolve maps opaque content handles to absolute local paths.
//
// Supported handle forms:
//
//	/abs/path/file.jpg                 absolute path, used as is
//	file:///abs/path/file.jpg          file URI
//	content://<authority>/<rest>       looked up under the root configured
//	                                   for <authority>
//
// A handle only resolves if the resulting path names an existing regular
// file that stays inside its root.
package resolve

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileResolver resolves handles against the local filesystem.
type FileResolver struct {
	mu    sync.RWMutex
	roots map[string]string // content authority → directory
}

// New returns a FileResolver. roots maps content:// authorities to
// directories; it may be nil.
func New(roots map[string]string) *FileResolver {
	r := &FileResolver{}
	r.SetRoots(roots)
	return r
}

// SetRoots replaces the content roots, e.g. after a config reload.
func (r *FileResolver) SetRoots(roots map[string]string) {
	abs := make(map[string]string, len(roots))
	for auth, dir := range roots {
		if p, err := filepath.Abs(dir); err == nil {
			abs[auth] = p
		}
	}
	r.mu.Lock()
	r.roots = abs
	r.mu.Unlock()
}

// ParseRoots parses "authority=/dir" entries as given on the command line.
func ParseRoots(entries []string) (map[string]string, error) {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		auth, dir, ok := strings.Cut(e, "=")
		auth, dir = strings.TrimSpace(auth), strings.TrimSpace(dir)
		if !ok || auth == "" || dir == "" {
			return nil, fmt.Errorf("content root %q: want authority=/dir", e)
		}
		out[auth] = dir
	}
	return out, nil
}

// Resolve implements normalize.Resolver.
func (r *FileResolver) Resolve(handle string) (string, bool) {
	p, ok := r.lookup(handle)
	if !ok {
		slog.Debug("content handle not resolvable", "handle", handle)
		return "", false
	}
	fi, err := os.Stat(p)
	if err != nil || !fi.Mode().IsRegular() {
		slog.Debug("content handle has no readable file", "handle", handle, "path", p)
		return "", false
	}
	return p, true
}

func (r *FileResolver) lookup(handle string) (string, bool) {
	if filepath.IsAbs(handle) {
		return filepath.Clean(handle), true
	}
	u, err := url.Parse(handle)
	if err != nil {
		return "", false
	}
	switch u.Scheme {
	case "file":
		if u.Path == "" || !filepath.IsAbs(u.Path) {
			return "", false
		}
		return filepath.Clean(u.Path), true
	case "content":
		r.mu.RLock()
		root, ok := r.roots[u.Host]
		r.mu.RUnlock()
		if !ok {
			return "", false
		}
		p := filepath.Join(root, filepath.FromSlash(u.Path))
		if p != root && !strings.HasPrefix(p, root+string(filepath.Separator)) {
			return "", false
		}
		return p, true
	}
	return "", false
}
