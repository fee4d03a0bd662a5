package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// timestampLayout has second granularity and no characters that are illegal
// in a path segment.
const timestampLayout = "2006_01_02_15_04_05"

// Error reports a directory that could not be created or accessed. It is
// fatal to the listing being processed and nothing else.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("workspace %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrBaseNotDir is wrapped when the base path exists but is a regular file.
var ErrBaseNotDir = errors.New("base is not a directory")

// Allocator creates one timestamped directory per listing under Base.
type Allocator struct {
	Base string
	now  func() time.Time

	mu    sync.Mutex
	stamp string            // timestamp the owners below belong to
	owner map[string]string // directory -> raw name it was handed out for
}

// NewAllocator constructs an Allocator. A nil now defaults to time.Now.
func NewAllocator(base string, now func() time.Time) *Allocator {
	if now == nil {
		now = time.Now
	}
	return &Allocator{Base: base, now: now, owner: make(map[string]string)}
}

// Allocate returns {Base}/{timestamp}_{Sanitize(name)}, creating it when
// absent. Allocating the same name twice within a second returns the same
// directory. A different name that sanitizes to the same token gets a
// numeric suffix instead, so a directory is never shared by two listings.
func (a *Allocator) Allocate(name string) (string, error) {
	info, err := os.Stat(a.Base)
	if err != nil {
		return "", &Error{Path: a.Base, Err: err}
	}
	if !info.IsDir() {
		return "", &Error{Path: a.Base, Err: ErrBaseNotDir}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	stamp := a.now().Format(timestampLayout)
	if stamp != a.stamp {
		a.stamp = stamp
		clear(a.owner)
	}

	base := filepath.Join(a.Base, stamp+"_"+Sanitize(name))
	dir := base
	for n := 2; ; n++ {
		owner, seen := a.owner[dir]
		if !seen || owner == name {
			break
		}
		dir = fmt.Sprintf("%s_%d", base, n)
	}

	if err := os.Mkdir(dir, 0o755); err != nil {
		if !errors.Is(err, fs.ErrExist) {
			return "", &Error{Path: dir, Err: err}
		}
		if st, statErr := os.Stat(dir); statErr != nil || !st.IsDir() {
			return "", &Error{Path: dir, Err: err}
		}
	}
	a.owner[dir] = name
	return dir, nil
}
