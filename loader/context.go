package loader

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/edsrzf/mmap-go"
	"go.uber.org/zap"

	"github.com/wippyai/cilium"
	"github.com/wippyai/cilium/errors"
	"github.com/wippyai/cilium/metadata"
)

// Extensions probed by LoadByName, in order.
var Extensions = []string{".dll", ".exe"}

// Context is a registry of loaded assemblies. It is safe for concurrent use.
type Context struct {
	log         *zap.Logger
	assemblies  map[string]*entry
	searchPaths []string
	mu          sync.RWMutex
	mmap        bool
	closed      bool
}

type entry struct {
	asm     *metadata.Assembly
	mapping mmap.MMap
}

// New creates a Context. Start from DefaultOptions to honour the
// environment.
func New(opts Options) *Context {
	log := opts.Logger
	if log == nil {
		log = Logger()
	}
	return &Context{
		log:         log,
		assemblies:  make(map[string]*entry),
		searchPaths: append([]string(nil), opts.SearchPaths...),
		mmap:        opts.Mmap,
	}
}

// SearchPaths returns the directories LoadByName probes.
func (c *Context) SearchPaths() []string {
	return append([]string(nil), c.searchPaths...)
}

// Load decodes the assembly at path. Repeated loads of the same file return
// the same *metadata.Assembly.
//
// A missing file fails with errors.KindNotFound and an unreadable one with
// errors.KindUnreadable; decoding failures are returned unchanged so callers
// can tell "no such file" from "not an assembly".
//
// With Options.Mmap set, the assembly borrows the file mapping. It and every
// row, heap string and blob read from it must not be used after Close.
func (c *Context) Load(ctx context.Context, path string) (*metadata.Assembly, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Unreadable(path, err)
	}

	c.mu.RLock()
	closed := c.closed
	e, ok := c.assemblies[abs]
	c.mu.RUnlock()
	if closed {
		return nil, errors.InvalidInput(errors.PhaseLoad, "loader context is closed")
	}
	if ok {
		c.log.Debug("assembly cache hit", zap.String("path", abs))
		return e.asm, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.InvalidInput(errors.PhaseLoad, "loader context is closed")
	}
	if e, ok := c.assemblies[abs]; ok {
		return e.asm, nil
	}

	e, err = c.open(abs)
	if err != nil {
		return nil, err
	}
	c.assemblies[abs] = e
	name, _ := e.asm.Name()
	c.log.Info("assembly loaded",
		zap.String("path", abs),
		zap.String("name", name),
		zap.Bool("mapped", e.mapping != nil),
		zap.String("version", e.asm.Root().Version),
	)
	return e.asm, nil
}

// LoadByName finds name in the search paths and loads it. A name that is
// already a path to an existing file is loaded directly. Without an
// extension each of Extensions is tried in every directory.
func (c *Context) LoadByName(ctx context.Context, name string) (*metadata.Assembly, error) {
	if name == "" {
		return nil, errors.InvalidInput(errors.PhaseLoad, "empty assembly name")
	}
	if fileExists(name) {
		return c.Load(ctx, name)
	}

	candidates := []string{name}
	if ext := strings.ToLower(filepath.Ext(name)); ext != ".dll" && ext != ".exe" {
		candidates = candidates[:0]
		for _, ext := range Extensions {
			candidates = append(candidates, name+ext)
		}
	}

	for _, dir := range c.searchPaths {
		for _, cand := range candidates {
			p := filepath.Join(dir, cand)
			if fileExists(p) {
				return c.Load(ctx, p)
			}
		}
		c.log.Debug("assembly not in search path", zap.String("name", name), zap.String("dir", dir))
	}
	return nil, errors.NotFound(errors.PhaseLoad, "assembly", name)
}

// Loaded returns the absolute paths of every loaded assembly, sorted.
func (c *Context) Loaded() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	paths := make([]string, 0, len(c.assemblies))
	for p := range c.assemblies {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Close releases every mapping. Assemblies obtained from this context must
// not be used afterwards.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for p, e := range c.assemblies {
		if e.mapping != nil {
			if err := e.mapping.Unmap(); err != nil {
				errs = append(errs, errors.Unreadable(p, err))
			}
		}
	}
	c.assemblies = nil
	return stderrors.Join(errs...)
}

func (c *Context) open(path string) (*entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NotFound(errors.PhaseLoad, "file", path)
		}
		return nil, errors.Unreadable(path, err)
	}
	defer f.Close()

	e := &entry{}
	var data []byte
	if c.mmap {
		m, err := mmap.Map(f, mmap.RDONLY, 0)
		if err == nil {
			advise(m)
			e.mapping = m
			data = m
		} else {
			c.log.Debug("mmap failed, reading file", zap.String("path", path), zap.Error(err))
		}
	}
	if data == nil {
		data, err = readAll(f)
		if err != nil {
			return nil, errors.Unreadable(path, err)
		}
	}

	asm, err := cilium.Parse(data)
	if err != nil {
		if e.mapping != nil {
			_ = e.mapping.Unmap()
		}
		c.log.Debug("assembly decode failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	e.asm = asm
	return e, nil
}

func readAll(f *os.File) ([]byte, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, stderrors.New("is a directory")
	}
	buf := make([]byte, st.Size())
	n, err := f.ReadAt(buf, 0)
	if err != nil && n != len(buf) {
		return nil, err
	}
	return buf, nil
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
