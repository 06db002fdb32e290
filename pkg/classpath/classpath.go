// Package classpath locates class files in directories, single .class
// files, jar/zip archives and jmod files.
package classpath

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/daimatz/scalafilter/pkg/classfile"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("scalafilter.classpath")

// ErrNotFound is returned by LoadClass when no container holds the class.
var ErrNotFound = errors.New("class not found")

const jmodHeader = "JM\x01\x00"

// Container holds class files addressable by internal name.
type Container interface {
	// Path is the file system location the container was opened from.
	Path() string
	// Classes lists the internal names of the held classes, sorted.
	Classes() ([]string, error)
	LoadClass(name string) (*classfile.ClassFile, error)
}

// Open returns the container for path: a directory tree, a single .class
// file, or a .jar, .zip or .jmod archive.
func Open(path string) (Container, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return &Dir{Root: path, cache: newClassCache()}, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".class":
		return &File{path: path}, nil
	case ".jar", ".zip", ".jmod":
		return OpenArchive(path)
	}
	return nil, fmt.Errorf("%s: unsupported file type", path)
}

// Dir is a directory whose class files are laid out by package.
type Dir struct {
	Root string

	cache classCache
}

func (d *Dir) Path() string { return d.Root }

func (d *Dir) Classes() ([]string, error) {
	var names []string
	err := filepath.WalkDir(d.Root, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() || !strings.HasSuffix(p, ".class") {
			return nil
		}
		rel, err := filepath.Rel(d.Root, p)
		if err != nil {
			return err
		}
		names = append(names, strings.TrimSuffix(filepath.ToSlash(rel), ".class"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dir: walking %s: %w", d.Root, err)
	}
	sort.Strings(names)
	return names, nil
}

// classCache holds parsed classes by name. Parsing happens outside the
// lock; when two loads race, the first stored class wins.
type classCache struct {
	mu      sync.Mutex
	classes map[string]*classfile.ClassFile
}

func newClassCache() classCache {
	return classCache{classes: make(map[string]*classfile.ClassFile)}
}

func (c *classCache) get(name string) (*classfile.ClassFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cf, ok := c.classes[name]
	return cf, ok
}

func (c *classCache) put(name string, cf *classfile.ClassFile) *classfile.ClassFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.classes[name]; ok {
		return prev
	}
	c.classes[name] = cf
	return cf
}

func (d *Dir) LoadClass(name string) (*classfile.ClassFile, error) {
	if cf, ok := d.cache.get(name); ok {
		return cf, nil
	}
	path := filepath.Join(d.Root, filepath.FromSlash(name)+".class")
	cf, err := classfile.ParseFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("dir: %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("dir: parsing %s: %w", path, err)
	}
	return d.cache.put(name, cf), nil
}

// File is a single .class file. Its class name is read from the file.
type File struct {
	path string

	once sync.Once
	cf   *classfile.ClassFile
	name string
	err  error
}

func (f *File) Path() string { return f.path }

func (f *File) load() {
	f.once.Do(func() {
		f.cf, f.err = classfile.ParseFile(f.path)
		if f.err != nil {
			f.err = fmt.Errorf("file: parsing %s: %w", f.path, f.err)
			return
		}
		f.name, f.err = f.cf.ClassName()
	})
}

func (f *File) Classes() ([]string, error) {
	f.load()
	if f.err != nil {
		return nil, f.err
	}
	return []string{f.name}, nil
}

func (f *File) LoadClass(name string) (*classfile.ClassFile, error) {
	f.load()
	if f.err != nil {
		return nil, f.err
	}
	if name != f.name {
		return nil, fmt.Errorf("file: %s: %w", name, ErrNotFound)
	}
	return f.cf, nil
}

// Archive is a jar, zip or jmod file. Jmod files carry a four byte
// header before the zip data and keep classes under "classes/".
type Archive struct {
	path   string
	prefix string
	files  map[string]*zip.File

	cache classCache
}

// OpenArchive reads the archive at path into memory.
func OpenArchive(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("archive: reading %s: %w", path, err)
	}
	a := &Archive{path: path, cache: newClassCache()}
	if bytes.HasPrefix(data, []byte(jmodHeader)) {
		data = data[len(jmodHeader):]
		a.prefix = "classes/"
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("archive: opening zip %s: %w", path, err)
	}
	a.files = make(map[string]*zip.File)
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, a.prefix) || !strings.HasSuffix(f.Name, ".class") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(f.Name, a.prefix), ".class")
		if name == "module-info" || strings.HasPrefix(name, "META-INF/") {
			continue
		}
		a.files[name] = f
	}
	log.Debugf("opened %s: %d classes", path, len(a.files))
	return a, nil
}

func (a *Archive) Path() string { return a.path }

func (a *Archive) Classes() ([]string, error) {
	names := make([]string, 0, len(a.files))
	for name := range a.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (a *Archive) LoadClass(name string) (*classfile.ClassFile, error) {
	if cf, ok := a.cache.get(name); ok {
		return cf, nil
	}
	f, ok := a.files[name]
	if !ok {
		return nil, fmt.Errorf("archive: %s in %s: %w", name, a.path, ErrNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("archive: opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	cf, err := classfile.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("archive: parsing %s: %w", name, err)
	}
	return a.cache.put(name, cf), nil
}

// Path is an ordered list of containers searched front to back.
type Path []Container

// OpenPath opens every entry of paths.
func OpenPath(paths ...string) (Path, error) {
	var cp Path
	for _, p := range paths {
		c, err := Open(p)
		if err != nil {
			return nil, err
		}
		cp = append(cp, c)
	}
	return cp, nil
}

// LoadClass returns the class from the first container holding it.
func (cp Path) LoadClass(name string) (*classfile.ClassFile, error) {
	for _, c := range cp {
		cf, err := c.LoadClass(name)
		if err == nil {
			return cf, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Entry names one class inside a container.
type Entry struct {
	Name      string
	Container Container
}

// Load parses the entry's class file.
func (e Entry) Load() (*classfile.ClassFile, error) {
	return e.Container.LoadClass(e.Name)
}

// Entries lists every class of every container in path order. A class
// name seen twice is reported once, from its first container.
func (cp Path) Entries() ([]Entry, error) {
	seen := make(map[string]bool)
	var entries []Entry
	for _, c := range cp {
		names, err := c.Classes()
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if seen[n] {
				log.Debugf("%s: shadowed by an earlier entry", n)
				continue
			}
			seen[n] = true
			entries = append(entries, Entry{Name: n, Container: c})
		}
	}
	return entries, nil
}
