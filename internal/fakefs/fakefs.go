// Package fakefs implements the in-memory, per-connection file system that
// backs the fake shell's `ls`, `cat`, `cd`, `pwd` and the write paths
// reachable from scp and the SFTP subsystem. Nothing here ever touches the
// real file system.
package fakefs

import (
	"errors"
	"strings"
	"sync"
)

// Error values returned by FileSystem operations; their messages are part
// of the honeypot's observable behaviour (they're what an attacker sees),
// so they're fixed exactly as written here.
var (
	ErrNoSuchFileOrDirectory = errors.New("No such file or directory")
	ErrNotDirectory          = errors.New("Not a directory")
	ErrIsADirectory          = errors.New("Is a directory")
	ErrFileExists            = errors.New("File exists")
)

// orderedDir is a directory's children, keyed by name, preserving the
// order in which entries were first created.
type orderedDir struct {
	order    []string
	children map[string]*node
}

func newOrderedDir() *orderedDir {
	return &orderedDir{children: make(map[string]*node)}
}

func (d *orderedDir) get(name string) (*node, bool) {
	n, ok := d.children[name]
	return n, ok
}

func (d *orderedDir) set(name string, n *node) {
	if _, exists := d.children[name]; !exists {
		d.order = append(d.order, name)
	}
	d.children[name] = n
}

// node is either a directory or a file. Exactly one of dir/content is set.
type node struct {
	dir     *orderedDir
	content []byte
}

func directoryNode() *node {
	return &node{dir: newOrderedDir()}
}

func fileNode(content []byte) *node {
	return &node{content: content}
}

func (n *node) isDir() bool { return n.dir != nil }

// FileSystem is a fake, connection-local file system tree. A client may
// open more than one shell/sftp channel over the same SSH connection, each
// serviced by its own goroutine, so access is guarded by mu.
type FileSystem struct {
	mu   sync.Mutex
	pwd  []string
	home []string
	root *node
}

// New creates a file system for the given username, seeded with that
// user's home directory (/root for root, /home/<user> otherwise).
func New(username string) *FileSystem {
	home := []string{"home", username}
	if username == "root" {
		home = []string{"root"}
	}

	fs := &FileSystem{
		pwd:  append([]string(nil), home...),
		home: home,
		root: directoryNode(),
	}

	_ = fs.MkdirAll(joinAbs(home))
	return fs
}

func segments(p string) []string {
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func joinAbs(segs []string) string {
	return "/" + strings.Join(segs, "/")
}

// canonicalize resolves rel against base the way PathBuf::join does: an
// absolute rel replaces base outright, a relative one is appended without
// any "." / ".." normalization.
func canonicalize(base []string, rel string) []string {
	relSegs := segments(rel)
	if strings.HasPrefix(rel, "/") {
		return relSegs
	}
	out := make([]string, 0, len(base)+len(relSegs))
	out = append(out, base...)
	out = append(out, relSegs...)
	return out
}

// Pwd returns the current working directory as an absolute path string.
func (fs *FileSystem) Pwd() string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return joinAbs(fs.pwd)
}

// Cd changes directory. A nil target resets to the user's home directory.
// Matches the original's PathBuf::push semantics exactly: no segment is
// ever resolved or cleaned, so `cd ..` literally appends the string "..".
func (fs *FileSystem) Cd(target *string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if target == nil {
		fs.pwd = append([]string(nil), fs.home...)
		return
	}
	fs.pwd = canonicalize(fs.pwd, *target)
}

// MkdirAll creates path and every missing parent directory, treating path
// as given (it is not joined against pwd).
func (fs *FileSystem) MkdirAll(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	cur := fs.root
	for _, seg := range segments(path) {
		if !cur.isDir() {
			return ErrFileExists
		}
		child, ok := cur.dir.get(seg)
		if !ok {
			child = directoryNode()
			cur.dir.set(seg, child)
		}
		cur = child
	}
	return nil
}

// Read returns the content of the file named by path, resolved relative to
// pwd.
func (fs *FileSystem) Read(path string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	canonical := canonicalize(fs.pwd, path)

	cur := fs.root
	for _, seg := range canonical {
		if !cur.isDir() {
			return nil, ErrNotDirectory
		}
		child, ok := cur.dir.get(seg)
		if !ok {
			return nil, ErrNoSuchFileOrDirectory
		}
		cur = child
	}

	if cur.isDir() {
		return nil, ErrIsADirectory
	}
	return cur.content, nil
}

// Write creates or overwrites the file named by path, resolved relative to
// pwd. Writing over an existing directory fails.
func (fs *FileSystem) Write(path string, content []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	canonical := canonicalize(fs.pwd, path)
	if len(canonical) == 0 {
		return ErrIsADirectory
	}

	parent := canonical[:len(canonical)-1]
	name := canonical[len(canonical)-1]

	cur := fs.root
	for _, seg := range parent {
		if !cur.isDir() {
			return ErrNotDirectory
		}
		child, ok := cur.dir.get(seg)
		if !ok {
			return ErrNoSuchFileOrDirectory
		}
		cur = child
	}

	if !cur.isDir() {
		return ErrNotDirectory
	}

	if existing, ok := cur.dir.get(name); ok && existing.isDir() {
		return ErrIsADirectory
	}
	cur.dir.set(name, fileNode(content))
	return nil
}

// Ls lists the contents of dir (or pwd, if dir is nil), resolved relative
// to pwd. Listing a file's path returns a single-element slice containing
// that same path.
func (fs *FileSystem) Ls(dir *string) ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var canonical []string
	var displayPath string
	if dir != nil {
		canonical = canonicalize(fs.pwd, *dir)
		displayPath = *dir
	} else {
		canonical = fs.pwd
		displayPath = joinAbs(fs.pwd)
	}

	cur := fs.root
	for _, seg := range canonical {
		if !cur.isDir() {
			return nil, ErrNotDirectory
		}
		child, ok := cur.dir.get(seg)
		if !ok {
			return nil, ErrNoSuchFileOrDirectory
		}
		cur = child
	}

	if cur.isDir() {
		out := make([]string, len(cur.dir.order))
		copy(out, cur.dir.order)
		return out, nil
	}
	return []string{displayPath}, nil
}
