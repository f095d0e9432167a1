// Package fixture manages the transient files byte-stream cases run against.
//
// A Manager owns one working directory. Every file it creates and every
// descriptor it opens is tracked, so Cleanup can remove what individual cases
// leave behind no matter how they ended.
package fixture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sys/unix"

	"github.com/lattice-substrate/primcheck/primerr"
)

const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// Fixture is a file with known content.
type Fixture struct {
	Name    string
	Path    string
	Content []byte
}

// Manager creates and removes fixtures under one directory.
type Manager struct {
	dir     string
	created map[string]struct{}
	open    map[*Handle]struct{}
}

// NewManager prepares dir for fixtures, creating it if needed.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		return nil, primerr.New(primerr.ResourceError, "", "fixture directory is empty")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, primerr.Wrap(primerr.ResourceError, "", "create fixture directory", err)
	}
	return &Manager{
		dir:     dir,
		created: make(map[string]struct{}),
		open:    make(map[*Handle]struct{}),
	}, nil
}

// Dir returns the working directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Path returns where the fixture called name lives.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.dir, name)
}

// Create writes content to the fixture called name, replacing any existing file.
func (m *Manager) Create(name string, content []byte) (*Fixture, error) {
	path := m.Path(name)
	m.created[name] = struct{}{}
	if err := os.WriteFile(path, content, filePerm); err != nil {
		return nil, primerr.Wrap(primerr.ResourceError, name, "create fixture", err)
	}
	return &Fixture{Name: name, Path: path, Content: append([]byte(nil), content...)}, nil
}

// Open opens the fixture called name with unix open(2) flags. O_CREAT
// registers the file for cleanup.
func (m *Manager) Open(name string, flags int) (*Handle, error) {
	if flags&unix.O_CREAT != 0 {
		m.created[name] = struct{}{}
	}
	fd, err := unix.Open(m.Path(name), flags|unix.O_CLOEXEC, filePerm)
	if err != nil {
		return nil, primerr.Wrap(primerr.ResourceError, name, "open fixture", err)
	}
	h := &Handle{name: name, fd: fd, owner: m}
	m.open[h] = struct{}{}
	return h, nil
}

// VerifyContent reopens the fixture called name and reads its content back.
func (m *Manager) VerifyContent(name string) ([]byte, error) {
	data, err := os.ReadFile(m.Path(name))
	if err != nil {
		return nil, primerr.Wrap(primerr.ResourceError, name, "read back fixture", err)
	}
	return data, nil
}

// ClosedFD returns a descriptor number that was valid a moment ago and is
// now closed.
func (m *Manager) ClosedFD() (int, error) {
	h, err := m.Open(".closed-fd", unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC)
	if err != nil {
		return -1, err
	}
	fd := h.FD()
	if err := h.Release(); err != nil {
		return -1, err
	}
	return fd, nil
}

// Cleanup releases open handles and removes every fixture. It keeps going
// after failures and returns all of them.
func (m *Manager) Cleanup() []error {
	var errs []error
	for h := range m.open {
		if err := h.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	names := make([]string, 0, len(m.created))
	for name := range m.created {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := os.Remove(m.Path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, primerr.Wrap(primerr.ResourceError, name, "remove fixture", err))
		}
		delete(m.created, name)
	}
	return errs
}

// Handle is an open descriptor whose lifetime is guarded: Release closes it
// exactly once, however many exit paths call it.
type Handle struct {
	name     string
	fd       int
	owner    *Manager
	released bool
}

// FD returns the descriptor, or -1 once released.
func (h *Handle) FD() int {
	if h.released {
		return -1
	}
	return h.fd
}

// Release closes the descriptor. Later calls do nothing.
func (h *Handle) Release() error {
	if h.released {
		return nil
	}
	h.released = true
	delete(h.owner.open, h)
	if err := unix.Close(h.fd); err != nil {
		return primerr.Wrap(primerr.ResourceError, h.name, fmt.Sprintf("close fd %d", h.fd), err)
	}
	return nil
}

// WithSavedPosition runs op and then puts fd's offset back where it was,
// including when op fails or panics.
func WithSavedPosition(fd int, op func() error) (err error) {
	off, err := unix.Seek(fd, 0, unix.SEEK_CUR)
	if err != nil {
		return primerr.Wrap(primerr.ResourceError, "", fmt.Sprintf("save offset of fd %d", fd), err)
	}
	defer func() {
		if _, seekErr := unix.Seek(fd, off, unix.SEEK_SET); seekErr != nil && err == nil {
			err = primerr.Wrap(primerr.ResourceError, "", fmt.Sprintf("restore offset of fd %d", fd), seekErr)
		}
	}()
	return op()
}
