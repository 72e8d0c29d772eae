package harness

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Manu343726/disfuzz/pkg/toolchain"
)

// Artifact file names. They are reused every iteration, so every write
// replaces the previous content.
const (
	CorpusBinary     = "corpus.bin"
	UnderTestOutput  = "underTest.txt"
	ReferenceOutput  = "reference.txt"
	ReassemblySource = "reassembly.s"
	ReassemblyObject = "reassembly.o"
	ReassemblyELF    = "reassembly.elf"
	ReassemblyBinary = "reassembly.bin"
	RoundTripD0      = "d0.txt"
	RoundTripD1      = "d1.txt"
	FailureManifest  = "failure.yaml"
)

// CorpusFile returns the artifact name of the corpus encoded in format
func CorpusFile(format toolchain.InputFormat) string {
	return "corpus" + format.Extension()
}

// FormatOutputFile returns the artifact name of the disassembly of the corpus
// read in format
func FormatOutputFile(format toolchain.InputFormat) string {
	return "underTest." + format.Selector() + ".txt"
}

// Workspace is a directory of fixed-name artifacts. Every path handed out is
// tracked so it can be removed or reported later. Protected files are never
// removed.
type Workspace struct {
	Dir string

	mutex     sync.Mutex
	tracked   map[string]bool
	protected map[string]bool
}

// NewWorkspace creates dir if needed
func NewWorkspace(dir string) (*Workspace, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace %s: %w", dir, err)
	}
	return &Workspace{Dir: dir, tracked: map[string]bool{}, protected: map[string]bool{}}, nil
}

// Sub returns a workspace in the named subdirectory
func (w *Workspace) Sub(name string) (*Workspace, error) {
	return NewWorkspace(filepath.Join(w.Dir, name))
}

// Path returns the path of the named artifact and tracks it
func (w *Workspace) Path(name string) string {
	path := filepath.Join(w.Dir, name)

	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.tracked[path] = true

	return path
}

// Protect excludes path from Clean and Reset
func (w *Workspace) Protect(path string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.protected[absolute(path)] = true
}

// Protected reports whether path was protected
func (w *Workspace) Protected(path string) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.protected[absolute(path)]
}

func absolute(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Reset removes every unprotected file of the directory, including the ones
// left by previous runs, and forgets the tracked artifacts
func (w *Workspace) Reset() error {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		return fmt.Errorf("listing workspace %s: %w", w.Dir, err)
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	var errs []error
	for _, entry := range entries {
		path := filepath.Join(w.Dir, entry.Name())
		if entry.IsDir() || w.protected[absolute(path)] {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	w.tracked = map[string]bool{}

	return errors.Join(errs...)
}

// Clean removes every tracked artifact. Artifacts that were never written are
// ignored.
func (w *Workspace) Clean() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	var errs []error
	for path := range w.tracked {
		if w.protected[absolute(path)] {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	w.tracked = map[string]bool{}

	return errors.Join(errs...)
}

// Retain keeps the tracked artifacts on disk and returns the ones that exist,
// sorted
func (w *Workspace) Retain() []string {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	var retained []string
	for path := range w.tracked {
		if _, err := os.Stat(path); err == nil {
			retained = append(retained, path)
		}
	}
	sort.Strings(retained)

	return retained
}
