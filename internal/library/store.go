package library

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/markinote/markinote/internal/dateutil"
	"github.com/markinote/markinote/internal/fileutil"
)

// NoteExtensions are the extensions CreateFile accepts.
var NoteExtensions = []string{"md", "markdown", "txt"}

// DefaultMaxUploadSize bounds Upload when Options leaves it zero.
const DefaultMaxUploadSize = 16 << 20

// File and folder permissions for created entries.
const (
	filePerm = 0o644
	dirPerm  = 0o755
)

// EntryType distinguishes files from folders in listings.
type EntryType string

const (
	TypeFolder EntryType = "folder"
	TypeFile   EntryType = "file"
)

// Entry is one item of a folder listing.
type Entry struct {
	Name     string    `json:"name"`
	Type     EntryType `json:"type"`
	Path     string    `json:"path"`
	Size     int64     `json:"size,omitempty"`
	Modified time.Time `json:"modified"`
	Checksum string    `json:"checksum,omitempty"` // BLAKE3, hex
}

// Folder is one item of the recursive folder list.
type Folder struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// RootFolderName labels the root entry returned by Folders.
const RootFolderName = "/"

// Options configures a Store.
type Options struct {
	AllowedExtensions []string // Lowercase, without the dot. Nil means NoteExtensions.
	MaxUploadSize     int64
	Now               func() time.Time // Collision suffix clock
	Logger            *slog.Logger
}

// Store is a sandboxed note folder.
type Store struct {
	root      string
	allowed   map[string]bool
	maxUpload int64
	now       func() time.Time
	logger    *slog.Logger

	mu sync.Mutex // serializes mutations
}

// Open returns a Store rooted at root, creating the directory if needed.
func Open(root string, opts Options) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty root", ErrInvalidPath)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving library root: %w", err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("creating library root: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving library root: %w", err)
	}
	if !fileutil.DirExists(real) {
		return nil, fmt.Errorf("%w: %s", ErrNotAFolder, root)
	}

	exts := opts.AllowedExtensions
	if len(exts) == 0 {
		exts = NoteExtensions
	}
	allowed := make(map[string]bool, len(exts))
	for _, ext := range exts {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	maxUpload := opts.MaxUploadSize
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadSize
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Store{
		root:      real,
		allowed:   allowed,
		maxUpload: maxUpload,
		now:       now,
		logger:    logger,
	}, nil
}

// Root returns the absolute, symlink-free library root.
func (s *Store) Root() string {
	return s.root
}

// MaxUploadSize returns the upload limit in bytes.
func (s *Store) MaxUploadSize() int64 {
	return s.maxUpload
}

// Allowed reports whether name has an extension the library shows.
func (s *Store) Allowed(name string) bool {
	return strings.Contains(name, ".") && s.allowed[fileutil.Extension(name)]
}

// Path resolves rel to an absolute path inside the root.
func (s *Store) Path(rel string) (string, error) {
	return s.resolve(rel)
}

// List returns the entries of the folder rel, folders first, then by
// case-insensitive name. Files with other extensions are omitted.
func (s *Store) List(ctx context.Context, rel string) ([]Entry, error) {
	abs, info, err := s.statPath(rel)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotAFolder, rel)
	}

	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("reading folder %q: %w", rel, err)
	}

	items := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		childRel := path.Join(s.relPath(abs), de.Name())
		childAbs, err := s.resolve(childRel)
		if err != nil {
			// Symlink pointing outside the root.
			continue
		}
		fi, err := os.Stat(childAbs)
		if err != nil {
			continue
		}

		if fi.IsDir() {
			items = append(items, Entry{
				Name:     de.Name(),
				Type:     TypeFolder,
				Path:     childRel,
				Modified: fi.ModTime(),
			})
			continue
		}
		if !fi.Mode().IsRegular() || !s.Allowed(de.Name()) {
			continue
		}
		sum, err := checksum(childAbs)
		if err != nil {
			s.logger.Warn("checksum failed", "path", childRel, "error", err)
		}
		items = append(items, Entry{
			Name:     de.Name(),
			Type:     TypeFile,
			Path:     childRel,
			Size:     fi.Size(),
			Modified: fi.ModTime(),
			Checksum: sum,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if (items[i].Type == TypeFolder) != (items[j].Type == TypeFolder) {
			return items[i].Type == TypeFolder
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return items, nil
}

// checksum returns the hex BLAKE3 digest of the file at abs.
func checksum(abs string) (string, error) {
	f, err := os.Open(abs) // #nosec G304 -- abs was resolved inside the library root
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Folders returns every folder in the library, depth first with siblings in
// name order, preceded by the root entry (path "", level 0).
func (s *Store) Folders(ctx context.Context) ([]Folder, error) {
	folders := []Folder{{Path: "", Name: RootFolderName, Level: 0}}
	err := s.collectFolders(ctx, s.root, "", &folders)
	if err != nil {
		return nil, err
	}
	return folders, nil
}

func (s *Store) collectFolders(ctx context.Context, abs, rel string, out *[]Folder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		s.logger.Warn("reading folder failed", "path", rel, "error", err)
		return nil
	}
	for _, de := range entries {
		// Symlinked folders are skipped so a link to an ancestor cannot loop.
		if !de.IsDir() {
			continue
		}
		childRel := path.Join(rel, de.Name())
		childAbs := filepath.Join(abs, de.Name())
		*out = append(*out, Folder{
			Path:  childRel,
			Name:  de.Name(),
			Level: strings.Count(childRel, "/") + 1,
		})
		if err := s.collectFolders(ctx, childAbs, childRel, out); err != nil {
			return err
		}
	}
	return nil
}

// UploadResult names the stored file.
type UploadResult struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// Upload stores the content of r as filename inside folder rel, creating
// the folder if needed. The name is sanitized with SafeFilename; when it is
// taken, a timestamp suffix is added.
func (s *Store) Upload(rel, filename string, r io.Reader) (*UploadResult, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: no file name", ErrInvalidName)
	}
	if !s.Allowed(filename) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filename)
	}
	name := SafeFilename(filename)
	if !s.Allowed(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}

	dir, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	if fileutil.FileExists(dir) {
		return nil, fmt.Errorf("%w: %s", ErrNotAFolder, rel)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating folder %q: %w", rel, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating upload file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, io.LimitReader(r, s.maxUpload+1))
	closeErr := tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("writing upload: %w", err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("closing upload: %w", closeErr)
	}
	if n > s.maxUpload {
		return nil, fmt.Errorf("%w: max %d bytes", ErrTooLarge, s.maxUpload)
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		return nil, fmt.Errorf("setting permissions: %w", err)
	}

	target := s.freeName(dir, name)
	if err := os.Rename(tmpPath, target); err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}
	committed = true

	res := &UploadResult{Filename: filepath.Base(target), Path: s.relPath(target)}
	s.logger.Info("file uploaded", "path", res.Path, "bytes", n)
	return res, nil
}

// freeName returns dir/name, or dir/stem_YYYYMMDD_HHmmss.ext when name is
// taken. A counter is appended if the suffixed name is taken too.
func (s *Store) freeName(dir, name string) string {
	candidate := filepath.Join(dir, name)
	if !exists(candidate) {
		return candidate
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext) + dateutil.CollisionSuffix(s.now())
	candidate = filepath.Join(dir, stem+ext)
	for i := 2; exists(candidate); i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}
	return candidate
}

func exists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}

// CreateFolder creates the folder name inside parent and returns its path.
func (s *Store) CreateFolder(parent, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: folder name is empty", ErrInvalidName)
	}
	name = SafeFilename(name)

	abs, err := s.resolve(path.Join(parent, name))
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if exists(abs) {
		return "", fmt.Errorf("%w: %s", ErrExists, name)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return "", fmt.Errorf("creating folder: %w", err)
	}
	rel := s.relPath(abs)
	s.logger.Info("folder created", "path", rel)
	return rel, nil
}

// CreateFile creates a note named name inside parent, seeded with a level
// one heading of its stem, and returns its path.
func (s *Store) CreateFile(parent, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: file name is empty", ErrInvalidName)
	}
	if !isNoteExtension(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}
	name = SafeFilename(name)

	dir, info, err := s.statPath(parent)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotAFolder, parent)
	}
	abs, err := s.resolve(path.Join(s.relPath(dir), name))
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm) // #nosec G304 -- abs was resolved inside the library root
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrExists, name)
		}
		return "", fmt.Errorf("creating file: %w", err)
	}
	_, werr := io.WriteString(f, "# "+fileutil.Stem(name)+"\n\n")
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(abs)
		return "", fmt.Errorf("writing file: %w", werr)
	}

	rel := s.relPath(abs)
	s.logger.Info("file created", "path", rel)
	return rel, nil
}

// isNoteExtension reports whether the text after the last dot of name is
// one of NoteExtensions.
func isNoteExtension(name string) bool {
	ext := strings.ToLower(name[strings.LastIndex(name, ".")+1:])
	for _, e := range NoteExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Delete removes the file or folder tree at rel.
func (s *Store) Delete(rel string) error {
	if strings.Trim(rel, "/") == "" {
		return fmt.Errorf("%w: path is empty", ErrInvalidPath)
	}
	abs, info, err := s.statPath(rel)
	if err != nil {
		return err
	}
	if abs == s.root {
		return fmt.Errorf("%w: cannot delete the library root", ErrInvalidPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if info.IsDir() {
		err = os.RemoveAll(abs)
	} else {
		err = os.Remove(abs)
	}
	if err != nil {
		return fmt.Errorf("deleting %q: %w", rel, err)
	}
	s.logger.Info("entry deleted", "path", rel, "folder", info.IsDir())
	return nil
}

// Move moves the file or folder src into the folder target and returns the
// new path. An empty target means the root. The target folder is created if
// missing; a name taken there gets a timestamp suffix.
func (s *Store) Move(src, target string) (string, error) {
	if strings.Trim(src, "/") == "" {
		return "", fmt.Errorf("%w: source path is empty", ErrInvalidPath)
	}
	srcAbs, _, err := s.statPath(src)
	if err != nil {
		return "", err
	}
	if srcAbs == s.root {
		return "", fmt.Errorf("%w: cannot move the library root", ErrInvalidPath)
	}
	dstDir, err := s.resolve(target)
	if err != nil {
		return "", err
	}
	if fileutil.FileExists(dstDir) {
		return "", fmt.Errorf("%w: %s", ErrNotAFolder, target)
	}
	if dstDir == srcAbs || strings.HasPrefix(dstDir, srcAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: cannot move a folder into itself", ErrInvalidPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if filepath.Dir(srcAbs) == dstDir {
		return s.relPath(srcAbs), nil
	}
	if err := os.MkdirAll(dstDir, dirPerm); err != nil {
		return "", fmt.Errorf("creating folder %q: %w", target, err)
	}
	dst := s.freeName(dstDir, filepath.Base(srcAbs))
	if err := os.Rename(srcAbs, dst); err != nil {
		return "", fmt.Errorf("moving %q: %w", src, err)
	}

	rel := s.relPath(dst)
	s.logger.Info("entry moved", "from", src, "to", rel)
	return rel, nil
}

// Rename gives the file or folder at rel the name newName within the same
// folder and returns the new path and sanitized name.
func (s *Store) Rename(rel, newName string) (newPath, name string, err error) {
	if strings.Trim(rel, "/") == "" {
		return "", "", fmt.Errorf("%w: path is empty", ErrInvalidPath)
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return "", "", fmt.Errorf("%w: new name is empty", ErrInvalidName)
	}
	name = SafeFilename(newName)

	abs, _, err := s.statPath(rel)
	if err != nil {
		return "", "", err
	}
	if abs == s.root {
		return "", "", fmt.Errorf("%w: cannot rename the library root", ErrInvalidPath)
	}
	dst := filepath.Join(filepath.Dir(abs), name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if exists(dst) {
		return "", "", fmt.Errorf("%w: %q is already used", ErrExists, name)
	}
	if err := os.Rename(abs, dst); err != nil {
		return "", "", fmt.Errorf("renaming %q: %w", rel, err)
	}

	newPath = s.relPath(dst)
	s.logger.Info("entry renamed", "from", rel, "to", newPath)
	return newPath, name, nil
}

// Read returns the content of the file at rel.
func (s *Store) Read(rel string) (string, error) {
	if strings.Trim(rel, "/") == "" {
		return "", fmt.Errorf("%w: path is empty", ErrInvalidPath)
	}
	abs, info, err := s.statPath(rel)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotAFile, rel)
	}
	data, err := os.ReadFile(abs) // #nosec G304 -- abs was resolved inside the library root
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", rel, err)
	}
	return string(data), nil
}

// Save replaces the content of the existing file at rel.
func (s *Store) Save(rel, content string) error {
	if strings.Trim(rel, "/") == "" {
		return fmt.Errorf("%w: path is empty", ErrInvalidPath)
	}
	abs, info, err := s.statPath(rel)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotAFile, rel)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fileutil.WriteFileAtomic(abs, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("saving %q: %w", rel, err)
	}
	s.logger.Debug("file saved", "path", rel, "bytes", len(content))
	return nil
}
