package hostsfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// File reads and rewrites the hosts file on disk.
type File struct {
	path   string
	atomic bool
}

// NewFile returns a File that rewrites path in place. With atomic set, writes
// go through a temporary file that is renamed over path instead; that breaks
// bind-mounted files, so it is off by default.
func NewFile(path string, atomic bool) *File {
	return &File{path: path, atomic: atomic}
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Read() (string, error) {
	content, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("failed to read hosts file: %w", err)
	}
	return string(content), nil
}

// Write replaces the file contents and flushes them to stable storage.
// In place mode is not atomic: an error part way through the write (ENOSPC,
// EIO) can leave the file partially rewritten. Atomic mode avoids that at the
// cost of replacing the inode.
func (f *File) Write(content string) error {
	if f.atomic {
		return f.writeAtomic(content)
	}
	return f.writeInPlace(content)
}

// CheckAccess verifies that the file can be read and rewritten by writing
// back its current contents.
func (f *File) CheckAccess() error {
	content, err := f.Read()
	if err != nil {
		return err
	}
	if err := f.writeInPlace(content); err != nil {
		return err
	}
	return nil
}

func (f *File) writeInPlace(content string) error {
	// No O_TRUNC: a failed open leaves the file untouched.
	file, err := os.OpenFile(f.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open hosts file for writing: %w", err)
	}
	defer file.Close() //nolint:errcheck

	if _, err := file.WriteAt([]byte(content), 0); err != nil {
		return fmt.Errorf("failed to write hosts file: %w", err)
	}
	if err := file.Truncate(int64(len(content))); err != nil {
		return fmt.Errorf("failed to truncate hosts file: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync hosts file: %w", err)
	}
	return file.Close()
}

func (f *File) writeAtomic(content string) error {
	var perm os.FileMode = 0644
	if info, err := os.Stat(f.path); err == nil {
		perm = info.Mode().Perm()
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(f.path), ".hosts-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	//nolint:errcheck
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.WriteString(content); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("failed to replace hosts file: %w", err)
	}
	return nil
}
