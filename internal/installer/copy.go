package installer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// copyTree copies src into dst verbatim, preserving the directory layout,
// file modes and, where the filesystem supports them, symlinks.
func copyTree(fs afero.Fs, src, dst string) (int, error) {
	copied := 0
	err := afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.IsDir():
			return fs.MkdirAll(target, info.Mode().Perm()|0700)
		case info.Mode()&os.ModeSymlink != 0:
			if err := copySymlink(fs, path, target); err != nil {
				return err
			}
		default:
			if err := copyFile(fs, path, target, info.Mode().Perm()); err != nil {
				return err
			}
		}
		copied++
		return nil
	})
	return copied, err
}

func copySymlink(fs afero.Fs, src, dst string) error {
	reader, canRead := fs.(afero.LinkReader)
	linker, canLink := fs.(afero.Linker)
	if !canRead || !canLink {
		info, err := fs.Stat(src)
		if err != nil {
			return fmt.Errorf("failed to resolve symlink %s: %w", src, err)
		}
		return copyFile(fs, src, dst, info.Mode().Perm())
	}

	target, err := reader.ReadlinkIfPossible(src)
	if err != nil {
		return fmt.Errorf("failed to read symlink %s: %w", src, err)
	}
	if err := fs.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", dst, err)
	}
	if err := linker.SymlinkIfPossible(target, dst); err != nil {
		return fmt.Errorf("failed to create symlink %s: %w", dst, err)
	}
	return nil
}

func copyFile(fs afero.Fs, src, dst string, mode os.FileMode) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}

	// OpenFile honours the umask; restore the payload's exact mode.
	return fs.Chmod(dst, mode)
}
