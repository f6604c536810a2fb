package fs

import (
	"fmt"
	"strings"

	. "github.com/weberc2/extentfs/pkg/types"
)

// Lookup returns the inode named `name` in directory `dir`.
func (fs *FileSystem) Lookup(dir Ino, name string) (Ino, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if err := fs.checkOpen("looking up"); err != nil {
		return InoNil, err
	}
	ino, err := fs.lookup(dir, name)
	if err != nil {
		return InoNil, fmt.Errorf("looking up `%s` in dir `%d`: %w", name, dir, err)
	}
	return ino, nil
}

func (fs *FileSystem) lookup(dir Ino, name string) (Ino, error) {
	node, err := fs.acquire(dir)
	if err != nil {
		return InoNil, err
	}
	defer fs.release(node)
	table, err := fs.dirTable(node)
	if err != nil {
		return InoNil, err
	}
	return table.Lookup(name)
}

// LookupPath resolves a `/`-separated path from the root. Empty components
// and `.` are skipped and `..` steps back to the previous component (the
// root's parent is the root). Symbolic links are not followed.
func (fs *FileSystem) LookupPath(path string) (Ino, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if err := fs.checkOpen("looking up path"); err != nil {
		return InoNil, err
	}
	ino, err := fs.lookupPath(path)
	if err != nil {
		return InoNil, fmt.Errorf("looking up path `%s`: %w", path, err)
	}
	return ino, nil
}

func (fs *FileSystem) lookupPath(path string) (Ino, error) {
	stack := []Ino{InoRoot}
	for _, component := range splitPath(path) {
		if component == ".." {
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		ino, err := fs.lookup(stack[len(stack)-1], component)
		if err != nil {
			return InoNil, fmt.Errorf("component `%s`: %w", component, err)
		}
		stack = append(stack, ino)
	}
	return stack[len(stack)-1], nil
}

// splitPath drops empty and `.` components.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			out = append(out, part)
		}
	}
	return out
}

// splitParent splits a path into its parent directory path and final name.
func splitParent(path string) (string, string, error) {
	components := splitPath(path)
	if len(components) < 1 {
		return "", "", fmt.Errorf("path `%s` has no name: %w", path, InvalidArgumentErr)
	}
	name := components[len(components)-1]
	if name == ".." {
		return "", "", fmt.Errorf("path `%s` ends in `..`: %w", path, InvalidArgumentErr)
	}
	return strings.Join(components[:len(components)-1], "/"), name, nil
}
