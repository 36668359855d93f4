package git

import (
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// treeEntry is a leaf of a flattened tree: a blob, symlink or submodule
type treeEntry struct {
	Hash plumbing.Hash
	Mode filemode.FileMode
}

// flattenTree maps every leaf path of t to its entry. A nil tree is empty.
func flattenTree(t *object.Tree) (map[string]treeEntry, error) {
	entries := make(map[string]treeEntry)
	if t == nil {
		return entries, nil
	}

	walker := object.NewTreeWalker(t, true, nil)
	defer walker.Close()

	for {
		name, entry, err := walker.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to walk tree %s: %w", t.Hash, err)
		}
		if entry.Mode == filemode.Dir {
			continue
		}
		entries[name] = treeEntry{Hash: entry.Hash, Mode: entry.Mode}
	}
	return entries, nil
}

// mergeEntries performs a path-level three-way merge.
// A path changed on one side takes that side, identical changes are taken once,
// and divergent changes keep the local entry and are reported as conflicts.
// A path that would be a file on one side and a directory on the other keeps
// the local shape; the dropped remote paths are reported as conflicts.
func mergeEntries(base, local, remote map[string]treeEntry) (map[string]treeEntry, []string) {
	paths := make(map[string]struct{}, len(local)+len(remote))
	for p := range base {
		paths[p] = struct{}{}
	}
	for p := range local {
		paths[p] = struct{}{}
	}
	for p := range remote {
		paths[p] = struct{}{}
	}

	merged := make(map[string]treeEntry, len(paths))
	var conflicts []string

	for p := range paths {
		b, inBase := base[p]
		l, inLocal := local[p]
		r, inRemote := remote[p]

		localChanged := !sameEntry(b, inBase, l, inLocal)
		remoteChanged := !sameEntry(b, inBase, r, inRemote)

		switch {
		case !remoteChanged:
			if inLocal {
				merged[p] = l
			}
		case !localChanged:
			if inRemote {
				merged[p] = r
			}
		case sameEntry(l, inLocal, r, inRemote):
			if inLocal {
				merged[p] = l
			}
		default:
			conflicts = append(conflicts, p)
			if inLocal {
				merged[p] = l
			}
		}
	}

	conflicts = append(conflicts, resolveFileDirCollisions(merged, local)...)
	sort.Strings(conflicts)
	return merged, conflicts
}

// resolveFileDirCollisions removes merged entries that would make a path both a
// file and a directory, keeping whichever shape local has. It returns the removed paths.
func resolveFileDirCollisions(merged, local map[string]treeEntry) []string {
	dirs := make(map[string]struct{})
	for p := range merged {
		for dir := path.Dir(p); dir != "."; dir = path.Dir(dir) {
			dirs[dir] = struct{}{}
		}
	}

	var dropped []string
	for p := range merged {
		if _, isDir := dirs[p]; !isDir {
			continue
		}
		if _, inLocal := local[p]; !inLocal {
			delete(merged, p)
			dropped = append(dropped, p)
			continue
		}
		prefix := p + "/"
		for other := range merged {
			if strings.HasPrefix(other, prefix) {
				delete(merged, other)
				dropped = append(dropped, other)
			}
		}
	}
	return dropped
}

func sameEntry(a treeEntry, aok bool, b treeEntry, bok bool) bool {
	if aok != bok {
		return false
	}
	return !aok || a == b
}

// treeNode is a directory while building nested trees
type treeNode struct {
	leaf     *treeEntry
	children map[string]*treeNode
}

// writeTree stores the nested tree objects for a flat path map and returns the root id.
// Identical maps always produce the same id.
func writeTree(s storer.EncodedObjectStorer, entries map[string]treeEntry) (plumbing.Hash, error) {
	root := &treeNode{children: map[string]*treeNode{}}

	for name, entry := range entries {
		node := root
		parts := strings.Split(name, "/")
		for i, part := range parts {
			child, ok := node.children[part]
			if !ok {
				child = &treeNode{children: map[string]*treeNode{}}
				node.children[part] = child
			}
			if i == len(parts)-1 {
				e := entry
				child.leaf = &e
			}
			node = child
		}
	}

	return writeTreeNode(s, "", root)
}

func writeTreeNode(s storer.EncodedObjectStorer, dir string, node *treeNode) (plumbing.Hash, error) {
	tree := &object.Tree{}

	for name, child := range node.children {
		childPath := name
		if dir != "" {
			childPath = dir + "/" + name
		}

		if child.leaf != nil {
			if len(child.children) > 0 {
				return plumbing.ZeroHash, fmt.Errorf("path %s is both a file and a directory", childPath)
			}
			tree.Entries = append(tree.Entries, object.TreeEntry{Name: name, Mode: child.leaf.Mode, Hash: child.leaf.Hash})
			continue
		}

		hash, err := writeTreeNode(s, childPath, child)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		tree.Entries = append(tree.Entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash})
	}

	sort.Slice(tree.Entries, func(i, j int) bool {
		return treeSortKey(tree.Entries[i]) < treeSortKey(tree.Entries[j])
	})

	obj := s.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree %q: %w", dir, err)
	}
	hash, err := s.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree %q: %w", dir, err)
	}
	return hash, nil
}

// treeSortKey orders entries the way git does: directories sort as if named "name/"
func treeSortKey(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}
