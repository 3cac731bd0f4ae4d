package nanofs

import "strings"

// ResolveKind discriminates the three outcomes a path resolution can reach.
type ResolveKind int

const (
	// ResolveNotFound means an intermediate component was missing or had
	// the wrong type; fatal for every caller.
	ResolveNotFound ResolveKind = iota
	// ResolveFound means every component existed with the expected type.
	ResolveFound
	// ResolveParentOnly means every intermediate component resolved as a
	// directory but the final name was not present. This is the state
	// required by create/mkdir and an error for every other caller.
	ResolveParentOnly
)

// Resolved is the outcome of walking a path to either an inode or a
// (parent, leaf name) pair.
type Resolved struct {
	Kind        ResolveKind
	Inode       int    // valid when Kind == ResolveFound
	ParentInode int    // valid when Kind == ResolveFound or ResolveParentOnly
	LeafName    string // valid when Kind == ResolveFound or ResolveParentOnly
}

// PathResolver walks slash-delimited, cwd-relative paths to an inode, or to
// a (parent inode, leaf name) pair for creators. nanofs never supports
// absolute paths: a leading '/' is just another illegal empty component.
type PathResolver struct {
	inodes *InodeTable
	dirs   *DirectoryOps
}

// NewPathResolver builds a PathResolver over the given collaborators.
func NewPathResolver(inodes *InodeTable, dirs *DirectoryOps) *PathResolver {
	return &PathResolver{inodes: inodes, dirs: dirs}
}

// splitComponents splits path on '/' and rejects empty components anywhere
// (an empty path, a leading '/', a doubled '/', or a trailing '/').
func splitComponents(path string) ([]string, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	parts := strings.Split(path, "/")
	for _, p := range parts {
		if p == "" {
			return nil, ErrInvalidPath
		}
		if err := validName(p); err != nil {
			return nil, err
		}
	}
	return parts, nil
}

// Resolve walks path starting at cwd. Every component but the last is
// looked up as a directory; the last is looked up as expectedLeaf.
func (r *PathResolver) Resolve(cwd int, path string, expectedLeaf FileType) (Resolved, error) {
	parts, err := splitComponents(path)
	if err != nil {
		return Resolved{}, err
	}

	cur := cwd
	for _, name := range parts[:len(parts)-1] {
		dirInode, err := r.inodes.Read(cur)
		if err != nil {
			return Resolved{}, err
		}
		idx, ok, err := r.dirs.FindByName(dirInode, name, TypeDirectory)
		if err != nil {
			return Resolved{}, err
		}
		if !ok {
			return Resolved{Kind: ResolveNotFound}, nil
		}
		entries, err := r.dirs.ReadAll(dirInode)
		if err != nil {
			return Resolved{}, err
		}
		cur = entries[idx].InodeNumber
	}

	leaf := parts[len(parts)-1]
	dirInode, err := r.inodes.Read(cur)
	if err != nil {
		return Resolved{}, err
	}
	idx, ok, err := r.dirs.FindByName(dirInode, leaf, expectedLeaf)
	if err != nil {
		return Resolved{}, err
	}
	if !ok {
		return Resolved{Kind: ResolveParentOnly, ParentInode: cur, LeafName: leaf}, nil
	}
	entries, err := r.dirs.ReadAll(dirInode)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Kind: ResolveFound, Inode: entries[idx].InodeNumber, ParentInode: cur, LeafName: leaf}, nil
}
