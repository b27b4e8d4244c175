package session

import (
	"os"
	"sync"
)

type sourceMapKey struct {
	directory string
	filename  string
}

// SourceMapper caches engine file-spec (directory, filename) pairs to a
// local path, with negative-result caching when suppressMissingFiles is
// set and the remapped path does not exist (§4.5).
type SourceMapper struct {
	mu       sync.Mutex
	cache    map[sourceMapKey]string
	negative map[sourceMapKey]bool

	remap                func(directory, filename string) string
	suppressMissingFiles bool
}

// NewSourceMapper builds a mapper around a path remapper function (the
// external expression/source-map collaborator named in §1's out-of-scope
// list).
func NewSourceMapper(remap func(directory, filename string) string) *SourceMapper {
	return &SourceMapper{
		cache:    make(map[sourceMapKey]string),
		negative: make(map[sourceMapKey]bool),
		remap:    remap,
	}
}

// SetSuppressMissingFiles toggles whether a remapped path that doesn't
// exist on disk is cached as a permanent miss.
func (s *SourceMapper) SetSuppressMissingFiles(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppressMissingFiles = v
}

// Resolve maps an engine (directory, filename) pair to a local path. ok is
// false when the file was remapped but found missing under suppression.
func (s *SourceMapper) Resolve(directory, filename string) (path string, ok bool) {
	key := sourceMapKey{directory, filename}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.negative[key] {
		return "", false
	}
	if p, found := s.cache[key]; found {
		return p, true
	}

	p := s.remap(directory, filename)
	if s.suppressMissingFiles {
		if _, err := os.Stat(p); err != nil {
			s.negative[key] = true
			return "", false
		}
	}

	s.cache[key] = p
	return p, true
}
