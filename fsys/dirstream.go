package fsys

import (
	"os"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// loopbackDirStream enumerates directory entries through a directory file
// descriptor via os.File.ReadDir, converting each os.DirEntry into the
// fuse.DirEntry shape go-fuse expects. Readdir is never rule-gated (spec.md
// §4.3): listing is not how this tool conceals anything.
type loopbackDirStream struct {
	entries []os.DirEntry
	pos     int
}

func newLoopbackDirStream(fd int) (*loopbackDirStream, syscall.Errno) {
	f := os.NewFile(uintptr(fd), "")
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, errnoOf(err)
	}

	return &loopbackDirStream{entries: entries}, 0
}

func (s *loopbackDirStream) HasNext() bool {
	return s.pos < len(s.entries)
}

func (s *loopbackDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	e := s.entries[s.pos]
	s.pos++

	mode := uint32(0)
	if info, err := e.Info(); err == nil {
		mode = uint32(info.Mode().Perm())

		if e.IsDir() {
			mode |= syscall.S_IFDIR
		} else {
			mode |= syscall.S_IFREG
		}
	}

	return fuse.DirEntry{Name: e.Name(), Mode: mode}, 0
}

func (s *loopbackDirStream) Close() {}
