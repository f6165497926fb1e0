package stream

import (
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/AgentD/ctools/blob"
	"github.com/AgentD/ctools/cmn"
)

// FileStream is Stream + seek/tell/map over an OS file (§4.E).
type FileStream struct {
	mu      sync.Mutex
	f       *os.File
	mode    Type // FlagRead/FlagWrite/FlagAppend/.../ORd into TypeFile
	timeout time.Duration
}

// OpenFile opens path under the given mode flags. Exactly one of
// FlagRead/FlagWrite (or both) must be present; FlagAppend implies
// FlagWrite and FlagExecute implies FlagRead.
func OpenFile(path string, mode Type, perm os.FileMode) (*FileStream, cmn.ErrorCode) {
	if mode&FlagExecute != 0 {
		mode |= FlagRead
	}
	if mode&FlagAppend != 0 {
		mode |= FlagWrite
	}
	if mode&(FlagRead|FlagWrite) == 0 {
		return nil, cmn.BadArg
	}

	var flags int
	switch {
	case mode&FlagRead != 0 && mode&FlagWrite != 0:
		flags = os.O_RDWR
	case mode&FlagWrite != 0:
		flags = os.O_WRONLY
	default:
		flags = os.O_RDONLY
	}
	if mode&FlagCreate != 0 {
		flags |= os.O_CREATE
	}
	if mode&FlagOverwrite != 0 {
		flags |= os.O_TRUNC
	}
	if mode&FlagAppend != 0 {
		flags |= os.O_APPEND
	}

	f, err := os.OpenFile(path, flags, perm)
	if err != nil {
		return nil, mapOSError(err)
	}
	return &FileStream{f: f, mode: mode | TypeFile}, cmn.Ok
}

func (fs *FileStream) Type() Type { return fs.mode }

func (fs *FileStream) SetTimeout(d time.Duration) {
	fs.mu.Lock()
	fs.timeout = d
	fs.mu.Unlock()
}

func (fs *FileStream) Read(buf []byte) (int, cmn.ErrorCode) {
	n, err := fs.f.Read(buf)
	if err != nil {
		if err == io.EOF {
			if n > 0 {
				return n, cmn.Ok
			}
			return 0, cmn.Eof
		}
		return n, mapOSError(err)
	}
	return n, cmn.Ok
}

// Write performs an append-mode write (seek-end, write, seek-back) when
// FlagAppend is set. This is inherently racy under concurrent writers on
// platforms lacking an atomic O_APPEND — the design accepts that race
// rather than pretending atomicity.
func (fs *FileStream) Write(buf []byte) (int, cmn.ErrorCode) {
	if fs.mode&FlagAppend == 0 {
		n, err := fs.f.Write(buf)
		if err != nil {
			return n, mapOSError(err)
		}
		return n, cmn.Ok
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	prior, err := fs.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, mapOSError(err)
	}
	if _, err := fs.f.Seek(0, io.SeekEnd); err != nil {
		return 0, mapOSError(err)
	}
	n, werr := fs.f.Write(buf)
	if _, serr := fs.f.Seek(prior, io.SeekStart); serr != nil && werr == nil {
		werr = serr
	}
	if werr != nil {
		return n, mapOSError(werr)
	}
	return n, cmn.Ok
}

func (fs *FileStream) Seek(absOffset int64) cmn.ErrorCode {
	if _, err := fs.f.Seek(absOffset, io.SeekStart); err != nil {
		return mapOSError(err)
	}
	return cmn.Ok
}

func (fs *FileStream) Tell() (int64, cmn.ErrorCode) {
	off, err := fs.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, mapOSError(err)
	}
	return off, cmn.Ok
}

func (fs *FileStream) Destroy() cmn.ErrorCode {
	if err := fs.f.Sync(); err != nil && !os.IsPermission(err) {
		// best-effort flush; a read-only fd can't be synced and that's fine
	}
	if err := fs.f.Close(); err != nil {
		return mapOSError(err)
	}
	return cmn.Ok
}

// Mapping flags.
const (
	MapRead Type = 1 << iota
	MapWrite
	MapExecute
	MapCOW
)

// Mapping is a Blob whose data addresses a live memory-mapped file
// region, valid until Destroy. Flush writes modified pages back and
// invalidates other processes' views of the flushed range.
type Mapping struct {
	blob.Blob
	raw []byte
}

// Map maps [offset, offset+count) of the file. Writable+executable
// mappings that the OS refuses are surfaced as failures, never silently
// downgraded.
func (fs *FileStream) Map(offset int64, count int, flags Type) (*Mapping, cmn.ErrorCode) {
	prot := 0
	if flags&MapRead != 0 {
		prot |= unix.PROT_READ
	}
	if flags&MapWrite != 0 {
		prot |= unix.PROT_WRITE
	}
	if flags&MapExecute != 0 {
		prot |= unix.PROT_EXEC
	}
	mapFlags := unix.MAP_SHARED
	if flags&MapCOW != 0 {
		mapFlags = unix.MAP_PRIVATE
	}

	raw, err := unix.Mmap(int(fs.f.Fd()), offset, count, prot, mapFlags)
	if err != nil {
		return nil, mapOSError(err)
	}
	m := &Mapping{raw: raw, Blob: *blob.Wrap(raw)}
	return m, cmn.Ok
}

// Flush writes back [offset, offset+length) of the mapping (clamped to
// its extent) and invalidates other processes' views of that range.
func (m *Mapping) Flush(offset, length int) cmn.ErrorCode {
	if offset < 0 {
		offset = 0
	}
	if offset > len(m.raw) {
		offset = len(m.raw)
	}
	if offset+length > len(m.raw) {
		length = len(m.raw) - offset
	}
	if length <= 0 {
		return cmn.Ok
	}
	if err := unix.Msync(m.raw[offset:offset+length], unix.MS_SYNC|unix.MS_INVALIDATE); err != nil {
		return mapOSError(err)
	}
	return cmn.Ok
}

func (m *Mapping) Destroy() cmn.ErrorCode {
	if m.raw == nil {
		return cmn.Ok
	}
	err := unix.Munmap(m.raw)
	m.raw = nil
	if err != nil {
		return mapOSError(err)
	}
	return cmn.Ok
}
