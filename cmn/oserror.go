package cmn

import (
	"errors"
	"net"
	"os"
	"syscall"
)

// MapOSError is the small per-platform table (§4.A) mapping OS-specific
// error values to the shared ErrorCode taxonomy. Shared by every
// component that wraps a raw file or socket descriptor (stream, netsvc,
// process) so the mapping stays in one place. Unmapped OS errors
// collapse to Internal.
func MapOSError(err error) ErrorCode {
	if err == nil {
		return Ok
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM:
			return Access
		case syscall.EEXIST:
			return Exists
		case syscall.ENOSPC:
			return NoSpace
		case syscall.ENOENT:
			return NotExist
		case syscall.ENOTDIR:
			return NotDir
		case syscall.ENOTEMPTY:
			return NotEmpty
		case syscall.ENOMEM:
			return Alloc
		case syscall.EMSGSIZE:
			return TooLarge
		case syscall.EHOSTUNREACH:
			return HostUnreachable
		case syscall.ENETUNREACH:
			return NetUnreachable
		case syscall.ENETDOWN:
			return NetDown
		case syscall.ECONNRESET:
			return NetReset
		case syscall.ETIMEDOUT:
			return Timeout
		case syscall.EPIPE, syscall.ENOTCONN, syscall.ECONNABORTED, syscall.EBADF:
			return Closed
		case syscall.EINVAL:
			return BadArg
		case syscall.ENOTSUP:
			return NotSupported
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}
	if errors.Is(err, os.ErrNotExist) {
		return NotExist
	}
	if errors.Is(err, os.ErrExist) {
		return Exists
	}
	if errors.Is(err, os.ErrPermission) {
		return Access
	}
	if errors.Is(err, net.ErrClosed) {
		return Closed
	}
	return Internal
}
