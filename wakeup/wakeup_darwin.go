//go:build darwin

package wakeup

import "golang.org/x/sys/unix"

// pipeFD backs FD with a self-pipe on Darwin/BSD, matching the teacher's
// createWakeFd fallback for platforms without eventfd.
type pipeFD struct {
	r, w int
}

func newPlatformFD() (platformFD, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, err
	}
	for _, fd := range fds {
		_ = unix.SetNonblock(fd, true)
	}
	return &pipeFD{r: fds[0], w: fds[1]}, nil
}

func (p *pipeFD) handle() uintptr { return uintptr(p.r) }

func (p *pipeFD) notify() {
	var b [1]byte
	_, _ = unix.Write(p.w, b[:])
}

func (p *pipeFD) drain() {
	var buf [64]byte
	for {
		_, err := unix.Read(p.r, buf[:])
		if err != nil {
			return
		}
	}
}

func (p *pipeFD) close() error {
	_ = unix.Close(p.w)
	return unix.Close(p.r)
}
