//go:build darwin

package poller

import (
	"sync"

	"golang.org/x/sys/unix"
)

// kqueuePoller is the Darwin/BSD backend, grounded on the teacher's
// FastPoller in eventloop/poller_darwin.go. kqueue watches read and write
// interest as independent filters (EVFILT_READ/EVFILT_WRITE), so SetIn and
// SetOut translate to adding or deleting the corresponding filter rather
// than rewriting one combined event mask as epoll does.
type kqueuePoller struct {
	kq int

	mu   sync.Mutex
	regs map[int]*regState

	buf    [256]unix.Kevent_t
	ready  []Event
	closed bool
}

// New creates a Darwin/BSD kqueue-backed Poller.
func New() (Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)
	return &kqueuePoller{
		kq:   kq,
		regs: make(map[int]*regState),
	}, nil
}

func (p *kqueuePoller) applyFilter(fd int, filter int16, enable bool) error {
	flags := uint16(unix.EV_ADD | unix.EV_ENABLE)
	if !enable {
		flags = unix.EV_DELETE
	}
	ev := unix.Kevent_t{Ident: uint64(fd), Filter: filter, Flags: flags}
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
	if err != nil && !enable && err == unix.ENOENT {
		return nil // deleting an already-absent filter is a no-op
	}
	return err
}

func (p *kqueuePoller) Add(handle uintptr, interest Direction, userPtr any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	fd := int(handle)
	if _, ok := p.regs[fd]; ok {
		return ErrAlreadyAdded
	}
	p.regs[fd] = &regState{interest: interest, userPtr: userPtr}
	if interest&In != 0 {
		if err := p.applyFilter(fd, unix.EVFILT_READ, true); err != nil {
			delete(p.regs, fd)
			return err
		}
	}
	if interest&Out != 0 {
		if err := p.applyFilter(fd, unix.EVFILT_WRITE, true); err != nil {
			_ = p.applyFilter(fd, unix.EVFILT_READ, false)
			delete(p.regs, fd)
			return err
		}
	}
	return nil
}

func (p *kqueuePoller) Remove(handle uintptr) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	fd := int(handle)
	r, ok := p.regs[fd]
	if !ok {
		return ErrNotRegistered
	}
	if r.interest&In != 0 {
		_ = p.applyFilter(fd, unix.EVFILT_READ, false)
	}
	if r.interest&Out != 0 {
		_ = p.applyFilter(fd, unix.EVFILT_WRITE, false)
	}
	delete(p.regs, fd)
	return nil
}

func (p *kqueuePoller) toggle(handle uintptr, filter int16, bit Direction, enable bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	fd := int(handle)
	r, ok := p.regs[fd]
	if !ok {
		return ErrNotRegistered
	}
	was := r.interest&bit != 0
	if was == enable {
		return nil
	}
	if err := p.applyFilter(fd, filter, enable); err != nil {
		return err
	}
	if enable {
		r.interest |= bit
	} else {
		r.interest &^= bit
	}
	return nil
}

func (p *kqueuePoller) SetIn(handle uintptr) error    { return p.toggle(handle, unix.EVFILT_READ, In, true) }
func (p *kqueuePoller) ResetIn(handle uintptr) error  { return p.toggle(handle, unix.EVFILT_READ, In, false) }
func (p *kqueuePoller) SetOut(handle uintptr) error   { return p.toggle(handle, unix.EVFILT_WRITE, Out, true) }
func (p *kqueuePoller) ResetOut(handle uintptr) error { return p.toggle(handle, unix.EVFILT_WRITE, Out, false) }

func (p *kqueuePoller) Wait(timeoutMs int) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	p.mu.Unlock()

	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1e6),
		}
	}

	n, err := unix.Kevent(p.kq, nil, p.buf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = p.ready[:0]
	byFD := make(map[int]*Event, n)
	for i := 0; i < n; i++ {
		fd := int(p.buf[i].Ident)
		r, ok := p.regs[fd]
		if !ok {
			continue
		}
		ev, have := byFD[fd]
		if !have {
			ev = &Event{Handle: uintptr(fd), UserPtr: r.userPtr}
			byFD[fd] = ev
			p.ready = append(p.ready, Event{})
		}
		switch p.buf[i].Filter {
		case unix.EVFILT_READ:
			ev.Ready |= In
		case unix.EVFILT_WRITE:
			ev.Ready |= Out
		}
		if p.buf[i].Flags&unix.EV_EOF != 0 {
			ev.Closed = true
		}
	}
	i := 0
	for _, ev := range byFD {
		p.ready[i] = *ev
		i++
	}
	p.ready = p.ready[:i]
	return len(p.ready), nil
}

func (p *kqueuePoller) Event() (Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.ready) == 0 {
		return Event{}, false
	}
	ev := p.ready[0]
	p.ready = p.ready[1:]
	return ev, true
}

func (p *kqueuePoller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.kq)
}
