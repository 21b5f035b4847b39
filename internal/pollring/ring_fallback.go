//go:build !giouring

package pollring

import "golang.org/x/sys/unix"

// NewRing constructs the portable poll(2)-based Ring. This is the default
// build; compile with -tags giouring on Linux to link the io_uring-backed
// implementation in ring_giouring.go instead.
func NewRing() (Ring, error) {
	return &pollRing{}, nil
}

// RingFeatures reports which multiplexer backend this build links.
func RingFeatures() Features {
	return Features{Backend: "poll"}
}

type pollRing struct {
	pollfds []unix.PollFd
}

func (r *pollRing) Wait(fds []int, timeoutMs int) ([]Result, error) {
	if cap(r.pollfds) < len(fds) {
		r.pollfds = make([]unix.PollFd, len(fds))
	}
	r.pollfds = r.pollfds[:len(fds)]
	for i, fd := range fds {
		r.pollfds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}

	n, err := unix.Poll(r.pollfds, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	ready := make([]Result, 0, n)
	for _, pfd := range r.pollfds {
		if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			ready = append(ready, Result{FD: int(pfd.Fd), Events: uint32(pfd.Revents)})
		}
	}
	return ready, nil
}

func (r *pollRing) Close() error {
	return nil
}
