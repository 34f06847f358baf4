//go:build aix || solaris

package filelock

import (
	"errors"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// These platforms have no flock. POSIX record locks belong to the process,
// so locks taken through Arbiter are also tracked in memory to keep two
// handles in one process exclusive, as flock does.

type fileID struct {
	dev, ino uint64
}

// Closing any descriptor of a file drops every record lock the process
// holds on it, so handles that lost the race are parked until unlock.
var held = struct {
	sync.Mutex
	files map[fileID][]*os.File
}{files: make(map[fileID][]*os.File)}

func identify(f *os.File) (fileID, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return fileID{}, err
	}
	return fileID{dev: uint64(st.Dev), ino: uint64(st.Ino)}, nil
}

func lockFile(f *os.File) error {
	id, err := identify(f)
	if err != nil {
		return err
	}

	held.Lock()
	defer held.Unlock()
	if _, ok := held.files[id]; ok {
		return unix.EAGAIN
	}
	if err := setLock(f, unix.F_WRLCK); err != nil {
		return err
	}
	held.files[id] = nil
	return nil
}

func discard(f *os.File) {
	id, err := identify(f)
	if err != nil {
		f.Close()
		return
	}

	held.Lock()
	defer held.Unlock()
	if parked, ok := held.files[id]; ok {
		held.files[id] = append(parked, f)
		return
	}
	f.Close()
}

func unlockFile(f *os.File) error {
	id, err := identify(f)
	if err != nil {
		return err
	}

	held.Lock()
	defer held.Unlock()
	parked := held.files[id]
	delete(held.files, id)
	err = setLock(f, unix.F_UNLCK)
	for _, p := range parked {
		p.Close()
	}
	return err
}

func setLock(f *os.File, kind int16) error {
	lk := unix.Flock_t{Type: kind, Whence: io.SeekStart}
	for {
		err := unix.FcntlFlock(f.Fd(), unix.F_SETLK, &lk)
		if err != unix.EINTR {
			return err
		}
	}
}

func isContention(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EACCES)
}
