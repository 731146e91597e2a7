package storage

import (
	"os"
	"sync"
	"syscall"
)

// FileLock serializes writers to one file, both within this process and
// across processes sharing the data directory.
type FileLock struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewFileLock creates a lock guarding the file at path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Lock acquires an exclusive lock, blocking until available.
func (l *FileLock) Lock() error {
	l.mu.Lock()

	var err error
	l.file, err = os.OpenFile(l.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		l.mu.Unlock()
		return err
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX); err != nil {
		l.file.Close()
		l.mu.Unlock()
		return err
	}

	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *FileLock) TryLock() bool {
	if !l.mu.TryLock() {
		return false
	}

	var err error
	l.file, err = os.OpenFile(l.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		l.mu.Unlock()
		return false
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		l.file.Close()
		l.mu.Unlock()
		return false
	}

	return true
}

// Unlock releases the lock and removes the lock file.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}

	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)

	l.file.Close()
	os.Remove(l.path + ".lock")

	l.file = nil
	l.mu.Unlock()

	return nil
}
