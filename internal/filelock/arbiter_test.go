package filelock

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
)

// holdLock locks path through a separate handle until the returned
// function is called.
func holdLock(t *testing.T, path string) func() {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		t.Fatalf("Failed to lock %s: %v", path, err)
	}
	var once sync.Once
	release := func() {
		once.Do(func() {
			unlockFile(f)
			f.Close()
		})
	}
	t.Cleanup(release)
	return release
}

func TestDoCreateMakesFileAndParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sops", "age", "keys.txt")

	err := Arbiter{}.Do(context.Background(), path, Create, func(f *File) error {
		return f.Replace([]byte("hello\n"))
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != "hello\n" {
		t.Errorf("Expected %q, got %q", "hello\n", string(data))
	}
}

func TestDoReplaceShrinksFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.txt")
	if err := os.WriteFile(path, []byte("a much longer original content\n"), 0600); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}

	err := Arbiter{}.Do(context.Background(), path, Create, func(f *File) error {
		data, err := f.ReadAll()
		if err != nil {
			return err
		}
		if string(data) != "a much longer original content\n" {
			t.Errorf("Unexpected contents %q", string(data))
		}
		return f.Replace([]byte("short\n"))
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "short\n" {
		t.Errorf("Expected file to be replaced entirely, got %q", string(data))
	}
}

func TestDoCreateNewRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sops.yaml")
	if err := os.WriteFile(path, []byte("original\n"), 0600); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}

	called := false
	err := Arbiter{}.Do(context.Background(), path, CreateNew, func(f *File) error {
		called = true
		return f.Replace([]byte("clobbered\n"))
	})
	if !errors.Is(err, fs.ErrExist) {
		t.Errorf("Expected fs.ErrExist, got %v", err)
	}
	if called {
		t.Error("Work should not run when the file already exists")
	}
	if data, _ := os.ReadFile(path); string(data) != "original\n" {
		t.Errorf("Existing file was modified: %q", string(data))
	}
}

func TestDoCreateNewRemovesFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sops.yaml")
	sentinel := errors.New("boom")

	err := Arbiter{}.Do(context.Background(), path, CreateNew, func(*File) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Expected work error, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("A failed CreateNew must not leave the file behind")
	}
}

func TestDoCreateNewConcurrentCallersOneWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sops.yaml")
	const workers = 8

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		won     []int
		existed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := Arbiter{Attempts: 50, Interval: time.Millisecond}.Do(context.Background(), path, CreateNew, func(f *File) error {
				return f.Replace([]byte(strconv.Itoa(i) + "\n"))
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won = append(won, i)
			case errors.Is(err, fs.ErrExist):
				existed++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if len(won) != 1 || existed != workers-1 {
		t.Fatalf("Expected exactly one creator, got winners %v and %d refusals", won, existed)
	}
	if data, _ := os.ReadFile(path); string(data) != strconv.Itoa(won[0])+"\n" {
		t.Errorf("Expected the winner's content, got %q", string(data))
	}
}

func TestDoUpdateMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")

	err := Arbiter{}.Do(context.Background(), path, Update, func(*File) error { return nil })
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected fs.ErrNotExist, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("Update must not create the file")
	}
}

func TestDoReadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")

	called := false
	err := Arbiter{}.Do(context.Background(), path, Read, func(*File) error {
		called = true
		return nil
	})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected fs.ErrNotExist, got %v", err)
	}
	if called {
		t.Error("Work should not run when the file is missing")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("Read must not create the file")
	}
}

func TestDoPropagatesWorkError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.txt")
	sentinel := errors.New("boom")

	err := Arbiter{}.Do(context.Background(), path, Create, func(*File) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("Expected work error, got %v", err)
	}

	// The lock must be released after a failed unit of work.
	if err := (Arbiter{Attempts: 1}).Do(context.Background(), path, Read, func(*File) error { return nil }); err != nil {
		t.Errorf("Expected lock to be released, got %v", err)
	}
}

func TestDoFailsWhenLockIsHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.txt")
	holdLock(t, path)

	calls := 0
	start := time.Now()
	err := Arbiter{Attempts: 3, Interval: 10 * time.Millisecond}.Do(context.Background(), path, Create, func(*File) error {
		calls++
		return nil
	})
	if !errors.Is(err, kerrors.ErrFileLocked) {
		t.Fatalf("Expected ErrFileLocked, got %v", err)
	}
	if calls != 0 {
		t.Errorf("Work should not run without the lock, ran %d times", calls)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Expected two waits between three attempts, returned after %v", elapsed)
	}
}

func TestDoSucceedsOnceLockIsReleased(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.txt")
	release := holdLock(t, path)

	go func() {
		time.Sleep(30 * time.Millisecond)
		release()
	}()

	err := Arbiter{Attempts: 50, Interval: 10 * time.Millisecond}.Do(context.Background(), path, Create, func(f *File) error {
		return f.Replace([]byte("after release\n"))
	})
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
}

func TestDoHonorsCancellationWhileWaiting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.txt")
	holdLock(t, path)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Arbiter{Attempts: 100, Interval: 50 * time.Millisecond}.Do(ctx, path, Create, func(*File) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestDoSerializesConcurrentWork(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.txt")
	arbiter := Arbiter{Attempts: 1000, Interval: time.Millisecond}

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- arbiter.Do(context.Background(), path, Create, func(f *File) error {
				data, err := f.ReadAll()
				if err != nil {
					return err
				}
				count := 0
				if len(data) > 0 {
					count, err = strconv.Atoi(string(data))
					if err != nil {
						return err
					}
				}
				return f.Replace([]byte(strconv.Itoa(count + 1)))
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Concurrent work failed: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read counter: %v", err)
	}
	if string(data) != strconv.Itoa(workers) {
		t.Errorf("Expected counter %d, got %s", workers, string(data))
	}
}
