// internal/recovery/recovery.go
// Package recovery turns panics into a fatal exit that still releases
// registered resources such as transform plans and capture devices.
package recovery

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync"
)

var (
	mu       sync.Mutex
	nextID   int
	cleanups = map[int]func(){}
	order    []int
)

// Register adds fn to the cleanups run on a fatal panic. The returned
// function removes it again and is safe to call more than once.
func Register(fn func()) (unregister func()) {
	if fn == nil {
		return func() {}
	}

	mu.Lock()
	id := nextID
	nextID++
	cleanups[id] = fn
	order = append(order, id)
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := cleanups[id]; !ok {
			return
		}
		delete(cleanups, id)
		for i, v := range order {
			if v == id {
				order = append(order[:i], order[i+1:]...)
				break
			}
		}
	}
}

// RunCleanups runs every registered cleanup once, newest first, and clears
// the registry. A cleanup that panics does not stop the others.
func RunCleanups() {
	mu.Lock()
	fns := make([]func(), 0, len(cleanups))
	for i := len(order) - 1; i >= 0; i-- {
		if fn, ok := cleanups[order[i]]; ok {
			fns = append(fns, fn)
		}
	}
	cleanups = map[int]func(){}
	order = nil
	mu.Unlock()

	for _, fn := range fns {
		runSafely(fn)
	}
}

func runSafely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			_, _ = fmt.Fprintf(os.Stderr, "cleanup failed: %v\n", r)
		}
	}()
	fn()
}

// HandlePanic should be deferred at the top of main() or goroutines.
// It logs panic details, runs registered cleanups and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		fatal(r, nil)
	}
}

// HandlePanicFunc is HandlePanic with an extra cleanup that runs before the
// registered ones.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		fatal(r, cleanup)
	}
}

func fatal(r any, cleanup func()) {
	_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
	if cleanup != nil {
		runSafely(cleanup)
	}
	RunCleanups()
	os.Exit(1)
}
