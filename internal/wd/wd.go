// Package wd provides scoped working-directory acquisition: enter a
// directory, guaranteed restoration of the previous one on every exit
// path. It is the Go realization of rflow's work_directory contextmanager.
package wd

import "os"

// Enter changes the process's current directory to path and returns a
// restore function that changes it back. Callers must defer restore()
// immediately so restoration happens on panics too.
func Enter(path string) (restore func() error, err error) {
	prev, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if err := os.Chdir(path); err != nil {
		return nil, err
	}
	return func() error {
		return os.Chdir(prev)
	}, nil
}
