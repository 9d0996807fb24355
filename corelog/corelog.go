// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package corelog is the kernel core's logging facade. sched and lifecycle
// call through it rather than importing llog directly, so that the
// halt-on-fatal-assertion policy lives in exactly one place.
package corelog

import (
	"os"
	"sync"

	"github.com/cosmosnicolaou/llog"
)

var (
	once sync.Once
	log  *llog.Log
)

const stackSkip = 1

func logger() *llog.Log {
	once.Do(func() {
		log = llog.NewLogger("corekernel", stackSkip)
	})
	return log
}

// haltFunc is called by Fatalf after logging. Tests override it to observe a
// halt without actually exiting the process.
var haltFunc = func() { os.Exit(255) }

// Infof logs a diagnostic trace line.
func Infof(format string, args ...interface{}) {
	logger().Printf(llog.InfoLog, format, args...)
}

// Warningf logs a recoverable anomaly.
func Warningf(format string, args ...interface{}) {
	logger().Printf(llog.WarningLog, format, args...)
}

// Errorf logs a non-fatal error.
func Errorf(format string, args ...interface{}) {
	logger().Printf(llog.ErrorLog, format, args...)
}

// Fatalf logs an internal invariant violation and halts the process. It
// deliberately does not use llog's own FatalLog level, whose Print/Printf
// call os.Exit directly and so cannot be overridden for tests; instead it
// logs at ErrorLog and calls the overridable haltFunc, giving the same
// "log, then halt, unrecoverable by recover()" behavior the scheduler
// requires of a fatal assertion.
func Fatalf(format string, args ...interface{}) {
	logger().Printf(llog.ErrorLog, format, args...)
	haltFunc()
}

// SetHaltFuncForTest replaces the function called by Fatalf/Halt and
// returns a closure that restores the previous one. Intended for tests in
// other packages (sched, blkio) that need to observe a fatal-assertion
// halt without exiting the test binary.
func SetHaltFuncForTest(fn func()) (restore func()) {
	prev := haltFunc
	haltFunc = fn
	return func() { haltFunc = prev }
}

// Halt logs msg at info level and then calls the overridable halt function.
// Unlike Fatalf, a call to Halt is not itself evidence of a bug: it backs
// lifecycle.Halt's orderly guest shutdown, not a fatal-assertion abort.
func Halt(format string, args ...interface{}) {
	logger().Printf(llog.InfoLog, format, args...)
	haltFunc()
}
