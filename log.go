package ext2

import "github.com/sirupsen/logrus"

// log is the package-level logger. It discards everything by default, the
// same way the rest of this module stays silent unless a caller opts in -
// this is a library, not a daemon.
var log = func() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}()

// SetLogger replaces the package-level logger. Pass a logger configured at
// logrus.TraceLevel to see the per-block, per-bitmap-bit, per-directory-entry
// tracing this package emits on its hot paths.
func SetLogger(l *logrus.Logger) {
	log = l
}
