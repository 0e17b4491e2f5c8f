// Package logging provides the structured logger shared by every
// component in the pipeline. Components ask for a scoped entry the
// same way auth.NewAuditLog scopes a *logrus.Entry with
// WithField("system", "audit") in the teacher repo.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	once sync.Once
	base *logrus.Logger
)

func root() *logrus.Logger {
	once.Do(func() {
		base = logrus.New()
		base.SetOutput(os.Stderr)
		base.SetFormatter(&logrus.JSONFormatter{})
		if lvl, err := logrus.ParseLevel(os.Getenv("RECONCILER_LOG_LEVEL")); err == nil {
			base.SetLevel(lvl)
		} else {
			base.SetLevel(logrus.InfoLevel)
		}
	})
	return base
}

// For returns a *logrus.Entry scoped to the given component name, e.g.
// logging.For("promoter") or logging.For("formula.evaluator").
func For(component string) *logrus.Entry {
	return root().WithField("component", component)
}

// SetOutputForTest redirects the root logger, used by tests that want
// to assert on emitted log lines without touching stderr.
func SetOutputForTest(w io.Writer) {
	root().SetOutput(w)
}
