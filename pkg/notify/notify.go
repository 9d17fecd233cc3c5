// Package notify delivers short user-facing notifications (the toasts of a browser front end)
// to the terminal, the log, or a recorder in tests.
package notify

import (
	"sync"

	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
	"go.uber.org/zap"
)

// Level is the severity of a notification
type Level int

const (
	Info Level = iota
	Success
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is a single message shown to the user
type Notification struct {
	Level   Level
	Message string
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// Func adapts a function to the Notifier interface.
type Func func(level Level, message string)

func (f Func) Notify(level Level, message string) { f(level, message) }

// Discard drops every notification.
var Discard Notifier = Func(func(Level, string) {})

// Multi fans a notification out to several notifiers.
func Multi(notifiers ...Notifier) Notifier {
	return Func(func(level Level, message string) {
		for _, n := range notifiers {
			n.Notify(level, message)
		}
	})
}

// LogNotifier writes notifications to a component logger.
type LogNotifier struct {
	logger    *logging.ColoredLogger
	component logging.Component
}

// NewLogNotifier creates a notifier that logs under component.
func NewLogNotifier(logger *logging.ColoredLogger, component logging.Component) *LogNotifier {
	return &LogNotifier{logger: logger, component: component}
}

func (n *LogNotifier) Notify(level Level, message string) {
	field := zap.String("notification", level.String())
	switch level {
	case Warning:
		n.logger.ComponentWarn(n.component, message, field)
	case Error:
		n.logger.ComponentError(n.component, message, field)
	default:
		n.logger.ComponentInfo(n.component, message, field)
	}
}

// Recorder keeps every notification it receives. Safe for concurrent use.
type Recorder struct {
	mu  sync.Mutex
	got []Notification
}

func (r *Recorder) Notify(level Level, message string) {
	r.mu.Lock()
	r.got = append(r.got, Notification{Level: level, Message: message})
	r.mu.Unlock()
}

// All returns the notifications received so far.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.got))
	copy(out, r.got)
	return out
}

// Last returns the most recent notification and whether there was one.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.got) == 0 {
		return Notification{}, false
	}
	return r.got[len(r.got)-1], true
}
