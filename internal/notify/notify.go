package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tazhate/calclient/internal/logger"
)

type Level string

const (
	LevelLoading Level = "loading"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelDismiss Level = "dismiss"
)

// Notification is a user-visible message. A loading notification is later
// resolved by another notification with the same ID.
type Notification struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier receives user-visible notifications
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Discard drops every notification
var Discard Notifier = NotifierFunc(func(Notification) {})

func send(n Notifier, level Level, id, msg string) {
	if n == nil {
		return
	}
	if id == "" {
		id = uuid.NewString()
	}
	n.Notify(Notification{ID: id, Level: level, Message: msg, Time: time.Now()})
}

func Success(n Notifier, msg string) { send(n, LevelSuccess, "", msg) }
func Error(n Notifier, msg string)   { send(n, LevelError, "", msg) }

// Pending is an in-flight loading notification
type Pending struct {
	n    Notifier
	id   string
	once sync.Once
}

// Begin emits a loading notification and returns a handle to resolve it
func Begin(n Notifier, msg string) *Pending {
	p := &Pending{n: n, id: uuid.NewString()}
	send(n, LevelLoading, p.id, msg)
	return p
}

func (p *Pending) ID() string { return p.id }

func (p *Pending) Succeed(msg string) {
	p.once.Do(func() { send(p.n, LevelSuccess, p.id, msg) })
}

func (p *Pending) Fail(msg string) {
	p.once.Do(func() { send(p.n, LevelError, p.id, msg) })
}

func (p *Pending) Dismiss() {
	p.once.Do(func() { send(p.n, LevelDismiss, p.id, "") })
}

type pendingKey struct{}

// WithPending attaches p to ctx. A failure reported under ctx resolves p
// instead of raising a separate error.
func WithPending(ctx context.Context, p *Pending) context.Context {
	return context.WithValue(ctx, pendingKey{}, p)
}

// Fail resolves the pending notification attached to ctx with msg, or sends
// a new error notification to n when there is none.
func Fail(ctx context.Context, n Notifier, msg string) {
	if p, ok := ctx.Value(pendingKey{}).(*Pending); ok && p != nil {
		p.Fail(msg)
		return
	}
	Error(n, msg)
}

// Multi fans a notification out to several notifiers
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, target := range m {
		if target != nil {
			target.Notify(n)
		}
	}
}

// Log writes notifications to a logger
type Log struct {
	Logger logger.Logger
}

func (l Log) Notify(n Notification) {
	log := l.Logger
	if log == nil {
		log = logger.Default()
	}
	switch n.Level {
	case LevelError:
		log.Error(n.Message, "notification", n.ID)
	case LevelDismiss:
		log.Debug("notification dismissed", "notification", n.ID)
	default:
		log.Info(n.Message, "notification", n.ID, "level", string(n.Level))
	}
}

// Recorder keeps the most recent notifications in memory
type Recorder struct {
	mu    sync.Mutex
	max   int
	items []Notification
}

func NewRecorder(max int) *Recorder {
	if max <= 0 {
		max = 100
	}
	return &Recorder{max: max}
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	if len(r.items) > r.max {
		r.items = append([]Notification(nil), r.items[len(r.items)-r.max:]...)
	}
}

// All returns a copy of the recorded notifications
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Drain returns the recorded notifications and clears the buffer
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// Messages returns the messages recorded at the given level
func (r *Recorder) Messages(level Level) []string {
	var out []string
	for _, n := range r.All() {
		if n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}
