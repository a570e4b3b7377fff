// Package nowplaying follows the videoChange and videoStatus events of a
// live video room and keeps a one-line "now playing" status.
package nowplaying

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/buger/jsonparser"

	"github.com/kleeedolinux/legacyio/socket"
)

const (
	EventVideoChange = "videoChange"
	EventVideoStatus = "videoStatus"

	// MaxLength is the longest status line produced, in runes.
	MaxLength = 128 - 10

	ellipsis = '…'
)

type videoChange struct {
	title  string
	length int64
}

// Tracker is a socket.EventHandler. Handle never replies.
type Tracker struct {
	mu       sync.Mutex
	change   *videoChange
	status   *int64
	line     string
	onChange func(string)
	logger   *slog.Logger
}

type Option func(*Tracker)

// WithOnChange registers fn to be called with every new status line. It
// runs on the connection loop and must not block.
func WithOnChange(fn func(string)) Option {
	return func(t *Tracker) {
		t.onChange = fn
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = l
	}
}

func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Title returns the current status line, empty before the first videoChange.
func (t *Tracker) Title() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.line
}

// Handle consumes one event. Events with other names or unreadable payloads
// are ignored.
func (t *Tracker) Handle(ev socket.Event) *socket.Message {
	if len(ev.Args) == 0 {
		return nil
	}
	arg := []byte(ev.Args[0])

	switch ev.Name {
	case EventVideoChange:
		title, err := jsonparser.GetString(arg, "title")
		if err != nil {
			t.logger.Debug("ignoring videoChange", slog.Any("err", err))
			return nil
		}
		length, err := jsonparser.GetFloat(arg, "length")
		if err != nil {
			t.logger.Debug("ignoring videoChange", slog.Any("err", err))
			return nil
		}

		t.mu.Lock()
		// a change replayed after a status from the backlog must not inherit it
		if t.change != nil {
			t.status = nil
		}
		t.change = &videoChange{title: title, length: int64(length)}
		t.mu.Unlock()

	case EventVideoStatus:
		at, err := jsonparser.GetFloat(arg, "time")
		if err != nil {
			t.logger.Debug("ignoring videoStatus", slog.Any("err", err))
			return nil
		}
		secs := int64(at)
		t.mu.Lock()
		t.status = &secs
		t.mu.Unlock()

	default:
		return nil
	}

	t.update()
	return nil
}

func (t *Tracker) update() {
	t.mu.Lock()
	line := render(t.change, t.status)
	if line == t.line {
		t.mu.Unlock()
		return
	}
	t.line = line
	onChange := t.onChange
	t.mu.Unlock()

	t.logger.Info("now playing changed", slog.String("title", line))
	if onChange != nil {
		onChange(line)
	}
}

func render(change *videoChange, status *int64) string {
	if change == nil {
		return ""
	}
	timeString := ""
	if change.length > 0 {
		current := "00:00"
		if status != nil && *status > 0 {
			current = FormatDurationShort(time.Duration(*status) * time.Second)
		}
		timeString = fmt.Sprintf(" (%s/%s)", current, FormatDurationShort(time.Duration(change.length)*time.Second))
	}
	return Ellipsis(change.title, MaxLength-len(timeString)) + timeString
}

// Ellipsis shortens s to at most n runes, marking a cut with "…".
func Ellipsis(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + string(ellipsis)
}

// FormatDurationShort renders d as m:ss, or h:mm:ss from one hour up.
func FormatDurationShort(d time.Duration) string {
	secs := int64(d / time.Second)
	h, m, s := secs/3600, (secs/60)%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
