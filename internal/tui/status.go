package tui

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// StatusWriter prints a spinning status line to a writer. It runs in the
// background and redraws the current message in place. The download phase
// feeds it the downloader's own progress lines through LineWriter.
type StatusWriter struct {
	w          io.Writer
	mu         sync.Mutex
	message    string
	detail     string
	phaseStart time.Time
	done       chan struct{}
	stopped    bool
}

// NewStatusWriter starts a background spinner that renders the current
// status message to w every 100ms.
func NewStatusWriter(w io.Writer) *StatusWriter {
	sw := &StatusWriter{
		w:          w,
		phaseStart: time.Now(),
		done:       make(chan struct{}),
	}
	go sw.loop()
	return sw
}

// Update changes the status message shown next to the spinner and resets
// the phase timer so elapsed time restarts from zero.
func (sw *StatusWriter) Update(msg string) {
	sw.mu.Lock()
	sw.message = msg
	sw.detail = ""
	sw.phaseStart = time.Now()
	sw.mu.Unlock()
}

// Detail sets the trailing text after the message without resetting the timer.
func (sw *StatusWriter) Detail(text string) {
	sw.mu.Lock()
	sw.detail = text
	sw.mu.Unlock()
}

// LineWriter returns a writer whose every complete line becomes the detail
// text. Carriage returns count as line breaks so in-place progress bars are
// picked up as they redraw.
func (sw *StatusWriter) LineWriter() io.Writer {
	return &lineFeed{sw: sw}
}

type lineFeed struct {
	sw  *StatusWriter
	buf bytes.Buffer
}

func (l *lineFeed) Write(p []byte) (int, error) {
	l.buf.Write(p)
	for {
		data := l.buf.Bytes()
		idx := bytes.IndexAny(data, "\r\n")
		if idx < 0 {
			return len(p), nil
		}
		line := strings.TrimSpace(string(data[:idx]))
		l.buf.Next(idx + 1)
		if line != "" {
			l.sw.Detail(line)
		}
	}
}

// Stop clears the status line and stops the spinner.
func (sw *StatusWriter) Stop() {
	sw.mu.Lock()
	if sw.stopped {
		sw.mu.Unlock()
		return
	}
	sw.stopped = true
	sw.mu.Unlock()
	close(sw.done)
	// Clear the status line.
	fmt.Fprintf(sw.w, "\r\033[K")
}

func (sw *StatusWriter) loop() {
	tick := 0
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sw.done:
			return
		case <-ticker.C:
			sw.mu.Lock()
			msg := sw.message
			detail := sw.detail
			start := sw.phaseStart
			sw.mu.Unlock()

			spinner := spinnerFrames[tick%len(spinnerFrames)]
			tick++
			line := fmt.Sprintf("%s %s (%s)", spinner, msg, formatElapsed(time.Since(start)))
			if detail != "" {
				line += " " + HintStyle.Render(TruncateWithEllipsis(detail, 60))
			}
			fmt.Fprintf(sw.w, "\r\033[K%s", line)
		}
	}
}

// formatElapsed formats a duration for display in the status line.
func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < 10*time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
