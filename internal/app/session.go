package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"grabvid/internal/download"
	"grabvid/internal/logx"
	"grabvid/internal/prompt"
	"grabvid/internal/tui"
)

// VideoDownloader runs a single download.
type VideoDownloader interface {
	Download(ctx context.Context, req download.Request) error
}

// Defaults pre-fill the session prompts.
type Defaults struct {
	SaveDir   string
	Quality   download.Quality
	ExtraArgs []string
}

// Session is the interactive download loop.
type Session struct {
	Prompter   prompt.Prompter
	Downloader VideoDownloader
	Out        io.Writer
	Defaults   Defaults
	// Spinner shows a status line fed by the downloader's output instead of
	// passing that output through.
	Spinner bool
	Logger  *log.Logger
}

var errRetry = errors.New("retry")

// Run loops until the user chooses to close the program or cancels a
// prompt. A failed download is reported and does not end the session.
func (s *Session) Run(ctx context.Context) error {
	for {
		err := s.downloadOnce(ctx)
		switch {
		case s.aborted(ctx, err):
			s.println("Goodbye!")
			return nil
		case errors.Is(err, errRetry):
			continue
		case err != nil:
			return err
		}

		closeNow, err := s.Prompter.Confirm(ctx, "Do you want to close the program?", false)
		if s.aborted(ctx, err) {
			s.println("Goodbye!")
			return nil
		}
		if err != nil {
			return err
		}
		if closeNow {
			s.println("Goodbye!")
			return nil
		}
		s.println("You can enter a new URL or make other choices.")
	}
}

func (s *Session) downloadOnce(ctx context.Context) error {
	raw, err := s.Prompter.Input(ctx, prompt.Question{
		Title:       "Enter the video URL:",
		Placeholder: "https://www.youtube.com/watch?v=...",
		Validate: func(v string) error {
			_, err := download.NormalizeURL(v)
			return err
		},
	})
	if err != nil {
		return err
	}
	videoURL, err := download.NormalizeURL(raw)
	if err != nil {
		s.println(tui.ErrorStyle.Render("✗ Invalid YouTube URL."))
		return errRetry
	}

	saveDir, err := s.askSaveDir(ctx)
	if err != nil {
		return err
	}

	quality, err := s.askQuality(ctx)
	if err != nil {
		return err
	}

	req := download.Request{
		URL:       videoURL,
		SaveDir:   saveDir,
		Quality:   quality,
		ExtraArgs: s.Defaults.ExtraArgs,
	}
	if err := s.runDownload(ctx, req); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log().Error("download failed", "err", err)
		s.println(tui.ErrorStyle.Render("✗ Error while downloading the video."))
		s.println(tui.HintStyle.Render(err.Error()))
		return nil
	}

	s.Defaults.SaveDir = saveDir
	s.Defaults.Quality = quality
	s.println(tui.SuccessStyle.Render("✓ Video successfully downloaded!"))
	return nil
}

func (s *Session) askSaveDir(ctx context.Context) (string, error) {
	for {
		raw, err := s.Prompter.Input(ctx, prompt.Question{
			Title:   "Enter the save path:",
			Default: s.Defaults.SaveDir,
			Validate: func(v string) error {
				_, err := download.CheckSaveDir(v)
				return err
			},
		})
		if err != nil {
			return "", err
		}
		dir, err := download.CheckSaveDir(raw)
		if err == nil {
			return dir, nil
		}
		s.println(tui.ErrorStyle.Render("✗ The specified folder does not exist. Please enter a valid path."))
	}
}

func (s *Session) askQuality(ctx context.Context) (download.Quality, error) {
	options := make([]prompt.Option, 0, len(download.Qualities))
	for _, q := range download.Qualities {
		options = append(options, prompt.Option{Label: q.Label, Value: string(q.Quality)})
	}
	selected := s.Defaults.Quality
	if selected == "" {
		selected = download.QualityBest
	}
	value, err := s.Prompter.Select(ctx, "Select video quality:", options, string(selected))
	if err != nil {
		return "", err
	}
	return download.ParseQuality(value)
}

func (s *Session) runDownload(ctx context.Context, req download.Request) error {
	if !s.Spinner {
		s.println("Downloading video...")
		return s.Downloader.Download(ctx, req)
	}
	sw := tui.NewStatusWriter(s.out())
	sw.Update("Downloading video")
	req.Progress = sw.LineWriter()
	defer sw.Stop()
	return s.Downloader.Download(ctx, req)
}

func (s *Session) aborted(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, prompt.ErrAborted) || errors.Is(err, context.Canceled) || ctx.Err() != nil
}

func (s *Session) out() io.Writer {
	if s.Out != nil {
		return s.Out
	}
	return io.Discard
}

func (s *Session) println(msg string) {
	fmt.Fprintln(s.out(), msg)
}

func (s *Session) log() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logx.Discard()
}
