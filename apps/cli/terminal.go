package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/acm19/offload/internal/pics"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// errNoAnswer is returned when input closes before a valid collision answer
var errNoAnswer = errors.New("no answer to overwrite prompt")

var (
	labelColor   = color.New(color.FgCyan, color.Bold)
	promptColor  = color.New(color.FgYellow, color.Bold)
	summaryColor = color.New(color.FgGreen, color.Bold)
)

// terminal shows copy progress on a progress bar and asks collision
// questions on the same console.
type terminal struct {
	in  *bufio.Reader
	out io.Writer
	bar *progressbar.ProgressBar

	folder    string
	file      string
	elapsed   time.Duration
	remaining time.Duration
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	return &terminal{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (t *terminal) ShowCurrent(folder, file string) {
	t.folder = folder
	t.file = file
	t.describe()
}

func (t *terminal) ShowProgress(current, total int) {
	if t.bar == nil {
		t.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(t.out),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionEnableColorCodes(!color.NoColor),
		)
		t.describe()
	} else if t.bar.GetMax() != total {
		t.bar.ChangeMax(total)
	}
	_ = t.bar.Set(current)
}

func (t *terminal) ShowTimes(elapsed, remaining time.Duration) {
	t.elapsed = elapsed
	t.remaining = remaining
	t.describe()
}

func (t *terminal) describe() {
	if t.bar == nil {
		return
	}
	t.bar.Describe(fmt.Sprintf("%s %s/%s  %s %s  %s %s",
		labelColor.Sprint("Copying"), t.folder, t.file,
		labelColor.Sprint("Elapsed"), pics.FormatClock(t.elapsed),
		labelColor.Sprint("Remaining"), pics.FormatClock(t.remaining)))
}

func (t *terminal) Notify(summary string) {
	if t.bar != nil {
		_ = t.bar.Finish()
		fmt.Fprintln(t.out)
	}
	summaryColor.Fprintln(t.out, summary)
}

// AskOverwrite blocks until the user picks one of the four answers
func (t *terminal) AskOverwrite(targetPath string) (pics.Choice, error) {
	if t.bar != nil {
		_ = t.bar.Clear()
	}
	promptColor.Fprintf(t.out, "File already exists: %s\n", targetPath)

	for {
		fmt.Fprint(t.out, "[o]verwrite, overwrite [a]ll, [s]kip, skip all [n]: ")
		line, err := t.in.ReadString('\n')
		if choice, ok := parseChoice(line); ok {
			return choice, nil
		}
		if err != nil {
			fmt.Fprintln(t.out)
			if err == io.EOF {
				return 0, errNoAnswer
			}
			return 0, fmt.Errorf("failed to read answer: %w", err)
		}
		fmt.Fprintf(t.out, "Unrecognised answer %q\n", strings.TrimSpace(line))
	}
}

// parseChoice maps a typed answer to a collision choice
func parseChoice(answer string) (pics.Choice, bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "o", "overwrite":
		return pics.ChoiceOverwrite, true
	case "a", "all", "overwrite all":
		return pics.ChoiceOverwriteAll, true
	case "s", "skip":
		return pics.ChoiceSkip, true
	case "n", "none", "skip all":
		return pics.ChoiceSkipAll, true
	default:
		return 0, false
	}
}

// backupProgress drains backup events onto a progress bar until events closes
func backupProgress(out io.Writer, events <-chan pics.BackupEvent, done chan<- struct{}) {
	defer close(done)

	var bar *progressbar.ProgressBar
	for event := range events {
		if bar == nil {
			bar = progressbar.NewOptions(event.Total,
				progressbar.OptionSetWriter(out),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("Backing up"),
			)
		}
		if event.Err != nil {
			_ = bar.Clear()
			color.New(color.FgRed).Fprintf(out, "Failed: %v\n", event.Err)
		}
		_ = bar.Set(event.Current)
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(out)
	}
}
