package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/tenvad/internal/wavio"
	"github.com/wippyai/tenvad/vad"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	voiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	silenceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const historyLen = 60

var errNoTerminal = errors.New("watch needs an interactive terminal; use run instead")

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file.wav>",
		Short: "Live voice probability meter for a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return errNoTerminal
			}

			clip, err := wavio.Load(args[0])
			if err != nil {
				return err
			}
			v, err := vad.New(a.cfg.HopSize, a.cfg.Threshold, a.vadOptions(cmd.Context())...)
			if err != nil {
				return err
			}
			defer v.Close()

			m := newWatchModel(args[0], clip, v)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return err
			}
			return m.err
		},
	}
}

type watchModel struct {
	err      error
	vad      *vad.VAD
	clip     *wavio.Clip
	filename string
	bar      progress.Model
	history  []bool
	interval time.Duration
	index    int
	frames   int
	voiced   int
	prob     float32
	voice    bool
	paused   bool
	done     bool
}

type tickMsg time.Time

func newWatchModel(filename string, clip *wavio.Clip, v *vad.VAD) *watchModel {
	hop := v.FrameSize()
	return &watchModel{
		vad:      v,
		clip:     clip,
		filename: filename,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		interval: wavio.FrameDuration(hop, clip.SampleRate),
		frames:   len(clip.Samples) / hop,
	}
}

func (m *watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *watchModel) Init() tea.Cmd {
	return m.tick()
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		}

	case tea.WindowSizeMsg:
		m.bar.Width = max(msg.Width-4, 10)

	case tickMsg:
		if m.done || m.err != nil {
			return m, nil
		}
		if !m.paused {
			m.step()
		}
		if m.done || m.err != nil {
			return m, nil
		}
		return m, m.tick()
	}
	return m, nil
}

// step processes the next frame.
func (m *watchModel) step() {
	if m.index >= m.frames {
		m.done = true
		return
	}
	hop := m.vad.FrameSize()
	prob, voice, err := m.vad.Process(m.clip.Samples[m.index*hop : (m.index+1)*hop])
	if err != nil {
		m.err = err
		return
	}
	m.index++
	m.prob, m.voice = prob, voice
	if voice {
		m.voiced++
	}
	m.history = append(m.history, voice)
	if len(m.history) > historyLen {
		m.history = m.history[len(m.history)-historyLen:]
	}
	if m.index >= m.frames {
		m.done = true
	}
}

func (m *watchModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("TEN VAD"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q quit"))
		return b.String()
	}

	state := silenceStyle.Render("silence")
	if m.voice {
		state = voiceStyle.Render("VOICE")
	}
	fmt.Fprintf(&b, "frame %d/%d   p=%.3f   %s\n\n", m.index, m.frames, m.prob, state)
	b.WriteString(m.bar.ViewAs(float64(m.prob)))
	b.WriteString("\n\n")

	for _, v := range m.history {
		if v {
			b.WriteString(voiceStyle.Render("█"))
		} else {
			b.WriteString(silenceStyle.Render("▁"))
		}
	}
	b.WriteString("\n\n")

	if m.index > 0 {
		fmt.Fprintf(&b, "voiced %.1f%% of %d frames (threshold %.2f)\n\n",
			100*float64(m.voiced)/float64(m.index), m.index, m.vad.Threshold())
	}

	switch {
	case m.done:
		b.WriteString(helpStyle.Render("done • q quit"))
	case m.paused:
		b.WriteString(helpStyle.Render("paused • space resume • q quit"))
	default:
		b.WriteString(helpStyle.Render("space pause • q quit"))
	}
	return b.String()
}
