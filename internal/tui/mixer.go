package tui

import (
	"fmt"
	"strings"
	"time"

	"enginesound/internal/synth"
	"enginesound/internal/telemetry"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	refreshInterval = 100 * time.Millisecond
	rpmStep         = 100.0
	maxRPM          = 20000.0
	meterWidth      = 30
	logLines        = 5
)

// Controls is the live parameter surface of the synthesizer.
type Controls interface {
	AudioParameters() synth.AudioParameters
	SetAudioParameters(p synth.AudioParameters)
}

// Throttle adjusts the simulated engine speed.
type Throttle interface {
	RPM() float64
	SetRPM(rpm float64)
}

// knob is one adjustable audio parameter.
type knob struct {
	name     string
	binding  key.Binding
	step     float64
	min, max float64
	value    func(p *synth.AudioParameters) *float64
}

var knobs = []knob{
	{
		name:    "Volume",
		binding: key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "volume")),
		step:    0.05,
		min:     0,
		max:     10,
		value:   func(p *synth.AudioParameters) *float64 { return &p.Volume },
	},
	{
		name:    "Convolution",
		binding: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "convolution")),
		step:    0.05,
		min:     0,
		max:     1,
		value:   func(p *synth.AudioParameters) *float64 { return &p.Convolution },
	},
	{
		name:    "DFF mix",
		binding: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "dff mix")),
		step:    0.01,
		min:     0,
		max:     1,
		value:   func(p *synth.AudioParameters) *float64 { return &p.DFFMix },
	},
	{
		name:    "Air noise",
		binding: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "air noise")),
		step:    0.05,
		min:     0,
		max:     1,
		value:   func(p *synth.AudioParameters) *float64 { return &p.AirNoise },
	},
	{
		name:    "Input noise",
		binding: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "input noise")),
		step:    0.05,
		min:     0,
		max:     1,
		value:   func(p *synth.AudioParameters) *float64 { return &p.InputSampleNoise },
	},
}

type mixerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Faster key.Binding
	Slower key.Binding
	Quit   key.Binding
	Select key.Binding
}

func (k mixerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Up, k.Down, k.Faster, k.Slower, k.Quit}
}

func (k mixerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var mixerKeys = mixerKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k", "+", "="), key.WithHelp("↑/+", "increase")),
	Down:   key.NewBinding(key.WithKeys("down", "j", "-"), key.WithHelp("↓/-", "decrease")),
	Faster: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "rpm up")),
	Slower: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "rpm down")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Select: key.NewBinding(key.WithKeys("z", "x", "c", "v", "b"), key.WithHelp("z/x/c/v/b", "select")),
}

type tickMsg time.Time

// MixerModel is the Bubble Tea model for adjusting the synthesizer live.
type MixerModel struct {
	controls Controls
	throttle Throttle
	stats    telemetry.Source
	logs     *LogTail

	selected int
	snapshot telemetry.Snapshot
	help     help.Model
}

// NewMixerModel returns a mixer over controls. throttle, stats and logs are
// optional.
func NewMixerModel(controls Controls, throttle Throttle, stats telemetry.Source, logs *LogTail) MixerModel {
	return MixerModel{
		controls: controls,
		throttle: throttle,
		stats:    stats,
		logs:     logs,
		help:     help.New(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m MixerModel) Init() tea.Cmd {
	return tick()
}

// Selected returns the name of the knob the arrow keys adjust.
func (m MixerModel) Selected() string {
	return knobs[m.selected].name
}

func (m MixerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case tickMsg:
		if m.stats != nil {
			m.snapshot = m.stats.Snapshot()
		}
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, mixerKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, mixerKeys.Up):
			m.nudge(1)
		case key.Matches(msg, mixerKeys.Down):
			m.nudge(-1)
		case key.Matches(msg, mixerKeys.Faster):
			m.rev(rpmStep)
		case key.Matches(msg, mixerKeys.Slower):
			m.rev(-rpmStep)
		default:
			for i, k := range knobs {
				if key.Matches(msg, k.binding) {
					m.selected = i
					break
				}
			}
		}
	}
	return m, nil
}

// nudge moves the selected knob by dir steps within its range.
func (m *MixerModel) nudge(dir float64) {
	k := knobs[m.selected]
	p := m.controls.AudioParameters()
	v := k.value(&p)
	*v = min(k.max, max(k.min, *v+dir*k.step))
	m.controls.SetAudioParameters(p)
}

func (m *MixerModel) rev(delta float64) {
	if m.throttle == nil {
		return
	}
	m.throttle.SetRPM(min(maxRPM, max(0, m.throttle.RPM()+delta)))
}

func (m MixerModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Engine Sound Mixer"))
	sb.WriteString("\n\n")

	p := m.controls.AudioParameters()
	for i, k := range knobs {
		v := *k.value(&p)
		line := fmt.Sprintf("  [%s] %-12s %s %6.3f", k.binding.Help().Key, k.name, meter(v, k.min, k.max), v)
		if i == m.selected {
			line = highlightStyle.Render("▶" + line[1:])
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if m.throttle != nil {
		sb.WriteString(infoStyle.Render(fmt.Sprintf("RPM %6.0f", m.throttle.RPM())))
		sb.WriteString("\n")
	}
	s := m.snapshot
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Latency %6.1f ms   Leveler gain %.3f   Lead %3.0f%%",
		s.Latency*1000, s.LevelerGain, s.LeadFill*100)))
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Underruns %d   Overruns %d   Dropped input %d   Resyncs %d",
		s.Underruns, s.Overruns, s.DroppedInput, s.Resyncs)))
	sb.WriteString("\n")

	for _, b := range s.Bands {
		sb.WriteString(fmt.Sprintf("  %-8s %s\n", b.Name, meter(b.Level, 0, 1)))
	}

	if m.logs != nil {
		if lines := m.logs.Lines(); len(lines) > 0 {
			sb.WriteString("\n")
			sb.WriteString(logStyle.Render(strings.Join(lines, "\n")))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(m.help.View(mixerKeys))
	return sb.String()
}

// meter draws v within [lo, hi] as a fixed-width bar.
func meter(v, lo, hi float64) string {
	filled := 0
	if hi > lo {
		filled = int((v - lo) / (hi - lo) * meterWidth)
	}
	filled = min(meterWidth, max(0, filled))
	return meterStyle.Render(strings.Repeat("█", filled)) + strings.Repeat("░", meterWidth-filled)
}

// RunMixer runs the mixer until the user quits. Log output is shown inside
// the mixer while it runs.
func RunMixer(controls Controls, throttle Throttle, stats telemetry.Source) error {
	logs := NewLogTail(logLines)
	restore := logs.Capture()
	defer restore()

	_, err := tea.NewProgram(
		NewMixerModel(controls, throttle, stats, logs),
		tea.WithAltScreen(),
	).Run()
	return err
}

var (
	meterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
	logStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))
)
