package tui

import (
	"math"
	"strings"
	"testing"

	"enginesound/internal/audio"
	"enginesound/internal/synth"
	"enginesound/internal/telemetry"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeControls struct {
	p   synth.AudioParameters
	set int
}

func (f *fakeControls) AudioParameters() synth.AudioParameters     { return f.p }
func (f *fakeControls) SetAudioParameters(p synth.AudioParameters) { f.p = p; f.set++ }

type fakeThrottle struct{ rpm float64 }

func (f *fakeThrottle) RPM() float64       { return f.rpm }
func (f *fakeThrottle) SetRPM(rpm float64) { f.rpm = rpm }

type fakeStats struct{ snap telemetry.Snapshot }

func (f fakeStats) Snapshot() telemetry.Snapshot { return f.snap }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m MixerModel, msgs ...tea.Msg) MixerModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(MixerModel)
	}
	return m
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMixerSelectAndAdjust(t *testing.T) {
	tests := []struct {
		name  string
		keys  []tea.Msg
		field func(p synth.AudioParameters) float64
		want  float64
	}{
		{"volume up", []tea.Msg{runes("z"), tea.KeyMsg{Type: tea.KeyUp}}, func(p synth.AudioParameters) float64 { return p.Volume }, 1.05},
		{"convolution down", []tea.Msg{runes("x"), runes("-")}, func(p synth.AudioParameters) float64 { return p.Convolution }, 0.95},
		{"dff mix up", []tea.Msg{runes("c"), runes("+")}, func(p synth.AudioParameters) float64 { return p.DFFMix }, 0.02},
		{"air noise clamps", []tea.Msg{runes("v"), runes("+"), runes("+")}, func(p synth.AudioParameters) float64 { return p.AirNoise }, 1},
		{"input noise down", []tea.Msg{runes("b"), tea.KeyMsg{Type: tea.KeyDown}}, func(p synth.AudioParameters) float64 { return p.InputSampleNoise }, 0.45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeControls{p: synth.DefaultAudioParameters()}
			send(t, NewMixerModel(c, nil, nil, nil), tt.keys...)
			if got := tt.field(c.p); !near(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMixerDefaultsToVolume(t *testing.T) {
	c := &fakeControls{p: synth.DefaultAudioParameters()}
	m := NewMixerModel(c, nil, nil, nil)
	if m.Selected() != "Volume" {
		t.Errorf("Selected() = %q, want Volume", m.Selected())
	}
	m = send(t, m, runes("b"))
	if m.Selected() != "Input noise" {
		t.Errorf("Selected() = %q, want Input noise", m.Selected())
	}
	if c.set != 0 {
		t.Error("selecting a knob changed parameters")
	}
}

func TestMixerRPM(t *testing.T) {
	c := &fakeControls{p: synth.DefaultAudioParameters()}
	th := &fakeThrottle{rpm: 50}
	m := NewMixerModel(c, th, nil, nil)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if th.rpm != 150 {
		t.Errorf("RPM after right = %v, want 150", th.rpm)
	}
	send(t, m, tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyLeft})
	if th.rpm != 0 {
		t.Errorf("RPM after two lefts = %v, want 0", th.rpm)
	}

	// Without a throttle the arrows are ignored.
	send(t, NewMixerModel(c, nil, nil, nil), tea.KeyMsg{Type: tea.KeyRight})
}

func TestMixerQuit(t *testing.T) {
	m := NewMixerModel(&fakeControls{}, nil, nil, nil)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestMixerTickAndView(t *testing.T) {
	stats := fakeStats{snap: telemetry.Snapshot{
		Latency:     0.012,
		LevelerGain: 0.5,
		Bands:       []telemetry.Band{{Name: "rumble", Level: 0.5}},
	}}
	logs := NewLogTail(2)
	logs.Write([]byte("first\n"))

	m := NewMixerModel(&fakeControls{p: synth.DefaultAudioParameters()}, &fakeThrottle{rpm: 900}, stats, logs)
	next, cmd := m.Update(tickMsg{})
	if cmd == nil {
		t.Error("tick did not schedule the next tick")
	}

	view := next.(MixerModel).View()
	for _, want := range []string{"Volume", "RPM    900", "12.0 ms", "0.500", "rumble", "first"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestMeter(t *testing.T) {
	tests := []struct {
		v, lo, hi float64
		filled    int
	}{
		{0, 0, 1, 0},
		{0.5, 0, 1, meterWidth / 2},
		{2, 0, 1, meterWidth},
		{-1, 0, 1, 0},
		{1, 1, 1, 0},
	}
	for _, tt := range tests {
		bar := meter(tt.v, tt.lo, tt.hi)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("meter(%v, %v, %v) filled %d, want %d", tt.v, tt.lo, tt.hi, got, tt.filled)
		}
		if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != meterWidth {
			t.Errorf("meter width %d, want %d", got, meterWidth)
		}
	}
}

func TestLogTail(t *testing.T) {
	tail := NewLogTail(2)
	tail.Write([]byte("a\nb\n"))
	tail.Write([]byte("c\n"))

	got := tail.Lines()
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("Lines() = %q, want [b c]", got)
	}
}

func TestDeviceListChoose(t *testing.T) {
	devices := []audio.HostDevice{
		{ID: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
		{ID: 3, Name: "Headphones", MaxOutputChannels: 2, DefaultSampleRate: 44100},
	}

	var m tea.Model = NewDeviceListModel()
	for _, msg := range []tea.Msg{
		tea.WindowSizeMsg{Width: 80, Height: 24},
		devicesMsg{devices},
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyDown}, // already at the end
	} {
		m, _ = m.Update(msg)
	}

	if !strings.Contains(m.View(), "Headphones") {
		t.Error("View() does not list devices")
	}
	if _, ok := m.(DeviceListModel).Chosen(); ok {
		t.Error("Chosen() before Enter")
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	id, ok := m.(DeviceListModel).Chosen()
	if !ok || id != 3 {
		t.Errorf("Chosen() = %d, %v, want 3, true", id, ok)
	}
	if cmd == nil {
		t.Error("Enter did not quit")
	}
}

func TestDeviceListEmpty(t *testing.T) {
	var m tea.Model = NewDeviceListModel()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = m.Update(devicesMsg{})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if cmd != nil {
		t.Error("Enter on an empty list quit")
	}
	if !strings.Contains(m.View(), "No output devices") {
		t.Errorf("View() = %q", m.View())
	}
}
