package tui

import (
	"fmt"
	"strings"

	"enginesound/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

var (
	listUp     = key.NewBinding(key.WithKeys("up", "k"))
	listDown   = key.NewBinding(key.WithKeys("down", "j"))
	listChoose = key.NewBinding(key.WithKeys("enter"))
	listQuit   = key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"))
)

// DeviceListModel lets the user pick an output device.
type DeviceListModel struct {
	devices       []audio.HostDevice
	selectedIndex int
	chosen        bool
	viewport      viewport.Model
	ready         bool
	err           error
}

type devicesMsg struct {
	devices []audio.HostDevice
}

type errMsg struct {
	err error
}

// NewDeviceListModel returns a picker over the devices fetch reports.
func NewDeviceListModel() DeviceListModel {
	return DeviceListModel{}
}

func (m DeviceListModel) Init() tea.Cmd {
	return fetchDevices
}

// fetchDevices keeps output-capable devices only.
func fetchDevices() tea.Msg {
	all, err := audio.HostDevices()
	if err != nil {
		return errMsg{err}
	}
	var outputs []audio.HostDevice
	for _, d := range all {
		if d.MaxOutputChannels > 0 {
			outputs = append(outputs, d)
		}
	}
	return devicesMsg{outputs}
}

// Chosen returns the picked device ID, if the user confirmed one.
func (m DeviceListModel) Chosen() (int, bool) {
	if !m.chosen || len(m.devices) == 0 {
		return 0, false
	}
	return m.devices[m.selectedIndex].ID, true
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.viewport.SetContent(m.renderDevices())

	case devicesMsg:
		m.devices = msg.devices
		m.viewport.SetContent(m.renderDevices())

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, listQuit):
			return m, tea.Quit

		case key.Matches(msg, listUp):
			if m.selectedIndex > 0 {
				m.selectedIndex--
				m.viewport.SetContent(m.renderDevices())
			}

		case key.Matches(msg, listDown):
			if m.selectedIndex < len(m.devices)-1 {
				m.selectedIndex++
				m.viewport.SetContent(m.renderDevices())
			}

		case key.Matches(msg, listChoose):
			if len(m.devices) > 0 {
				m.chosen = true
				return m, tea.Quit
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m DeviceListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	title := titleStyle.Render("Output Devices")
	help := infoStyle.Render("↑/↓: Navigate • Enter: Select • q: Quit")
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No output devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		info := fmt.Sprintf("[%d] %s\n    Output channels: %d, Default sample rate: %.0f Hz\n",
			device.ID, device.Name, device.MaxOutputChannels, device.DefaultSampleRate)

		if i == m.selectedIndex {
			info = highlightStyle.Render(info)
		}

		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

// PickDevice runs the device picker and returns the chosen device ID. ok is
// false when the user quit without choosing.
func PickDevice() (id int, ok bool, err error) {
	final, err := tea.NewProgram(NewDeviceListModel(), tea.WithAltScreen()).Run()
	if err != nil {
		return 0, false, err
	}
	m := final.(DeviceListModel)
	if m.err != nil {
		return 0, false, m.err
	}
	id, ok = m.Chosen()
	return id, ok, nil
}
