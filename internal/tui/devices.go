// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"lcdspectrum/internal/source"
	"lcdspectrum/internal/spectrum"

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

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E8A33D"))
)

var (
	keyQuit   = key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"))
	keyUp     = key.NewBinding(key.WithKeys("up", "k"))
	keyDown   = key.NewBinding(key.WithKeys("down", "j"))
	keySelect = key.NewBinding(key.WithKeys("enter"))
)

// FetchFunc lists the devices to choose from.
type FetchFunc func() ([]source.Device, error)

// DevicePicker is the Bubble Tea model for choosing a capture device.
type DevicePicker struct {
	fetch         FetchFunc
	devices       []source.Device // Input-capable devices only
	selectedIndex int
	chosen        bool
	viewport      viewport.Model
	ready         bool
	err           error
}

type devicesMsg struct {
	devices []source.Device
}

type errMsg struct {
	err error
}

// NewDevicePicker creates a picker that loads its list with fetch.
func NewDevicePicker(fetch FetchFunc) DevicePicker {
	return DevicePicker{fetch: fetch}
}

// Init implements tea.Model.
func (m DevicePicker) Init() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		devices, err := fetch()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{inputDevices(devices)}
	}
}

func inputDevices(all []source.Device) []source.Device {
	var in []source.Device
	for _, d := range all {
		if d.MaxInputChannels > 0 {
			in = append(in, d)
		}
	}
	return in
}

// Update implements tea.Model.
func (m DevicePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
		case key.Matches(msg, keyQuit):
			return m, tea.Quit

		case key.Matches(msg, keyUp):
			if m.selectedIndex > 0 {
				m.selectedIndex--
				m.viewport.SetContent(m.renderDevices())
			}

		case key.Matches(msg, keyDown):
			if m.selectedIndex < len(m.devices)-1 {
				m.selectedIndex++
				m.viewport.SetContent(m.renderDevices())
			}

		case key.Matches(msg, keySelect):
			if len(m.devices) > 0 {
				m.chosen = true
				return m, tea.Quit
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m DevicePicker) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}
	if !m.ready {
		return "Initializing..."
	}

	title := titleStyle.Render("Select Input Device")
	help := infoStyle.Render("↑/↓: Navigate • Enter: Visualize • q: Quit")
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// Selected returns the chosen device, if Enter was pressed.
func (m DevicePicker) Selected() (source.Device, bool) {
	if !m.chosen || m.selectedIndex >= len(m.devices) {
		return source.Device{}, false
	}
	return m.devices[m.selectedIndex], true
}

func (m DevicePicker) renderDevices() string {
	if len(m.devices) == 0 {
		return "No input devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		marker := " "
		if i == m.selectedIndex {
			marker = "▶"
		}

		info := fmt.Sprintf("%s [%d] %s\n", marker, device.ID, device.Name)
		info += fmt.Sprintf("    Input channels: %d, Default sample rate: %.0f Hz\n",
			device.MaxInputChannels, device.DefaultSampleRate)

		if i == m.selectedIndex {
			info = highlightStyle.Render(info)
		}
		sb.WriteString(info)

		// Most devices resample; a native rate far off means more latency.
		if i == m.selectedIndex && device.DefaultSampleRate != spectrum.SampleRate {
			sb.WriteString(warnStyle.Render(fmt.Sprintf("    Captures at %d Hz, resampled by the host\n", spectrum.SampleRate)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// PickDevice runs the picker full screen and returns the chosen device.
// ok is false when the user quit without choosing.
func PickDevice(fetch FetchFunc) (device source.Device, ok bool, err error) {
	p := tea.NewProgram(NewDevicePicker(fetch), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return source.Device{}, false, err
	}
	picker := final.(DevicePicker)
	if picker.err != nil {
		return source.Device{}, false, picker.err
	}
	device, ok = picker.Selected()
	return device, ok, nil
}
