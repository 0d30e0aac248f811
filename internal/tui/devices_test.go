// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"

	"lcdspectrum/internal/source"

	tea "github.com/charmbracelet/bubbletea"
)

var testDevices = []source.Device{
	{ID: 0, Name: "Built-in Microphone", MaxInputChannels: 1, DefaultSampleRate: 48000},
	{ID: 1, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 44100},
	{ID: 2, Name: "USB Interface", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 96000},
}

func fetchTest() ([]source.Device, error) { return testDevices, nil }

func update(t *testing.T, m tea.Model, msg tea.Msg) (DevicePicker, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(DevicePicker), cmd
}

func keyMsg(k string) tea.Msg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// loaded returns a picker that has received its size and device list.
func loaded(t *testing.T) DevicePicker {
	t.Helper()
	m := NewDevicePicker(fetchTest)
	msg := m.Init()()
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	m, _ = update(t, m, msg)
	return m
}

func TestInitListsInputDevicesOnly(t *testing.T) {
	m := loaded(t)
	if len(m.devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(m.devices))
	}
	view := m.View()
	if strings.Contains(view, "Speakers") {
		t.Error("output-only device listed")
	}
	if !strings.Contains(view, "Built-in Microphone") || !strings.Contains(view, "USB Interface") {
		t.Errorf("view missing devices:\n%s", view)
	}
}

func TestNavigateAndSelect(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		wantID int
		wantOK bool
	}{
		{"Enter picks first", []string{"enter"}, 0, true},
		{"Down then enter", []string{"down", "enter"}, 2, true},
		{"Down past end stays", []string{"j", "j", "j", "enter"}, 2, true},
		{"Up at top stays", []string{"k", "enter"}, 0, true},
		{"Quit without choosing", []string{"down", "q"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := loaded(t)
			var cmd tea.Cmd
			for _, k := range tt.keys {
				m, cmd = update(t, m, keyMsg(k))
			}

			if cmd == nil {
				t.Fatal("expected quit command")
			}
			if _, isQuit := cmd().(tea.QuitMsg); !isQuit {
				t.Error("last key did not quit")
			}

			device, ok := m.Selected()
			if ok != tt.wantOK {
				t.Fatalf("Selected() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && device.ID != tt.wantID {
				t.Errorf("Selected() = device %d, want %d", device.ID, tt.wantID)
			}
		})
	}
}

func TestEnterWithoutDevices(t *testing.T) {
	m := NewDevicePicker(func() ([]source.Device, error) { return nil, nil })
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	m, _ = update(t, m, m.Init()())
	m, _ = update(t, m, keyMsg("enter"))

	if _, ok := m.Selected(); ok {
		t.Error("selected a device from an empty list")
	}
	if !strings.Contains(m.View(), "No input devices found") {
		t.Errorf("view = %q", m.View())
	}
}

func TestFetchError(t *testing.T) {
	m := NewDevicePicker(func() ([]source.Device, error) { return nil, errors.New("no host api") })
	m, _ = update(t, m, m.Init()())
	if !strings.Contains(m.View(), "no host api") {
		t.Errorf("view = %q", m.View())
	}
}
