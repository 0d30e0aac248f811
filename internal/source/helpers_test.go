// SPDX-License-Identifier: MIT
package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV encodes interleaved samples into a new file under t.TempDir.
func writeWAV(t *testing.T, sampleRate, bitDepth, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}

func ramp(n int) []int {
	data := make([]int, n)
	for i := range data {
		data[i] = i*64 - 16000
	}
	return data
}

// counter delivers frames whose samples are the running sample index.
type counter struct {
	next int
	err  error
	init int
}

func (c *counter) Acquire(frame []uint16) error {
	if c.err != nil {
		return c.err
	}
	for i := range frame {
		frame[i] = uint16(c.next)
		c.next++
	}
	return nil
}

func (c *counter) Initialize() error {
	c.init++
	return nil
}

var errBroken = errors.New("broken source")
