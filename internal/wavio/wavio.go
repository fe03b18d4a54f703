// Package wavio reads and writes the mono 16-bit PCM WAV files the VAD
// consumes.
package wavio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat is returned for anything but mono 16-bit PCM.
var ErrUnsupportedFormat = errors.New("wavio: unsupported format")

// Clip is a decoded mono 16-bit recording.
type Clip struct {
	Samples    []int16
	SampleRate int
}

// Duration returns the length of the clip.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return FrameDuration(len(c.Samples), c.SampleRate)
}

// FrameDuration returns how long n samples last at rate Hz.
func FrameDuration(n, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}

// Load reads the WAV file at path.
func Load(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open wav file %q: %w", path, err)
	}
	defer f.Close()

	clip, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clip, nil
}

// Read decodes a mono 16-bit PCM WAV stream.
func Read(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("read wav info: %w", err)
	}
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a PCM wav file", ErrUnsupportedFormat)
	}
	if d.NumChans != 1 {
		return nil, fmt.Errorf("%w: %d channels, only mono is supported", ErrUnsupportedFormat, d.NumChans)
	}
	if d.BitDepth != 16 {
		return nil, fmt.Errorf("%w: %d-bit samples, only 16-bit is supported", ErrUnsupportedFormat, d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	return &Clip{Samples: samples, SampleRate: int(d.SampleRate)}, nil
}

// Write encodes c as a mono 16-bit PCM WAV stream.
func Write(w io.WriteSeeker, c *Clip) error {
	enc := wav.NewEncoder(w, c.SampleRate, 16, 1, 1)
	data := make([]int, len(c.Samples))
	for i, s := range c.Samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: c.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write pcm: %w", err)
	}
	return enc.Close()
}

// Save writes c to the file at path.
func Save(path string, c *Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
