// Package codec measures synthesized audio.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/hajimehoshi/go-mp3"

	"github.com/enhasa/enhasa/internal/speech/engine"
)

// go-mp3 always decodes to 16-bit stereo PCM.
const bytesPerFrame = 4

var errNoAudio = errors.New("no audio data")

// MP3Duration decodes data and returns its playing time in seconds.
func MP3Duration(data []byte) (float64, error) {
	if len(data) == 0 {
		return 0, errNoAudio
	}
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}
	length := dec.Length()
	if length <= 0 || dec.SampleRate() <= 0 {
		return 0, fmt.Errorf("decode mp3: unknown length")
	}
	return float64(length) / bytesPerFrame / float64(dec.SampleRate()), nil
}

// Duration returns the playing time of a in seconds. Formats that cannot be
// measured report zero.
func Duration(a engine.Audio) float64 {
	if !IsMP3(a.ContentType) {
		return 0
	}
	d, err := MP3Duration(a.Data)
	if err != nil {
		return 0
	}
	return d
}

// IsMP3 reports whether contentType names MPEG audio.
func IsMP3(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct == "audio/mpeg" || ct == "audio/mp3"
}
