package voice

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"
)

const (
	placeholderSampleRate = 22050
	placeholderBitDepth   = 16
)

// WritePlaceholderWAV writes a silent PCM WAV of the given duration. It is
// the developer-mode stand-in when every synthesis engine is unreachable, so
// downstream steps still receive a decodable audio file.
func WritePlaceholderWAV(path string, duration time.Duration) error {
	if duration <= 0 {
		duration = time.Second
	}
	samples := int(float64(placeholderSampleRate) * duration.Seconds())
	dataSize := samples * placeholderBitDepth / 8

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create placeholder audio: %w", err)
	}
	defer f.Close()

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], 1) // mono
	binary.LittleEndian.PutUint32(header[24:28], placeholderSampleRate)
	binary.LittleEndian.PutUint32(header[28:32], placeholderSampleRate*placeholderBitDepth/8)
	binary.LittleEndian.PutUint16(header[32:34], placeholderBitDepth/8)
	binary.LittleEndian.PutUint16(header[34:36], placeholderBitDepth)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	if _, err := f.Write(header[:]); err != nil {
		return fmt.Errorf("write placeholder header: %w", err)
	}
	if _, err := f.Write(make([]byte, dataSize)); err != nil {
		return fmt.Errorf("write placeholder samples: %w", err)
	}
	return nil
}
