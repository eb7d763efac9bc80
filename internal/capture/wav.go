package capture

import (
	"bytes"
	"encoding/binary"
)

// wavHeaderSize is the size of a canonical RIFF/WAVE PCM header.
const wavHeaderSize = 44

// encodeWAV wraps little-endian PCM in a WAV container.
func encodeWAV(pcm []byte, f AudioFormat) []byte {
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(pcm))

	blockAlign := f.Channels * f.BitsPerSample / 8

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(f.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(f.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(f.BytesPerSecond()))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(f.BitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
