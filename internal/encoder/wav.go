package encoder

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV prefixes raw s16le PCM with a canonical 44-byte RIFF header.
func EncodeWAV(raw []byte, pcm PCMFormat) []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(raw))

	byteRate := pcm.SampleRate * pcm.Channels * BitsPerSample / 8
	blockAlign := pcm.Channels * BitsPerSample / 8
	dataSize := len(raw)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))             // fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))              // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(pcm.Channels))   // channels
	binary.Write(&buf, binary.LittleEndian, uint32(pcm.SampleRate)) // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))       // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))     // block align
	binary.Write(&buf, binary.LittleEndian, uint16(BitsPerSample))  // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(raw)

	return buf.Bytes()
}
