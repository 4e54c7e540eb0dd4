package encoder

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

const BlockSize = 4096

// EncodeFLAC encodes raw s16le PCM (mono or interleaved stereo) as FLAC.
// The sample count is known up front, so STREAMINFO carries the real
// duration even though the output is not seekable.
func EncodeFLAC(raw []byte, pcm PCMFormat) ([]byte, error) {
	nFrames := len(raw) / pcm.frameBytes()

	var buf bytes.Buffer
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    uint32(pcm.SampleRate),
		NChannels:     uint8(pcm.Channels),
		BitsPerSample: BitsPerSample,
		NSamples:      uint64(nFrames),
	}
	enc, err := flac.NewEncoder(&buf, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)

	channels := frame.ChannelsMono
	if pcm.Channels == 2 {
		channels = frame.ChannelsLR
	}

	for start := 0; start < nFrames; start += BlockSize {
		n := min(BlockSize, nFrames-start)

		subframes := make([]*frame.Subframe, pcm.Channels)
		for ch := range subframes {
			samples := make([]int32, n)
			for i := 0; i < n; i++ {
				off := ((start+i)*pcm.Channels + ch) * 2
				samples[i] = int32(int16(binary.LittleEndian.Uint16(raw[off:])))
			}
			subframes[ch] = &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   samples,
				NSamples:  n,
			}
		}

		f := &frame.Frame{
			Header: frame.Header{
				BlockSize:     uint16(n),
				SampleRate:    uint32(pcm.SampleRate),
				Channels:      channels,
				BitsPerSample: BitsPerSample,
			},
			Subframes: subframes,
		}
		if err := enc.WriteFrame(f); err != nil {
			return nil, fmt.Errorf("writing flac frame: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing flac encoder: %w", err)
	}
	return buf.Bytes(), nil
}
