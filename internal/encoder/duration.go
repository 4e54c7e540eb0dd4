package encoder

import (
	"bytes"
	"errors"
	"io"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/rs/zerolog/log"
)

// Duration returns the playback length of an encoded payload in seconds.
// Formats it cannot decode, and decode failures, yield 0.
func Duration(a Audio) float64 {
	seconds, err := decodeDuration(a.Data)
	if err != nil {
		log.Debug().Err(err).Str("mime", a.MIMEType).Msg("Encoder: duration unavailable")
		return 0
	}
	return seconds
}

var errUnknownFormat = errors.New("unknown audio container")

func decodeDuration(data []byte) (seconds float64, err error) {
	// Third-party decoders may panic on corrupt input.
	defer func() {
		if r := recover(); r != nil {
			seconds, err = 0, errors.New("decoder panic")
		}
	}()

	switch {
	case bytes.HasPrefix(data, []byte("fLaC")):
		return flacDuration(data)
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && string(data[8:12]) == "WAVE":
		return wavDuration(data)
	default:
		return 0, errUnknownFormat
	}
}

func flacDuration(data []byte) (float64, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	if stream.Info.SampleRate == 0 {
		return 0, errors.New("flac: zero sample rate")
	}
	samples := stream.Info.NSamples
	if samples == 0 {
		// Streams written without seeking leave NSamples unset; count frames.
		for {
			f, err := stream.ParseNext()
			if err == io.EOF {
				break
			}
			if err != nil {
				return 0, err
			}
			samples += uint64(f.BlockSize)
		}
	}
	return float64(samples) / float64(stream.Info.SampleRate), nil
}

func wavDuration(data []byte) (float64, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return 0, errors.New("wav: invalid file")
	}
	dur, err := d.Duration()
	if err != nil {
		return 0, err
	}
	return dur.Seconds(), nil
}
