package importer

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/thisisjonathan/flits-editor/internal/document"
)

// decodeSound dispatches on content: RIFF means WAV, anything else is
// tried as MP3.
func decodeSound(filename string, data []byte) (document.Resource, error) {
	if len(data) >= 4 && bytes.Equal(data[:4], []byte("RIFF")) {
		return decodeWAV(filename, data)
	}
	return decodeMP3(filename, data)
}

// validSampleRate reports whether the container can store the rate. The
// MP3 codec cannot carry 5512 Hz.
func validSampleRate(rate int, mp3 bool) bool {
	switch rate {
	case 5512:
		return !mp3
	case 11025, 22050, 44100:
		return true
	default:
		return false
	}
}

// decodeWAV parses a RIFF/WAVE file and embeds the PCM samples verbatim.
// Only uncompressed PCM with 1 or 2 channels, 8 or 16 bits, at the
// container's four sample rates is accepted.
func decodeWAV(filename string, data []byte) (document.Resource, error) {
	fail := func(format string, args ...any) (document.Resource, error) {
		return document.Resource{}, &DecodeError{Filename: filename, Err: fmt.Errorf(format, args...)}
	}

	if len(data) < 12 || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return fail("not a WAVE file")
	}

	var (
		haveFmt    bool
		channels   int
		sampleRate int
		bitDepth   int
		pcm        []byte
	)
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkLen := int(binary.LittleEndian.Uint32(data[pos+4:]))
		pos += 8
		if chunkLen < 0 || pos+chunkLen > len(data) {
			return fail("chunk %q overruns file", chunkID)
		}
		chunk := data[pos : pos+chunkLen]
		// Chunks are word aligned.
		pos += chunkLen + chunkLen%2

		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return fail("short fmt chunk")
			}
			if audioFormat := binary.LittleEndian.Uint16(chunk); audioFormat != 1 {
				return fail("audio format %d, only PCM supported", audioFormat)
			}
			channels = int(binary.LittleEndian.Uint16(chunk[2:]))
			sampleRate = int(binary.LittleEndian.Uint32(chunk[4:]))
			bitDepth = int(binary.LittleEndian.Uint16(chunk[14:]))
			haveFmt = true
		case "data":
			pcm = chunk
		}
	}
	if !haveFmt {
		return fail("missing fmt chunk")
	}
	if pcm == nil {
		return fail("missing data chunk")
	}
	if channels != 1 && channels != 2 {
		return fail("%d channels, want mono or stereo", channels)
	}
	if bitDepth != 8 && bitDepth != 16 {
		return fail("%d-bit samples, want 8 or 16", bitDepth)
	}
	if !validSampleRate(sampleRate, false) {
		return fail("sample rate %d Hz, want 5512, 11025, 22050 or 44100", sampleRate)
	}

	frameSize := channels * bitDepth / 8
	payload := append([]byte(nil), pcm...)
	return document.Resource{
		Kind:        document.ResourceSound,
		Payload:     payload,
		Fingerprint: document.Fingerprint(payload),
		Sound: &document.SoundMeta{
			Codec:       document.SoundUncompressed,
			SampleRate:  sampleRate,
			Stereo:      channels == 2,
			SixteenBit:  bitDepth == 16,
			SampleCount: uint32(len(pcm) / frameSize),
		},
	}, nil
}

var mp3SampleRates = map[byte][3]int{
	3: {44100, 48000, 32000}, // MPEG 1
	2: {22050, 24000, 16000}, // MPEG 2
	0: {11025, 12000, 8000},  // MPEG 2.5
}

// decodeMP3 reads the first frame header for format parameters and walks
// the frame chain to count samples. The payload is embedded as-is behind
// the two-byte seek-sample prefix the container wants.
func decodeMP3(filename string, data []byte) (document.Resource, error) {
	fail := func(format string, args ...any) (document.Resource, error) {
		return document.Resource{}, &DecodeError{Filename: filename, Err: fmt.Errorf(format, args...)}
	}

	// Skip an ID3v2 prelude if present.
	start := 0
	if len(data) >= 10 && bytes.Equal(data[:3], []byte("ID3")) {
		size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
		start = 10 + size
	}
	if start+4 > len(data) {
		return fail("no audio frames")
	}

	var (
		sampleRate  int
		stereo      bool
		sampleCount uint32
		frames      int
	)
	pos := start
	for pos+4 <= len(data) {
		h := binary.BigEndian.Uint32(data[pos:])
		if h>>21&0x7FF != 0x7FF {
			return fail("bad frame sync at byte %d", pos)
		}
		version := byte(h >> 19 & 0x03)
		layer := byte(h >> 17 & 0x03)
		bitrateIdx := int(h >> 12 & 0x0F)
		rateIdx := int(h >> 10 & 0x03)
		padding := int(h >> 9 & 0x01)
		channelMode := byte(h >> 6 & 0x03)

		if layer != 1 {
			return fail("not layer III audio")
		}
		rates, ok := mp3SampleRates[version]
		if !ok || rateIdx == 3 {
			return fail("reserved sample rate field")
		}
		if bitrateIdx == 0 || bitrateIdx == 15 {
			return fail("unsupported bitrate field %d", bitrateIdx)
		}
		rate := rates[rateIdx]
		if frames == 0 {
			sampleRate = rate
			stereo = channelMode != 3
		} else if rate != sampleRate {
			return fail("sample rate changes mid stream")
		}

		samplesPerFrame := 1152
		scale := 144
		if version != 3 {
			samplesPerFrame = 576
			scale = 72
		}
		bitrate := mp3Bitrate(version, bitrateIdx)
		frameLen := scale*bitrate*1000/rate + padding
		if frameLen <= 4 {
			return fail("degenerate frame at byte %d", pos)
		}
		sampleCount += uint32(samplesPerFrame)
		frames++
		pos += frameLen

		// Trailing metadata (ID3v1, APE) starts where sync breaks off.
		if pos+4 <= len(data) && binary.BigEndian.Uint32(data[pos:])>>21&0x7FF != 0x7FF {
			break
		}
	}
	if frames == 0 {
		return fail("no audio frames")
	}
	if !validSampleRate(sampleRate, true) {
		return fail("sample rate %d Hz, want 11025, 22050 or 44100", sampleRate)
	}

	payload := make([]byte, 2+len(data)-start)
	copy(payload[2:], data[start:])
	return document.Resource{
		Kind:        document.ResourceSound,
		Payload:     payload,
		Fingerprint: document.Fingerprint(payload),
		Sound: &document.SoundMeta{
			Codec:       document.SoundMP3,
			SampleRate:  sampleRate,
			Stereo:      stereo,
			SixteenBit:  true,
			SampleCount: sampleCount,
		},
	}, nil
}

var mp3BitratesV1 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
var mp3BitratesV2 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}

func mp3Bitrate(version byte, idx int) int {
	if version == 3 {
		return mp3BitratesV1[idx]
	}
	return mp3BitratesV2[idx]
}
