// Package wave implements parsing and validation of RIFF/WAVE containers.
//
// The parser is used as a pre-flight gate for voice-clone uploads: it walks the
// RIFF chunk table of an in-memory buffer, extracts the format metadata needed
// to compute playable duration, and classifies malformed containers without
// ever reading past the buffer bounds. It performs no I/O and holds no state,
// so it is safe to invoke concurrently from multiple in-flight requests.
package wave

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Container layout constants.
const (
	// MinHeaderSize is the minimum canonical WAV header size in bytes.
	// Buffers shorter than this are rejected before any parsing.
	MinHeaderSize = 44

	// riffHeaderSize is the size of the outer RIFF/WAVE descriptor.
	riffHeaderSize = 12

	// chunkHeaderSize is the size of a chunk identifier plus its declared size.
	chunkHeaderSize = 8

	// fmtPayloadSize is the minimum payload size of a PCM "fmt " chunk.
	fmtPayloadSize = 16

	bitsPerByte = 8
)

// Chunk identifiers.
const (
	riffTag = "RIFF"
	waveTag = "WAVE"
	fmtTag  = "fmt "
	dataTag = "data"
)

// Offsets of format fields relative to the start of the "fmt " chunk payload.
// Fields are always read relative to the chunk's data start, never from
// absolute file offsets, so preceding non-standard chunks cannot skew them.
const (
	fmtOffsetChannels      = 2
	fmtOffsetSampleRate    = 4
	fmtOffsetBitsPerSample = 14
)

// Static errors. All four are terminal for the current upload.
var (
	// ErrTooSmall indicates the buffer is under the minimum header size.
	ErrTooSmall = errors.New("buffer smaller than minimum WAV header")

	// ErrNotRiffWave indicates the RIFF/WAVE signature is missing.
	ErrNotRiffWave = errors.New("not a RIFF/WAVE container")

	// ErrMalformedChunkTable indicates the chunk walk ended before a "fmt "
	// chunk was located.
	ErrMalformedChunkTable = errors.New("malformed chunk table")

	// ErrDegenerateFormat indicates a zero sample rate, channel count, or bit
	// depth that would make the duration undefined.
	ErrDegenerateFormat = errors.New("degenerate format fields")
)

// Info holds the format metadata extracted from a WAV container.
type Info struct {
	// SampleRate is the number of samples per second.
	SampleRate uint32

	// Channels is the channel count (1 = mono, 2 = stereo).
	Channels uint16

	// BitsPerSample is the bit depth per sample, typically 16.
	BitsPerSample uint16

	// DataByteSize is the size of the PCM payload in bytes. When Estimated is
	// true this is derived from the buffer length rather than a "data" chunk.
	DataByteSize uint32

	// DurationSeconds is DataByteSize divided by the byte rate.
	DurationSeconds float64

	// Estimated reports that no "data" chunk was found and DataByteSize was
	// estimated from the trailing bytes of the buffer.
	Estimated bool
}

// Parse extracts format metadata from a byte buffer purporting to be a
// RIFF/WAVE file. It is a pure function of its input: the buffer is never
// modified, and parsing the same buffer twice yields identical results.
//
// The walk tolerates non-standard chunk ordering, unknown chunks, and
// odd-length chunks (which are word-aligned with one padding byte). A missing
// "data" chunk degrades to an estimated payload size rather than failing.
func Parse(buf []byte) (Info, error) {
	if len(buf) < MinHeaderSize {
		return Info{}, fmt.Errorf(
			"%w: got %d bytes, need at least %d",
			ErrTooSmall, len(buf), MinHeaderSize,
		)
	}

	if string(buf[0:4]) != riffTag || string(buf[8:12]) != waveTag {
		return Info{}, ErrNotRiffWave
	}

	info, walkErr := walkChunks(buf)
	if walkErr != nil {
		return Info{}, walkErr
	}

	durationErr := computeDuration(&info)
	if durationErr != nil {
		return Info{}, durationErr
	}

	return info, nil
}

// walkChunks iterates the chunk table starting immediately after the outer
// RIFF/WAVE descriptor. It stops at the "data" chunk, at the end of the
// buffer, or at a zero-size chunk (which would otherwise loop forever on
// malformed input).
func walkChunks(buf []byte) (Info, error) {
	var (
		info     Info
		fmtSeen  bool
		dataSeen bool
	)

	cursor := riffHeaderSize

	for cursor+chunkHeaderSize <= len(buf) {
		chunkID := string(buf[cursor : cursor+4])
		chunkSize := binary.LittleEndian.Uint32(buf[cursor+4 : cursor+chunkHeaderSize])
		dataStart := cursor + chunkHeaderSize

		if chunkID == dataTag {
			info.DataByteSize = chunkSize
			dataSeen = true

			break
		}

		if chunkSize == 0 {
			break
		}

		if chunkID == fmtTag && dataStart+fmtPayloadSize <= len(buf) {
			readFmtChunk(buf[dataStart:], &info)

			fmtSeen = true
		}

		cursor = advanceCursor(dataStart, chunkSize)
	}

	if !fmtSeen {
		return Info{}, fmt.Errorf(
			"%w: no \"fmt \" chunk before offset %d",
			ErrMalformedChunkTable, cursor,
		)
	}

	if !dataSeen {
		info.DataByteSize = estimateDataSize(len(buf), cursor)
		info.Estimated = true
	}

	return info, nil
}

// readFmtChunk reads the format fields from a "fmt " chunk payload. Offsets
// are relative to the payload start, so the chunk may appear anywhere in the
// table.
func readFmtChunk(payload []byte, info *Info) {
	info.Channels = binary.LittleEndian.Uint16(
		payload[fmtOffsetChannels : fmtOffsetChannels+2],
	)
	info.SampleRate = binary.LittleEndian.Uint32(
		payload[fmtOffsetSampleRate : fmtOffsetSampleRate+4],
	)
	info.BitsPerSample = binary.LittleEndian.Uint16(
		payload[fmtOffsetBitsPerSample : fmtOffsetBitsPerSample+2],
	)
}

// advanceCursor moves past a skipped chunk. RIFF chunks are word-aligned: an
// odd-length payload is followed by one padding byte.
func advanceCursor(dataStart int, chunkSize uint32) int {
	next := dataStart + int(chunkSize)
	if chunkSize%2 == 1 {
		next++
	}

	return next
}

// estimateDataSize approximates the PCM payload size when no "data" chunk was
// found, assuming the remaining bytes after the last chunk header hold audio.
// The result is clamped to zero for buffers shorter than the cursor position.
func estimateDataSize(bufLen, cursor int) uint32 {
	remaining := bufLen - cursor - chunkHeaderSize
	if remaining < 0 {
		remaining = 0
	}

	return uint32(remaining)
}

// computeDuration derives DurationSeconds from the parsed format fields,
// treating a zero byte rate as a format error rather than dividing by zero.
func computeDuration(info *Info) error {
	byteRate := int64(info.SampleRate) *
		int64(info.Channels) *
		int64(info.BitsPerSample) / bitsPerByte
	if byteRate == 0 {
		return fmt.Errorf(
			"%w: rate=%d channels=%d bits=%d",
			ErrDegenerateFormat,
			info.SampleRate, info.Channels, info.BitsPerSample,
		)
	}

	info.DurationSeconds = float64(info.DataByteSize) / float64(byteRate)

	return nil
}
