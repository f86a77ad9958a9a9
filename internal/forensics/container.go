package forensics

import (
	"bytes"
	"encoding/binary"
)

// Lightweight container scanners. These stand in for the out-of-scope
// metadata extractors (full EXIF/codec probing); they pull only the fields
// the heuristic rules reference.

// exifMarker is the APP1 EXIF identifier inside JPEG payloads.
var exifMarker = []byte("Exif\x00\x00")

func hasEXIF(data []byte) bool {
	return bytes.Contains(data, exifMarker)
}

// Tool fingerprints searched for in raw metadata bytes.
var (
	aiTools = []string{
		"Midjourney", "DALL-E", "DALL·E", "Stable Diffusion",
		"Adobe Firefly", "Imagen", "FLUX",
	}
	editTools = []string{
		"Adobe Photoshop", "Adobe Lightroom", "GIMP", "Affinity Photo",
	}
	cameraMakes = []string{
		"Canon", "NIKON", "Nikon", "SONY", "Apple", "samsung", "FUJIFILM",
		"OLYMPUS", "Panasonic", "LEICA", "RICOH", "GoPro",
	}
)

// findFingerprint returns the first candidate string present in the payload.
func findFingerprint(data []byte, candidates []string) string {
	for _, c := range candidates {
		if bytes.Contains(data, []byte(c)) {
			return c
		}
	}
	return ""
}

// mp4Info is what the scanner recovers from an ISO BMFF container.
type mp4Info struct {
	Parsed       bool
	MajorBrand   string
	DurationSecs float64
}

// parseMP4 walks top-level boxes looking for ftyp and moov/mvhd. Bounds are
// checked on every read; a truncated container yields Parsed=false.
func parseMP4(data []byte) mp4Info {
	info := mp4Info{DurationSecs: -1}

	pos := 0
	for pos+8 <= len(data) {
		size := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		boxType := string(data[pos+4 : pos+8])
		header := 8

		if size == 1 {
			if pos+16 > len(data) {
				break
			}
			size64 := binary.BigEndian.Uint64(data[pos+8 : pos+16])
			if size64 > uint64(len(data)-pos) {
				break
			}
			size = int(size64)
			header = 16
		}
		if size < header || pos+size > len(data) {
			break
		}

		body := data[pos+header : pos+size]
		switch boxType {
		case "ftyp":
			if len(body) >= 4 {
				info.MajorBrand = string(body[:4])
				info.Parsed = true
			}
		case "moov":
			if d, ok := parseMVHD(body); ok {
				info.DurationSecs = d
				info.Parsed = true
			}
		}
		pos += size
	}
	return info
}

// parseMVHD finds the mvhd box inside a moov body and reads timescale and
// duration.
func parseMVHD(moov []byte) (float64, bool) {
	pos := 0
	for pos+8 <= len(moov) {
		size := int(binary.BigEndian.Uint32(moov[pos : pos+4]))
		boxType := string(moov[pos+4 : pos+8])
		if size < 8 || pos+size > len(moov) {
			return 0, false
		}
		if boxType == "mvhd" {
			body := moov[pos+8 : pos+size]
			if len(body) < 1 {
				return 0, false
			}
			switch body[0] {
			case 0:
				// version 0: flags(3) ctime(4) mtime(4) timescale(4) duration(4)
				if len(body) < 20 {
					return 0, false
				}
				timescale := binary.BigEndian.Uint32(body[12:16])
				duration := binary.BigEndian.Uint32(body[16:20])
				if timescale == 0 {
					return 0, false
				}
				return float64(duration) / float64(timescale), true
			case 1:
				// version 1: flags(3) ctime(8) mtime(8) timescale(4) duration(8)
				if len(body) < 32 {
					return 0, false
				}
				timescale := binary.BigEndian.Uint32(body[20:24])
				duration := binary.BigEndian.Uint64(body[24:32])
				if timescale == 0 {
					return 0, false
				}
				return float64(duration) / float64(timescale), true
			}
			return 0, false
		}
		pos += size
	}
	return 0, false
}

// wavInfo is what the scanner recovers from a RIFF/WAVE container.
type wavInfo struct {
	Parsed     bool
	SampleRate int
	Channels   int
	Bits       int

	// Samples holds normalized mono samples in [-1,1] for 16-bit PCM data.
	// Nil for compressed or non-16-bit formats.
	Samples []float64
}

// maxWavSamples caps waveform decoding; a couple of million samples is
// enough for the stability heuristics.
const maxWavSamples = 2 << 20

// parseWAV scans RIFF chunks for fmt and data.
func parseWAV(data []byte) wavInfo {
	var info wavInfo
	if len(data) < 12 || !bytes.HasPrefix(data, []byte("RIFF")) || string(data[8:12]) != "WAVE" {
		return info
	}

	var format int
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		if chunkSize < 0 || pos+8+chunkSize > len(data) {
			break
		}
		body := data[pos+8 : pos+8+chunkSize]

		switch chunkID {
		case "fmt ":
			if len(body) >= 16 {
				format = int(binary.LittleEndian.Uint16(body[0:2]))
				info.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
				info.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
				info.Bits = int(binary.LittleEndian.Uint16(body[14:16]))
				info.Parsed = true
			}
		case "data":
			if format == 1 && info.Bits == 16 && info.Channels > 0 {
				info.Samples = decodePCM16(body, info.Channels)
			}
		}

		// Chunks are word-aligned.
		pos += 8 + chunkSize
		if chunkSize%2 == 1 {
			pos++
		}
	}
	return info
}

// decodePCM16 converts interleaved 16-bit PCM to normalized mono samples.
func decodePCM16(body []byte, channels int) []float64 {
	frameSize := 2 * channels
	frames := len(body) / frameSize
	if frames > maxWavSamples {
		frames = maxWavSamples
	}
	samples := make([]float64, 0, frames)
	for i := 0; i < frames; i++ {
		var acc float64
		for c := 0; c < channels; c++ {
			off := i*frameSize + 2*c
			v := int16(binary.LittleEndian.Uint16(body[off : off+2]))
			acc += float64(v)
		}
		samples = append(samples, acc/float64(channels)/32768.0)
	}
	return samples
}
