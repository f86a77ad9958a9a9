// Package classify assigns a content type to a submitted artifact by
// inspecting binary signatures or the URL scheme. Caller-declared MIME types
// are untrusted and never consulted for typing.
package classify

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/verilayer/lavs/internal/domain"
)

// signature is one entry in the static magic-byte table the classifier owns.
type signature struct {
	offset int
	magic  []byte
	ctype  domain.ContentType
	name   string
}

// Signatures checked in order; first match wins. RIFF containers need the
// format tag at offset 8 to disambiguate WAV/AVI/WebP, so those entries are
// resolved by a second probe below.
var signatures = []signature{
	{0, []byte{0xFF, 0xD8, 0xFF}, domain.ContentImage, "jpeg"},
	{0, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, domain.ContentImage, "png"},
	{0, []byte("GIF87a"), domain.ContentImage, "gif"},
	{0, []byte("GIF89a"), domain.ContentImage, "gif"},
	{0, []byte("BM"), domain.ContentImage, "bmp"},
	{4, []byte("ftyp"), domain.ContentVideo, "mp4"},
	{0, []byte{0x1A, 0x45, 0xDF, 0xA3}, domain.ContentVideo, "matroska"},
	{0, []byte("ID3"), domain.ContentAudio, "mp3"},
	{0, []byte{0xFF, 0xFB}, domain.ContentAudio, "mp3"},
	{0, []byte{0xFF, 0xF3}, domain.ContentAudio, "mp3"},
	{0, []byte{0xFF, 0xF2}, domain.ContentAudio, "mp3"},
	{0, []byte("fLaC"), domain.ContentAudio, "flac"},
	{0, []byte("OggS"), domain.ContentAudio, "ogg"},
}

// riffFormats maps the RIFF format tag at offset 8 to a content type.
var riffFormats = map[string]struct {
	ctype domain.ContentType
	name  string
}{
	"WAVE": {domain.ContentAudio, "wav"},
	"AVI ": {domain.ContentVideo, "avi"},
	"WEBP": {domain.ContentImage, "webp"},
}

// Classify inspects an artifact and returns its content type plus a hint
// explaining the decision. It is a pure function over the input bytes and
// URL string: unmatched input resolves to Unknown, never to an error, so
// downstream stages always receive a defined tag.
func Classify(art *domain.Artifact) (domain.ContentType, string) {
	if art.URL != "" {
		return classifyURL(art.URL)
	}
	return classifyBytes(art.Bytes, art.DeclaredMIME)
}

func classifyURL(raw string) (domain.ContentType, string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return domain.ContentUnknown, "url has no recognizable http(s) scheme and host"
	}
	return domain.ContentURL, fmt.Sprintf("%s url, host %s", u.Scheme, u.Host)
}

func classifyBytes(data []byte, declaredMIME string) (domain.ContentType, string) {
	if len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) {
		tag := string(data[8:12])
		if f, ok := riffFormats[tag]; ok {
			return f.ctype, fmt.Sprintf("riff container, %s signature", f.name)
		}
		return domain.ContentUnknown, fmt.Sprintf("riff container with unrecognized format tag %q", tag)
	}

	for _, sig := range signatures {
		end := sig.offset + len(sig.magic)
		if len(data) >= end && bytes.Equal(data[sig.offset:end], sig.magic) {
			return sig.ctype, fmt.Sprintf("%s signature at offset %d", sig.name, sig.offset)
		}
	}

	hint := "no known binary signature"
	if declaredMIME != "" {
		// The declared type is recorded but deliberately not believed.
		hint = fmt.Sprintf("no known binary signature; declared mime %q ignored", declaredMIME)
	}
	return domain.ContentUnknown, hint
}

// DetectedMIME returns a best-effort MIME string for the detected type, used
// by the metadata layer to flag declared-vs-detected mismatches.
func DetectedMIME(data []byte) string {
	ct, hint := classifyBytes(data, "")
	switch ct {
	case domain.ContentImage, domain.ContentVideo, domain.ContentAudio:
		return string(ct) + "/" + formatFromHint(hint)
	default:
		return ""
	}
}

func formatFromHint(hint string) string {
	// Hints are of the form "<name> signature at offset N" or
	// "riff container, <name> signature".
	var name string
	if _, err := fmt.Sscanf(hint, "riff container, %s", &name); err == nil {
		return name
	}
	if _, err := fmt.Sscanf(hint, "%s signature", &name); err == nil {
		return name
	}
	return "unknown"
}
