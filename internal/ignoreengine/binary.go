package ignoreengine

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

// sniffBytes is the amount read from the start of a file for stage-2
// detection, matching the teacher's discovery.BinaryDetectionBytes (which in
// turn matches Git's own 8 KiB heuristic).
const sniffBytes = 8192

// binaryRatioThreshold is the stage-2 fallback: a file is binary if more
// than this fraction of sniffed bytes fall outside printable ASCII plus
// common whitespace. Spec §9 Open Question (ii): "pragmatic, not
// principled" -- kept as specified, not exposed as a tunable.
const binaryRatioThreshold = 0.30

// binaryExtensions is the stage-1 extension table: images, archives,
// audio/video, compiled objects, and common binary documents.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".webp": true, ".tiff": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".xz": true,
	".7z": true, ".rar": true,
	".mp3": true, ".wav": true, ".flac": true, ".ogg": true,
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true,
	".o": true, ".obj": true, ".so": true, ".dylib": true, ".dll": true,
	".exe": true, ".a": true, ".lib": true, ".class": true, ".pyc": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true,
	".ttf": true, ".otf": true, ".woff": true, ".woff2": true,
}

// textExtensions short-circuits stage 1 for common source/text extensions so
// stage 2 never has to sniff them.
var textExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".rs": true, ".java": true, ".rb": true, ".php": true, ".c": true, ".h": true,
	".cpp": true, ".hpp": true, ".cc": true, ".md": true, ".txt": true, ".json": true,
	".yaml": true, ".yml": true, ".toml": true, ".xml": true, ".html": true, ".css": true,
	".sh": true, ".sql": true, ".swift": true, ".kt": true, ".scala": true,
}

// magicPrefixes are stage-2 magic-number signatures checked before the
// printable-ratio fallback.
var magicPrefixes = [][]byte{
	[]byte("\x7fELF"),     // ELF
	[]byte("MZ"),          // PE/DOS
	[]byte("%PDF"),        // PDF
	[]byte("\x89PNG"),     // PNG
	[]byte("\xff\xd8\xff"), // JPEG
	[]byte("GIF8"),        // GIF
	[]byte("PK\x03\x04"),  // ZIP (also xlsx/docx/jar)
	[]byte("\x1f\x8b"),    // gzip
}

// IsBinary implements spec §4.1's two-stage detector. Errors (permission
// denied, vanished file) degrade to "not binary" per spec §4.1's
// error-degradation rule -- callers that need to distinguish a real error
// from a negative result should stat the file themselves first.
func IsBinary(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if textExtensions[ext] {
		return false
	}
	if binaryExtensions[ext] {
		return true
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, sniffBytes)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return false
	}
	buf = buf[:n]
	if len(buf) == 0 {
		return false
	}

	for _, sig := range magicPrefixes {
		if bytes.HasPrefix(buf, sig) {
			return true
		}
	}

	if bytes.IndexByte(buf, 0) != -1 {
		return true
	}

	nonPrintable := 0
	for _, b := range buf {
		if b == '\n' || b == '\r' || b == '\t' {
			continue
		}
		if b < 0x20 || b > 0x7e {
			nonPrintable++
		}
	}
	ratio := float64(nonPrintable) / float64(len(buf))
	return ratio > binaryRatioThreshold
}
