package scan

import (
	"bytes"
	"path/filepath"
	"strings"
)

// sniffLen is how much of a file is inspected for binary signatures.
const sniffLen = 512

// binaryExtensions lists formats that are never searched as text.
var binaryExtensions = map[string]struct{}{
	// fonts
	".woff": {}, ".woff2": {}, ".ttf": {}, ".otf": {}, ".eot": {},
	// images
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {}, ".webp": {}, ".tiff": {}, ".tif": {},
	// archives
	".zip": {}, ".tar": {}, ".gz": {}, ".bz2": {}, ".xz": {}, ".7z": {}, ".rar": {}, ".jar": {}, ".war": {},
	// executables and objects
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".a": {}, ".o": {}, ".obj": {}, ".bin": {},
	// media
	".mp3": {}, ".mp4": {}, ".avi": {}, ".mov": {}, ".wav": {}, ".flac": {}, ".ogg": {},
	// office documents
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	// databases and bytecode
	".db": {}, ".sqlite": {}, ".sqlite3": {}, ".pyc": {}, ".pyo": {}, ".class": {}, ".pkl": {}, ".pickle": {},
}

var magicNumbers = [][]byte{
	{0x1F, 0x8B},             // gzip
	{0x50, 0x4B, 0x03, 0x04}, // zip
	{0x50, 0x4B, 0x05, 0x06}, // empty zip
	{0x89, 0x50, 0x4E, 0x47}, // png
	{0xFF, 0xD8, 0xFF},       // jpeg
	{0x47, 0x49, 0x46, 0x38}, // gif
	{0x25, 0x50, 0x44, 0x46}, // pdf
	{0x7F, 0x45, 0x4C, 0x46}, // elf
	{0x4D, 0x5A},             // dos/windows executable
	{0xCA, 0xFE, 0xBA, 0xBE}, // mach-o fat binary, java class
	{0x77, 0x4F, 0x46, 0x46}, // woff
	{0x77, 0x4F, 0x46, 0x32}, // woff2
}

// IsBinaryName reports whether the file extension marks a binary format.
func IsBinaryName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	_, ok := binaryExtensions[ext]
	return ok
}

// IsBinaryContent inspects the head of a file. A known signature, any NUL
// byte beyond 1% of the sample, or more than 30% control characters marks
// the content as binary. Bytes >= 0x80 are not counted so UTF-8 text passes.
func IsBinaryContent(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	sample := content[:min(len(content), sniffLen)]

	for _, magic := range magicNumbers {
		if bytes.HasPrefix(sample, magic) {
			return true
		}
	}

	nulls, control := 0, 0
	for _, b := range sample {
		switch {
		case b == 0:
			nulls++
			control++
		case b < 0x20 && b != '\t' && b != '\n' && b != '\r' && b != '\f':
			control++
		}
	}
	return nulls > len(sample)/100 || control > len(sample)*30/100
}
