package toolchain

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileKind is the result of ClassifyFile.
type FileKind int

const (
	Other FileKind = iota
	Bitcode
	NativeObject
	NativeArchive
	FlagToken
)

func (k FileKind) String() string {
	switch k {
	case Bitcode:
		return "bitcode"
	case NativeObject:
		return "native-object"
	case NativeArchive:
		return "native-archive"
	case FlagToken:
		return "flag"
	}
	return "other"
}

// IsNative reports whether the kind is native code.
func (k FileKind) IsNative() bool {
	return k == NativeObject || k == NativeArchive
}

// Classifier is the signature of ClassifyFile, for injection.
type Classifier func(path string) FileKind

var (
	bitcodeMagic        = []byte{'B', 'C', 0xc0, 0xde}
	bitcodeWrapperMagic = []byte{0xde, 0xc0, 0x17, 0x0b}
	pexeMagic           = []byte("PEXE")
	elfMagic            = []byte("\x7fELF")
	archiveMagic        = []byte("!<arch>\n")
)

const arHeaderSize = 60

// ClassifyFile sniffs a path's leading bytes. Inputs that begin with "-"
// are flag tokens (for example -lfoo given positionally). Files that cannot
// be read fall back to their extension, which keeps --dry-run usable on
// inputs that do not exist yet.
func ClassifyFile(path string) FileKind {
	if strings.HasPrefix(path, "-") {
		return FlagToken
	}
	f, err := os.Open(path)
	if err != nil {
		return classifyByExt(path)
	}
	defer f.Close()

	head := make([]byte, len(archiveMagic))
	n, _ := io.ReadFull(f, head)
	head = head[:n]
	switch {
	case isBitcode(head):
		return Bitcode
	case bytes.HasPrefix(head, elfMagic):
		return NativeObject
	case bytes.Equal(head, archiveMagic):
		return classifyArchive(f)
	}
	return Other
}

func isBitcode(head []byte) bool {
	return bytes.HasPrefix(head, bitcodeMagic) ||
		bytes.HasPrefix(head, bitcodeWrapperMagic) ||
		bytes.HasPrefix(head, pexeMagic)
}

// classifyArchive looks at the first real member past the symbol tables:
// an archive of bitcode is a bitcode input.
func classifyArchive(f io.ReadSeeker) FileKind {
	for range 4 {
		var hdr [arHeaderSize]byte
		if _, err := io.ReadFull(f, hdr[:]); err != nil {
			return NativeArchive
		}
		name := strings.TrimSpace(string(hdr[0:16]))
		size, err := strconv.ParseInt(strings.TrimSpace(string(hdr[48:58])), 10, 64)
		if err != nil {
			return NativeArchive
		}
		if name == "/" || name == "//" || strings.HasPrefix(name, "__.SYMDEF") {
			if _, err := f.Seek(size+size%2, io.SeekCurrent); err != nil {
				return NativeArchive
			}
			continue
		}
		var magic [4]byte
		if _, err := io.ReadFull(f, magic[:]); err != nil {
			return NativeArchive
		}
		if isBitcode(magic[:]) {
			return Bitcode
		}
		return NativeArchive
	}
	return NativeArchive
}

func classifyByExt(path string) FileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bc", ".pexe", ".ll", ".bca":
		return Bitcode
	case ".o", ".obj", ".nexe", ".so":
		return NativeObject
	case ".a":
		return NativeArchive
	}
	return Other
}

// NormalizePath canonicalizes a path-valued argument. Flag tokens pass
// through unchanged.
func NormalizePath(path string) string {
	if path == "" || strings.HasPrefix(path, "-") {
		return path
	}
	return filepath.ToSlash(filepath.Clean(path))
}
