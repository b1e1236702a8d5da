package gltfload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

// ErrUnsupportedFormat is returned for files that are not glTF containers.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// Format is a detected model container format.
type Format int

const (
	FormatUnknown Format = iota
	FormatGLTF
	FormatGLB
	FormatVRM
)

func (f Format) String() string {
	switch f {
	case FormatGLTF:
		return "gltf"
	case FormatGLB:
		return "glb"
	case FormatVRM:
		return "vrm"
	default:
		return "unknown"
	}
}

var (
	typeGLB  = filetype.NewType("glb", "model/gltf-binary")
	typeGLTF = filetype.NewType("gltf", "model/gltf+json")
)

func init() {
	filetype.AddMatcher(typeGLB, matchGLB)
	filetype.AddMatcher(typeGLTF, matchGLTF)
}

func matchGLB(buf []byte) bool {
	return len(buf) >= 12 && bytes.Equal(buf[:4], []byte("glTF"))
}

func matchGLTF(buf []byte) bool {
	trimmed := bytes.TrimLeft(buf, " \t\r\n\xef\xbb\xbf")
	return len(trimmed) > 0 && trimmed[0] == '{' && bytes.Contains(buf, []byte(`"asset"`))
}

// headerSize is enough for the GLB header and the start of a JSON document.
const headerSize = 512

// Probe detects the container format of the file at path.
func Probe(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	head := make([]byte, headerSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, fmt.Errorf("read header: %w", err)
	}
	return ProbeBytes(head[:n], filepath.Ext(path))
}

// ProbeBytes detects the format from the file header and extension.
func ProbeBytes(head []byte, ext string) (Format, error) {
	kind, _ := filetype.Match(head)
	ext = strings.ToLower(ext)
	switch {
	case kind == typeGLB && ext == ".vrm":
		return FormatVRM, nil
	case kind == typeGLB:
		return FormatGLB, nil
	case kind == typeGLTF:
		return FormatGLTF, nil
	// A JSON document whose asset block lies beyond the header.
	case kind == types.Unknown && ext == ".gltf" && bytes.HasPrefix(bytes.TrimSpace(head), []byte("{")):
		return FormatGLTF, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind.Extension)
	}
}
