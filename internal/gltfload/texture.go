package gltfload

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/Faultbox/armorstand/internal/model"
)

var errNoImageSource = errors.New("image has neither buffer view nor uri")

// imageBytes returns the encoded bytes of image i. External URIs resolve
// relative to dir.
func imageBytes(doc *gltf.Document, dir string, i int) ([]byte, error) {
	if i < 0 || i >= len(doc.Images) {
		return nil, fmt.Errorf("image %d out of range", i)
	}
	img := doc.Images[i]
	if img.BufferView != nil {
		v := int(*img.BufferView)
		if v >= len(doc.BufferViews) {
			return nil, fmt.Errorf("image %d: buffer view %d out of range", i, v)
		}
		bv := doc.BufferViews[v]
		if int(bv.Buffer) >= len(doc.Buffers) {
			return nil, fmt.Errorf("image %d: buffer %d out of range", i, bv.Buffer)
		}
		data := doc.Buffers[bv.Buffer].Data
		end := int(bv.ByteOffset + bv.ByteLength)
		if end > len(data) {
			return nil, fmt.Errorf("image %d: buffer view exceeds buffer", i)
		}
		return data[bv.ByteOffset:end], nil
	}
	if img.URI == "" {
		return nil, errNoImageSource
	}
	if strings.HasPrefix(img.URI, "data:") {
		return decodeDataURI(img.URI)
	}
	name, err := url.PathUnescape(img.URI)
	if err != nil {
		name = img.URI
	}
	return os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
}

// decodeDataURI decodes data:[<mime>][;base64],<payload>.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri")
	}
	if strings.HasSuffix(header, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// decodeTexture decodes png, jpeg or webp data into an RGBA8 texture.
func decodeTexture(name string, data []byte) (*model.Texture, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return model.NewTexture(name, b.Dx(), b.Dy(), rgba.Pix), nil
}

// loadTexture decodes glTF texture i. Textures without a usable source
// resolve to the white texture.
func loadTexture(doc *gltf.Document, dir string, i int) (*model.Texture, error) {
	tex := doc.Textures[i]
	src, ok := indexOf(tex.Source)
	if !ok {
		return model.WhiteTexture(), nil
	}
	data, err := imageBytes(doc, dir, src)
	if errors.Is(err, errNoImageSource) {
		return model.WhiteTexture(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("texture %d: %w", i, err)
	}
	name := tex.Name
	if name == "" && src < len(doc.Images) {
		name = doc.Images[src].Name
	}
	t, err := decodeTexture(name, data)
	if err != nil {
		return nil, fmt.Errorf("texture %d: %w", i, err)
	}
	return t, nil
}
