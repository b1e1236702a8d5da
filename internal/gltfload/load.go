// Package gltfload reads glTF 2.0 files (.gltf, .glb, .vrm) into model scenes
// and animation clips.
package gltfload

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/armorstand/internal/animation"
	"github.com/Faultbox/armorstand/internal/model"
	"github.com/Faultbox/armorstand/internal/model/load"
)

// Options configures Load.
type Options struct {
	// VerifyResources fails the load when a decoded resource ends up unused.
	VerifyResources bool
	Logger          *zap.Logger
}

// Metadata describes the loaded file.
type Metadata struct {
	Title     string
	Author    string
	Version   string
	Generator string
	Format    Format
}

// Result is a loaded model. The scene starts unreferenced.
type Result struct {
	Metadata   Metadata
	Scene      *model.Scene
	Clips      []*animation.Clip
	Animations []*animation.Animation
}

// Load reads the model at path. Buffers and textures are decoded
// concurrently; the first failure cancels the rest.
func Load(ctx context.Context, path string, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	format, err := Probe(path)
	if err != nil {
		return nil, err
	}
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	res, err := fromDocument(ctx, doc, filepath.Dir(path), filepath.Base(path), opts.VerifyResources, log)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	res.Metadata.Format = format

	log.Info("Model loaded",
		zap.String("path", path),
		zap.String("format", format.String()),
		zap.Int("nodes", len(res.Scene.Nodes)),
		zap.Int("primitives", len(res.Scene.PrimitiveComponents)),
		zap.Int("animations", len(res.Animations)))
	return res, nil
}

func fromDocument(ctx context.Context, doc *gltf.Document, dir, file string, verify bool, log *zap.Logger) (*Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	b := newBuilder(gctx, g, doc, dir, file, log)
	info, err := b.build()
	if err != nil {
		_ = g.Wait()
		return nil, err
	}

	scene, err := load.Reconstruct(gctx, info, load.Options{VerifyResources: verify, Logger: log})
	if werr := g.Wait(); werr != nil {
		if scene != nil {
			release(scene)
		}
		return nil, werr
	}
	if err != nil {
		return nil, err
	}

	clips, err := buildClips(doc, b.tags)
	if err != nil {
		release(scene)
		return nil, err
	}
	animations, err := bindClips(clips, scene)
	if err != nil {
		release(scene)
		return nil, err
	}

	return &Result{
		Metadata:   metadata(doc),
		Scene:      scene,
		Clips:      clips,
		Animations: animations,
	}, nil
}

// release closes an unreferenced scene.
func release(scene *model.Scene) {
	scene.Increase()
	scene.Decrease()
}

func metadata(doc *gltf.Document) Metadata {
	m := Metadata{Generator: doc.Asset.Generator}
	var v1 vrm1Extension
	var v0 vrm0Extension
	switch {
	case extension(doc, "VRMC_vrm", &v1):
		m.Title = v1.Meta.Name
		m.Author = strings.Join(v1.Meta.Authors, ", ")
		m.Version = v1.Meta.Version
	case extension(doc, "VRM", &v0):
		m.Title = v0.Meta.Title
		m.Author = v0.Meta.Author
		m.Version = v0.Meta.Version
	}
	return m
}
