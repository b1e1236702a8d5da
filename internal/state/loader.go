package state

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/armorstand/internal/animation"
	"github.com/Faultbox/armorstand/internal/gltfload"
	"github.com/Faultbox/armorstand/internal/model"
)

// FileLoader loads models from a directory with gltfload and attaches their
// animation sets.
type FileLoader struct {
	Dir        string
	Sets       *AnimationSetLoader
	LoadOption gltfload.Options
}

// Resolve returns the absolute path of a model path relative to Dir.
func (l *FileLoader) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.Dir, filepath.FromSlash(path))
}

func (l *FileLoader) Load(ctx context.Context, path string) (*CacheLoaded, error) {
	full := l.Resolve(path)
	res, err := gltfload.Load(ctx, full, l.LoadOption)
	if err != nil {
		return nil, err
	}
	c := &CacheLoaded{
		Metadata:   res.Metadata,
		Scene:      res.Scene,
		Animations: res.Animations,
	}
	if l.Sets != nil {
		c.AnimationSet = l.Sets.Load(ctx, res.Scene, full)
	}
	return c, nil
}

// AnimationSetLoader builds state animation sets from directories holding
// one file per state, named after the state key (idle.glb, walk.vrm, ...).
type AnimationSetLoader struct {
	// SharedDir applies to every model.
	SharedDir string
	// LoadClips reads the clips of one file. Defaults to gltfload.LoadClips.
	LoadClips func(ctx context.Context, path string) ([]*animation.Clip, error)
	Logger    *zap.Logger
}

// Load merges the shared directory, <stem>.animations and <file>.animations
// next to the model. Later directories win per state.
func (l *AnimationSetLoader) Load(ctx context.Context, scene *model.Scene, modelPath string) animation.Set {
	set := l.loadDir(ctx, scene, l.SharedDir)
	parent := filepath.Dir(modelPath)
	base := filepath.Base(modelPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	for _, name := range []string{stem, base} {
		set = set.Merge(l.loadDir(ctx, scene, filepath.Join(parent, name+".animations")))
	}
	return set
}

func (l *AnimationSetLoader) loadDir(ctx context.Context, scene *model.Scene, dir string) animation.Set {
	set := animation.Set{}
	if dir == "" {
		return set
	}
	log := l.Logger
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("Animation directory unreadable", zap.String("dir", dir), zap.Error(err))
		}
		return set
	}
	load := l.LoadClips
	if load == nil {
		load = gltfload.LoadClips
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		key := animation.StateKey(strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name))))
		path := filepath.Join(dir, name)
		clips, err := load(ctx, path)
		if err != nil {
			log.Warn("Animation load failed", zap.String("path", path), zap.Error(err))
			continue
		}
		if len(clips) == 0 {
			continue
		}
		a, err := animation.Bind(clips[0], scene, animation.BindOptions{Transform: model.TransformAbsolute})
		if err != nil {
			log.Warn("Animation bind failed", zap.String("path", path), zap.Error(err))
			continue
		}
		a.Name = string(key)
		set[key] = a
	}
	return set
}
