package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sqweek/dialog"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Faultbox/armorstand/internal/animation"
	"github.com/Faultbox/armorstand/internal/assets"
	"github.com/Faultbox/armorstand/internal/config"
	"github.com/Faultbox/armorstand/internal/engine/camera"
	"github.com/Faultbox/armorstand/internal/engine/input"
	"github.com/Faultbox/armorstand/internal/engine/renderer"
	"github.com/Faultbox/armorstand/internal/engine/window"
	"github.com/Faultbox/armorstand/internal/gltfload"
	"github.com/Faultbox/armorstand/internal/logger"
	"github.com/Faultbox/armorstand/internal/model"
	"github.com/Faultbox/armorstand/internal/state"
	"github.com/Faultbox/armorstand/pkg/math"
)

// cleanupInterval is how often expired instances are collected.
const cleanupInterval = time.Second

// stateKeys are selected with the number keys.
var stateKeys = []animation.StateKey{
	animation.StateIdle, animation.StateWalk, animation.StateRun,
	animation.StateSneak, animation.StateSwim, animation.StateFly,
	animation.StateRide, animation.StateSleep, animation.StateJump,
}

// App is the viewer: one window showing the selected model, optionally twice
// to exercise two instances sharing one scene.
type App struct {
	cfg *config.Config
	log *zap.Logger

	win      *window.Window
	input    *input.Input
	renderer *renderer.Renderer
	camera   *camera.OrbitCamera

	catalog *assets.Catalog
	paths   *viewerPaths
	manager *state.Manager
	watcher *state.Watcher

	ctx    context.Context
	cancel context.CancelFunc

	models    []assets.Entry
	picked    chan string
	state     animation.StateKey
	clock     float32
	paused    bool
	quit      bool
	shown     *model.Instance
	lastSweep time.Time
}

// NewApp opens the window and wires the model pipeline.
func NewApp(cfg *config.Config) (*App, error) {
	log := logger.Named("viewer")

	win, err := window.New(window.Config{
		Title:   cfg.Viewer.Title,
		Width:   cfg.Viewer.Width,
		Height:  cfg.Viewer.Height,
		VSync:   cfg.Viewer.VSync,
		Samples: 4,
	}, logger.Named("window"))
	if err != nil {
		return nil, err
	}

	r, err := renderer.New(logger.Named("renderer"))
	if err != nil {
		win.Close()
		return nil, err
	}
	r.Resize(win.Size())

	animDir := cfg.Models.SharedAnimations()
	paths := &viewerPaths{}
	loader := &state.FileLoader{
		Dir: cfg.Models.Dir,
		Sets: &state.AnimationSetLoader{
			SharedDir: animDir,
			Logger:    logger.Named("animations"),
		},
		LoadOption: gltfload.Options{
			VerifyResources: cfg.Models.VerifyResources,
			Logger:          logger.Named("gltf"),
		},
	}
	manager := state.New(state.Options{
		Paths:  paths,
		SelfID: func() (state.EntityID, bool) { return selfEntity, true },
		Loader: loader,
		Policy: state.Policy{
			TTL:          cfg.Instances.TTL,
			KeepSelfWarm: cfg.Instances.KeepSelfWarm,
			ShowSelf:     cfg.Instances.ShowSelf,
		},
		Logger: logger.Named("state"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:       cfg,
		log:       log,
		win:       win,
		input:     input.New(),
		renderer:  r,
		camera:    camera.NewOrbitCamera(),
		catalog:   assets.NewCatalog(cfg.Models.Dir, filepath.Base(animDir)),
		paths:     paths,
		manager:   manager,
		ctx:       ctx,
		cancel:    cancel,
		state:     animation.StateIdle,
		lastSweep: time.Now(),
		picked:    make(chan string, 1),
	}

	if cfg.Models.Watch {
		w, err := state.NewWatcher(cfg.Models.Dir, animDir, logger.Named("watcher"))
		if err != nil {
			log.Warn("hot reload disabled", zap.Error(err))
		} else {
			a.watcher = w
		}
	}

	a.rescan()
	switch {
	case cfg.Models.Default != "":
		a.selectModel(cfg.Models.Default)
	case len(a.models) > 0:
		a.selectModel(a.models[0].Path)
	default:
		log.Warn("no models found", zap.String("dir", cfg.Models.Dir))
	}
	return a, nil
}

// Close releases every resource in reverse creation order.
func (a *App) Close() {
	a.cancel()
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			a.log.Warn("watcher close failed", zap.Error(err))
		}
	}
	a.manager.Close()
	a.renderer.Close()
	a.win.Close()
}

// Run drives the render loop until the window closes.
func (a *App) Run() error {
	last := time.Now()
	for {
		if a.input.Update() {
			return nil
		}
		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now
		if !a.paused {
			a.clock += dt
		}

		a.handleEvents()
		if a.quit {
			return nil
		}
		if a.watcher != nil {
			if n := a.watcher.Apply(a.manager); n > 0 {
				a.log.Info("models changed on disk", zap.Int("invalidations", n))
				a.rescan()
				a.preload(a.paths.Current())
			}
		}

		a.renderer.Begin()
		if err := a.drawEntities(now); err != nil {
			return err
		}
		a.win.SwapBuffers()

		if now.Sub(a.lastSweep) >= cleanupInterval {
			a.lastSweep = now
			a.manager.Cleanup(now.UnixNano())
			a.renderer.Retain(func(owner string) bool {
				_, ok := a.manager.Item(state.EntityID(owner))
				return ok
			})
		}
	}
}

func (a *App) drawEntities(now time.Time) error {
	viewProj := a.camera.Projection(a.win.Aspect()).Mul(a.camera.ViewMatrix())
	stamp := now.UnixNano()

	entities := []struct {
		id     state.EntityID
		offset float32
	}{
		{selfEntity, 0},
		{mirrorEntity, 1.2},
	}
	for _, e := range entities {
		path, ok := a.paths.Path(e.id)
		if !ok {
			continue
		}
		// Loading happens in the background; only bind an item once the
		// cache entry exists.
		_, cached := a.manager.Cache(path)
		item, ok := a.manager.Get(e.id, &stamp, cached).(*state.ModelItem)
		if !ok {
			continue
		}

		item.Controller.Apply(item.Instance, state.Frame{State: a.state, Time: a.clock})
		item.Instance.UpdateRenderData()

		if e.id == selfEntity && item.Instance != a.shown {
			a.shown = item.Instance
			a.onShown(item)
		}

		mvp := viewProj.Mul(math.Translate(e.offset, 0, 0))
		if err := a.renderer.Draw(string(e.id), item.Instance, mvp); err != nil {
			return fmt.Errorf("draw %s: %w", e.id, err)
		}
	}
	return nil
}

func (a *App) onShown(item *state.ModelItem) {
	if lo, hi, ok := renderer.Bounds(item.Instance); ok {
		a.camera.FitToBounds(lo, hi)
	}
	title := item.Metadata.Title
	if title == "" {
		title = item.Path()
	}
	a.win.SetTitle(fmt.Sprintf("%s - %s [%s]", a.cfg.Viewer.Title, title, item.Controller))
}

func (a *App) handleEvents() {
	select {
	case path := <-a.picked:
		a.selectModel(path)
	default:
	}
	for _, e := range a.input.Events() {
		switch e.Type {
		case input.EventWindowResize:
			a.renderer.Resize(a.win.Size())
		case input.EventMouseDrag:
			if e.Button == sdl.BUTTON_LEFT {
				a.camera.HandleDrag(e.DeltaX, e.DeltaY)
			} else {
				a.camera.HandlePan(e.DeltaX, e.DeltaY)
			}
		case input.EventMouseWheel:
			a.camera.HandleZoom(e.DeltaY)
		case input.EventFileDrop:
			a.selectModel(e.Path)
		case input.EventKeyDown:
			a.handleKey(e.Key)
		}
	}
}

func (a *App) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_N:
		a.cycleModel(1)
	case sdl.SCANCODE_P:
		a.cycleModel(-1)
	case sdl.SCANCODE_R:
		current := a.paths.Current()
		a.manager.Invalidate(func(path string) bool { return path == current })
		a.catalog.Invalidate(current)
		a.preload(current)
	case sdl.SCANCODE_O:
		a.openFileDialog()
	case sdl.SCANCODE_M:
		a.log.Info("mirror toggled", zap.Bool("enabled", a.paths.ToggleMirror()))
	case sdl.SCANCODE_F:
		if a.shown != nil {
			if lo, hi, ok := renderer.Bounds(a.shown); ok {
				a.camera.FitToBounds(lo, hi)
			}
		}
	case sdl.SCANCODE_ESCAPE:
		a.quit = true
	case sdl.SCANCODE_SPACE:
		a.paused = !a.paused
	case sdl.SCANCODE_D:
		if logger.Level() == zapcore.DebugLevel {
			logger.SetLevel(zapcore.InfoLevel)
		} else {
			logger.SetLevel(zapcore.DebugLevel)
		}
	default:
		if key >= sdl.SCANCODE_1 && key <= sdl.SCANCODE_9 {
			if i := int(key - sdl.SCANCODE_1); i < len(stateKeys) {
				a.state = stateKeys[i]
				a.log.Info("state selected", zap.String("state", string(a.state)))
			}
		}
	}
}

// openFileDialog asks for a model file without blocking the render loop.
// The choice is picked up by handleEvents on the render goroutine.
func (a *App) openFileDialog() {
	go func() {
		filename, err := dialog.File().
			Filter("glTF models", "gltf", "glb", "vrm").
			Filter("All Files", "*").
			Title("Open model").
			SetStartDir(a.catalog.Dir()).
			Load()
		if err != nil {
			if err != dialog.ErrCancelled {
				a.log.Warn("file dialog failed", zap.Error(err))
			}
			return
		}
		select {
		case a.picked <- filename:
		default:
		}
	}()
}

func (a *App) rescan() {
	models, err := a.catalog.Scan()
	if err != nil {
		a.log.Warn("model scan failed", zap.String("dir", a.catalog.Dir()), zap.Error(err))
		return
	}
	a.models = models
}

func (a *App) cycleModel(step int) {
	if len(a.models) == 0 {
		return
	}
	current := a.paths.Current()
	next := 0
	for i, m := range a.models {
		if m.Path == current {
			next = (i + step + len(a.models)) % len(a.models)
			break
		}
	}
	a.selectModel(a.models[next].Path)
}

func (a *App) selectModel(path string) {
	a.paths.Set(path)
	a.clock = 0
	a.log.Info("model selected", zap.String("path", path))
	a.preload(path)
}

func (a *App) preload(path string) {
	if path == "" {
		return
	}
	go func() {
		if c, ok := a.manager.Preload(a.ctx, path).(state.CacheFailed); ok {
			a.log.Warn("model unavailable", zap.String("path", path), zap.Error(c.Err))
		}
	}()
}
