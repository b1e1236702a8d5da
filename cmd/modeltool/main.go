// modeltool is a CLI utility for inspecting avatar models.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Faultbox/armorstand/internal/animation"
	"github.com/Faultbox/armorstand/internal/assets"
	"github.com/Faultbox/armorstand/internal/gltfload"
	"github.com/Faultbox/armorstand/internal/logger"
	"github.com/Faultbox/armorstand/internal/model"
	"github.com/Faultbox/armorstand/internal/state"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := logger.Init("warn", ""); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "animations", "anim":
		cmdAnimations(args)
	case "sample":
		cmdSample(args)
	case "list", "ls":
		cmdList(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`modeltool - avatar model inspection utility

Usage:
  modeltool <command> [options]

Commands:
  info <model>                           Show metadata and scene contents
  animations [-shared dir] <model>       List embedded animations and the state set
  sample [-node name] <model> <anim> <t> Apply an animation at time t and print the pose
  list <dir>                             List the models of a directory

Examples:
  modeltool info models/alicia.vrm
  modeltool animations -shared models/animations models/alicia.vrm
  modeltool sample -node hips models/alicia.vrm idle 0.5
  modeltool list models`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func load(path string) *gltfload.Result {
	res, err := gltfload.Load(context.Background(), path, gltfload.Options{Logger: logger.Log})
	if err != nil {
		fail("%v", err)
	}
	return res
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	verify := fs.Bool("verify", false, "Fail when decoded resources end up unused")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: modeltool info <model>")
		os.Exit(1)
	}

	res, err := gltfload.Load(context.Background(), fs.Arg(0), gltfload.Options{
		VerifyResources: *verify,
		Logger:          logger.Log,
	})
	if err != nil {
		fail("%v", err)
	}
	scene := res.Scene
	scene.Increase()
	defer scene.Decrease()

	meta := res.Metadata
	fmt.Printf("Model:      %s\n", fs.Arg(0))
	fmt.Printf("Format:     %s\n", meta.Format)
	if meta.Title != "" {
		fmt.Printf("Title:      %s\n", meta.Title)
	}
	if meta.Author != "" {
		fmt.Printf("Author:     %s\n", meta.Author)
	}
	if meta.Version != "" {
		fmt.Printf("Version:    %s\n", meta.Version)
	}
	if meta.Generator != "" {
		fmt.Printf("Generator:  %s\n", meta.Generator)
	}
	fmt.Println()

	fmt.Printf("Nodes:      %d\n", len(scene.Nodes))
	fmt.Printf("Primitives: %d (%d morphed)\n", len(scene.PrimitiveComponents), len(scene.MorphedPrimitives))
	fmt.Printf("Skins:      %d (%d joints)\n", len(scene.Skins), len(scene.Joints))
	fmt.Printf("Cameras:    %d\n", len(scene.Cameras))
	fmt.Printf("Animations: %d\n", len(res.Animations))

	var tagged []string
	for _, n := range scene.Nodes {
		for _, tag := range n.HumanoidTags {
			tagged = append(tagged, fmt.Sprintf("%s=%s", tag, n.Name))
		}
	}
	if len(tagged) > 0 {
		sort.Strings(tagged)
		fmt.Printf("\nHumanoid bones (%d):\n", len(tagged))
		for _, t := range tagged {
			fmt.Printf("  %s\n", t)
		}
	}

	if len(scene.Expressions) > 0 {
		fmt.Printf("\nExpressions (%d):\n", len(scene.Expressions))
		for _, e := range scene.Expressions {
			tag := ""
			if e.Tag != "" {
				tag = " [" + e.Tag + "]"
			}
			fmt.Printf("  %-24s %d bindings%s\n", e.Name, len(e.Bindings), tag)
		}
	}
}

func cmdAnimations(args []string) {
	fs := flag.NewFlagSet("animations", flag.ExitOnError)
	shared := fs.String("shared", "", "Shared animation directory")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: modeltool animations [-shared dir] <model>")
		os.Exit(1)
	}

	path := fs.Arg(0)
	res := load(path)
	res.Scene.Increase()
	defer res.Scene.Decrease()

	fmt.Printf("Embedded animations (%d):\n", len(res.Animations))
	for _, a := range res.Animations {
		fmt.Printf("  %-24s %7.3fs %4d items\n", a.Name, a.Duration, len(a.Items))
	}

	sets := &state.AnimationSetLoader{SharedDir: *shared, Logger: logger.Log}
	set := sets.Load(context.Background(), res.Scene, path)

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	fmt.Printf("\nState set (%d):\n", len(set))
	for _, k := range keys {
		a := set[animation.StateKey(k)]
		fmt.Printf("  %-24s %7.3fs %4d items\n", k, a.Duration, len(a.Items))
	}

	if _, full := animation.NewFullSet(set); full {
		fmt.Println("\nThe set covers every required state.")
		return
	}
	var missing []string
	for _, k := range animation.RequiredStates {
		if set[k] == nil {
			missing = append(missing, string(k))
		}
	}
	fmt.Printf("\nMissing states: %s\n", strings.Join(missing, ", "))
}

func cmdSample(args []string) {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	node := fs.String("node", "", "Only print this node (name or humanoid tag)")
	fs.Parse(args)

	if fs.NArg() < 3 {
		fmt.Fprintln(os.Stderr, "Usage: modeltool sample [-node name] <model> <anim> <t>")
		os.Exit(1)
	}

	t, err := strconv.ParseFloat(fs.Arg(2), 32)
	if err != nil {
		fail("invalid time %q: %v", fs.Arg(2), err)
	}

	path := fs.Arg(0)
	res := load(path)
	inst := model.NewInstance(res.Scene)
	inst.Increase()
	defer inst.Decrease()

	anim := findAnimation(res, path, fs.Arg(1))
	if anim == nil {
		fail("animation %q not found", fs.Arg(1))
	}
	anim.ApplyLooped(inst, float32(t))
	inst.UpdateRenderData()

	scene := res.Scene
	for _, n := range scene.Nodes {
		if *node != "" && !matchesNode(n, *node) {
			continue
		}
		pos := inst.WorldMatrix(n.Index).Translation()
		fmt.Printf("%-28s %9.4f %9.4f %9.4f\n", n.Name, pos.X, pos.Y, pos.Z)
	}

	if *node == "" {
		for i, c := range scene.MorphedPrimitives {
			for g, group := range c.Primitive.Targets.Groups {
				if w := inst.GroupWeight(i, g); w != 0 {
					fmt.Printf("morph %-22s %9.4f\n", group.Name, w)
				}
			}
		}
	}
}

func findAnimation(res *gltfload.Result, path, name string) *animation.Animation {
	for _, a := range res.Animations {
		if a.Name == name {
			return a
		}
	}
	sets := &state.AnimationSetLoader{
		SharedDir: filepath.Join(filepath.Dir(path), "animations"),
		Logger:    logger.Log,
	}
	return sets.Load(context.Background(), res.Scene, path)[animation.StateKey(name)]
}

func matchesNode(n *model.Node, name string) bool {
	if n.Name == name {
		return true
	}
	for _, tag := range n.HumanoidTags {
		if string(tag) == name {
			return true
		}
	}
	return false
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.Parse(args)

	dir := "."
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}

	entries, err := assets.NewCatalog(dir, "animations").Scan()
	if err != nil {
		fail("%v", err)
	}
	for _, e := range entries {
		fmt.Printf("%-5s %10d  %s\n", e.Format, e.Size, e.Path)
	}
	fmt.Fprintf(os.Stderr, "\n(%d models)\n", len(entries))
}
