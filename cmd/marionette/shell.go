package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ivlev/marionette/internal/document"
	"github.com/ivlev/marionette/internal/editor"
	"github.com/ivlev/marionette/internal/renderer"
	"github.com/ivlev/marionette/internal/timeline"
)

// Shell is the interactive editor
type Shell struct {
	ctx context.Context
	ed  *editor.Editor
	app *app
}

// multiRenderer fans state out to several renderers
type multiRenderer []editor.Renderer

func (m multiRenderer) Render(s editor.State) {
	for _, r := range m {
		r.Render(s)
	}
}

func runEdit(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	pngPtr := fs.String("png", "", "Keep a PNG of the timeline strip up to date at this path")
	quietPtr := fs.Bool("quiet", false, "Do not print the status line on every change")
	fs.Parse(args)

	var renderers multiRenderer
	if !*quietPtr {
		renderers = append(renderers, renderer.NewText(os.Stdout))
	}
	if *pngPtr != "" {
		tl := renderer.NewTimeline(*pngPtr, 1000, 60)
		tl.Log = a.log.Logger
		renderers = append(renderers, tl)
	}

	ed, err := a.newEditor(ctx, editor.WithRenderer(renderers))
	if err != nil {
		return err
	}
	sh := &Shell{ctx: ctx, ed: ed, app: a}
	sh.Run()

	if ed.Playing() {
		if err := ed.StopPlayback(context.Background()); err != nil {
			fmt.Printf("[!] Could not stop playback: %v\n", err)
		}
	}
	return nil
}

func (sh *Shell) completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("next"),
		readline.PcItem("prev"),
		readline.PcItem("seek"),
		readline.PcItem("key"),
		readline.PcItem("rm"),
		readline.PcItem("range"),
		readline.PcItem("end"),
		readline.PcItem("copy"),
		readline.PcItem("cut"),
		readline.PcItem("paste"),
		readline.PcItem("undo"),
		readline.PcItem("redo"),
		readline.PcItem("config"),
		readline.PcItem("import"),
		readline.PcItem("export",
			readline.PcItem("-device"),
		),
		readline.PcItem("play"),
		readline.PcItem("stop"),
		readline.PcItem("enable",
			readline.PcItem("on"),
			readline.PcItem("off"),
		),
		readline.PcItem("state"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

func (sh *Shell) printHelp() {
	fmt.Printf("\nMarionette timeline editor\n")
	fmt.Printf("  next [n] / prev [n]     Move the playhead\n")
	fmt.Printf("  seek <frame>            Jump to a frame\n")
	fmt.Printf("  key <motor=value> ...   Add or update the keyframe at the playhead\n")
	fmt.Printf("  rm                      Remove selected keyframes\n")
	fmt.Printf("  range / end             Start / finish a range selection\n")
	fmt.Printf("  copy / cut / paste      Clipboard\n")
	fmt.Printf("  undo / redo             History\n")
	fmt.Printf("  config <frames> <fps>   Change the frame axis\n")
	fmt.Printf("  import <file>           Load an animation file\n")
	fmt.Printf("  export [-device] [file] Write the animation to a file\n")
	fmt.Printf("  play / stop             Playback on the device\n")
	fmt.Printf("  enable [on|off]         Show or switch the device outputs\n")
	fmt.Printf("  state                   Show the current state\n")
	fmt.Printf("  exit                    Leave the editor\n\n")
}

func (sh *Shell) Run() {
	sh.printHelp()
	fmt.Println(renderer.FormatState(sh.ed.State()))

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Printf("Warning: Could not get home directory: %v\n", err)
		homeDir = "."
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "marionette> ",
		HistoryFile:  filepath.Join(homeDir, ".marionette_history"),
		AutoComplete: sh.completer(),
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		return
	}
	defer rl.Close()

	for {
		input, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				fmt.Println("\nExiting editor...")
			}
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !sh.handleCommand(input) {
			break
		}
	}
}

// handleCommand runs one line. It returns false to leave the shell.
func (sh *Shell) handleCommand(input string) bool {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "next", "prev":
		n := 1
		if len(args) > 0 {
			if n, err = strconv.Atoi(args[0]); err != nil {
				break
			}
		}
		if cmd == "prev" {
			n = -n
		}
		sh.ed.AdvanceFrame(n)
	case "seek":
		var frame int
		if frame, err = intArg(args, 0); err == nil {
			err = sh.ed.Seek(frame)
		}
	case "key":
		err = sh.addKeyframe(args)
	case "rm":
		fmt.Printf("[*] Removed %d keyframes\n", sh.ed.RemoveSelected(sh.ctx))
	case "range":
		sh.ed.BeginRange()
	case "end":
		sh.ed.EndRange()
	case "copy":
		var n int
		if n, err = sh.ed.Copy(sh.ctx); err == nil {
			fmt.Printf("[*] Copied %d keyframes\n", n)
		}
	case "cut":
		var n int
		if n, err = sh.ed.Cut(sh.ctx); err == nil {
			fmt.Printf("[*] Cut %d keyframes\n", n)
		}
	case "paste":
		var n int
		if n, err = sh.ed.Paste(sh.ctx); err == nil {
			fmt.Printf("[*] Pasted %d keyframes\n", n)
		}
	case "undo":
		if !sh.ed.Undo(sh.ctx) {
			fmt.Println("[*] Nothing to undo")
		}
	case "redo":
		if !sh.ed.Redo(sh.ctx) {
			fmt.Println("[*] Nothing to redo")
		}
	case "config":
		err = sh.applyConfig(args)
	case "import":
		err = sh.importFile(args)
	case "export":
		err = sh.exportFile(args)
	case "play":
		err = sh.ed.StartPlayback(sh.ctx)
	case "stop":
		err = sh.ed.StopPlayback(sh.ctx)
	case "enable":
		err = sh.enableOutputs(args)
	case "state":
		fmt.Println(renderer.FormatState(sh.ed.State()))
	case "help":
		sh.printHelp()
	case "exit", "quit":
		return false
	default:
		fmt.Printf("Unknown command: %s (type 'help')\n", cmd)
	}

	if err != nil {
		fmt.Printf("[!] %v\n", err)
	}
	return true
}

func (sh *Shell) addKeyframe(args []string) error {
	raw := make(map[string]string, len(args))
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("expected motor=value, got %q", a)
		}
		raw[name] = value
	}
	pose, err := timeline.PoseFromInputs(raw)
	if err != nil {
		return err
	}
	// motors not given keep their interpolated value
	merged := sh.ed.State().Pose.Clone()
	if merged == nil {
		merged = timeline.Pose{}
	}
	for name, v := range pose {
		merged[name] = v
	}
	return sh.ed.AddOrUpdateKeyframe(sh.ctx, merged)
}

func (sh *Shell) applyConfig(args []string) error {
	frames, err := intArg(args, 0)
	if err != nil {
		return err
	}
	fps, err := intArg(args, 1)
	if err != nil {
		return err
	}
	return sh.ed.ApplyConfig(sh.ctx, timeline.Config{TotalFrames: frames, FPS: fps})
}

func (sh *Shell) importFile(args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	path, err := resolveInput(path)
	if err != nil {
		return err
	}
	doc, err := document.ReadDocument(path)
	if err != nil {
		return err
	}
	return sh.ed.Import(sh.ctx, doc)
}

func (sh *Shell) exportFile(args []string) error {
	withDevice := false
	path := ""
	for _, a := range args {
		if a == "-device" {
			withDevice = true
			continue
		}
		path = a
	}
	if path == "" {
		path = document.GenerateExportPath(animationsDir, ".json")
	}
	if err := document.WriteDocument(sh.ed.Export(sh.ctx, withDevice), path); err != nil {
		return err
	}
	fmt.Printf("[+++] Exported to %s\n", path)
	return nil
}

// enableOutputs reports or switches whether the device drives its outputs
func (sh *Shell) enableOutputs(args []string) error {
	if sh.app == nil || sh.app.device == nil {
		return errors.New("no device configured")
	}
	dev := sh.app.device
	if len(args) > 0 {
		switch args[0] {
		case "on":
			if err := dev.SetEnabled(sh.ctx, true); err != nil {
				return err
			}
		case "off":
			if err := dev.SetEnabled(sh.ctx, false); err != nil {
				return err
			}
		default:
			return fmt.Errorf("expected on or off, got %q", args[0])
		}
	}
	enabled, err := dev.Enabled(sh.ctx)
	if err != nil {
		return err
	}
	fmt.Printf("[*] Device outputs enabled: %v\n", enabled)
	return nil
}

func intArg(args []string, i int) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i+1)
	}
	return strconv.Atoi(args[i])
}
