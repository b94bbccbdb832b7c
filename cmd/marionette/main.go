package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ivlev/marionette/internal/config"
	"github.com/ivlev/marionette/internal/device"
	"github.com/ivlev/marionette/internal/document"
	"github.com/ivlev/marionette/internal/editor"
	"github.com/ivlev/marionette/internal/logs"
	"github.com/ivlev/marionette/internal/renderer"
	"github.com/ivlev/marionette/internal/storage"
	"github.com/ivlev/marionette/internal/timeline"
)

const animationsDir = "animations"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: marionette [-config file] [-log-level level] <command> [flags]

Commands:
  edit      interactive timeline editor
  device    run the device simulator
  export    write the current animation to a file
  import    load an animation file into the editor
  bake      print the pose of every frame of an animation file
  render    draw the timeline strip as PNG
  qr        write the share QR code of an animation file
`)
}

// app holds what every command needs
type app struct {
	cfg    *config.Config
	log    *logs.Logger
	store  *storage.Store
	device *device.Client
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	a.log.Close()
}

// newEditor opens the editor on the persisted history
func (a *app) newEditor(ctx context.Context, opts ...editor.Option) (*editor.Editor, error) {
	if a.store == nil {
		store, err := storage.Open(ctx, a.cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		a.store = store
	}

	opts = append([]editor.Option{
		editor.WithConfig(a.cfg.TimelineConfig()),
		editor.WithStore(storage.NewHistoryStore(a.store)),
		editor.WithClipboard(storage.NewClipboardTransport(a.store)),
		editor.WithDevice(a.device),
		editor.WithLogger(a.log.Logger),
		editor.WithPollInterval(a.cfg.Device.PollInterval.Duration()),
	}, opts...)
	ed := editor.New(opts...)

	if err := ed.Load(ctx); err != nil {
		log.Printf("[!] Stored history not loaded: %v", err)
	}
	return ed, nil
}

func main() {
	configPtr := flag.String("config", "", "Config file (.yaml or .toml)")
	levelPtr := flag.String("log-level", "", "Log level: debug, info, warn, error")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("[-] Config error: %v", err)
	}
	if *levelPtr != "" {
		cfg.Log.Level = *levelPtr
	}

	logger, err := logs.New(logs.Options{Level: cfg.Log.Level, File: cfg.Log.File, Journal: true})
	if err != nil {
		log.Fatalf("[-] Logger error: %v", err)
	}

	a := &app{
		cfg:    cfg,
		log:    logger,
		device: device.NewClient(cfg.Device.URL, cfg.Device.Timeout.Duration()),
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "edit":
		err = runEdit(ctx, a, args)
	case "device":
		err = runDevice(ctx, a, args)
	case "export":
		err = runExport(ctx, a, args)
	case "import":
		err = runImport(ctx, a, args)
	case "bake":
		err = runBake(a, args)
	case "render":
		err = runRender(ctx, a, args)
	case "qr":
		err = runQR(a, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		a.Close()
		log.Fatalf("[-] %s: %v", cmd, err)
	}
}

func runDevice(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("device", flag.ExitOnError)
	listenPtr := fs.String("listen", a.cfg.Device.Listen, "Listen address")
	fs.Parse(args)

	srv := device.NewServer(device.NewPlayer(), device.DefaultProfile(), a.log.Logger)
	fmt.Printf("[*] Device simulator on %s\n", *listenPtr)
	return srv.Run(ctx, *listenPtr)
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	outPtr := fs.String("out", "", "Output file .json/.yaml (default: animations/animation_<time>.json)")
	devicePtr := fs.Bool("device", false, "Attach the device configuration")
	fs.Parse(args)

	ed, err := a.newEditor(ctx)
	if err != nil {
		return err
	}

	out := *outPtr
	if out == "" {
		out = document.GenerateExportPath(animationsDir, ".json")
	}
	doc := ed.Export(ctx, *devicePtr)
	if err := document.WriteDocument(doc, out); err != nil {
		return err
	}
	fmt.Printf("[+++] Exported %d keyframes to %s\n", len(doc.Keyframes), out)
	return nil
}

func runImport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	inPtr := fs.String("in", "", "Animation file (default: newest file in animations/)")
	fs.Parse(args)

	in, err := resolveInput(*inPtr)
	if err != nil {
		return err
	}
	doc, err := document.ReadDocument(in)
	if err != nil {
		return err
	}

	ed, err := a.newEditor(ctx)
	if err != nil {
		return err
	}
	if err := ed.Import(ctx, doc); err != nil {
		return err
	}
	fmt.Printf("[+++] Imported %d keyframes from %s\n", len(doc.Keyframes), in)
	return nil
}

func runBake(a *app, args []string) error {
	fs := flag.NewFlagSet("bake", flag.ExitOnError)
	inPtr := fs.String("in", "", "Animation file (default: newest file in animations/)")
	factorPtr := fs.Int("factor", 1, "Multiply fps and frame count before baking")
	fs.Parse(args)

	in, err := resolveInput(*inPtr)
	if err != nil {
		return err
	}
	doc, err := document.ReadDocument(in)
	if err != nil {
		return err
	}

	snap := doc.Snapshot()
	set, cfg := snap.Set(), snap.Config
	if *factorPtr != 1 {
		if set, cfg, err = timeline.Upsample(set, cfg, *factorPtr); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	for i, pose := range timeline.Bake(set, cfg) {
		if err := enc.Encode(timeline.Keyframe{FrameIndex: i, Values: pose}); err != nil {
			return err
		}
	}
	return nil
}

func runRender(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	outPtr := fs.String("out", "timeline.png", "Output PNG")
	widthPtr := fs.Int("width", 1000, "Width")
	heightPtr := fs.Int("height", 60, "Height")
	fs.Parse(args)

	ed, err := a.newEditor(ctx)
	if err != nil {
		return err
	}
	tl := renderer.NewTimeline("", *widthPtr, *heightPtr)
	if err := tl.WriteFile(*outPtr, ed.State()); err != nil {
		return err
	}
	fmt.Printf("[+++] Timeline written to %s\n", *outPtr)
	return nil
}

func runQR(a *app, args []string) error {
	fs := flag.NewFlagSet("qr", flag.ExitOnError)
	filePtr := fs.String("file", "", "Animation file name to share")
	outPtr := fs.String("out", "share.png", "Output PNG")
	sizePtr := fs.Int("size", 256, "Size in pixels")
	fs.Parse(args)

	file := *filePtr
	if file == "" {
		latest, err := document.FindLatestDocument(animationsDir)
		if err != nil {
			return err
		}
		file = filepath.Base(latest)
	}
	if err := renderer.WriteShareQR(a.cfg.Share.BaseURL, file, *sizePtr, *outPtr); err != nil {
		return err
	}
	fmt.Printf("[+++] %s -> %s\n", renderer.ShareURL(a.cfg.Share.BaseURL, file), *outPtr)
	return nil
}

func resolveInput(in string) (string, error) {
	if in != "" {
		return in, nil
	}
	latest, err := document.FindLatestDocument(animationsDir)
	if err != nil {
		return "", fmt.Errorf("%v. Put an animation into %s/", err, animationsDir)
	}
	fmt.Printf("[*] Selected file: %s\n", latest)
	return latest, nil
}
