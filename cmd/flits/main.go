package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/thisisjonathan/flits-editor/internal/config"
	"github.com/thisisjonathan/flits-editor/internal/document"
	"github.com/thisisjonathan/flits-editor/internal/history"
	"github.com/thisisjonathan/flits-editor/internal/importer"
	"github.com/thisisjonathan/flits-editor/internal/project"
	"github.com/thisisjonathan/flits-editor/internal/swf"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: flits <command> [arguments]

commands:
  new <movie.swf>                create an empty movie
  import <movie.swf> <asset>...  import assets into a movie
  export <movie.swf> <out.swf>   write the movie without editor metadata
  info <movie.swf>               print movie contents
  preview <movie.swf>            play the movie in a window
`)
	os.Exit(2)
}

func main() {
	log.SetFlags(0)
	configDir := flag.String("config", ".", "directory holding editor.yaml")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

	cfg, err := config.NewLoader(*configDir).Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch flag.Arg(0) {
	case "new":
		if flag.NArg() != 2 {
			usage()
		}
		runNew(cfg, flag.Arg(1))
	case "import":
		if flag.NArg() < 3 {
			usage()
		}
		runImport(cfg, flag.Arg(1), flag.Args()[2:])
	case "export":
		if flag.NArg() != 3 {
			usage()
		}
		runExport(flag.Arg(1), flag.Arg(2))
	case "info":
		if flag.NArg() != 2 {
			usage()
		}
		runInfo(flag.Arg(1))
	case "preview":
		if flag.NArg() != 2 {
			usage()
		}
		runPreview(cfg, flag.Arg(1))
	default:
		usage()
	}
}

func runNew(cfg *config.EditorConfig, path string) {
	props, err := cfg.MovieProperties()
	if err != nil {
		log.Fatalf("Failed to read stage defaults: %v", err)
	}
	doc := document.New()
	doc.Properties = props
	if err := project.Save(path, doc, project.Meta{EditingSymbol: -1, Camera: project.Camera{Zoom: 1}}); err != nil {
		log.Fatalf("Failed to save movie: %v", err)
	}
	log.Printf("Created %s (%gx%g @ %g fps)", path, props.Width, props.Height, props.FrameRate)
}

// runImport decodes assets on background workers and applies the finished
// transactions on this goroutine, in completion order.
func runImport(cfg *config.EditorConfig, path string, assets []string) {
	doc, meta, err := project.Load(path)
	if err != nil {
		log.Fatalf("Failed to load movie: %v", err)
	}

	im := importer.New(importer.Config{MaxAssetSize: cfg.Import.MaxAssetSizeMB * 1024 * 1024})
	runner := importer.NewRunner(context.Background(), cfg.Import.WorkerLimit)
	for _, asset := range assets {
		asset := asset
		runner.Submit(func(ctx context.Context) (history.Command, error) {
			data, err := os.ReadFile(asset)
			if err != nil {
				return nil, err
			}
			return im.ImportAsset(asset, data)
		})
	}
	go runner.Close()

	stack := history.NewStack()
	failed := false
	for result := range runner.Results() {
		if result.Err != nil {
			log.Printf("Import failed: %v", result.Err)
			failed = true
			continue
		}
		if err := stack.Execute(doc, result.Command); err != nil {
			log.Printf("Import failed: %v", err)
			failed = true
			continue
		}
		log.Printf("%s", result.Command.Label())
	}
	if failed {
		os.Exit(1)
	}

	if err := project.Save(path, doc, meta); err != nil {
		log.Fatalf("Failed to save movie: %v", err)
	}
}

// runExport writes the movie alone, for handing to a player. The editor
// side-channel stays behind; the movie bytes are identical either way.
func runExport(path, out string) {
	doc, _, err := project.Load(path)
	if err != nil {
		log.Fatalf("Failed to load movie: %v", err)
	}
	data, err := swf.Encode(doc)
	if err != nil {
		log.Fatalf("Failed to encode movie: %v", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", out, err)
	}
	log.Printf("Exported %s (%d bytes)", out, len(data))
}

func runInfo(path string) {
	doc, _, err := project.Load(path)
	if err != nil {
		log.Fatalf("Failed to load movie: %v", err)
	}
	props := doc.Properties
	fmt.Printf("%s: %gx%g @ %g fps, %d frames, %d symbols\n",
		path, props.Width, props.Height, props.FrameRate, doc.Root.FrameCount, doc.SymbolCount())
	doc.EachSymbol(func(id document.SymbolID, sym *document.Symbol) {
		name := sym.Name
		if name == "" {
			name = "(unnamed)"
		}
		if sym.Timeline != nil {
			fmt.Printf("  %-10s %s: %d frames, %d placements\n", sym.Kind, name, sym.Timeline.FrameCount, len(sym.Timeline.Instances))
		} else {
			fmt.Printf("  %-10s %s\n", sym.Kind, name)
		}
	})
}

func runPreview(cfg *config.EditorConfig, path string) {
	doc, _, err := project.Load(path)
	if err != nil {
		log.Fatalf("Failed to load movie: %v", err)
	}
	if err := RunPlayer(doc, cfg.Preview.Scale); err != nil {
		log.Fatal(err)
	}
}
