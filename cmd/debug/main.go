package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/astromechza/automerge-whiteboard/pkg/doc"
	"github.com/astromechza/automerge-whiteboard/pkg/viz"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{})))

	svgVar := flag.Bool("svg", false, "write the history graph as svg to stdout")
	flag.Parse()
	if flag.NArg() != 1 {
		return fmt.Errorf("expected one position argument: the file to read")
	}
	buff, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}
	d, err := doc.Load(buff, "")
	if err != nil {
		return err
	}
	buff = nil

	s := d.Snapshot()
	v := d.View()
	slog.Info("loaded doc", "lines", len(s.Lines), "images", len(s.Images), "shapes", len(s.Shapes), "texts", len(s.Texts))
	slog.Info("loaded view", "x", v.X, "y", v.Y)
	slog.Info("loaded heads", "heads", d.Heads())

	revisions, err := d.Revisions()
	if err != nil {
		return fmt.Errorf("failed to generate changes: %w", err)
	}
	slog.Info("changes:")
	for i, r := range revisions {
		slog.Info("change", "i", fmt.Sprintf("%4d", i), "hash", r.Hash, "actor", r.Actor, "seq", r.Seq, "dep", r.DependsOn)
	}

	if *svgVar {
		return viz.RenderSVG(revisions, os.Stdout)
	}
	fmt.Println(`digraph "log" {`)
	for _, r := range revisions {
		fmt.Printf("    \"%s\" [label=\"%s\"]\n", r.Hash, viz.Label(r))
		for _, hash := range r.DependsOn {
			fmt.Printf("    \"%s\" -> \"%s\"\n", hash, r.Hash)
		}
	}
	fmt.Println("}")
	return nil
}
