// Package viz renders a canvas document's change graph.
package viz

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/astromechza/automerge-whiteboard/pkg/board"
	"github.com/astromechza/automerge-whiteboard/pkg/doc"
)

// Label is the node text for a revision: short hash, actor@seq and the collection
// sizes at that point.
func Label(r doc.Revision) string {
	actor := r.Actor
	if len(actor) > 8 {
		actor = actor[:8]
	}
	hash := r.Hash
	if len(hash) > 8 {
		hash = hash[:8]
	}
	counts := make([]string, 0, len(board.Collections))
	for _, c := range board.Collections {
		counts = append(counts, fmt.Sprintf("%s=%d", c, r.Counts[c]))
	}
	return fmt.Sprintf("%s %s@%d %s", hash, actor, r.Seq, strings.Join(counts, " "))
}

// RenderSVG draws revisions as a DAG, one node per change and one edge per dependency.
func RenderSVG(revisions []doc.Revision, w io.Writer) error {
	g := graphviz.New()
	defer g.Close()

	graph, err := g.Graph()
	if err != nil {
		return fmt.Errorf("failed to setup graph: %w", err)
	}
	defer graph.Close()

	nodeMap := make(map[string]*cgraph.Node, len(revisions))
	edgeCounter := 0
	for _, r := range revisions {
		n, err := graph.CreateNode(r.Hash)
		if err != nil {
			return fmt.Errorf("failed to create node: %w", err)
		}
		n.SetLabel(Label(r))
		nodeMap[r.Hash] = n

		for _, dep := range r.DependsOn {
			from, ok := nodeMap[dep]
			if !ok {
				continue
			}
			edgeCounter++
			if _, err := graph.CreateEdge(strconv.Itoa(edgeCounter), from, n); err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
		}
	}

	var buff bytes.Buffer
	if err := g.Render(graph, graphviz.SVG, &buff); err != nil {
		return fmt.Errorf("failed to render: %w", err)
	}
	if _, err := w.Write(buff.Bytes()); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	return nil
}

// RenderToTemp renders d's history into a fresh svg file in the temp dir and returns
// its path.
func RenderToTemp(d *doc.Doc) (string, error) {
	revisions, err := d.Revisions()
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp("", "whiteboard-*.svg")
	if err != nil {
		return "", fmt.Errorf("failed to create: %w", err)
	}
	defer f.Close()
	if err := RenderSVG(revisions, f); err != nil {
		return "", err
	}
	return filepath.Clean(f.Name()), nil
}
