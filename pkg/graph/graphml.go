package graph

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/dd0wney/flowpanel/pkg/period"
)

// GraphML attribute names used by the snapshot builder: node labels are
// stored under the "name" vertex attribute and flow volumes under the
// "weight" edge attribute.
const (
	nameAttr   = "name"
	weightAttr = "weight"
)

type graphmlDoc struct {
	XMLName xml.Name       `xml:"graphml"`
	Keys    []graphmlKey   `xml:"key"`
	Graph   graphmlGraph   `xml:"graph"`
}

type graphmlKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
}

type graphmlGraph struct {
	EdgeDefault string         `xml:"edgedefault,attr"`
	Nodes       []graphmlNode  `xml:"node"`
	Edges       []graphmlEdge  `xml:"edge"`
}

type graphmlNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphmlData `xml:"data"`
}

type graphmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// ParseGraphML decodes a serialized snapshot. Node labels come from the
// "name" vertex attribute when declared (falling back to the raw node
// id), and edge weights from the "weight" edge attribute (defaulting to
// 1 when absent). Every declared vertex is registered even when it has
// no edges, so isolated units keep their zero-flow rows.
func ParseGraphML(r io.Reader, source string, key period.Key) (*Snapshot, error) {
	var doc graphmlDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode graphml %s: %w", source, err)
	}

	nameKey := ""
	weightKey := ""
	for _, k := range doc.Keys {
		switch {
		case k.For == "node" && k.AttrName == nameAttr:
			nameKey = k.ID
		case k.For == "edge" && k.AttrName == weightAttr:
			weightKey = k.ID
		}
	}

	snap := NewSnapshot(source, key)

	labels := make(map[string]string, len(doc.Graph.Nodes))
	for _, n := range doc.Graph.Nodes {
		label := n.ID
		if nameKey != "" {
			for _, d := range n.Data {
				if d.Key == nameKey && d.Value != "" {
					label = d.Value
					break
				}
			}
		}
		if _, dup := labels[n.ID]; dup {
			return nil, fmt.Errorf("decode graphml %s: duplicate node id %q", source, n.ID)
		}
		labels[n.ID] = label
		snap.AddNode(label)
	}

	for _, e := range doc.Graph.Edges {
		from, ok := labels[e.Source]
		if !ok {
			return nil, fmt.Errorf("decode graphml %s: edge references unknown node %q", source, e.Source)
		}
		to, ok := labels[e.Target]
		if !ok {
			return nil, fmt.Errorf("decode graphml %s: edge references unknown node %q", source, e.Target)
		}

		weight := 1.0
		if weightKey != "" {
			for _, d := range e.Data {
				if d.Key == weightKey {
					w, err := strconv.ParseFloat(d.Value, 64)
					if err != nil {
						return nil, fmt.Errorf("decode graphml %s: edge %s->%s weight %q: %w",
							source, from, to, d.Value, err)
					}
					weight = w
					break
				}
			}
		}

		if err := snap.AddEdge(from, to, weight); err != nil {
			return nil, fmt.Errorf("decode graphml %s: %w", source, err)
		}
	}

	return snap, nil
}
