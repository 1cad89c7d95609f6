package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/gradecraft/internal/inference/schema"
)

type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type KnowledgeGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Check rejects duplicate node ids and edges that reference unknown nodes.
func (g KnowledgeGraph) Check() error {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			return fmt.Errorf("node with empty id")
		}
		if _, dup := ids[n.ID]; dup {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		ids[n.ID] = struct{}{}
	}
	for _, e := range g.Edges {
		if _, ok := ids[e.Source]; !ok {
			return fmt.Errorf("edge source %q is not a node", e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			return fmt.Errorf("edge target %q is not a node", e.Target)
		}
	}
	return nil
}

func ParseKnowledgeGraph(content string) (KnowledgeGraph, error) {
	clean := StripFences(content)
	if err := schema.Validate(schema.KnowledgeGraph(), []byte(clean)); err != nil {
		return KnowledgeGraph{}, err
	}
	var g KnowledgeGraph
	if err := json.Unmarshal([]byte(clean), &g); err != nil {
		return KnowledgeGraph{}, fmt.Errorf("invalid knowledge graph json: %w", err)
	}
	if err := g.Check(); err != nil {
		return KnowledgeGraph{}, err
	}
	return g, nil
}
