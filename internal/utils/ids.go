package utils

import (
	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// IDGenerator hands out snowflake ids from one node, so ids generated in the
// same millisecond still differ.
type IDGenerator struct {
	node *snowflake.Node
}

// NewIDGenerator creates a generator for nodeID. An invalid node id falls
// back to ksuid strings.
func NewIDGenerator(nodeID int64) *IDGenerator {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return &IDGenerator{}
	}
	return &IDGenerator{node: node}
}

func (g *IDGenerator) Next() string {
	if g.node == nil {
		return ksuid.New().String()
	}
	return g.node.Generate().String()
}
