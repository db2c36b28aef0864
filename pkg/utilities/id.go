package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID returns a sortable random id, used for request ids.
func NewKSUID() string {
	return ksuid.New().String()
}

// nodeFromEnv reads SNOWFLAKE_NODE, defaulting to 1 when unset or malformed.
func nodeFromEnv() int64 {
	n, err := strconv.ParseInt(os.Getenv("SNOWFLAKE_NODE"), 10, 64)
	if err != nil {
		return 1
	}
	return n
}

// NewSnowflakeID returns a snowflake id from the node named by SNOWFLAKE_NODE.
// Token ids (jti) come from here.
func NewSnowflakeID() string {
	return NewSnowflakeIDWithNode(nodeFromEnv())
}

var (
	nodesMu sync.Mutex
	nodes   = map[int64]*snowflake.Node{}
)

func node(id int64) (*snowflake.Node, error) {
	nodesMu.Lock()
	defer nodesMu.Unlock()
	if n, ok := nodes[id]; ok {
		return n, nil
	}
	n, err := snowflake.NewNode(id)
	if err != nil {
		return nil, err
	}
	nodes[id] = n
	return n, nil
}

// NewSnowflakeIDWithNode generates an id on the given node. Nodes are kept for
// the life of the process so ids within one millisecond never collide. An
// out-of-range node yields a KSUID instead.
func NewSnowflakeIDWithNode(nodeID int64) string {
	n, err := node(nodeID)
	if err != nil {
		return NewKSUID()
	}
	return n.Generate().String()
}
