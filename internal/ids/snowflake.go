// Package ids generates Snowflake-style identifiers for sessions and
// subagent tasks so they sort chronologically and stay grep-able in logs.
package ids

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
	mu   sync.Mutex
)

// Init initializes the package-wide Snowflake node. Safe to call multiple
// times; only the first call takes effect.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

func ensureNode() *snowflake.Node {
	mu.Lock()
	defer mu.Unlock()
	if node == nil {
		n, err := snowflake.NewNode(1)
		if err != nil {
			panic(fmt.Sprintf("ids: default node init failed: %v", err))
		}
		node = n
	}
	return node
}

// New returns a new globally unique, time-ordered int64 identifier.
func New() int64 {
	return ensureNode().Generate().Int64()
}

// NewString returns New formatted as a base32 string, convenient for
// filesystem-safe session/task directory names.
func NewString() string {
	return ensureNode().Generate().Base32()
}

// SessionID formats a session identifier as "{project}_{snowflake}",
// matching the glossary's "{project}_{timestamp}" shape while staying
// collision-free under concurrent session starts.
func SessionID(project string) string {
	return fmt.Sprintf("%s_%s", project, NewString())
}
