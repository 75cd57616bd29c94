package mqtt

import (
	"fmt"
	"strings"
)

// Topic suffixes under the per-node root {prefix}/{node_id}.
const (
	suffixConfig       = "config"
	suffixParamsLocal  = "params/local"
	suffixParamsRemote = "params/remote"
	suffixStatus       = "status"
)

// Topics builds the MQTT topics owned by one node.
//
//	topics := mqtt.NewTopics("node", "switchnode-001")
//	topics.ParamsLocal() // "node/switchnode-001/params/local"
type Topics struct {
	root string
}

// NewTopics returns the topic builder for nodeID under prefix.
// Leading and trailing slashes in prefix are ignored.
func NewTopics(prefix, nodeID string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return Topics{root: nodeID}
	}
	return Topics{root: prefix + "/" + nodeID}
}

// Root returns {prefix}/{node_id}.
func (t Topics) Root() string {
	return t.root
}

// Config is the retained node configuration topic.
//
// Example: node/switchnode-001/config
func (t Topics) Config() string {
	return t.join(suffixConfig)
}

// ParamsLocal carries parameter reports from the node.
//
// Example: node/switchnode-001/params/local
func (t Topics) ParamsLocal() string {
	return t.join(suffixParamsLocal)
}

// ParamsRemote carries parameter writes to the node.
//
// Example: node/switchnode-001/params/remote
func (t Topics) ParamsRemote() string {
	return t.join(suffixParamsRemote)
}

// Status is the retained online/offline topic, also used for the LWT.
//
// Example: node/switchnode-001/status
func (t Topics) Status() string {
	return t.join(suffixStatus)
}

func (t Topics) join(suffix string) string {
	return fmt.Sprintf("%s/%s", t.root, suffix)
}
