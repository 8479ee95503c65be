// Package cmn holds the module's ambient, non-protocol concerns: the
// dispatcher tunables in Config, and (via its cos/debug/mono/nlog
// subpackages) the shared error, assertion, clock and logging helpers
// every other package draws from.
package cmn

import (
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/vhrdtech/xpigo/cmn/cos"
	"github.com/vhrdtech/xpigo/xpi/dispatch"
	"github.com/vhrdtech/xpigo/xpi/xaddr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config is the top-level, JSON-loadable configuration for one xpigo
// node: the dispatcher tunables plus the node's own identity and link
// address. Defaults match the tested values in the dispatcher's own
// DefaultConfig; a config file only needs to name what it overrides.
type Config struct {
	NodeID   xaddr.NodeId    `json:"node_id"`
	Listen   string          `json:"listen"`
	Dispatch dispatch.Config `json:"dispatch"`
}

// DefaultConfig returns a Config with the dispatcher defaults and an
// unset node identity; callers must still set NodeID.
func DefaultConfig() Config {
	return Config{Dispatch: dispatch.DefaultConfig()}
}

// LoadConfig reads and decodes a JSON config file, filling in any zero
// field of Config.Dispatch from DefaultConfig so a config file only
// needs to mention the tunables it overrides.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, cos.Wrapf(err, "cmn: read config %q", path)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, cos.Wrapf(err, "cmn: parse config %q", path)
	}
	fillDispatchDefaults(&cfg.Dispatch)
	return cfg, nil
}

// fillDispatchDefaults restores any dispatch tunable a config file left
// at its JSON zero value to the tested default, so an omitted field
// doesn't silently zero out e.g. ReplyMTU.
func fillDispatchDefaults(c *dispatch.Config) {
	d := dispatch.DefaultConfig()
	if c.ReplyMTU == 0 {
		c.ReplyMTU = d.ReplyMTU
	}
	if c.MaxReplyBatchLen == 0 {
		c.MaxReplyBatchLen = d.MaxReplyBatchLen
	}
	if c.MaxReplyBatches == 0 {
		c.MaxReplyBatches = d.MaxReplyBatches
	}
	if c.FrameOverhead == 0 {
		c.FrameOverhead = d.FrameOverhead
	}
	if c.HeaderNibbles == 0 {
		c.HeaderNibbles = d.HeaderNibbles
	}
	if c.TrailerNibbles == 0 {
		c.TrailerNibbles = d.TrailerNibbles
	}
	if c.SpareNibbles == 0 {
		c.SpareNibbles = d.SpareNibbles
	}
}
