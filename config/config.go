// Package config implements a parser for pppoe-acd configuration
// represented in the TOML format: https://github.com/toml-lang/toml.
//
// Configuration lives under a single [pppoe] table, with one
// "interface" entry per interface to serve:
//
//	[pppoe]
//	ac-name = "accel-ppp"
//	service-name = ["internet"]
//	require-service-name = false
//	reply-exact-service = true
//	ifname-in-sid = "called-sid"
//	tr101 = false
//	padi-limit = 100
//	global-padi-limit = 10000
//	pado-delay = 0
//	verbose = false
//	control-socket = "/run/pppoe-acd.sock"
//	interface = ["eth0", "eth1,padi-limit=3,require-sn"]
//
//	[[pppoe.pado-delay-staircase]]
//	active-sessions = 100
//	delay-ms = 50
package config

import (
	"fmt"

	"github.com/pelletier/go-toml"

	"github.com/accelgo/pppoeacd/pppoe"
)

// Config is the parsed [pppoe] table: the global defaults every
// interface inherits, plus the raw interface spec strings StartInterface
// parses per-interface overrides out of.
type Config struct {
	Verbose            bool
	StrictVersion      bool
	ACName             string
	ServiceNames       []string
	RequireServiceName bool
	ReplyExactService  bool
	IfnameInSID        pppoe.IfnameInSID
	TR101              bool
	PADODelay          pppoe.PADODelay
	PADILimit          int
	GlobalPADILimit    int
	ControlSocket      string
	Interfaces         []string
}

// DefaultControlSocket is used when the config omits control-socket.
const DefaultControlSocket = "/run/pppoe-acd.sock"

func toBool(v interface{}) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("expected a bool")
}

func toString(v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("expected a string")
}

// toInt accommodates go-toml's Tree.Get representing integers as int64.
func toInt(v interface{}) (int, error) {
	if n, ok := v.(int64); ok {
		return int(n), nil
	}
	return 0, fmt.Errorf("unexpected %T value %v", v, v)
}

func toStringSlice(v interface{}) ([]string, error) {
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an array")
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		s, err := toString(e)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func toStaircase(v interface{}) ([]pppoe.PADODelayStep, error) {
	raw, ok := v.([]*toml.Tree)
	if !ok {
		return nil, fmt.Errorf("expected an array of tables")
	}
	out := make([]pppoe.PADODelayStep, 0, len(raw))
	for _, t := range raw {
		active, err := toInt(t.Get("active-sessions"))
		if err != nil {
			return nil, fmt.Errorf("active-sessions: %w", err)
		}
		delay, err := toInt(t.Get("delay-ms"))
		if err != nil {
			return nil, fmt.Errorf("delay-ms: %w", err)
		}
		out = append(out, pppoe.PADODelayStep{ActiveSessions: active, DelayMS: delay})
	}
	return out, nil
}

func newConfig(tree *toml.Tree) (*Config, error) {
	sub, ok := tree.Get("pppoe").(*toml.Tree)
	if !ok {
		return nil, fmt.Errorf("config: no [pppoe] table present")
	}

	cfg := &Config{}
	for _, k := range sub.Keys() {
		v := sub.Get(k)
		var err error
		switch k {
		case "verbose":
			cfg.Verbose, err = toBool(v)
		case "strict-version":
			cfg.StrictVersion, err = toBool(v)
		case "ac-name":
			cfg.ACName, err = toString(v)
		case "service-name":
			cfg.ServiceNames, err = toStringSlice(v)
		case "require-service-name":
			cfg.RequireServiceName, err = toBool(v)
		case "reply-exact-service":
			cfg.ReplyExactService, err = toBool(v)
		case "ifname-in-sid":
			var s string
			if s, err = toString(v); err == nil {
				cfg.IfnameInSID, err = pppoe.ParseIfnameInSID(s)
			}
		case "tr101":
			cfg.TR101, err = toBool(v)
		case "padi-limit":
			cfg.PADILimit, err = toInt(v)
		case "global-padi-limit":
			cfg.GlobalPADILimit, err = toInt(v)
		case "pado-delay":
			cfg.PADODelay.Fixed, err = toInt(v)
		case "pado-delay-staircase":
			cfg.PADODelay.Staircase, err = toStaircase(v)
		case "control-socket":
			cfg.ControlSocket, err = toString(v)
		case "interface":
			cfg.Interfaces, err = toStringSlice(v)
		default:
			return nil, fmt.Errorf("config: unrecognised parameter %q", k)
		}
		if err != nil {
			return nil, fmt.Errorf("config: failed to process %s: %w", k, err)
		}
	}
	if cfg.ControlSocket == "" {
		cfg.ControlSocket = DefaultControlSocket
	}
	return cfg, nil
}

// LoadFile loads configuration from the named TOML file.
func LoadFile(path string) (*Config, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	return newConfig(tree)
}

// LoadString loads configuration from a TOML document already in memory.
func LoadString(content string) (*Config, error) {
	tree, err := toml.Load(content)
	if err != nil {
		return nil, fmt.Errorf("config: failed to parse config: %w", err)
	}
	return newConfig(tree)
}

// ServerConfig builds the shared base ServerConfig every interface's
// StartInterface call starts from.
func (c *Config) ServerConfig() pppoe.ServerConfig {
	return pppoe.ServerConfig{
		ACName:             c.ACName,
		ServiceNames:       c.ServiceNames,
		RequireServiceName: c.RequireServiceName,
		ReplyExactService:  c.ReplyExactService,
		IfnameInSID:        c.IfnameInSID,
		TR101:              c.TR101,
		PADODelay:          c.PADODelay,
		PADILimit:          c.PADILimit,
		GlobalPADILimit:    c.GlobalPADILimit,
		Verbose:            c.Verbose,
		StrictVersion:      c.StrictVersion,
	}
}
