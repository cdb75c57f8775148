/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package enforcer

import (
	"time"
)

type PingPost struct {
	Msg   string
	Pings int
}

type PingResponse struct {
	Time       time.Time
	BootTime   time.Time
	Daemon     string
	Version    string
	ServerHost string
	Client     string
	Backend    string
	DbVersion  uint32
	Msg        string
	Pings      int
	Pongs      int
	Error      bool
	ErrorMsg   string
}

type ZonePost struct {
	Command string // list | show | count
	Zone    string
}

type ZoneResponse struct {
	AppName  string
	Time     time.Time
	Zone     *Zone   `json:",omitempty"`
	Zones    []*Zone `json:",omitempty"`
	Count    uint32
	Msg      string
	Error    bool
	ErrorMsg string
}

type KeyDependencyPost struct {
	Command string // list
	Zone    string
	ZoneID  int64
}

type KeyDependencyResponse struct {
	AppName         string
	Time            time.Time
	KeyDependencies []*KeyDependency
	Msg             string
	Error           bool
	ErrorMsg        string
}
