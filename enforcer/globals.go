/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package enforcer

const (
	DefaultCfgFile = "/etc/opendnssec/ods-enforcer-db.yaml"
	AppName        = "ods-enforcer-db"
)

// DatabaseVersion is the schema version this code reads and writes.
const DatabaseVersionCurrent uint32 = 1

type GlobalStuff struct {
	Verbose bool
	Debug   bool
	CfgFile string
	App     AppDetails
}

type AppDetails struct {
	Name    string
	Version string
	Date    string
}

var Globals = GlobalStuff{
	App: AppDetails{Name: AppName},
}
