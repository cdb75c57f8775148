/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 *
 * Configuration structures for ods-enforcer-db
 */

package enforcer

import (
	"fmt"
	"log"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/johanix/odsdb/db"
	"github.com/johanix/odsdb/db/mysql"
	"github.com/johanix/odsdb/db/sqlite"
)

type Config struct {
	Log       LogConf       `yaml:"log" mapstructure:"log"`
	Database  DatabaseConf  `yaml:"database" mapstructure:"database"`
	ApiServer ApiServerConf `yaml:"apiserver" mapstructure:"apiserver"`
}

type LogConf struct {
	File string `yaml:"file" mapstructure:"file" validate:"required"`
}

// DatabaseConf selects the backend and carries the settings of each. Only
// the section of the selected backend is validated.
type DatabaseConf struct {
	Backend string     `yaml:"backend" mapstructure:"backend" validate:"required,oneof=sqlite mysql"`
	Sqlite  SqliteConf `yaml:"sqlite" mapstructure:"sqlite" validate:"-"`
	Mysql   MysqlConf  `yaml:"mysql" mapstructure:"mysql" validate:"-"`
}

type SqliteConf struct {
	File    string        `yaml:"file" mapstructure:"file" validate:"required,dbfile"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"` // give up on a busy database after this long
	Usleep  Microseconds  `yaml:"usleep" mapstructure:"usleep"`   // busy wait granularity
}

type MysqlConf struct {
	Host    string        `yaml:"host" mapstructure:"host"`
	User    string        `yaml:"user" mapstructure:"user" validate:"required"`
	Pass    string        `yaml:"pass" mapstructure:"pass"`
	Db      string        `yaml:"db" mapstructure:"db" validate:"required"`
	Port    int           `yaml:"port" mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"` // connect timeout
}

type ApiServerConf struct {
	Addresses []string `yaml:"addresses" mapstructure:"addresses" validate:"required,min=1"`
	ApiKey    string   `yaml:"apikey" mapstructure:"apikey" validate:"required"`
}

// Microseconds is a duration that is given in microseconds when written as
// a bare number. Plain time.Duration settings are seconds when bare.
type Microseconds time.Duration

var (
	durationType     = reflect.TypeOf(time.Duration(0))
	microsecondsType = reflect.TypeOf(Microseconds(0))
)

// BareDurationHookFunc decodes bare numbers (YAML integers or digit-only
// strings from the environment) into durations: seconds for time.Duration,
// microseconds for Microseconds. Strings with a unit are left to
// StringToTimeDurationHookFunc, except for Microseconds which it does not
// know about.
func BareDurationHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != durationType && t != microsecondsType {
			return data, nil
		}
		unit := time.Second
		if t == microsecondsType {
			unit = time.Microsecond
		}

		var n int64
		switch d := data.(type) {
		case int:
			n = int64(d)
		case int64:
			n = d
		case uint64:
			n = int64(d)
		case float64:
			if d != float64(int64(d)) {
				return nil, fmt.Errorf("duration %v is not a whole number", d)
			}
			n = int64(d)
		case string:
			i, err := strconv.ParseInt(d, 10, 64)
			if err != nil {
				if t == microsecondsType {
					pd, err := time.ParseDuration(d)
					if err != nil {
						return nil, err
					}
					return Microseconds(pd), nil
				}
				return data, nil
			}
			n = i
		default:
			return data, nil
		}
		if n < 0 {
			return nil, fmt.Errorf("negative duration %d", n)
		}
		if t == microsecondsType {
			return Microseconds(time.Duration(n) * unit), nil
		}
		return time.Duration(n) * unit, nil
	}
}

// ParseConfig reads cfgfile into v and decodes it into a Config. Durations
// may be given as "5s" style strings, address lists as comma separated
// strings.
func ParseConfig(v *viper.Viper, cfgfile string) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	if cfgfile == "" {
		cfgfile = DefaultCfgFile
	}
	v.SetConfigFile(cfgfile)
	v.SetEnvPrefix("ODSDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("database.backend", sqlite.BackendName)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("could not load config %s: %v", cfgfile, err)
	}
	if Globals.Verbose {
		log.Printf("Using config file: %s", v.ConfigFileUsed())
	}
	return DecodeConfig(v)
}

// DecodeConfig decodes the settings already present in v.
func DecodeConfig(v *viper.Viper) (*Config, error) {
	var conf Config
	err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		BareDurationHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling config into struct: %v", err)
	}
	return &conf, nil
}

// ConfigurationList turns the database section into the name/value list
// handed to the backend. Durations are passed as whole seconds, except the
// sqlite usleep which is in microseconds.
func (dc *DatabaseConf) ConfigurationList() (*db.ConfigurationList, error) {
	cl := db.NewConfigurationList()
	add := func(name, value string) error {
		if value == "" {
			return nil
		}
		return cl.Add(name, value)
	}
	var err error
	seconds := func(name string, d time.Duration) string {
		if d <= 0 {
			return ""
		}
		if d < time.Second {
			err = fmt.Errorf("database %s %v is below the one second resolution", name, d)
			return ""
		}
		return strconv.Itoa(int(d / time.Second))
	}

	if err := cl.Add("backend", dc.Backend); err != nil {
		return nil, err
	}
	switch dc.Backend {
	case sqlite.BackendName:
		s := dc.Sqlite
		usleep := ""
		if us := time.Duration(s.Usleep); us > 0 {
			if us < time.Microsecond {
				return nil, fmt.Errorf("database usleep %v is below the one microsecond resolution", us)
			}
			usleep = strconv.FormatInt(us.Microseconds(), 10)
		}
		timeout := seconds("sqlite timeout", s.Timeout)
		if err != nil {
			return nil, err
		}
		for _, kv := range [][2]string{
			{"file", s.File},
			{"timeout", timeout},
			{"usleep", usleep},
		} {
			if err = add(kv[0], kv[1]); err != nil {
				return nil, err
			}
		}
	case mysql.BackendName:
		m := dc.Mysql
		port := ""
		if m.Port != 0 {
			port = strconv.Itoa(m.Port)
		}
		timeout := seconds("mysql timeout", m.Timeout)
		if err != nil {
			return nil, err
		}
		for _, kv := range [][2]string{
			{"host", m.Host},
			{"user", m.User},
			{"pass", m.Pass},
			{"db", m.Db},
			{"port", port},
			{"timeout", timeout},
		} {
			if err = add(kv[0], kv[1]); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unsupported database backend: %q (must be %q or %q)",
			dc.Backend, sqlite.BackendName, mysql.BackendName)
	}
	return cl, nil
}
