/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package enforcer

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	*validator.Validate
}

func NewCustomValidator() (*CustomValidator, error) {
	v := validator.New()
	if err := v.RegisterValidation("dbfile", ValidateDatabaseFile); err != nil {
		return nil, fmt.Errorf("NewCustomValidator: error registering dbfile validation: %v", err)
	}
	return &CustomValidator{v}, nil
}

// ValidateDatabaseFile accepts an existing regular file. The sqlite backend
// never creates the database.
func ValidateDatabaseFile(fl validator.FieldLevel) bool {
	file := fl.Field().String()
	fi, err := os.Stat(file)
	if err != nil {
		log.Printf("ValidateDatabaseFile: %v", err)
		return false
	}
	return fi.Mode().IsRegular()
}

// ValidateConfig validates the named sections of conf ("log", "database",
// "apiserver"). The database section also validates the settings of the
// selected backend.
func ValidateConfig(conf *Config, cfgfile string, sections ...string) error {
	var configsections = make(map[string]interface{}, 4)

	for _, s := range sections {
		switch s {
		case "log":
			configsections["log"] = conf.Log
		case "database":
			configsections["database"] = conf.Database
			switch conf.Database.Backend {
			case "sqlite":
				configsections["database.sqlite"] = conf.Database.Sqlite
			case "mysql":
				configsections["database.mysql"] = conf.Database.Mysql
			}
		case "apiserver":
			configsections["apiserver"] = conf.ApiServer
		default:
			return fmt.Errorf("ValidateConfig: unknown config section %q", s)
		}
	}

	if err := ValidateBySection(configsections, cfgfile); err != nil {
		return fmt.Errorf("Config %q is missing required attributes:\n%v", cfgfile, err)
	}
	return nil
}

func ValidateBySection(configsections map[string]interface{}, cfgfile string) error {
	validate, err := NewCustomValidator()
	if err != nil {
		return fmt.Errorf("ValidateBySection: error creating custom validator: %v", err)
	}

	for k, data := range configsections {
		if Globals.Debug {
			log.Printf("%s: Validating config for %q section\n", strings.ToUpper(Globals.App.Name), k)
		}
		if err := validate.Struct(data); err != nil {
			return fmt.Errorf("%s: Config %s, section %q: missing required attributes:\n%v",
				strings.ToUpper(Globals.App.Name), cfgfile, k, err)
		}
	}
	return nil
}
