/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package db

import (
	"fmt"
	"strconv"
	"time"
)

// Configuration is one name/value pair handed to a backend. The "backend"
// entry selects the backend; the rest is backend specific (file, timeout,
// usleep for sqlite; host, user, pass, db, port, timeout for mysql).
type Configuration struct {
	Name  string
	Value string
}

type ConfigurationList struct {
	items []Configuration
}

func NewConfigurationList() *ConfigurationList {
	return &ConfigurationList{}
}

// Add appends name=value. Names are unique.
func (cl *ConfigurationList) Add(name, value string) error {
	if name == "" {
		return fmt.Errorf("%w: configuration without name", ErrUnknown)
	}
	if _, ok := cl.Value(name); ok {
		return fmt.Errorf("%w: duplicate configuration %q", ErrUnknown, name)
	}
	cl.items = append(cl.items, Configuration{Name: name, Value: value})
	return nil
}

// Value returns the value of name and whether it was present.
func (cl *ConfigurationList) Value(name string) (string, bool) {
	if cl == nil {
		return "", false
	}
	for _, c := range cl.items {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Int returns name as an integer, or def when it is not present.
func (cl *ConfigurationList) Int(name string, def int) (int, error) {
	s, ok := cl.Value(name)
	if !ok || s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: configuration %s=%q is not an integer", ErrUnknown, name, s)
	}
	return n, nil
}

// Seconds returns name, given in whole seconds, as a duration.
func (cl *ConfigurationList) Seconds(name string, def time.Duration) (time.Duration, error) {
	n, err := cl.Int(name, -1)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return def, nil
	}
	return time.Duration(n) * time.Second, nil
}

func (cl *ConfigurationList) Items() []Configuration {
	if cl == nil {
		return nil
	}
	return append([]Configuration(nil), cl.items...)
}
