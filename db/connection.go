/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package db

import (
	"context"
	"log"
)

// Connection binds a configuration to one backend instance.
type Connection struct {
	rt          *Runtime
	cfg         *ConfigurationList
	backend     Backend
	backendName string
	connected   bool
}

func NewConnection(rt *Runtime, cfg *ConfigurationList) *Connection {
	return &Connection{rt: rt, cfg: cfg}
}

// Setup instantiates the backend named by the "backend" configuration.
func (c *Connection) Setup() error {
	if c.rt == nil {
		return Errorf("connection has no runtime")
	}
	if c.backend != nil {
		return Errorf("connection already set up (%s)", c.backendName)
	}
	name, ok := c.cfg.Value("backend")
	if !ok || name == "" {
		return Errorf("no backend configured")
	}
	b, err := c.rt.NewBackend(name)
	if err != nil {
		return err
	}
	c.backend = b
	c.backendName = name
	return nil
}

// Connect sets the connection up if needed and connects the backend.
func (c *Connection) Connect(ctx context.Context) error {
	if c.connected {
		return nil
	}
	if c.backend == nil {
		if err := c.Setup(); err != nil {
			return err
		}
	}
	if err := c.rt.Acquire(); err != nil {
		return err
	}
	if err := c.backend.Connect(ctx, c.cfg); err != nil {
		c.rt.Release()
		return err
	}
	c.connected = true
	return nil
}

func (c *Connection) Disconnect() error {
	if !c.connected {
		return nil
	}
	c.connected = false
	c.rt.Release()
	if err := c.backend.Disconnect(); err != nil {
		log.Printf("db: error disconnecting %s backend: %v", c.backendName, err)
		return err
	}
	return nil
}

func (c *Connection) BackendName() string {
	return c.backendName
}

func (c *Connection) Runtime() *Runtime {
	return c.rt
}

func (c *Connection) live() (Backend, error) {
	if c == nil || c.backend == nil || !c.connected {
		return nil, Errorf("not connected")
	}
	return c.backend, nil
}

func (c *Connection) TransactionBegin(ctx context.Context) error {
	b, err := c.live()
	if err != nil {
		return err
	}
	return b.TransactionBegin(ctx)
}

func (c *Connection) TransactionCommit() error {
	b, err := c.live()
	if err != nil {
		return err
	}
	return b.TransactionCommit()
}

func (c *Connection) TransactionRollback() error {
	b, err := c.live()
	if err != nil {
		return err
	}
	return b.TransactionRollback()
}

// LastInsertID returns the primary key assigned by the latest Create, if
// the backend can tell.
func (c *Connection) LastInsertID() (int64, error) {
	b, err := c.live()
	if err != nil {
		return 0, err
	}
	li, ok := b.(LastInsertIDer)
	if !ok {
		return 0, Errorf("%s backend does not report insert ids", c.backendName)
	}
	return li.LastInsertID()
}

// Exec runs a raw statement (schema DDL) on backends that allow it.
func (c *Connection) Exec(ctx context.Context, stmt string) error {
	b, err := c.live()
	if err != nil {
		return err
	}
	ex, ok := b.(SchemaExecer)
	if !ok {
		return Errorf("%s backend does not execute raw statements", c.backendName)
	}
	return ex.Exec(ctx, stmt)
}
