/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package enforcer

import (
	"context"
	"fmt"

	"github.com/miekg/dns"

	"github.com/johanix/odsdb/db"
)

const zoneTable = "zone"

func zoneFields() *db.ObjectFieldList {
	return db.NewObjectFieldList().
		MustAdd("id", db.TypePrimaryKey).
		MustAdd("rev", db.TypeRevision).
		MustAdd("name", db.TypeText).
		MustAdd("policy", db.TypeText).
		MustAdd("signconfNeedsWriting", db.TypeInt32).
		MustAdd("signconfPath", db.TypeText).
		MustAdd("nextChange", db.TypeInt32).
		MustAdd("ttlEndDs", db.TypeUint32).
		MustAdd("ttlEndDk", db.TypeUint32).
		MustAdd("ttlEndRs", db.TypeUint32).
		MustAdd("rollKskNow", db.TypeUint32).
		MustAdd("rollZskNow", db.TypeUint32).
		MustAdd("rollCskNow", db.TypeUint32).
		MustAdd("inputAdapterType", db.TypeText).
		MustAdd("inputAdapterUri", db.TypeText).
		MustAdd("outputAdapterType", db.TypeText).
		MustAdd("outputAdapterUri", db.TypeText)
}

type Zone struct {
	obj                  *db.Object
	ID                   int64  `json:"id"`
	Rev                  int64  `json:"rev"`
	Name                 string `json:"name"`
	Policy               string `json:"policy"`
	SignconfNeedsWriting int32  `json:"signconf_needs_writing"`
	SignconfPath         string `json:"signconf_path"`
	NextChange           int32  `json:"next_change"`
	TTLEndDs             uint32 `json:"ttl_end_ds"`
	TTLEndDk             uint32 `json:"ttl_end_dk"`
	TTLEndRs             uint32 `json:"ttl_end_rs"`
	RollKskNow           uint32 `json:"roll_ksk_now"`
	RollZskNow           uint32 `json:"roll_zsk_now"`
	RollCskNow           uint32 `json:"roll_csk_now"`
	InputAdapterType     string `json:"input_adapter_type"`
	InputAdapterURI      string `json:"input_adapter_uri"`
	OutputAdapterType    string `json:"output_adapter_type"`
	OutputAdapterURI     string `json:"output_adapter_uri"`
}

func NewZone(conn *db.Connection) (*Zone, error) {
	obj, err := db.NewObject(conn, zoneTable, primaryKeyName, zoneFields())
	if err != nil {
		return nil, err
	}
	return &Zone{obj: obj}, nil
}

// ValidZoneName checks that name is a syntactically valid domain name.
func ValidZoneName(name string) error {
	if name == "" {
		return fmt.Errorf("zone name is empty")
	}
	if _, ok := dns.IsDomainName(name); !ok {
		return fmt.Errorf("zone name %q is not a valid domain name", name)
	}
	return nil
}

func (z *Zone) FromResult(r *db.Result) error {
	s := newRowScanner(r, z.obj.ObjectFieldList())
	s.primaryKey(&z.ID)
	s.revision(&z.Rev)
	s.text(&z.Name)
	s.text(&z.Policy)
	s.int32(&z.SignconfNeedsWriting)
	s.text(&z.SignconfPath)
	s.int32(&z.NextChange)
	s.uint32(&z.TTLEndDs)
	s.uint32(&z.TTLEndDk)
	s.uint32(&z.TTLEndRs)
	s.uint32(&z.RollKskNow)
	s.uint32(&z.RollZskNow)
	s.uint32(&z.RollCskNow)
	s.text(&z.InputAdapterType)
	s.text(&z.InputAdapterURI)
	s.text(&z.OutputAdapterType)
	s.text(&z.OutputAdapterURI)
	if s.err != nil {
		return fmt.Errorf("zone: %w", s.err)
	}
	return nil
}

func (z *Zone) values() *db.ValueSet {
	vs := newValueSetter(15)
	vs.next().SetText(z.Name)
	vs.next().SetText(z.Policy)
	vs.next().SetInt32(z.SignconfNeedsWriting)
	vs.next().SetText(z.SignconfPath)
	vs.next().SetInt32(z.NextChange)
	vs.next().SetUint32(z.TTLEndDs)
	vs.next().SetUint32(z.TTLEndDk)
	vs.next().SetUint32(z.TTLEndRs)
	vs.next().SetUint32(z.RollKskNow)
	vs.next().SetUint32(z.RollZskNow)
	vs.next().SetUint32(z.RollCskNow)
	vs.next().SetText(z.InputAdapterType)
	vs.next().SetText(z.InputAdapterURI)
	vs.next().SetText(z.OutputAdapterType)
	vs.next().SetText(z.OutputAdapterURI)
	return vs.vs
}

func (z *Zone) Create(ctx context.Context) error {
	if z.ID != 0 {
		return db.Errorf("zone %q already exists with id %d", z.Name, z.ID)
	}
	if err := ValidZoneName(z.Name); err != nil {
		return fmt.Errorf("%w: %v", db.ErrUnknown, err)
	}
	id, err := createRow(ctx, z.obj, z.values())
	if err != nil {
		return err
	}
	z.ID, z.Rev = id, 1
	return nil
}

func (z *Zone) GetByID(ctx context.Context, id int64) error {
	r, err := readByID(ctx, z.obj, id)
	if err != nil {
		return err
	}
	return z.FromResult(r)
}

func (z *Zone) GetByName(ctx context.Context, name string) error {
	var v db.Value
	v.SetText(name)
	cl := db.NewClauseList()
	if err := cl.Add(db.NewClause("name", db.ClauseEqual, v)); err != nil {
		return err
	}
	r, err := readOne(ctx, z.obj, cl)
	if err != nil {
		return fmt.Errorf("zone %q: %w", name, err)
	}
	return z.FromResult(r)
}

// Update writes z back, provided nobody else has changed the row since it
// was read. On success z.Rev is the new revision.
func (z *Zone) Update(ctx context.Context) error {
	if err := ValidZoneName(z.Name); err != nil {
		return fmt.Errorf("%w: %v", db.ErrUnknown, err)
	}
	if err := updateRow(ctx, z.obj, z.ID, z.Rev, z.values()); err != nil {
		return err
	}
	z.Rev++
	return nil
}

func (z *Zone) Delete(ctx context.Context) error {
	return deleteRow(ctx, z.obj, z.ID, z.Rev)
}

type ZoneList struct {
	list
}

func NewZoneList(conn *db.Connection) (*ZoneList, error) {
	obj, err := db.NewObject(conn, zoneTable, primaryKeyName, zoneFields())
	if err != nil {
		return nil, err
	}
	return &ZoneList{list{obj: obj}}, nil
}

func (zl *ZoneList) GetAll(ctx context.Context) error {
	return zl.read(ctx, nil, nil)
}

func (zl *ZoneList) GetByClauses(ctx context.Context, clauses *db.ClauseList) error {
	return zl.read(ctx, nil, clauses)
}

func (zl *ZoneList) Next() (*Zone, error) {
	r, err := zl.next()
	if err != nil || r == nil {
		return nil, err
	}
	z := &Zone{obj: zl.obj}
	if err := z.FromResult(r); err != nil {
		return nil, err
	}
	return z, nil
}

// Zones drains the list into a slice and closes it.
func (zl *ZoneList) Zones() ([]*Zone, error) {
	defer zl.Close()
	var zones []*Zone
	for {
		z, err := zl.Next()
		if err != nil {
			return nil, err
		}
		if z == nil {
			return zones, nil
		}
		zones = append(zones, z)
	}
}

func CountZones(ctx context.Context, conn *db.Connection, clauses *db.ClauseList) (uint32, error) {
	obj, err := db.NewObject(conn, zoneTable, primaryKeyName, zoneFields())
	if err != nil {
		return 0, err
	}
	return obj.Count(ctx, clauses)
}
