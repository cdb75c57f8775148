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

const keyDependencyTable = "keyDependency"

// KeyDependencyType is the kind of record a key depends on another key for.
// The integer codes are stored in the database.
type KeyDependencyType int

const (
	KeyDependencyDS          KeyDependencyType = 0
	KeyDependencyRRSIG       KeyDependencyType = 1
	KeyDependencyDNSKEY      KeyDependencyType = 2
	KeyDependencyRRSIGDNSKEY KeyDependencyType = 3
)

var KeyDependencyTypes = []db.Enum{
	{Text: "DS", Value: int(KeyDependencyDS)},
	{Text: "RRSIG", Value: int(KeyDependencyRRSIG)},
	{Text: "DNSKEY", Value: int(KeyDependencyDNSKEY)},
	{Text: "RRSIGDNSKEY", Value: int(KeyDependencyRRSIGDNSKEY)},
}

func (t KeyDependencyType) String() string {
	if s, ok := db.EnumText(KeyDependencyTypes, int(t)); ok {
		return s
	}
	return fmt.Sprintf("KeyDependencyType(%d)", int(t))
}

// RRType is the DNS record type the dependency is about. RRSIGDNSKEY is a
// signature over the DNSKEY RRset.
func (t KeyDependencyType) RRType() uint16 {
	switch t {
	case KeyDependencyDS:
		return dns.TypeDS
	case KeyDependencyRRSIG, KeyDependencyRRSIGDNSKEY:
		return dns.TypeRRSIG
	case KeyDependencyDNSKEY:
		return dns.TypeDNSKEY
	}
	return dns.TypeNone
}

func keyDependencyFields() *db.ObjectFieldList {
	return db.NewObjectFieldList().
		MustAdd("id", db.TypePrimaryKey).
		MustAdd("rev", db.TypeRevision).
		MustAdd("zoneId", db.TypeAny).
		MustAdd("fromKeyDataId", db.TypeAny).
		MustAdd("toKeyDataId", db.TypeAny).
		MustAdd("type", db.TypeEnum, KeyDependencyTypes...)
}

type KeyDependency struct {
	obj           *db.Object
	ID            int64             `json:"id"`
	Rev           int64             `json:"rev"`
	ZoneID        int64             `json:"zone_id"`
	FromKeyDataID int64             `json:"from_key_data_id"`
	ToKeyDataID   int64             `json:"to_key_data_id"`
	Type          KeyDependencyType `json:"type"`
}

func NewKeyDependency(conn *db.Connection) (*KeyDependency, error) {
	obj, err := db.NewObject(conn, keyDependencyTable, primaryKeyName, keyDependencyFields())
	if err != nil {
		return nil, err
	}
	return &KeyDependency{obj: obj}, nil
}

func (kd *KeyDependency) TypeText() string {
	return kd.Type.String()
}

func (kd *KeyDependency) SetTypeText(text string) error {
	n, ok := db.EnumValue(KeyDependencyTypes, text)
	if !ok {
		return db.Errorf("unknown key dependency type %q", text)
	}
	kd.Type = KeyDependencyType(n)
	return nil
}

func (kd *KeyDependency) RRType() uint16 {
	return kd.Type.RRType()
}

// Zone fetches the zone the dependency belongs to.
func (kd *KeyDependency) Zone(ctx context.Context) (*Zone, error) {
	if kd.ZoneID == 0 {
		return nil, db.Errorf("key dependency %d has no zone", kd.ID)
	}
	z, err := NewZone(kd.obj.Connection())
	if err != nil {
		return nil, err
	}
	if err := z.GetByID(ctx, kd.ZoneID); err != nil {
		return nil, err
	}
	return z, nil
}

func (kd *KeyDependency) FromResult(r *db.Result) error {
	s := newRowScanner(r, kd.obj.ObjectFieldList())
	var typ int
	s.primaryKey(&kd.ID)
	s.revision(&kd.Rev)
	s.integer(&kd.ZoneID)
	s.integer(&kd.FromKeyDataID)
	s.integer(&kd.ToKeyDataID)
	s.enum(&typ)
	if s.err != nil {
		return fmt.Errorf("keyDependency: %w", s.err)
	}
	kd.Type = KeyDependencyType(typ)
	return nil
}

func (kd *KeyDependency) values() (*db.ValueSet, error) {
	vs := newValueSetter(4)
	vs.next().SetInt64(kd.ZoneID)
	vs.next().SetInt64(kd.FromKeyDataID)
	vs.next().SetInt64(kd.ToKeyDataID)
	if err := vs.next().SetEnumValue(int(kd.Type), KeyDependencyTypes); err != nil {
		return nil, err
	}
	return vs.vs, nil
}

func (kd *KeyDependency) Create(ctx context.Context) error {
	if kd.ID != 0 {
		return db.Errorf("key dependency %d already exists", kd.ID)
	}
	if kd.ZoneID == 0 || kd.FromKeyDataID == 0 || kd.ToKeyDataID == 0 {
		return db.Errorf("key dependency needs a zone and both keys")
	}
	vs, err := kd.values()
	if err != nil {
		return err
	}
	id, err := createRow(ctx, kd.obj, vs)
	if err != nil {
		return err
	}
	kd.ID, kd.Rev = id, 1
	return nil
}

func (kd *KeyDependency) GetByID(ctx context.Context, id int64) error {
	r, err := readByID(ctx, kd.obj, id)
	if err != nil {
		return err
	}
	return kd.FromResult(r)
}

func (kd *KeyDependency) Update(ctx context.Context) error {
	vs, err := kd.values()
	if err != nil {
		return err
	}
	if err := updateRow(ctx, kd.obj, kd.ID, kd.Rev, vs); err != nil {
		return err
	}
	kd.Rev++
	return nil
}

func (kd *KeyDependency) Delete(ctx context.Context) error {
	return deleteRow(ctx, kd.obj, kd.ID, kd.Rev)
}

type KeyDependencyList struct {
	list
}

func NewKeyDependencyList(conn *db.Connection) (*KeyDependencyList, error) {
	obj, err := db.NewObject(conn, keyDependencyTable, primaryKeyName, keyDependencyFields())
	if err != nil {
		return nil, err
	}
	return &KeyDependencyList{list{obj: obj}}, nil
}

func (kdl *KeyDependencyList) GetAll(ctx context.Context) error {
	return kdl.read(ctx, nil, nil)
}

func (kdl *KeyDependencyList) GetByClauses(ctx context.Context, clauses *db.ClauseList) error {
	return kdl.read(ctx, nil, clauses)
}

func zoneIDClauses(zoneID int64) (*db.ClauseList, error) {
	var v db.Value
	v.SetInt64(zoneID)
	cl := db.NewClauseList()
	if err := cl.Add(db.NewClause("zoneId", db.ClauseEqual, v)); err != nil {
		return nil, err
	}
	return cl, nil
}

func (kdl *KeyDependencyList) GetByZoneID(ctx context.Context, zoneID int64) error {
	cl, err := zoneIDClauses(zoneID)
	if err != nil {
		return err
	}
	return kdl.read(ctx, nil, cl)
}

// GetByZoneName lists the dependencies of the named zone through a join on
// the zone table.
func (kdl *KeyDependencyList) GetByZoneName(ctx context.Context, name string) error {
	jl := db.NewJoinList()
	if err := jl.Add(&db.Join{FromTable: keyDependencyTable, FromField: "zoneId", ToTable: zoneTable, ToField: "id"}); err != nil {
		return err
	}
	var v db.Value
	v.SetText(name)
	c := db.NewClause("name", db.ClauseEqual, v)
	c.Table = zoneTable
	cl := db.NewClauseList()
	if err := cl.Add(c); err != nil {
		return err
	}
	return kdl.read(ctx, jl, cl)
}

func (kdl *KeyDependencyList) Next() (*KeyDependency, error) {
	r, err := kdl.next()
	if err != nil || r == nil {
		return nil, err
	}
	kd := &KeyDependency{obj: kdl.obj}
	if err := kd.FromResult(r); err != nil {
		return nil, err
	}
	return kd, nil
}

// KeyDependencies drains the list into a slice and closes it.
func (kdl *KeyDependencyList) KeyDependencies() ([]*KeyDependency, error) {
	defer kdl.Close()
	var kds []*KeyDependency
	for {
		kd, err := kdl.Next()
		if err != nil {
			return nil, err
		}
		if kd == nil {
			return kds, nil
		}
		kds = append(kds, kd)
	}
}

// KeyDependencyListByZoneID returns an open list of the dependencies of
// zone zoneID. The caller closes it.
func KeyDependencyListByZoneID(ctx context.Context, conn *db.Connection, zoneID int64) (*KeyDependencyList, error) {
	kdl, err := NewKeyDependencyList(conn)
	if err != nil {
		return nil, err
	}
	if err := kdl.GetByZoneID(ctx, zoneID); err != nil {
		return nil, err
	}
	return kdl, nil
}

func CountKeyDependencies(ctx context.Context, conn *db.Connection, clauses *db.ClauseList) (uint32, error) {
	obj, err := db.NewObject(conn, keyDependencyTable, primaryKeyName, keyDependencyFields())
	if err != nil {
		return 0, err
	}
	return obj.Count(ctx, clauses)
}

func CountKeyDependenciesByZoneID(ctx context.Context, conn *db.Connection, zoneID int64) (uint32, error) {
	cl, err := zoneIDClauses(zoneID)
	if err != nil {
		return 0, err
	}
	return CountKeyDependencies(ctx, conn, cl)
}
