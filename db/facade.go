// Package db is the database façade: glue over the storage, codec, and
// model packages that exposes Open/Transact/Pull/Entity as one cohesive,
// immutable-snapshot API.
package db

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"factdb/codec"
	"factdb/config"
	"factdb/logger"
	"factdb/models"
	"factdb/storage"
)

// Db is an immutable view of the database at one head. Transact, Merge,
// and DeclareAttribute all return a new *Db referencing a new head rather
// than replacing the receiver's head and Index: concurrent readers holding
// an older Db keep observing a consistent snapshot of the facts. The
// schema registry and the EID allocator are not part of that snapshot:
// they are shared by every Db derived from the same Open call, so an
// attribute added by DeclareAttribute is also visible through the
// receiver's Schema().
type Db struct {
	store      storage.Store
	head       models.Hash
	headExists bool
	index      *models.Index
	schema     *models.Schema
	alloc      *models.EIDAllocator
	defaults   *models.DefaultRegistry
	source     models.Source

	// writeMu serializes writers through this Db's storage — the façade
	// funnels writers through a single-producer queue. It is shared by
	// every Db value derived from the same Open call.
	writeMu *sync.Mutex
}

// Open loads the current head from store (if any), replays it into an
// Index, and reconstructs or loads the Schema, per cfg.
func Open(store storage.Store, cfg *config.Config) (*Db, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if cfg.LogLevel != "" {
		if err := logger.SetLogLevel(cfg.LogLevel); err != nil {
			return nil, err
		}
	}

	headBytes, headExists, err := store.Load(storage.HeadKey)
	if err != nil {
		return nil, err
	}
	head := models.NullHash
	if headExists {
		h, err := parseHash(headBytes)
		if err != nil {
			return nil, err
		}
		head = h
	}

	result, err := replay(store, head)
	if err != nil {
		return nil, err
	}

	schema, err := resolveSchema(cfg, result.schemaFacts)
	if err != nil {
		return nil, err
	}

	iid := newInstanceIID()
	alloc := models.NewEIDAllocator(iid)
	for _, eid := range result.index.EAVKeys() {
		alloc.Observe(eid)
	}

	logger.Info("factdb: opened database, head=%s entities=%d backend=%s",
		head, result.index.EntityCount(), cfg.Backend)

	return &Db{
		store:      store,
		head:       head,
		headExists: headExists,
		index:      result.index,
		schema:     schema,
		alloc:      alloc,
		defaults:   models.NewDefaultRegistry(),
		source:     models.Source{IID: iid, InstanceBits: cfg.InstanceBits},
		writeMu:    &sync.Mutex{},
	}, nil
}

func resolveSchema(cfg *config.Config, schemaFacts []models.Fact) (*models.Schema, error) {
	if cfg.SchemaFile != "" {
		fromFile, err := config.LoadSchemaFile(cfg.SchemaFile)
		if err != nil {
			return nil, err
		}
		return fromFile, nil
	}
	if len(schemaFacts) == 0 {
		return models.NewSchema(), nil
	}
	return models.SchemaFromFacts(schemaFacts)
}

func parseHash(b []byte) (models.Hash, error) {
	if len(b) != 2*models.HashSize {
		return models.Hash{}, fmt.Errorf("%w: head ref has wrong length %d", models.ErrCorruptedNode, len(b))
	}
	var h models.Hash
	for i := 0; i < models.HashSize; i++ {
		hi, err := hexNibble(b[2*i])
		if err != nil {
			return models.Hash{}, err
		}
		lo, err := hexNibble(b[2*i+1])
		if err != nil {
			return models.Hash{}, err
		}
		h[i] = hi<<4 | lo
	}
	return h, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("%w: invalid hex digit %q in head ref", models.ErrCorruptedNode, c)
	}
}

// Schema returns the live schema registry backing this Db.
func (d *Db) Schema() *models.Schema { return d.schema }

// Head returns the current head hash (the null hash if nothing has been
// committed yet).
func (d *Db) Head() models.Hash { return d.head }

// DeclareAttribute adds attr to the schema and commits the schema's full
// current attribute set as facts under the reserved EID range, so schema
// survives a reopen without a schema file.
func (d *Db) DeclareAttribute(attr models.Attribute) (*Db, error) {
	if err := d.schema.Declare(attr); err != nil {
		return nil, err
	}
	facts, err := d.schema.AsFacts(time.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	return d.Transact(facts)
}

// Transact validates facts against the schema, folds them into a new
// Index, and commits a Leaf node (or a Root node if this is the first
// commit) whose parent is the current head.
func (d *Db) Transact(facts []models.Fact) (*Db, error) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	newIndex, err := d.index.AddFacts(facts, d.schema)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	var node *models.Node
	if d.head.IsNull() {
		node = models.NewRoot(d.source, now, facts)
	} else {
		node = models.NewLeaf(d.head, d.source, now, facts)
	}

	newDb, err := d.commit(node, newIndex)
	if err != nil {
		return nil, err
	}
	logger.TraceIf("commit", "transacted %d facts, head now %s", len(facts), newDb.head)
	return newDb, nil
}

// Merge reconciles this Db with another independently-advanced Db,
// committing a two-parent Merge node carrying the facts needed to
// reconcile their histories. The caller supplies diffFacts —
// facts present in other's history that this Db's replay has not already
// seen — rather than Merge recomputing a full diff itself.
func (d *Db) Merge(other *Db, diffFacts []models.Fact) (*Db, error) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	newIndex, err := d.index.AddFacts(diffFacts, d.schema)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	node := models.NewMerge(d.head, other.head, d.source, now, diffFacts)

	newDb, err := d.commit(node, newIndex)
	if err != nil {
		return nil, err
	}
	logger.Info("factdb: merged %s and %s into %s", d.head, other.head, newDb.head)
	return newDb, nil
}

// commit computes the node's hash, stores it (idempotently) and advances
// the head ref, returning the Db snapshot that results.
func (d *Db) commit(node *models.Node, newIndex *models.Index) (*Db, error) {
	hash, err := codec.HashNode(node)
	if err != nil {
		return nil, err
	}
	node.SetHash(hash)

	encoded, err := codec.EncodeNode(node)
	if err != nil {
		return nil, err
	}

	if err := d.store.Add(storage.NodeKey(hash), encoded); err != nil && !errors.Is(err, models.ErrAlreadyExists) {
		return nil, err
	}

	if d.headExists {
		if err := d.store.Overwrite(storage.HeadKey, []byte(hash.String())); err != nil {
			return nil, err
		}
	} else {
		if err := d.store.Add(storage.HeadKey, []byte(hash.String())); err != nil {
			return nil, err
		}
	}

	return &Db{
		store:      d.store,
		head:       hash,
		headExists: true,
		index:      newIndex,
		schema:     d.schema,
		alloc:      d.alloc,
		defaults:   d.defaults,
		source:     d.source,
		writeMu:    d.writeMu,
	}, nil
}

// Pull reconstructs an entity as a value of target's type (a zero value or
// pointer of the desired struct type — only the type is used), steering
// which references are resolved via query (nil means no optional
// references resolved, nested objects left as stubs).
func (d *Db) Pull(eid models.EID, target interface{}, query *models.Query) (interface{}, error) {
	return models.Reconstruct(d.index, eid, reflect.TypeOf(target), query)
}

// Put destructures v into facts and commits them, returning the EID
// assigned to v's root (reused from v's ID field if already set) and the
// resulting Db.
func (d *Db) Put(v interface{}) (models.EID, *Db, error) {
	eid, facts, err := models.Destruct(d.schema, d.alloc, d.defaults, v, time.Now().UnixMilli())
	if err != nil {
		return models.NilEID, nil, err
	}
	newDb, err := d.Transact(facts)
	if err != nil {
		return models.NilEID, nil, err
	}
	return eid, newDb, nil
}

// Entity looks up the (at most one, since attr must be unique for this to
// be meaningful) entity currently asserting (attr, value).
func (d *Db) Entity(attr string, value models.Value) (models.EID, bool) {
	eids := d.index.EntitiesByAttrValue(attr, value)
	if len(eids) == 0 {
		return models.NilEID, false
	}
	return eids[0], true
}

// ReferencesTo returns every (attr, eid) pair whose attr references
// target, walking the VAE index in reverse.
func (d *Db) ReferencesTo(target models.EID) []models.Reference {
	return d.index.ReferencesTo(target)
}

// Stat reports operational counters about the current snapshot — a
// diagnostic, not a repair tool.
type Stat struct {
	Head           models.Hash
	ReachableNodes int
	EntityCount    int
}

// Stat walks from head counting reachable nodes and reports the live
// entity count of the current Index.
func (d *Db) Stat() (*Stat, error) {
	result, err := replay(d.store, d.head)
	if err != nil {
		return nil, err
	}
	return &Stat{
		Head:           d.head,
		ReachableNodes: result.reachable,
		EntityCount:    d.index.EntityCount(),
	}, nil
}
