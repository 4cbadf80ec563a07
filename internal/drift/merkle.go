// Package drift fingerprints schema models with merkle trees so two models,
// or two points of a migration history, can be compared by a single root
// and then drilled into table by table.
package drift

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/cbergoon/merkletree"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/engine/state"
)

// SchemaHash is the merkle fingerprint of a schema model.
type SchemaHash struct {
	Root   string                // Root hash of the whole schema
	Tables map[string]*TableHash // Per-table hashes for drill-down
}

// TableHash is the fingerprint of a single table.
type TableHash struct {
	Name    string
	Hash    string            // Hash of the entire table structure
	Columns map[string]string // Column name -> hash
	Indexes map[string]string // Index name -> hash
	FKs     map[string]string // FK name -> hash
}

// leaf implements merkletree.Content over a precomputed hex digest.
type leaf struct {
	hash string
}

func (l leaf) CalculateHash() ([]byte, error) {
	h := sha256.Sum256([]byte(l.hash))
	return h[:], nil
}

func (l leaf) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(leaf)
	if !ok {
		return false, nil
	}
	return l.hash == o.hash, nil
}

// merkleRoot builds a tree over the given leaf digests. An empty input
// yields the hash of emptyTag.
func merkleRoot(hashes []string, emptyTag string) (string, error) {
	if len(hashes) == 0 {
		return hashString(emptyTag), nil
	}
	contents := make([]merkletree.Content, len(hashes))
	for i, h := range hashes {
		contents[i] = leaf{hash: h}
	}
	tree, err := merkletree.NewTree(contents)
	if err != nil {
		return "", alerr.Wrap(alerr.EInternalError, err, "failed to build merkle tree")
	}
	return hex.EncodeToString(tree.MerkleRoot()), nil
}

// Fingerprint computes the merkle fingerprint of a schema model. Two models
// with the same tables, columns, keys and indexes produce the same root no
// matter in which order they were built.
func Fingerprint(schema *state.Schema) (*SchemaHash, error) {
	result := &SchemaHash{Tables: make(map[string]*TableHash)}
	if schema == nil {
		schema = state.NewSchema()
	}

	names := schema.TableNames()
	hashes := make([]string, 0, len(names))
	for _, name := range names {
		th := computeTableHash(schema.Tables[name])
		result.Tables[name] = th
		hashes = append(hashes, th.Hash)
	}

	root, err := merkleRoot(hashes, "empty_schema")
	if err != nil {
		return nil, err
	}
	result.Root = root
	return result, nil
}

func computeTableHash(table *state.Table) *TableHash {
	result := &TableHash{
		Name:    table.Name,
		Columns: make(map[string]string, len(table.Columns)),
		Indexes: make(map[string]string, len(table.Indexes)),
		FKs:     make(map[string]string, len(table.ForeignKeys)),
	}

	// Column order is part of the table's shape.
	columnHashes := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		h := computeColumnHash(col)
		result.Columns[col.Name] = h
		columnHashes = append(columnHashes, col.Name+":"+h)
	}

	for _, idx := range table.Indexes {
		result.Indexes[idx.Name] = computeIndexHash(idx)
	}
	for _, fk := range table.ForeignKeys {
		result.FKs[fk.Name] = computeFKHash(fk)
	}

	tableData := fmt.Sprintf("table:%s|columns:[%s]|pk:[%s]|indexes:[%s]|fks:[%s]",
		table.Name,
		strings.Join(columnHashes, ","),
		strings.Join(table.PrimaryKey, ","),
		joinSorted(result.Indexes),
		joinSorted(result.FKs),
	)
	result.Hash = hashString(tableData)
	return result
}

func computeColumnHash(col *ast.ColumnDef) string {
	data := fmt.Sprintf("name:%s|type:%s|nullable:%v|len:%d|precision:%d|scale:%d",
		col.Name,
		col.Type,
		col.Nullable,
		col.MaxLength,
		col.Precision,
		col.Scale,
	)
	if col.HasDefault() {
		data += "|default:" + col.Default
	}
	return hashString(data)
}

func computeIndexHash(idx *ast.IndexDef) string {
	data := fmt.Sprintf("name:%s|columns:[%s]|unique:%v",
		idx.Name,
		strings.Join(idx.Columns, ","),
		idx.Unique,
	)
	if idx.Filter != "" {
		data += "|filter:" + idx.Filter
	}
	return hashString(data)
}

// computeFKHash ignores Deferred: it changes when a reference is checked,
// not what the schema looks like afterwards.
func computeFKHash(fk *ast.ForeignKeyDef) string {
	return hashString(fmt.Sprintf("name:%s|column:%s|ref:%s.%s|on_delete:%s",
		fk.Name,
		fk.Column,
		fk.RefTable,
		fk.RefColumn,
		fk.OnDelete,
	))
}

// joinSorted renders name:hash pairs in name order.
func joinSorted(m map[string]string) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ":" + m[name]
	}
	return strings.Join(parts, ",")
}

// hashString computes the SHA256 hash of a string as hex.
func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// -----------------------------------------------------------------------------
// Comparison
// -----------------------------------------------------------------------------

// Comparison is the result of comparing two schema fingerprints.
type Comparison struct {
	Match      bool
	BeforeRoot string
	AfterRoot  string
	TableDiffs map[string]*TableDiff // Tables present in both with different hashes
	Added      []string              // Tables only in after
	Removed    []string              // Tables only in before
}

// TableDiff lists the differences within one table.
type TableDiff struct {
	Name            string
	AddedColumns    []string
	RemovedColumns  []string
	ModifiedColumns []string
	AddedIndexes    []string
	RemovedIndexes  []string
	ModifiedIndexes []string
	AddedFKs        []string
	RemovedFKs      []string
	ModifiedFKs     []string
}

// HasDifferences returns true if any column, index or FK differs. A table
// can differ only in column order or primary key and still report false.
func (d *TableDiff) HasDifferences() bool {
	return len(d.AddedColumns) > 0 ||
		len(d.RemovedColumns) > 0 ||
		len(d.ModifiedColumns) > 0 ||
		len(d.AddedIndexes) > 0 ||
		len(d.RemovedIndexes) > 0 ||
		len(d.ModifiedIndexes) > 0 ||
		len(d.AddedFKs) > 0 ||
		len(d.RemovedFKs) > 0 ||
		len(d.ModifiedFKs) > 0
}

// Compare reports how after differs from before.
func Compare(before, after *SchemaHash) *Comparison {
	result := &Comparison{
		Match:      before.Root == after.Root,
		BeforeRoot: before.Root,
		AfterRoot:  after.Root,
		TableDiffs: make(map[string]*TableDiff),
	}
	if result.Match {
		return result
	}

	for name, bt := range before.Tables {
		at, ok := after.Tables[name]
		if !ok {
			result.Removed = append(result.Removed, name)
			continue
		}
		if bt.Hash != at.Hash {
			result.TableDiffs[name] = compareTables(bt, at)
		}
	}
	for name := range after.Tables {
		if _, ok := before.Tables[name]; !ok {
			result.Added = append(result.Added, name)
		}
	}
	sort.Strings(result.Added)
	sort.Strings(result.Removed)
	return result
}

// ModifiedTables returns the names of tables with diffs, sorted.
func (c *Comparison) ModifiedTables() []string {
	names := make([]string, 0, len(c.TableDiffs))
	for name := range c.TableDiffs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func compareTables(before, after *TableHash) *TableDiff {
	diff := &TableDiff{Name: before.Name}
	diff.AddedColumns, diff.RemovedColumns, diff.ModifiedColumns = compareMaps(before.Columns, after.Columns)
	diff.AddedIndexes, diff.RemovedIndexes, diff.ModifiedIndexes = compareMaps(before.Indexes, after.Indexes)
	diff.AddedFKs, diff.RemovedFKs, diff.ModifiedFKs = compareMaps(before.FKs, after.FKs)
	return diff
}

// compareMaps returns the sorted keys added, removed and changed between two
// name -> hash maps.
func compareMaps(before, after map[string]string) (added, removed, modified []string) {
	for name, h := range before {
		ah, ok := after[name]
		switch {
		case !ok:
			removed = append(removed, name)
		case ah != h:
			modified = append(modified, name)
		}
	}
	for name := range after {
		if _, ok := before[name]; !ok {
			added = append(added, name)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(modified)
	return added, removed, modified
}
