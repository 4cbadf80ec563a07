package dialect

import (
	"fmt"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/ast"
)

// Statement is one rendered SQL statement and the operation it came from.
type Statement struct {
	Index int // Position of Op within its migration
	Op    ast.Operation
	SQL   string
}

// TranslateFunc renders a single operation for a dialect.
type TranslateFunc func(d Dialect, op ast.Operation) (string, error)

// Translator turns an operation sequence into executable statements for one
// dialect. It checks capabilities up front so an unsupported sequence yields
// an error before anything is rendered.
type Translator struct {
	dialect   Dialect
	overrides map[ast.OpType]TranslateFunc
}

// NewTranslator creates a translator for the given dialect.
func NewTranslator(d Dialect) *Translator {
	return &Translator{
		dialect:   d,
		overrides: make(map[ast.OpType]TranslateFunc),
	}
}

// Dialect returns the translator's dialect.
func (t *Translator) Dialect() Dialect {
	return t.dialect
}

// Register replaces the rendering of one operation kind.
func (t *Translator) Register(kind ast.OpType, fn TranslateFunc) {
	t.overrides[kind] = fn
}

// Translate renders ops in order. Foreign keys marked Deferred are emitted
// after every other statement. When the dialect cannot alter foreign keys,
// a CreateForeignKey on a table created earlier in ops is folded into that
// CREATE TABLE, and a DropForeignKey on a table dropped later in ops is elided.
func (t *Translator) Translate(ops []ast.Operation) ([]Statement, error) {
	plan, err := t.planForeignKeys(ops)
	if err != nil {
		return nil, err
	}
	if err := t.checkIndexes(ops); err != nil {
		return nil, err
	}

	var (
		stmts    []Statement
		deferred []Statement
	)
	for i, op := range ops {
		if plan.skip[i] {
			continue
		}

		var sql string
		if ct, ok := op.(*ast.CreateTable); ok && t.overrides[ast.OpCreateTable] == nil {
			sql, err = t.dialect.CreateTableSQL(ct, plan.folded[i])
		} else {
			sql, err = t.render(op)
		}
		if err != nil {
			return nil, wrapTranslateError(err, i, op)
		}

		stmt := Statement{Index: i, Op: op, SQL: sql}
		if fk, ok := op.(*ast.CreateForeignKey); ok && fk.Deferred {
			deferred = append(deferred, stmt)
			continue
		}
		stmts = append(stmts, stmt)
	}

	return append(stmts, deferred...), nil
}

// render dispatches one operation to an override or the dialect.
func (t *Translator) render(op ast.Operation) (string, error) {
	if fn, ok := t.overrides[op.Type()]; ok {
		return fn(t.dialect, op)
	}

	switch o := op.(type) {
	case *ast.CreateTable:
		return t.dialect.CreateTableSQL(o, nil)
	case *ast.DropTable:
		return t.dialect.DropTableSQL(o)
	case *ast.AddColumn:
		return t.dialect.AddColumnSQL(o)
	case *ast.DropColumn:
		return t.dialect.DropColumnSQL(o)
	case *ast.CreateForeignKey:
		return t.dialect.CreateForeignKeySQL(o)
	case *ast.DropForeignKey:
		return t.dialect.DropForeignKeySQL(o)
	case *ast.CreateIndex:
		return t.dialect.CreateIndexSQL(o)
	case *ast.DropIndex:
		return t.dialect.DropIndexSQL(o)
	default:
		return "", alerr.New(alerr.EInternalError, fmt.Sprintf("unknown operation type %T", op))
	}
}

// -----------------------------------------------------------------------------
// Capability checks
// -----------------------------------------------------------------------------

// fkPlan records which operations are folded into a CREATE TABLE or elided.
type fkPlan struct {
	folded map[int][]*ast.ForeignKeyDef // CreateTable index -> folded foreign keys
	skip   map[int]bool                 // operation indexes that produce no statement
}

func (t *Translator) planForeignKeys(ops []ast.Operation) (*fkPlan, error) {
	plan := &fkPlan{
		folded: make(map[int][]*ast.ForeignKeyDef),
		skip:   make(map[int]bool),
	}
	if t.dialect.Capabilities().AlterForeignKeys {
		return plan, nil
	}

	for i, op := range ops {
		switch o := op.(type) {
		case *ast.CreateForeignKey:
			at := creatingIndex(ops, i, o.TableName, o.Column)
			if at < 0 {
				return nil, t.unsupportedFK(i, op, "ADD FOREIGN KEY on an existing table").
					WithHelp("declare the foreign key in the same migration as its CREATE TABLE")
			}
			fk := o.ForeignKeyDef
			plan.folded[at] = append(plan.folded[at], &fk)
			plan.skip[i] = true
		case *ast.DropForeignKey:
			if !droppedLater(ops, i, o.TableName) {
				return nil, t.unsupportedFK(i, op, "DROP FOREIGN KEY").
					WithHelp("drop the owning table in the same migration instead")
			}
			plan.skip[i] = true
		}
	}
	return plan, nil
}

// creatingIndex returns the index of the CreateTable before pos that created
// table with column, or -1 when the table predates ops or was dropped since.
func creatingIndex(ops []ast.Operation, pos int, table, column string) int {
	for j := pos - 1; j >= 0; j-- {
		switch o := ops[j].(type) {
		case *ast.DropTable:
			if o.Name == table {
				return -1
			}
		case *ast.CreateTable:
			if o.Name == table {
				if o.GetColumn(column) == nil {
					return -1
				}
				return j
			}
		}
	}
	return -1
}

// droppedLater reports whether table is dropped after pos.
func droppedLater(ops []ast.Operation, pos int, table string) bool {
	for _, op := range ops[pos+1:] {
		if dt, ok := op.(*ast.DropTable); ok && dt.Name == table {
			return true
		}
	}
	return false
}

func (t *Translator) checkIndexes(ops []ast.Operation) error {
	if t.dialect.Capabilities().FilteredIndexes {
		return nil
	}
	for i, op := range ops {
		if ci, ok := op.(*ast.CreateIndex); ok && ci.Filter != "" {
			return alerr.NewUnsupportedError(t.dialect.Name(), "filtered indexes").
				WithTable(ci.TableName).
				With("index", ci.Name).
				With("operation", i)
		}
	}
	return nil
}

func (t *Translator) unsupportedFK(i int, op ast.Operation, feature string) *alerr.Error {
	return alerr.NewUnsupportedError(t.dialect.Name(), feature).
		WithTable(op.Table()).
		With("operation", i)
}

// wrapTranslateError tags a rendering error with the failing operation.
func wrapTranslateError(err error, i int, op ast.Operation) error {
	if e, ok := err.(*alerr.Error); ok {
		return e.With("operation", i)
	}
	return alerr.Wrap(alerr.EInternalError, err, "failed to render "+ast.Describe(op)).
		With("operation", i)
}
