// Package store runs query-engine statements against PostgreSQL and converts the rows it
// gets back into the dynamically-typed values of package query.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sundayezeilo/edgelink/internal/query"
)

// querier is the subset of *pgxpool.Pool the executor needs.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Executor implements query.Executor on top of a pgx connection pool.
// Statement variables are bound as named arguments (@name).
type Executor struct {
	db     querier
	logger *slog.Logger

	// table names by OID; catalog entries do not change while the process runs
	tables sync.Map
}

// ExecutorConfig holds optional executor settings.
type ExecutorConfig struct {
	Logger *slog.Logger
}

// NewExecutor creates an Executor sharing db across all callers.
func NewExecutor(db querier, cfg *ExecutorConfig) *Executor {
	if cfg == nil {
		cfg = &ExecutorConfig{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{db: db, logger: logger}
}

type rawRows struct {
	fields []pgconn.FieldDescription
	values [][]any
}

// Execute runs a single statement and returns its outcome as one query.Response.
// Errors reported by the server (syntax, constraints) are carried in Response.Err;
// connection and context failures are returned directly.
func (e *Executor) Execute(ctx context.Context, stmt string, vars query.Vars) ([]query.Response, error) {
	start := time.Now()

	args, err := namedArgs(vars)
	if err != nil {
		return []query.Response{{Err: err, Time: time.Since(start)}}, nil
	}

	raw, err := e.run(ctx, stmt, args)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			e.logger.DebugContext(ctx, "statement rejected",
				"code", pgErr.Code,
				"error", pgErr.Message,
			)
			return []query.Response{{Err: err, Time: time.Since(start)}}, nil
		}
		return nil, fmt.Errorf("execute statement: %w", err)
	}

	result, err := e.toArray(ctx, raw)
	if err != nil {
		return []query.Response{{Err: err, Time: time.Since(start)}}, nil
	}

	elapsed := time.Since(start)
	e.logger.DebugContext(ctx, "statement executed",
		"rows", len(result),
		"duration_ms", elapsed.Milliseconds(),
	)

	return []query.Response{{Result: result, Time: elapsed}}, nil
}

func (e *Executor) run(ctx context.Context, stmt string, args pgx.NamedArgs) (rawRows, error) {
	rows, err := e.db.Query(ctx, stmt, args)
	if err != nil {
		return rawRows{}, err
	}
	defer rows.Close()

	raw := rawRows{fields: rows.FieldDescriptions()}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return rawRows{}, err
		}
		raw.values = append(raw.values, vals)
	}
	if err := rows.Err(); err != nil {
		return rawRows{}, err
	}
	return raw, nil
}

// toArray converts buffered rows into an Array of Objects. Table names for identifier
// columns are resolved after the rows are closed so that a pool of one connection
// cannot deadlock.
func (e *Executor) toArray(ctx context.Context, raw rawRows) (query.Array, error) {
	tables := make([]string, len(raw.fields))
	for i, fd := range raw.fields {
		if fd.DataTypeOID != pgtype.UUIDOID || fd.TableOID == 0 {
			continue
		}
		name, err := e.tableName(ctx, fd.TableOID)
		if err != nil {
			return nil, err
		}
		tables[i] = name
	}

	out := make(query.Array, 0, len(raw.values))
	for _, vals := range raw.values {
		obj := make(query.Object, len(raw.fields))
		for i, fd := range raw.fields {
			v, err := toValue(vals[i])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", fd.Name, err)
			}
			if thing, ok := v.(query.Thing); ok {
				thing.Table = tables[i]
				v = thing
			}
			obj[fd.Name] = v
		}
		out = append(out, obj)
	}
	return out, nil
}

func (e *Executor) tableName(ctx context.Context, oid uint32) (string, error) {
	if name, ok := e.tables.Load(oid); ok {
		return name.(string), nil
	}

	var name string
	if err := e.db.QueryRow(ctx, "SELECT relname FROM pg_catalog.pg_class WHERE oid = $1", oid).Scan(&name); err != nil {
		return "", fmt.Errorf("resolve table %d: %w", oid, err)
	}
	e.tables.Store(oid, name)
	return name, nil
}

// namedArgs converts statement variables into pgx named arguments.
func namedArgs(vars query.Vars) (pgx.NamedArgs, error) {
	args := make(pgx.NamedArgs, len(vars))
	for name, v := range vars {
		arg, err := toArg(v)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		args[name] = arg
	}
	return args, nil
}

// toArg converts a query.Value into a value pgx can encode. Records and arrays are
// sent as JSON so statements can unpack them with jsonb functions.
func toArg(v query.Value) (any, error) {
	switch x := v.(type) {
	case nil, query.None:
		return nil, nil
	case query.Bool:
		return bool(x), nil
	case query.Number:
		return float64(x), nil
	case query.String:
		return string(x), nil
	case query.Datetime:
		return time.Time(x), nil
	case query.Thing:
		return x.ID, nil
	case query.Array, query.Object:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported value %T", v)
	}
}

// toValue converts a Go value produced by pgx into a query.Value.
func toValue(v any) (query.Value, error) {
	switch x := v.(type) {
	case nil:
		return query.None{}, nil
	case bool:
		return query.Bool(x), nil
	case string:
		return query.String(x), nil
	case []byte:
		return query.String(string(x)), nil
	case int16:
		return query.Number(x), nil
	case int32:
		return query.Number(x), nil
	case int64:
		return query.Number(x), nil
	case int:
		return query.Number(x), nil
	case float32:
		return query.Number(x), nil
	case float64:
		return query.Number(x), nil
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil {
			return nil, err
		}
		if !f.Valid {
			return query.None{}, nil
		}
		return query.Number(f.Float64), nil
	case time.Time:
		return query.Datetime(x), nil
	case [16]byte:
		return query.Thing{ID: uuid.UUID(x).String()}, nil
	case uuid.UUID:
		return query.Thing{ID: x.String()}, nil
	case pgtype.UUID:
		if !x.Valid {
			return query.None{}, nil
		}
		return query.Thing{ID: uuid.UUID(x.Bytes).String()}, nil
	case []any:
		arr := make(query.Array, 0, len(x))
		for _, el := range x {
			ev, err := toValue(el)
			if err != nil {
				return nil, err
			}
			arr = append(arr, ev)
		}
		return arr, nil
	case map[string]any:
		obj := make(query.Object, len(x))
		for k, el := range x {
			ev, err := toValue(el)
			if err != nil {
				return nil, err
			}
			obj[k] = ev
		}
		return obj, nil
	default:
		return query.String(fmt.Sprint(x)), nil
	}
}
