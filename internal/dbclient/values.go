package dbclient

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"rite/internal/model"
)

// ── Value conversion ───────────────────────────────────────
// Drivers scan into int64, float64, bool, []byte, string, time.Time or nil.
// The column's database type name refines the mapping: DATE columns become
// Date, numeric columns returned as text are re-inferred, binary columns
// stay Blob.

func sqlValue(v any, dbType string) model.Value {
	switch x := v.(type) {
	case nil:
		return model.None()
	case int64:
		return model.I64(x)
	case int32:
		return model.I32(x)
	case int:
		return model.ISize(x)
	case uint64:
		return model.U64(x)
	case float64:
		return model.F64(x)
	case float32:
		return model.F32(x)
	case bool:
		return model.Bool(x)
	case time.Time:
		if dbType == "DATE" {
			return model.Date(x)
		}
		return model.Timestamp(x)
	case string:
		return textValue(x, dbType)
	case []byte:
		if isBinaryType(dbType) || !utf8.Valid(x) {
			return model.Blob(x)
		}
		return textValue(string(x), dbType)
	default:
		return model.Str(fmt.Sprint(x))
	}
}

func textValue(s, dbType string) model.Value {
	if isNumericType(dbType) {
		if v := model.InferNumber(s); !v.IsNone() {
			return v
		}
	}
	return model.Str(s)
}

func isNumericType(dbType string) bool {
	for _, t := range []string{"INT", "DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL"} {
		if strings.Contains(dbType, t) {
			return true
		}
	}
	return false
}

func isBinaryType(dbType string) bool {
	for _, t := range []string{"BLOB", "BINARY", "BYTEA"} {
		if strings.Contains(dbType, t) {
			return true
		}
	}
	return false
}

// SQLArg converts a value into a driver argument. 128-bit integers and
// unsigned values above MaxInt64 are passed as decimal text; collections
// and records are passed as JSON text.
func SQLArg(v model.Value) (any, error) {
	switch x := v.Interface().(type) {
	case nil, bool, string, float64, []byte, time.Time:
		return x, nil
	case rune:
		if v.Kind() == model.KindChar {
			return string(x), nil
		}
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return v.String(), nil
		}
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return v.String(), nil
		}
		return int64(x), nil
	case float32:
		return float64(x), nil
	default:
		switch v.Kind() {
		case model.KindI128, model.KindU128:
			return v.String(), nil
		case model.KindCollection, model.KindRecord:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			return string(b), nil
		}
		return nil, fmt.Errorf("unsupported value kind %s", v.Kind())
	}
}

// columnType returns the SQL column type used when creating a table for
// values of kind k.
func columnType(driver string, k model.Kind) string {
	switch k {
	case model.KindBool:
		return "BOOLEAN"
	case model.KindI8, model.KindI16, model.KindI32, model.KindU8, model.KindU16:
		return "INTEGER"
	case model.KindI64, model.KindISize, model.KindU32:
		return "BIGINT"
	case model.KindU64, model.KindUSize:
		// SQLArg sends values above MaxInt64 as decimal text.
		switch driver {
		case DriverSQLite:
			return "TEXT"
		case DriverPostgres:
			return "NUMERIC(20,0)"
		}
		return "DECIMAL(20,0)"
	case model.KindI128, model.KindU128:
		if driver == DriverSQLite {
			return "TEXT"
		}
		return "DECIMAL(39,0)"
	case model.KindF32, model.KindF64:
		switch driver {
		case DriverPostgres:
			return "DOUBLE PRECISION"
		case DriverMySQL:
			return "DOUBLE"
		}
		return "REAL"
	case model.KindBlob:
		if driver == DriverPostgres {
			return "BYTEA"
		}
		return "BLOB"
	case model.KindDate:
		return "DATE"
	case model.KindTimestamp:
		if driver == DriverPostgres {
			return "TIMESTAMP"
		}
		return "DATETIME"
	case model.KindCollection, model.KindRecord:
		switch driver {
		case DriverPostgres:
			return "JSONB"
		case DriverMySQL:
			return "JSON"
		}
		return "TEXT"
	default:
		return "TEXT"
	}
}

func quoteIdent(driver, name string) string {
	if driver == DriverMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func placeholder(driver string, n int) string {
	if driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
