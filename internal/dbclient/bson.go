package dbclient

import (
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"rite/internal/model"
)

// docRecord converts a decoded document into a record, keeping key order.
func docRecord(doc bson.D) *model.Record {
	rec := model.NewRecord()
	for _, elem := range doc {
		rec.Add(elem.Key, bsonValue(elem.Value))
	}
	return rec
}

// bsonValue maps a decoded BSON value onto a model value. ObjectIDs become
// their hex string, DateTime and Timestamp become Timestamp (UTC), and
// Decimal128 goes through number inference.
func bsonValue(v any) model.Value {
	switch x := v.(type) {
	case nil, bson.Null, bson.Undefined:
		return model.None()
	case bool:
		return model.Bool(x)
	case int32:
		return model.I32(x)
	case int64:
		return model.I64(x)
	case float64:
		return model.F64(x)
	case string:
		return model.Str(x)
	case bson.ObjectID:
		return model.Str(x.Hex())
	case bson.DateTime:
		return model.Timestamp(x.Time().UTC())
	case bson.Timestamp:
		return model.Timestamp(time.Unix(int64(x.T), 0).UTC())
	case bson.Binary:
		return model.Blob(x.Data)
	case bson.Decimal128:
		if n := model.InferNumber(x.String()); !n.IsNone() {
			return n
		}
		return model.Str(x.String())
	case bson.Regex:
		return model.Str(x.Pattern)
	case bson.D:
		return model.Nested(docRecord(x))
	case bson.M:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rec := model.NewRecord()
		for _, k := range keys {
			rec.Add(k, bsonValue(x[k]))
		}
		return model.Nested(rec)
	case bson.A:
		items := make([]model.Value, len(x))
		for i, item := range x {
			items[i] = bsonValue(item)
		}
		return model.Collection(items...)
	default:
		return model.Str(fmt.Sprint(x))
	}
}

// RecordDoc converts a record into an ordered BSON document.
func RecordDoc(rec *model.Record) bson.D {
	doc := make(bson.D, 0, rec.Len())
	for _, f := range rec.Fields() {
		doc = append(doc, bson.E{Key: f.Name(), Value: bsonOf(f.Value())})
	}
	return doc
}

// bsonOf maps a value onto the closest BSON type. Small integers become
// int32, wider ones int64; 128-bit integers and uint64 values above
// MaxInt64 become Decimal128. Dates are stored as DateTime at midnight UTC.
func bsonOf(v model.Value) any {
	switch v.Kind() {
	case model.KindNone:
		return nil
	case model.KindChar, model.KindString:
		return v.String()
	case model.KindI8, model.KindI16, model.KindI32, model.KindU8, model.KindU16:
		n, _ := SQLArg(v)
		return int32(n.(int64))
	case model.KindI64, model.KindISize, model.KindU32:
		n, _ := SQLArg(v)
		return n
	case model.KindU64, model.KindUSize:
		if n, _ := SQLArg(v); n != nil {
			if i, ok := n.(int64); ok {
				return i
			}
		}
		return decimal(v.String())
	case model.KindI128, model.KindU128:
		return decimal(v.String())
	case model.KindF32, model.KindF64:
		n, _ := SQLArg(v)
		return n
	case model.KindBlob:
		b, _ := v.Blob()
		return bson.Binary{Subtype: 0x00, Data: b}
	case model.KindDate, model.KindTimestamp:
		return bson.NewDateTimeFromTime(v.Interface().(time.Time))
	case model.KindCollection:
		items, _ := v.Collection()
		arr := make(bson.A, len(items))
		for i, item := range items {
			arr[i] = bsonOf(item)
		}
		return arr
	case model.KindRecord:
		rec, _ := v.Record()
		return RecordDoc(rec)
	default:
		return v.Interface()
	}
}

func decimal(s string) any {
	d, err := bson.ParseDecimal128(s)
	if err != nil {
		return s
	}
	return d
}
