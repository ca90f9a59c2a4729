package store

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/zhhbo/Examine/internal/errors"
	"github.com/zhhbo/Examine/pkg/index"
)

// SortPrefix marks the extra keyword-form field emitted for sortable
// fields.
const SortPrefix = "_sort_"

// Date resolution layouts, coarsest to finest.
var dateLayouts = map[index.FieldType]string{
	index.TypeDateYear:   "2006",
	index.TypeDateMonth:  "200601",
	index.TypeDateDay:    "20060102",
	index.TypeDateHour:   "2006010215",
	index.TypeDateMinute: "200601021504",
	index.TypeDateTime:   "20060102150405",
}

// Convert maps an item's typed fields into the flat string/number form
// the bleve mapping indexes. A field that cannot be coerced to its
// declared type is skipped and reported in the returned error slice; the
// document is still indexable. Duplicate field names keep the last
// occurrence, reserved fields always win.
func (s *Store) Convert(item index.Item) (index.Document, []error) {
	doc := make(index.Document, len(item.Fields)+2)
	var errs []error

	for _, f := range item.Fields {
		val, err := convertValue(f)
		if err != nil {
			errs = append(errs, errors.Newf(errors.ErrCodeFieldConversion, err,
				"field %q: cannot convert %v to %s", f.Name, f.Value, f.Type).WithItem(item.ID))
			continue
		}
		doc[f.Name] = val
		if f.Sortable {
			doc[SortPrefix+f.Name] = fmt.Sprintf("%v", val)
		}
	}

	doc[index.IDField] = item.ID
	doc[index.CategoryField] = item.Category
	return doc, errs
}

// convertValue coerces a single field value to its declared type.
func convertValue(f index.Field) (any, error) {
	if f.Value == nil {
		return nil, fmt.Errorf("nil value")
	}

	switch f.Type {
	case index.TypeString:
		return toString(f.Value), nil

	case index.TypeInt:
		n, err := toInt64(f.Value)
		if err != nil {
			return nil, err
		}
		if n > 1<<31-1 || n < -(1<<31) {
			return nil, fmt.Errorf("value %d out of int32 range", n)
		}
		return n, nil

	case index.TypeLong:
		return toInt64(f.Value)

	case index.TypeFloat, index.TypeDouble:
		return toFloat64(f.Value)

	case index.TypeDateTime, index.TypeDateYear, index.TypeDateMonth,
		index.TypeDateDay, index.TypeDateHour, index.TypeDateMinute:
		t, err := toTime(f.Value)
		if err != nil {
			return nil, err
		}
		return t.UTC().Format(dateLayouts[f.Type]), nil

	default:
		return nil, fmt.Errorf("unknown field type %d", f.Type)
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported integer source %T", v)
	}
}

// floatToInt64 accepts whole-number floats only; JSON decodes every
// number as float64, so integral values must pass.
func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-integral value %v", f)
	}
	return int64(f), nil
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("unsupported float source %T", v)
	}
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case int64:
		return time.Unix(t, 0), nil
	case string:
		for _, layout := range []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02",
			"20060102150405",
		} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable time %q", t)
	default:
		return time.Time{}, fmt.Errorf("unsupported time source %T", v)
	}
}
