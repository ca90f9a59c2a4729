package index

// Reserved field names. The submission stage guarantees both are present
// on every item before it reaches the drain engine.
const (
	// IDField carries the item identifier.
	IDField = "_id"
	// CategoryField carries the item's category classification.
	CategoryField = "_category"
)

// OpKind distinguishes add and delete operations.
type OpKind int

const (
	// OpAdd indexes (or re-indexes) an item.
	OpAdd OpKind = iota
	// OpDelete removes an item by id.
	OpDelete
)

// String returns the operation kind name for logging.
func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// FieldType declares how a field value is coerced before indexing.
type FieldType int

const (
	// TypeString indexes the value as analyzed text.
	TypeString FieldType = iota
	// TypeInt indexes a 32-bit integer.
	TypeInt
	// TypeLong indexes a 64-bit integer.
	TypeLong
	// TypeFloat indexes a 32-bit float.
	TypeFloat
	// TypeDouble indexes a 64-bit float.
	TypeDouble
	// TypeDateTime indexes a timestamp at full second resolution.
	TypeDateTime
	// TypeDateYear truncates the timestamp to the year.
	TypeDateYear
	// TypeDateMonth truncates the timestamp to the month.
	TypeDateMonth
	// TypeDateDay truncates the timestamp to the day.
	TypeDateDay
	// TypeDateHour truncates the timestamp to the hour.
	TypeDateHour
	// TypeDateMinute truncates the timestamp to the minute.
	TypeDateMinute
)

// String returns the field type name.
func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeLong:
		return "long"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeDateTime:
		return "datetime"
	case TypeDateYear:
		return "date.year"
	case TypeDateMonth:
		return "date.month"
	case TypeDateDay:
		return "date.day"
	case TypeDateHour:
		return "date.hour"
	case TypeDateMinute:
		return "date.minute"
	default:
		return "unknown"
	}
}

// ParseFieldType resolves a field type name as produced by
// FieldType.String. Unknown names fall back to TypeString with ok=false.
func ParseFieldType(name string) (FieldType, bool) {
	for t := TypeString; t <= TypeDateMinute; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return TypeString, false
}

// Field is a single named value on an item.
type Field struct {
	Name     string
	Value    any
	Type     FieldType
	Sortable bool
}

// Item is one logical document submitted for indexing.
//
// Fields keeps submission order; duplicate names are allowed and the last
// occurrence wins at conversion time.
type Item struct {
	ID       string
	Category string
	Fields   []Field
}

// Clone returns a deep-enough copy for safe mutation by the submission
// stage (the fields slice is copied, values are shared).
func (it Item) Clone() Item {
	fields := make([]Field, len(it.Fields))
	copy(fields, it.Fields)
	it.Fields = fields
	return it
}

// HasField reports whether a field with the given name is present.
func (it Item) HasField(name string) bool {
	for _, f := range it.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Operation is one queued pipeline mutation.
type Operation struct {
	Kind OpKind
	Item Item
}

// Add builds an add operation for the given item.
func Add(item Item) Operation {
	return Operation{Kind: OpAdd, Item: item}
}

// Delete builds a delete operation for the given id.
func Delete(id string) Operation {
	return Operation{Kind: OpDelete, Item: Item{ID: id}}
}
