package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lookup resolves a dot path such as "propertyId.name" against a decoded
// document. Embedded documents may be maps or ordered bson documents.
func Lookup(doc map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		next, ok := child(cur, part)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func child(v interface{}, key string) (interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		c, ok := m[key]
		return c, ok
	case primitive.M:
		c, ok := m[key]
		return c, ok
	case primitive.D:
		for _, e := range m {
			if e.Key == key {
				return e.Value, true
			}
		}
	case []interface{}:
		return index(m, key)
	case primitive.A:
		return index(m, key)
	}
	return nil, false
}

func index(a []interface{}, key string) (interface{}, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= len(a) {
		return nil, false
	}
	return a[i], true
}

// FormatValue renders a field value as cell text. Missing values are empty.
func FormatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return formatTime(x)
	case *time.Time:
		if x == nil {
			return ""
		}
		return formatTime(*x)
	case primitive.DateTime:
		return formatTime(x.Time())
	case primitive.ObjectID:
		return x.Hex()
	case primitive.Decimal128:
		return x.String()
	case []interface{}:
		return joinValues(x)
	case primitive.A:
		return joinValues(x)
	case primitive.M, primitive.D, map[string]interface{}:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func formatTime(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

func joinValues(a []interface{}) string {
	parts := make([]string, len(a))
	for i, v := range a {
		parts[i] = FormatValue(v)
	}
	return strings.Join(parts, "; ")
}

// Cell resolves path in doc and formats it.
func Cell(doc map[string]interface{}, path string) string {
	v, ok := Lookup(doc, path)
	if !ok {
		return ""
	}
	return FormatValue(v)
}
