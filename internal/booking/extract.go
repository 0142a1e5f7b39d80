package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var errAbsent = errors.New("booking: field absent")

// amountStrategy is one accessor in an ordered fallback chain.
type amountStrategy struct {
	name    string
	extract func(Raw) (decimal.Decimal, error)
}

// Precedence is significant: the first strategy that yields a value wins.
var grossStrategies = []amountStrategy{
	{name: "price.totalGross", extract: pathAmount("price", "totalGross", "amount")},
	{name: "finalPrice", extract: pathAmount("finalPrice", "amount")},
	{name: "totalPrice", extract: pathAmount("totalPrice", "amount")},
	{name: "payments", extract: sumPayments},
}

var paidStrategies = []amountStrategy{
	{name: "price.totalPaid", extract: pathAmount("price", "totalPaid", "amount")},
	{name: "payments", extract: sumPayments},
}

type textStrategy func(Raw) (string, bool)

var idStrategies = []textStrategy{
	pathText("bookingNumber"),
	pathText("id"),
	pathText("bookingId"),
}

var customerStrategies = []textStrategy{
	pathText("title"),
	customerFullName,
}

var roomStrategies = []textStrategy{
	pathText("productName"),
	pathText("product", "name"),
	firstResourceName,
}

// resolveAmount walks the chain and reports which strategy matched. invalid is
// set when some field was present but could not be parsed.
func resolveAmount(raw Raw, chain []amountStrategy) (value decimal.Decimal, source string, invalid bool) {
	for _, s := range chain {
		v, err := s.extract(raw)
		if err == nil {
			return v, s.name, invalid
		}
		if !errors.Is(err, errAbsent) {
			invalid = true
		}
	}
	return decimal.Zero, "default", invalid
}

func resolveText(raw Raw, chain []textStrategy, fallback string) string {
	for _, s := range chain {
		if v, ok := s(raw); ok {
			return v
		}
	}
	return fallback
}

func lookup(raw Raw, path ...string) (any, bool) {
	var cur any = map[string]any(raw)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func pathAmount(path ...string) func(Raw) (decimal.Decimal, error) {
	return func(raw Raw) (decimal.Decimal, error) {
		v, ok := lookup(raw, path...)
		if !ok {
			return decimal.Zero, errAbsent
		}
		return toDecimal(v)
	}
}

func sumPayments(raw Raw) (decimal.Decimal, error) {
	v, ok := lookup(raw, "payments")
	if !ok {
		return decimal.Zero, errAbsent
	}
	list, ok := v.([]any)
	if !ok {
		return decimal.Zero, fmt.Errorf("booking: payments is %T", v)
	}
	total := decimal.Zero
	found := false
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		amount, err := pathAmount("amount", "amount")(Raw(entry))
		if err != nil {
			continue
		}
		total = total.Add(amount)
		found = true
	}
	if !found {
		return decimal.Zero, errAbsent
	}
	return total, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case json.Number:
		return decimal.NewFromString(val.String())
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return decimal.Zero, errAbsent
		}
		return decimal.NewFromString(s)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Zero, fmt.Errorf("booking: non-finite amount")
		}
		return decimal.NewFromFloat(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	default:
		return decimal.Zero, fmt.Errorf("booking: unsupported amount type %T", v)
	}
}

func toText(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	default:
		return "", false
	}
}

func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return int(n), true
		}
		if f, err := val.Float64(); err == nil {
			return int(f), true
		}
	case float64:
		return int(val), true
	case int:
		return val, true
	case int64:
		return int(val), true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func pathText(path ...string) textStrategy {
	return func(raw Raw) (string, bool) {
		v, ok := lookup(raw, path...)
		if !ok {
			return "", false
		}
		return toText(v)
	}
}

func customerFullName(raw Raw) (string, bool) {
	first, ok := pathText("customer", "firstName")(raw)
	if !ok {
		return "", false
	}
	if last, ok := pathText("customer", "lastName")(raw); ok {
		return first + " " + last, true
	}
	return first, true
}

func firstResourceName(raw Raw) (string, bool) {
	v, ok := lookup(raw, "resources")
	if !ok {
		return "", false
	}
	list, ok := v.([]any)
	if !ok {
		return "", false
	}
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := pathText("name")(Raw(entry)); ok {
			return name, true
		}
	}
	return "", false
}

func participantCount(raw Raw) int {
	v, ok := lookup(raw, "participants", "numbers")
	if !ok {
		return 0
	}
	list, ok := v.([]any)
	if !ok {
		return 0
	}
	total := 0
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if n, ok := toInt(entry["number"]); ok {
			total += n
		}
	}
	return total
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp keeping the source offset.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func timestamp(raw Raw, key string) (time.Time, bool) {
	v, ok := pathText(key)(raw)
	if !ok {
		return Epoch, false
	}
	t, ok := ParseTimestamp(v)
	if !ok {
		return Epoch, false
	}
	return t, true
}

func leadDays(event, created time.Time) int {
	hours := event.Sub(created).Hours()
	return int(math.Floor(hours / 24))
}
