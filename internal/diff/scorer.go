package diff

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
)

// Result is the outcome of comparing one source document with its
// destination counterpart. A nil Diff means there was nothing to compare.
type Result struct {
	Diff     Delta   `json:"diff"`
	Accuracy float64 `json:"accuracy"`
}

// Options tune a single comparison.
type Options struct {
	// CriticalKey names a field that must match case-insensitively or the
	// whole comparison scores zero.
	CriticalKey string
	// Obfuscate base64-encodes secret-bearing fields before comparing.
	Obfuscate bool
	// ParentGroup is the destination namespace prefix the critical key is
	// expected to carry.
	ParentGroup string
}

// obfuscatedKeys holds the fields whose values never appear in a report.
var obfuscatedKeys = []string{"value", "key", "runners_token"}

// Scorer computes diffs and accuracies.
type Scorer struct {
	log *slog.Logger
}

// NewScorer returns a Scorer logging to log.
func NewScorer(log *slog.Logger) *Scorer {
	if log == nil {
		log = slog.Default()
	}
	return &Scorer{log: log}
}

// Empty is the result recorded when the source has nothing to compare.
func Empty() Result {
	return Result{Diff: nil, Accuracy: 1}
}

// MissingAsset returns the placeholder destination document used when the
// destination copy of identifier cannot be found. It is list-shaped when the
// source is a list so the comparison stays element-wise.
func MissingAsset(source interface{}, identifier string) interface{} {
	marker := map[string]interface{}{ErrorKey: fmt.Sprintf("asset '%s' is missing", identifier)}
	if _, ok := asList(source); ok {
		return []interface{}{marker}
	}
	return marker
}

// Diff compares source with destination. Source and destination are either
// JSON objects or JSON arrays of objects. An absent or empty destination is
// a vacuous pass.
func (s *Scorer) Diff(source, destination interface{}, opts Options) Result {
	if isEmpty(destination) {
		return Empty()
	}

	srcList, srcIsList := asList(source)
	dstList, dstIsList := asList(destination)
	srcMap, srcIsMap := asMap(source)
	dstMap, dstIsMap := asMap(destination)

	switch {
	case srcIsList && dstIsList:
		if opts.Obfuscate {
			srcList = obfuscateList(srcList)
			dstList = obfuscateList(dstList)
		}
		d := CompareLists(srcList, dstList)
		return Result{Diff: d, Accuracy: s.finish(d, s.listAccuracy(d, srcList, dstList, opts))}
	case srcIsMap && dstIsMap:
		if opts.Obfuscate {
			srcMap = Obfuscate(srcMap)
			dstMap = Obfuscate(dstMap)
		}
		d := Compare(srcMap, dstMap)
		acc := 1.0
		if len(srcMap) > 0 {
			acc = s.dictAccuracy(d, srcMap, dstMap, opts)
		}
		return Result{Diff: d, Accuracy: s.finish(d, acc)}
	case isEmpty(source):
		return Result{Diff: Delta{}, Accuracy: 1}
	}

	s.log.Warn("cannot compare documents of different shapes",
		"source", kindOf(source), "destination", kindOf(destination))
	return Result{
		Diff: Delta{
			ErrorKey: fmt.Sprintf("type mismatch: %s vs %s", kindOf(source), kindOf(destination)),
			Removed:  source,
			Added:    destination,
		},
		Accuracy: 0,
	}
}

func (s *Scorer) finish(d Delta, acc float64) float64 {
	if HasKey(d, ErrorKey) {
		return 0
	}
	return clamp(acc)
}

func (s *Scorer) listAccuracy(d Delta, src, dst []interface{}, opts Options) float64 {
	if len(d) == 0 || len(src) == 0 {
		return 1
	}
	var sum float64
	for i := range src {
		node, ok := d[fmt.Sprint(i)]
		if !ok {
			sum++
			continue
		}
		if i >= len(dst) {
			s.log.Debug("destination list shorter than source", "index", i)
			continue
		}
		sub, _ := asMap(node)
		sm, sIsMap := asMap(src[i])
		dm, dIsMap := asMap(dst[i])
		if !sIsMap || !dIsMap {
			// scalar elements: one line each side
			sum += individualAccuracy(Delta(sub), 1, 1, opts)
			continue
		}
		sum += individualAccuracy(Delta(sub), TotalLines(sm, nil), TotalLines(dm, nil), opts)
	}
	return sum / float64(len(src))
}

func (s *Scorer) dictAccuracy(d Delta, src, dst map[string]interface{}, opts Options) float64 {
	return individualAccuracy(d, TotalLines(src, nil), TotalLines(dst, nil), opts)
}

// individualAccuracy scores one object pair from its line counts and diff.
func individualAccuracy(d Delta, srcLines, dstLines int, opts Options) float64 {
	acc := 1.0
	if len(d) > 0 {
		if dstLines > srcLines {
			discrepancy := dstLines - srcLines
			srcLines += discrepancy
			dstLines -= discrepancy
		}
		if srcLines != 0 && dstLines != 0 {
			srcLines += TotalDifferences(d)
			acc = float64(dstLines) / float64(srcLines)
		}
	}
	return CriticalKeyCheck(d, opts.CriticalKey, opts.ParentGroup, acc)
}

// CriticalKeyCheck returns zero when the critical key differs between
// source and destination, otherwise acc. With a parent group the destination
// value must live under that namespace; the prefix is stripped before the
// case-insensitive comparison.
func CriticalKeyCheck(d Delta, criticalKey, parentGroup string, acc float64) float64 {
	if criticalKey == "" {
		return acc
	}
	node, ok := d[criticalKey]
	if !ok {
		return acc
	}
	m, ok := asMap(node)
	if !ok {
		return 0
	}
	oldV, okOld := m[Removed].(string)
	newV, okNew := m[Added].(string)
	if !okOld || !okNew {
		return 0
	}
	if parentGroup != "" {
		prefix := strings.TrimSuffix(parentGroup, "/") + "/"
		if !strings.HasPrefix(strings.ToLower(newV), strings.ToLower(prefix)) {
			return 0
		}
		newV = newV[len(prefix):]
	}
	if !strings.EqualFold(oldV, newV) {
		return 0
	}
	return acc
}

// IsNested reports whether any value of m is itself an object.
func IsNested(m map[string]interface{}) bool {
	for _, v := range m {
		if _, ok := asMap(v); ok {
			return true
		}
	}
	return false
}

// TotalLines counts the fields of m. For nested objects only the object
// valued children are counted, recursively, so the count reflects the
// deepest level.
func TotalLines(m map[string]interface{}, exclude map[string]bool) int {
	if IsNested(m) {
		count := 0
		for _, v := range m {
			if sub, ok := asMap(v); ok {
				count += TotalLines(sub, exclude)
			}
		}
		return count
	}
	if len(exclude) == 0 {
		return len(m)
	}
	n := 0
	for k := range m {
		if !exclude[k] {
			n++
		}
	}
	if n == 0 && exclude[Added] {
		return 1
	}
	return n
}

// TotalDifferences counts the leaf markers in a Delta.
func TotalDifferences(m map[string]interface{}) int {
	if IsNested(m) {
		count := 0
		for _, v := range m {
			if sub, ok := asMap(v); ok {
				count += TotalDifferences(sub)
			}
		}
		return count
	}
	count := 0
	for k, v := range m {
		if k != Added && k != Removed {
			continue
		}
		if _, isMap := asMap(v); !isMap {
			count++
		}
	}
	return count
}

// Obfuscate returns a copy of m with secret-bearing fields base64 encoded.
// Null secrets are dropped.
func Obfuscate(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, key := range obfuscatedKeys {
		v, ok := out[key]
		if !ok {
			continue
		}
		if v == nil {
			delete(out, key)
			continue
		}
		s, isString := v.(string)
		if !isString {
			s = fmt.Sprint(v)
		}
		out[key] = base64.StdEncoding.EncodeToString([]byte(s))
	}
	return out
}

func obfuscateList(l []interface{}) []interface{} {
	out := make([]interface{}, len(l))
	for i, v := range l {
		if m, ok := asMap(v); ok {
			out[i] = Obfuscate(m)
		} else {
			out[i] = v
		}
	}
	return out
}

// IgnoreKeys returns a deep copy of v with the named fields removed at
// every depth.
func IgnoreKeys(v interface{}, keys []string) interface{} {
	if len(keys) == 0 {
		return v
	}
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	return ignore(v, drop)
}

func ignore(v interface{}, drop map[string]bool) interface{} {
	if m, ok := asMap(v); ok {
		out := make(map[string]interface{}, len(m))
		for k, child := range m {
			if drop[k] {
				continue
			}
			out[k] = ignore(child, drop)
		}
		return out
	}
	if l, ok := asList(v); ok {
		out := make([]interface{}, len(l))
		for i, child := range l {
			out[i] = ignore(child, drop)
		}
		return out
	}
	return v
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	if m, ok := asMap(v); ok {
		return len(m) == 0
	}
	if l, ok := asList(v); ok {
		return len(l) == 0
	}
	return false
}

func clamp(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
