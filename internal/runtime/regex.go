// Package runtime implements the operations and built-in library that
// evaluated expressions rely on: member access, operators, calls, string
// and array methods, global objects and regular expressions.
package runtime

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/coregx/coregex"
	"github.com/dlclark/regexp2"

	"github.com/kolkov/uexpr/internal/types"
)

// engine holds the compiled forms of one pattern/flags pair.
// fast is nil when coregex cannot express the pattern (backreferences,
// lookaround, sticky matching); full always exists and defines validity.
type engine struct {
	fast   *coregex.Regexp
	full   *regexp2.Regexp
	groups int   // number of capture groups
	order  []int // regexp2 group numbers in source order
	names  map[int]string
}

func compileEngine(source, flags string) (*engine, error) {
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	var inline string
	for i, f := range flags {
		if !strings.ContainsRune("dgimsuy", f) || strings.ContainsRune(flags[:i], f) {
			return nil, &types.Error{
				Name:    "SyntaxError",
				Message: "Invalid flags supplied to RegExp constructor '" + flags + "'",
			}
		}
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
			inline += "i"
		case 'm':
			opts |= regexp2.Multiline
			inline += "m"
		case 's':
			opts |= regexp2.Singleline
			inline += "s"
		}
	}
	full, err := regexp2.Compile(source, opts)
	if err != nil {
		return nil, &types.Error{
			Name:    "SyntaxError",
			Message: "Invalid regular expression: /" + source + "/" + flags + ": " + err.Error(),
		}
	}
	e := &engine{full: full}
	e.order, e.names = groupOrder(source, full)
	e.groups = len(e.order)

	if strings.ContainsRune(flags, 'y') {
		return e, nil
	}
	pattern := source
	if inline != "" {
		pattern = "(?" + inline + ")" + source
	}
	fast, err := coregex.Compile(pattern)
	if err != nil {
		return e, nil
	}
	e.fast = fast
	return e, nil
}

// RegExp is a regular expression value. Each evaluation of a literal
// produces a new RegExp; compiled engines are shared through a RegexCache.
type RegExp struct {
	Source    string
	Flags     string
	LastIndex int
	engine    *engine
}

// Global reports the g flag.
func (r *RegExp) Global() bool { return strings.ContainsRune(r.Flags, 'g') }

// Sticky reports the y flag.
func (r *RegExp) Sticky() bool { return strings.ContainsRune(r.Flags, 'y') }

// String renders the literal form.
func (r *RegExp) String() string {
	return "/" + r.Source + "/" + r.Flags
}

// UsesFallback reports whether matching goes through the backtracking
// engine only.
func (r *RegExp) UsesFallback() bool {
	return r.engine.fast == nil
}

// match is one match; offsets are byte offsets into the subject.
type match struct {
	start, end int
	groups     []types.Value // group 0 first; undefined for unmatched groups
	names      map[string]types.Value
}

// Test reports whether s matches, advancing LastIndex for global and
// sticky expressions.
func (r *RegExp) Test(s string) (bool, error) {
	if r.Global() || r.Sticky() {
		m, err := r.execAt(s)
		return m != nil, err
	}
	if r.engine.fast != nil {
		return r.engine.fast.MatchString(s), nil
	}
	return r.engine.full.MatchString(s)
}

// Exec returns the match array (with index, input and groups properties)
// or null.
func (r *RegExp) Exec(s string) (types.Value, error) {
	m, err := r.execAt(s)
	if err != nil || m == nil {
		return nil, err
	}
	return matchArray(m, s), nil
}

// execAt matches from LastIndex for global or sticky expressions and from
// the start otherwise. LastIndex counts code points.
func (r *RegExp) execAt(s string) (*match, error) {
	from := 0
	if r.Global() || r.Sticky() {
		from = r.LastIndex
		if from > utf8.RuneCountInString(s) {
			r.LastIndex = 0
			return nil, nil
		}
	}
	m, err := r.engine.find(s, from, r.Sticky())
	if err != nil {
		return nil, err
	}
	if r.Global() || r.Sticky() {
		if m == nil {
			r.LastIndex = 0
		} else {
			r.LastIndex = utf8.RuneCountInString(s[:m.end])
		}
	}
	return m, nil
}

// find locates the first match starting at code point from.
func (e *engine) find(s string, from int, sticky bool) (*match, error) {
	if from == 0 && !sticky && e.fast != nil && e.groups == 0 {
		loc := e.fast.FindStringIndex(s)
		if loc == nil {
			return nil, nil
		}
		return &match{start: loc[0], end: loc[1], groups: []types.Value{s[loc[0]:loc[1]]}}, nil
	}
	runes := []rune(s)
	m, err := e.full.FindRunesMatchStartingAt(runes, from)
	if err != nil || m == nil {
		return nil, err
	}
	if sticky && m.Index != from {
		return nil, nil
	}
	return e.convert(m, runes), nil
}

// findAll returns every non-overlapping match.
func (e *engine) findAll(s string) ([]*match, error) {
	if e.fast != nil && e.groups == 0 {
		var out []*match
		for _, loc := range e.fast.FindAllStringIndex(s, -1) {
			out = append(out, &match{start: loc[0], end: loc[1], groups: []types.Value{s[loc[0]:loc[1]]}})
		}
		return out, nil
	}
	runes := []rune(s)
	var out []*match
	m, err := e.full.FindRunesMatch(runes)
	for m != nil && err == nil {
		out = append(out, e.convert(m, runes))
		m, err = e.full.FindNextMatch(m)
	}
	return out, err
}

// groupOrder maps capture groups to their source order. regexp2 numbers
// named groups after all unnamed ones, while match arrays list groups by
// the position of their opening parenthesis.
func groupOrder(source string, re *regexp2.Regexp) ([]int, map[int]string) {
	names := make(map[int]string)
	for _, name := range re.GetGroupNames() {
		if !isDigits(name) {
			names[re.GroupNumberFromName(name)] = name
		}
	}
	var unnamed []int
	for _, n := range re.GetGroupNumbers() {
		if _, ok := names[n]; n != 0 && !ok {
			unnamed = append(unnamed, n)
		}
	}
	var order []int
	inClass := false
	for i := 0; i < len(source); i++ {
		switch c := source[i]; {
		case c == '\\':
			i++
		case inClass:
			inClass = c != ']'
		case c == '[':
			inClass = true
		case c == '(':
			rest := source[i+1:]
			switch {
			case strings.HasPrefix(rest, "?<") && !strings.HasPrefix(rest, "?<=") && !strings.HasPrefix(rest, "?<!"):
				if end := strings.IndexByte(rest, '>'); end > 2 {
					order = append(order, re.GroupNumberFromName(rest[2:end]))
				}
			case strings.HasPrefix(rest, "?"):
			case len(unnamed) > 0:
				order = append(order, unnamed[0])
				unnamed = unnamed[1:]
			}
		}
	}
	return order, names
}

func (e *engine) convert(m *regexp2.Match, runes []rune) *match {
	out := &match{
		start:  runeOffset(runes, m.Index),
		end:    runeOffset(runes, m.Index+m.Length),
		groups: []types.Value{string(runes[m.Index : m.Index+m.Length])},
	}
	for _, n := range e.order {
		var v types.Value = types.Undefined
		if g := m.GroupByNumber(n); g != nil && len(g.Captures) > 0 {
			v = g.String()
		}
		out.groups = append(out.groups, v)
		if name, ok := e.names[n]; ok {
			if out.names == nil {
				out.names = make(map[string]types.Value)
			}
			out.names[name] = v
		}
	}
	return out
}

func runeOffset(runes []rune, n int) int {
	size := 0
	for _, r := range runes[:n] {
		size += utf8.RuneLen(r)
	}
	return size
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

func matchArray(m *match, input string) *types.Array {
	arr := types.NewArray(append([]types.Value(nil), m.groups...)...)
	arr.Props = types.NewObject()
	arr.Props.SetOwn("index", float64(utf8.RuneCountInString(input[:m.start])))
	arr.Props.SetOwn("input", input)
	if m.names != nil {
		groups := types.NewObject()
		for _, g := range sortedNames(m.names) {
			groups.SetOwn(g, m.names[g])
		}
		arr.Props.SetOwn("groups", groups)
	} else {
		arr.Props.SetOwn("groups", types.Undefined)
	}
	return arr
}

func sortedNames(m map[string]types.Value) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RegexCache provides thread-safe compiled engine caching with FIFO eviction.
// Lock-free reads via sync.Map.
type RegexCache struct {
	cache   sync.Map   // map[string]*engine
	orderMu sync.Mutex // Protects order slice for eviction
	order   []string   // FIFO order for eviction
	maxSize int
}

// NewRegexCache creates a cache with the given max size.
func NewRegexCache(maxSize int) *RegexCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &RegexCache{
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

// DefaultRegexCache is used by regular expression literals.
var DefaultRegexCache = NewRegexCache(256)

// Compile returns a new RegExp for source and flags, compiling and caching
// the engine if needed.
func (c *RegexCache) Compile(source, flags string) (*RegExp, error) {
	key := flags + "/" + source
	if e, ok := c.cache.Load(key); ok {
		return &RegExp{Source: source, Flags: flags, engine: e.(*engine)}, nil
	}

	e, err := compileEngine(source, flags)
	if err != nil {
		return nil, err
	}

	if existing, loaded := c.cache.LoadOrStore(key, e); loaded {
		e = existing.(*engine)
	} else {
		c.orderMu.Lock()
		c.order = append(c.order, key)
		for len(c.order) > c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			c.cache.Delete(oldest)
		}
		c.orderMu.Unlock()
	}
	return &RegExp{Source: source, Flags: flags, engine: e}, nil
}

// Len returns the number of cached engines.
func (c *RegexCache) Len() int {
	c.orderMu.Lock()
	defer c.orderMu.Unlock()
	return len(c.order)
}

// Clear removes all cached engines.
func (c *RegexCache) Clear() {
	c.orderMu.Lock()
	defer c.orderMu.Unlock()
	for _, p := range c.order {
		c.cache.Delete(p)
	}
	c.order = c.order[:0]
}

// NewRegExp compiles a regular expression through the default cache.
func NewRegExp(source, flags string) (*RegExp, error) {
	return DefaultRegexCache.Compile(source, flags)
}

// ---------------------------------------------------------------------------
// String methods backed by regular expressions
// ---------------------------------------------------------------------------

// Replace implements String.prototype.replace and replaceAll for a regular
// expression pattern. repl is a string template or a function.
func (r *RegExp) Replace(s string, repl types.Value, all bool) (string, error) {
	var matches []*match
	if all || r.Global() {
		var err error
		matches, err = r.engine.findAll(s)
		if err != nil {
			return "", err
		}
		r.LastIndex = 0
	} else {
		m, err := r.execAt(s)
		if err != nil {
			return "", err
		}
		if m != nil {
			matches = []*match{m}
		}
	}
	return replaceMatches(s, matches, repl)
}

func replaceMatches(s string, matches []*match, repl types.Value) (string, error) {
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m.start])
		if fn, ok := repl.(types.Function); ok {
			args := append([]types.Value(nil), m.groups...)
			args = append(args, float64(utf8.RuneCountInString(s[:m.start])), s)
			if m.names != nil {
				groups := types.NewObject()
				for _, g := range sortedNames(m.names) {
					groups.SetOwn(g, m.names[g])
				}
				args = append(args, groups)
			}
			v, err := fn.Call(types.Undefined, args)
			if err != nil {
				return "", err
			}
			b.WriteString(types.ToString(v))
		} else {
			expandReplacement(&b, types.ToString(repl), s, m)
		}
		last = m.end
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

// expandReplacement writes template with $-substitutions applied.
func expandReplacement(b *strings.Builder, template, s string, m *match) {
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '$' || i+1 >= len(template) {
			b.WriteByte(c)
			continue
		}
		next := template[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i++
		case next == '&':
			b.WriteString(s[m.start:m.end])
			i++
		case next == '`':
			b.WriteString(s[:m.start])
			i++
		case next == '\'':
			b.WriteString(s[m.end:])
			i++
		case next >= '0' && next <= '9':
			n := int(next - '0')
			width := 1
			if i+2 < len(template) && template[i+2] >= '0' && template[i+2] <= '9' {
				if two := n*10 + int(template[i+2]-'0'); two < len(m.groups) {
					n, width = two, 2
				}
			}
			if n == 0 || n >= len(m.groups) {
				b.WriteByte(c)
				continue
			}
			if g, ok := m.groups[n].(string); ok {
				b.WriteString(g)
			}
			i += width
		case next == '<' && m.names != nil:
			end := strings.IndexByte(template[i:], '>')
			if end < 0 {
				b.WriteByte(c)
				continue
			}
			if g, ok := m.names[template[i+2:i+end]].(string); ok {
				b.WriteString(g)
			}
			i += end
		default:
			b.WriteByte(c)
		}
	}
}

// Split implements String.prototype.split with a regular expression
// separator. Capture groups are spliced into the result.
func (r *RegExp) Split(s string, limit int) ([]types.Value, error) {
	out := []types.Value{}
	if s == "" {
		if m, err := r.engine.find(s, 0, false); err != nil || m != nil {
			return out, err
		}
		return []types.Value{s}, nil
	}
	matches, err := r.engine.findAll(s)
	if err != nil {
		return nil, err
	}
	last := 0
	for _, m := range matches {
		if m.start == m.end && (m.start == 0 || m.start >= len(s)) {
			continue
		}
		if limit >= 0 && len(out) >= limit {
			return out, nil
		}
		out = append(out, s[last:m.start])
		for _, g := range m.groups[1:] {
			out = append(out, g)
		}
		last = m.end
	}
	if limit < 0 || len(out) < limit {
		out = append(out, s[last:])
	}
	return out, nil
}

// Search returns the code point index of the first match or -1.
func (r *RegExp) Search(s string) (int, error) {
	m, err := r.engine.find(s, 0, false)
	if err != nil || m == nil {
		return -1, err
	}
	return utf8.RuneCountInString(s[:m.start]), nil
}

// Match implements String.prototype.match: the exec result for a
// non-global expression, otherwise every matched string or null.
func (r *RegExp) Match(s string) (types.Value, error) {
	if !r.Global() {
		return r.Exec(s)
	}
	r.LastIndex = 0
	matches, err := r.engine.findAll(s)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	arr := types.NewArray()
	for _, m := range matches {
		arr.Push(s[m.start:m.end])
	}
	return arr, nil
}

// MatchAll returns an array of exec results for every match.
func (r *RegExp) MatchAll(s string) (types.Value, error) {
	if !r.Global() {
		return nil, types.TypeErrorf("matchAll must be called with a global RegExp")
	}
	matches, err := r.engine.findAll(s)
	if err != nil {
		return nil, err
	}
	arr := types.NewArray()
	for _, m := range matches {
		arr.Push(matchArray(m, s))
	}
	return arr, nil
}
