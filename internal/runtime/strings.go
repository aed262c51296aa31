package runtime

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/kolkov/uexpr/internal/types"
)

// Method tables are filled in init so their bodies may refer back to
// GetProperty without forming an initialization cycle.
var (
	stringMethods   map[string]*types.Builtin
	numberMethods   map[string]*types.Builtin
	regexpMethods   map[string]*types.Builtin
	functionMethods map[string]*types.Builtin

	primitiveToString *types.Builtin
	awaitableThen     *types.Builtin
)

func method(name string, fn types.NativeFunc) *types.Builtin {
	return &types.Builtin{Name: name, Fn: fn}
}

func methodTable(fns map[string]types.NativeFunc) map[string]*types.Builtin {
	m := make(map[string]*types.Builtin, len(fns))
	for name, fn := range fns {
		m[name] = method(name, fn)
	}
	return m
}

func init() {
	stringMethods = methodTable(map[string]types.NativeFunc{
		"charAt":      strCharAt,
		"charCodeAt":  strCharCodeAt,
		"codePointAt": strCharCodeAt,
		"at":          strAt,
		"indexOf":     strIndexOf,
		"lastIndexOf": strLastIndexOf,
		"includes":    strIncludes,
		"startsWith":  strStartsWith,
		"endsWith":    strEndsWith,
		"slice":       strSlice,
		"substring":   strSubstring,
		"substr":      strSubstr,
		"toUpperCase": strUpper,
		"toLowerCase": strLower,
		"trim":        strTrim(strings.TrimSpace),
		"trimStart":   strTrim(func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) }),
		"trimEnd":     strTrim(func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) }),
		"padStart":    strPad(true),
		"padEnd":      strPad(false),
		"repeat":      strRepeat,
		"split":       strSplit,
		"replace":     strReplace(false),
		"replaceAll":  strReplace(true),
		"match":       strMatch,
		"matchAll":    strMatchAll,
		"search":      strSearch,
		"concat":      strConcat,
		"normalize":   strNormalize,
		"localeCompare": func(this types.Value, args []types.Value) (types.Value, error) {
			s, err := thisString(this, "localeCompare")
			if err != nil {
				return nil, err
			}
			return float64(collate.New(language.Und).CompareString(s, types.ToString(types.Arg(args, 0)))), nil
		},
		"toString": strValueOf,
		"valueOf":  strValueOf,
	})

	numberMethods = methodTable(map[string]types.NativeFunc{
		"toFixed":     numToFixed,
		"toPrecision": numToPrecision,
		"toString":    numToString,
		"valueOf": func(this types.Value, args []types.Value) (types.Value, error) {
			return types.ToNumber(this), nil
		},
	})
	primitiveToString = method("toString", func(this types.Value, args []types.Value) (types.Value, error) {
		if n, ok := this.(*big.Int); ok && !types.IsUndefined(types.Arg(args, 0)) {
			return n.Text(int(types.ToInteger(args[0]))), nil
		}
		return types.ToString(this), nil
	})

	regexpMethods = methodTable(map[string]types.NativeFunc{
		"test": func(this types.Value, args []types.Value) (types.Value, error) {
			r, err := thisRegExp(this, "test")
			if err != nil {
				return nil, err
			}
			return r.Test(types.ToString(types.Arg(args, 0)))
		},
		"exec": func(this types.Value, args []types.Value) (types.Value, error) {
			r, err := thisRegExp(this, "exec")
			if err != nil {
				return nil, err
			}
			return r.Exec(types.ToString(types.Arg(args, 0)))
		},
		"toString": func(this types.Value, args []types.Value) (types.Value, error) {
			return types.ToString(this), nil
		},
	})

	functionMethods = methodTable(map[string]types.NativeFunc{
		"call": func(this types.Value, args []types.Value) (types.Value, error) {
			rest := []types.Value{}
			if len(args) > 1 {
				rest = args[1:]
			}
			return Call(this, types.Arg(args, 0), rest)
		},
		"apply": func(this types.Value, args []types.Value) (types.Value, error) {
			var rest []types.Value
			if arr, ok := types.Arg(args, 1).(*types.Array); ok {
				rest = arr.Elems
			}
			return Call(this, types.Arg(args, 0), rest)
		},
		"bind": func(this types.Value, args []types.Value) (types.Value, error) {
			fn := this
			if _, ok := fn.(types.Function); !ok {
				return nil, types.TypeErrorf("Bind must be called on a function")
			}
			bound := types.Arg(args, 0)
			var pre []types.Value
			if len(args) > 1 {
				pre = append(pre, args[1:]...)
			}
			return method("bound", func(_ types.Value, more []types.Value) (types.Value, error) {
				all := append(append([]types.Value(nil), pre...), more...)
				return Call(fn, bound, all)
			}), nil
		},
		"toString": func(this types.Value, args []types.Value) (types.Value, error) {
			return types.ToString(this), nil
		},
	})

	awaitableThen = method("then", func(this types.Value, args []types.Value) (types.Value, error) {
		a, ok := this.(*types.Awaitable)
		if !ok {
			return nil, types.TypeErrorf("then called on incompatible receiver")
		}
		v, err := a.Resolve()
		if err != nil {
			if onErr, ok := types.Arg(args, 1).(types.Function); ok {
				r, err := onErr.Call(types.Undefined, []types.Value{types.Thrown(err)})
				return &types.Awaitable{Value: r}, err
			}
			return nil, err
		}
		fn, ok := types.Arg(args, 0).(types.Function)
		if !ok {
			return a, nil
		}
		r, err := fn.Call(types.Undefined, []types.Value{v})
		if err != nil {
			return nil, err
		}
		return &types.Awaitable{Value: r}, nil
	})
}

func thisString(this types.Value, name string) (string, error) {
	switch s := this.(type) {
	case string:
		return s, nil
	case types.UndefinedType, nil:
		return "", types.TypeErrorf("String.prototype.%s called on null or undefined", name)
	}
	return types.ToString(this), nil
}

func thisRegExp(this types.Value, name string) (*RegExp, error) {
	r, ok := this.(*RegExp)
	if !ok {
		return nil, types.TypeErrorf("RegExp.prototype.%s called on incompatible receiver", name)
	}
	return r, nil
}

// relIndex resolves a possibly negative index argument against length n,
// clamping to [0, n].
func relIndex(v types.Value, n, def int) int {
	if types.IsUndefined(v) {
		return def
	}
	f := types.ToInteger(v)
	if f < 0 {
		f += float64(n)
		if f < 0 {
			return 0
		}
	}
	if f > float64(n) {
		return n
	}
	return int(f)
}

// clampIndex clamps a non-negative index argument as substring does.
func clampIndex(v types.Value, n, def int) int {
	if types.IsUndefined(v) {
		return def
	}
	f := types.ToInteger(v)
	switch {
	case f < 0:
		return 0
	case f > float64(n):
		return n
	}
	return int(f)
}

func strCharAt(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "charAt")
	if err != nil {
		return nil, err
	}
	r := []rune(s)
	i := types.ToInteger(types.Arg(args, 0))
	if i < 0 || i >= float64(len(r)) {
		return "", nil
	}
	return string(r[int(i)]), nil
}

func strCharCodeAt(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "charCodeAt")
	if err != nil {
		return nil, err
	}
	r := []rune(s)
	i := types.ToInteger(types.Arg(args, 0))
	if i < 0 || i >= float64(len(r)) {
		return math.NaN(), nil
	}
	return float64(r[int(i)]), nil
}

func strAt(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "at")
	if err != nil {
		return nil, err
	}
	r := []rune(s)
	i := int(types.ToInteger(types.Arg(args, 0)))
	if i < 0 {
		i += len(r)
	}
	if i < 0 || i >= len(r) {
		return types.Undefined, nil
	}
	return string(r[i]), nil
}

// runeIndex converts a byte offset into a code point index.
func runeIndex(s string, byteOff int) int {
	if byteOff < 0 {
		return -1
	}
	return utf8.RuneCountInString(s[:byteOff])
}

// byteOffset converts a code point index into a byte offset.
func byteOffset(s string, idx int) int {
	for i := range s {
		if idx == 0 {
			return i
		}
		idx--
	}
	return len(s)
}

func strIndexOf(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "indexOf")
	if err != nil {
		return nil, err
	}
	sub := types.ToString(types.Arg(args, 0))
	from := clampIndex(types.Arg(args, 1), utf8.RuneCountInString(s), 0)
	off := byteOffset(s, from)
	i := strings.Index(s[off:], sub)
	if i < 0 {
		return -1.0, nil
	}
	return float64(runeIndex(s, off+i)), nil
}

func strLastIndexOf(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "lastIndexOf")
	if err != nil {
		return nil, err
	}
	sub := types.ToString(types.Arg(args, 0))
	n := utf8.RuneCountInString(s)
	from := n
	if v := types.Arg(args, 1); !types.IsUndefined(v) && !math.IsNaN(types.ToNumber(v)) {
		from = clampIndex(v, n, n)
	}
	end := byteOffset(s, from) + len(sub)
	if end > len(s) {
		end = len(s)
	}
	return float64(runeIndex(s, strings.LastIndex(s[:end], sub))), nil
}

func strIncludes(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "includes")
	if err != nil {
		return nil, err
	}
	if _, ok := types.Arg(args, 0).(*RegExp); ok {
		return nil, types.TypeErrorf("First argument to String.prototype.includes must not be a regular expression")
	}
	off := byteOffset(s, clampIndex(types.Arg(args, 1), utf8.RuneCountInString(s), 0))
	return strings.Contains(s[off:], types.ToString(types.Arg(args, 0))), nil
}

func strStartsWith(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "startsWith")
	if err != nil {
		return nil, err
	}
	off := byteOffset(s, clampIndex(types.Arg(args, 1), utf8.RuneCountInString(s), 0))
	return strings.HasPrefix(s[off:], types.ToString(types.Arg(args, 0))), nil
}

func strEndsWith(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "endsWith")
	if err != nil {
		return nil, err
	}
	n := utf8.RuneCountInString(s)
	end := byteOffset(s, clampIndex(types.Arg(args, 1), n, n))
	return strings.HasSuffix(s[:end], types.ToString(types.Arg(args, 0))), nil
}

func strSlice(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "slice")
	if err != nil {
		return nil, err
	}
	r := []rune(s)
	start := relIndex(types.Arg(args, 0), len(r), 0)
	end := relIndex(types.Arg(args, 1), len(r), len(r))
	if start >= end {
		return "", nil
	}
	return string(r[start:end]), nil
}

func strSubstring(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "substring")
	if err != nil {
		return nil, err
	}
	r := []rune(s)
	start := clampIndex(types.Arg(args, 0), len(r), 0)
	end := clampIndex(types.Arg(args, 1), len(r), len(r))
	if start > end {
		start, end = end, start
	}
	return string(r[start:end]), nil
}

func strSubstr(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "substr")
	if err != nil {
		return nil, err
	}
	r := []rune(s)
	start := relIndex(types.Arg(args, 0), len(r), 0)
	length := len(r) - start
	if v := types.Arg(args, 1); !types.IsUndefined(v) {
		length = min(max(int(types.ToInteger(v)), 0), length)
	}
	return string(r[start : start+length]), nil
}

func strUpper(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "toUpperCase")
	if err != nil {
		return nil, err
	}
	return cases.Upper(language.Und).String(s), nil
}

func strLower(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "toLowerCase")
	if err != nil {
		return nil, err
	}
	return cases.Lower(language.Und).String(s), nil
}

func strTrim(trim func(string) string) types.NativeFunc {
	return func(this types.Value, args []types.Value) (types.Value, error) {
		s, err := thisString(this, "trim")
		if err != nil {
			return nil, err
		}
		return trim(s), nil
	}
}

func strPad(start bool) types.NativeFunc {
	return func(this types.Value, args []types.Value) (types.Value, error) {
		s, err := thisString(this, "padStart")
		if err != nil {
			return nil, err
		}
		target := int(types.ToInteger(types.Arg(args, 0)))
		fill := " "
		if v := types.Arg(args, 1); !types.IsUndefined(v) {
			fill = types.ToString(v)
		}
		n := utf8.RuneCountInString(s)
		if target <= n || fill == "" {
			return s, nil
		}
		fr := []rune(strings.Repeat(fill, (target-n)/utf8.RuneCountInString(fill)+1))
		pad := string(fr[:target-n])
		if start {
			return pad + s, nil
		}
		return s + pad, nil
	}
}

func strRepeat(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "repeat")
	if err != nil {
		return nil, err
	}
	n := types.ToInteger(types.Arg(args, 0))
	if n < 0 || math.IsInf(n, 0) {
		return nil, types.RangeErrorf("Invalid count value: %s", types.FormatNumber(n))
	}
	if float64(len(s))*n > 1<<28 {
		return nil, types.RangeErrorf("Invalid string length")
	}
	return strings.Repeat(s, int(n)), nil
}

func strSplit(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "split")
	if err != nil {
		return nil, err
	}
	limit := -1
	if v := types.Arg(args, 1); !types.IsUndefined(v) {
		limit = int(types.ToUint32(v))
	}
	sep := types.Arg(args, 0)
	if r, ok := sep.(*RegExp); ok {
		parts, err := r.Split(s, limit)
		if err != nil {
			return nil, err
		}
		return types.NewArray(parts...), nil
	}
	if limit == 0 {
		return types.NewArray(), nil
	}
	if types.IsUndefined(sep) {
		return types.NewArray(s), nil
	}
	var parts []string
	if str := types.ToString(sep); str == "" {
		for _, r := range s {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(s, str)
	}
	out := types.NewArray()
	for _, p := range parts {
		if limit >= 0 && out.Len() >= limit {
			break
		}
		out.Push(p)
	}
	return out, nil
}

func strReplace(all bool) types.NativeFunc {
	return func(this types.Value, args []types.Value) (types.Value, error) {
		s, err := thisString(this, "replace")
		if err != nil {
			return nil, err
		}
		repl := types.Arg(args, 1)
		if r, ok := types.Arg(args, 0).(*RegExp); ok {
			if all && !r.Global() {
				return nil, types.TypeErrorf("replaceAll must be called with a global RegExp")
			}
			return r.Replace(s, repl, all)
		}
		pat := types.ToString(types.Arg(args, 0))
		var matches []*match
		for from := 0; from <= len(s); {
			i := strings.Index(s[from:], pat)
			if i < 0 {
				break
			}
			start := from + i
			matches = append(matches, &match{start: start, end: start + len(pat), groups: []types.Value{pat}})
			if !all {
				break
			}
			from = start + len(pat)
			if pat == "" {
				if from >= len(s) {
					break
				}
				_, size := utf8.DecodeRuneInString(s[from:])
				from += size
			}
		}
		return replaceMatches(s, matches, repl)
	}
}

// patternArg converts a string argument to match or search into a
// regular expression.
func patternArg(v types.Value, flags string) (*RegExp, error) {
	if r, ok := v.(*RegExp); ok {
		return r, nil
	}
	src := "(?:)"
	if !types.IsUndefined(v) {
		src = types.ToString(v)
	}
	return DefaultRegexCache.Compile(src, flags)
}

func strMatch(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "match")
	if err != nil {
		return nil, err
	}
	r, err := patternArg(types.Arg(args, 0), "")
	if err != nil {
		return nil, err
	}
	return r.Match(s)
}

func strMatchAll(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "matchAll")
	if err != nil {
		return nil, err
	}
	r, err := patternArg(types.Arg(args, 0), "g")
	if err != nil {
		return nil, err
	}
	return r.MatchAll(s)
}

func strSearch(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "search")
	if err != nil {
		return nil, err
	}
	r, err := patternArg(types.Arg(args, 0), "")
	if err != nil {
		return nil, err
	}
	i, err := r.Search(s)
	return float64(i), err
}

func strConcat(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "concat")
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString(s)
	for _, a := range args {
		b.WriteString(types.ToString(a))
	}
	return b.String(), nil
}

func strNormalize(this types.Value, args []types.Value) (types.Value, error) {
	s, err := thisString(this, "normalize")
	if err != nil {
		return nil, err
	}
	form := "NFC"
	if v := types.Arg(args, 0); !types.IsUndefined(v) {
		form = types.ToString(v)
	}
	switch form {
	case "NFC":
		return norm.NFC.String(s), nil
	case "NFD":
		return norm.NFD.String(s), nil
	case "NFKC":
		return norm.NFKC.String(s), nil
	case "NFKD":
		return norm.NFKD.String(s), nil
	}
	return nil, types.RangeErrorf("The normalization form should be one of NFC, NFD, NFKC, NFKD.")
}

func strValueOf(this types.Value, args []types.Value) (types.Value, error) {
	return thisString(this, "valueOf")
}

func thisNumber(this types.Value, name string) (float64, error) {
	n, ok := this.(float64)
	if !ok {
		return 0, types.TypeErrorf("Number.prototype.%s requires that 'this' be a Number", name)
	}
	return n, nil
}

func numToFixed(this types.Value, args []types.Value) (types.Value, error) {
	n, err := thisNumber(this, "toFixed")
	if err != nil {
		return nil, err
	}
	d := types.ToInteger(types.Arg(args, 0))
	if d < 0 || d > 100 {
		return nil, types.RangeErrorf("toFixed() digits argument must be between 0 and 100")
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || math.Abs(n) >= 1e21 {
		return types.FormatNumber(n), nil
	}
	return strconv.FormatFloat(n, 'f', int(d), 64), nil
}

func numToPrecision(this types.Value, args []types.Value) (types.Value, error) {
	n, err := thisNumber(this, "toPrecision")
	if err != nil {
		return nil, err
	}
	if types.IsUndefined(types.Arg(args, 0)) || math.IsNaN(n) || math.IsInf(n, 0) {
		return types.FormatNumber(n), nil
	}
	p := int(types.ToInteger(args[0]))
	if p < 1 || p > 100 {
		return nil, types.RangeErrorf("toPrecision() argument must be between 1 and 100")
	}
	if n == 0 {
		return strconv.FormatFloat(0, 'f', p-1, 64), nil
	}
	exp := strconv.FormatFloat(n, 'e', p-1, 64)
	mant, e, _ := strings.Cut(exp, "e")
	x, _ := strconv.Atoi(e)
	if x < -6 || x >= p {
		sign := "+"
		if x < 0 {
			sign = "-"
			x = -x
		}
		return mant + "e" + sign + strconv.Itoa(x), nil
	}
	return strconv.FormatFloat(n, 'f', p-1-x, 64), nil
}

func numToString(this types.Value, args []types.Value) (types.Value, error) {
	n, err := thisNumber(this, "toString")
	if err != nil {
		return nil, err
	}
	radix := 10
	if v := types.Arg(args, 0); !types.IsUndefined(v) {
		radix = int(types.ToInteger(v))
	}
	if radix < 2 || radix > 36 {
		return nil, types.RangeErrorf("toString() radix must be between 2 and 36")
	}
	if radix == 10 || math.IsNaN(n) || math.IsInf(n, 0) {
		return types.FormatNumber(n), nil
	}
	return formatRadix(n, radix), nil
}

// formatRadix renders n in the given base with up to 20 fractional digits.
func formatRadix(n float64, radix int) string {
	neg := n < 0
	n = math.Abs(n)
	ip, fp := math.Modf(n)
	var s string
	if ip < 1<<53 {
		s = strconv.FormatInt(int64(ip), radix)
	} else {
		b, _ := new(big.Float).SetFloat64(ip).Int(nil)
		s = b.Text(radix)
	}
	if fp > 0 {
		var b strings.Builder
		b.WriteByte('.')
		for i := 0; i < 20 && fp > 0; i++ {
			fp *= float64(radix)
			d, rest := math.Modf(fp)
			b.WriteByte(strconv.FormatInt(int64(d), radix)[0])
			fp = rest
		}
		s += b.String()
	}
	if neg {
		s = "-" + s
	}
	return s
}
