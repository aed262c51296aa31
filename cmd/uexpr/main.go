// uexpr - JavaScript expression evaluator
//
// Evaluates expressions against variables loaded from a YAML or JSON file
// and prints each result as JSON. Expressions come from the command line,
// from --file or from standard input, and share one set of variables, so
// a let in one is visible to the next.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alexflint/go-arg"
	"gopkg.in/yaml.v2"

	"github.com/kolkov/uexpr"
	"github.com/kolkov/uexpr/internal/types"
)

type args struct {
	Vars    string   `arg:"--vars" help:"YAML or JSON file with variable bindings"`
	File    string   `arg:"-f,--file" help:"read an expression from file"`
	JSON    bool     `arg:"--json" help:"print the serialized tree instead of evaluating"`
	AST     bool     `arg:"--ast" help:"print an indented tree dump instead of evaluating"`
	String  bool     `arg:"--string" help:"print the normalized source instead of evaluating"`
	Entry   bool     `arg:"--entry" help:"print the free variables instead of evaluating"`
	Verbose bool     `arg:"-v,--verbose" help:"log cache and regexp engine decisions to stderr"`
	Exprs   []string `arg:"positional" help:"expressions to evaluate (default: read standard input)"`
}

func (args) Description() string {
	return "uexpr evaluates JavaScript expressions and prints the results as JSON."
}

func (args) Version() string {
	return "uexpr " + uexpr.Version
}

func main() {
	var a args
	arg.MustParse(&a)
	if err := run(a, os.Stdin, os.Stdout, os.Stderr); err != nil {
		errorExitf("%v", err)
	}
}

// run executes one invocation. It is separate from main for testing.
func run(a args, stdin io.Reader, stdout, stderr io.Writer) error {
	vars, err := loadVars(a.Vars)
	if err != nil {
		return err
	}
	sources, err := sources(a, stdin)
	if err != nil {
		return err
	}

	config := &uexpr.Config{}
	if a.Verbose {
		config.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	cache, err := uexpr.NewCache(config)
	if err != nil {
		return err
	}

	stack := uexpr.NewStack(vars)
	for _, src := range sources {
		expr, err := cache.Parse(src)
		if err != nil {
			return err
		}
		if err := output(a, expr, stack, stdout); err != nil {
			return err
		}
	}
	return nil
}

// sources collects the expressions to run, in order: --file, then
// positional arguments. With neither, standard input is one expression.
func sources(a args, stdin io.Reader) ([]string, error) {
	var out []string
	if a.File != "" {
		content, err := os.ReadFile(a.File)
		if err != nil {
			return nil, fmt.Errorf("cannot read expression file: %w", err)
		}
		out = append(out, string(content))
	}
	out = append(out, a.Exprs...)
	if len(out) > 0 {
		return out, nil
	}
	content, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("cannot read standard input: %w", err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return nil, errors.New("no expression given")
	}
	return []string{string(content)}, nil
}

// loadVars reads variable bindings. JSON is read as YAML.
func loadVars(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read variables: %w", err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("invalid variables file %s: %w", path, err)
	}
	return raw, nil
}

// output prints the requested view of expr, or its value.
func output(a args, expr *uexpr.Expression, stack *uexpr.Stack, w io.Writer) error {
	switch {
	case a.JSON:
		data, err := json.Marshal(expr)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case a.AST:
		return expr.Print(w)
	case a.String:
		_, err := fmt.Fprintln(w, expr.String())
		return err
	case a.Entry:
		entry := expr.Entry()
		if entry == nil {
			entry = []string{}
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	v, err := expr.Get(stack)
	if err != nil {
		return err
	}
	v, err = uexpr.Await(v)
	if err != nil {
		return err
	}
	text, ok, err := types.Stringify(v, "")
	if err != nil {
		return fmt.Errorf("cannot print result: %w", err)
	}
	if !ok {
		text = "undefined"
	}
	_, err = fmt.Fprintln(w, text)
	return err
}

func errorExitf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "uexpr: "+format+"\n", args...)
	os.Exit(1)
}
