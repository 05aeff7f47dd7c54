// Command rorchestratorctl is a small local-development harness for the
// flow orchestration core: it registers one demo flow, loads a patch
// document from a file (or stdin), runs the flow once, and prints the
// resulting ExecExplain as indented JSON. It carries no production
// responsibilities of its own — it exists to give the library packages
// something runnable, the same way the teacher framework ships thin
// core/cmd binaries alongside its library packages.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/WAcry/ROrchestrator-sub004/blueprint"
	"github.com/WAcry/ROrchestrator-sub004/configsnap"
	"github.com/WAcry/ROrchestrator-sub004/core"
	"github.com/WAcry/ROrchestrator-sub004/engine"
	"github.com/WAcry/ROrchestrator-sub004/outcome"
	"github.com/WAcry/ROrchestrator-sub004/patch"
	"github.com/WAcry/ROrchestrator-sub004/pkg/logger"
	"github.com/WAcry/ROrchestrator-sub004/plan"
)

const demoFlowName = "greet"

// defaultPatchJSON is used when -patch is omitted: a valid, empty v1
// document that evaluates the demo flow at its blueprint defaults.
const defaultPatchJSON = `{"schemaVersion":"v1","flows":{}}`

func main() {
	name := flag.String("name", "world", "name argument passed to the demo flow")
	patchPath := flag.String("patch", "", `path to a patch document file (.json or .yaml), or "-" for stdin JSON; omit for the built-in default`)
	deadline := flag.Duration("deadline", 5*time.Second, "request deadline")
	explainLevel := flag.String("explain", string(engine.ExplainFull), "explain level: none, basic, or full")
	requestID := flag.String("request-id", "", "request id for log correlation; a random one is generated when omitted")
	flag.Parse()

	backend := logger.NewSimpleLogger()
	backend.SetLevel(logger.LevelFromEnv())
	log := logger.NewCoreAdapter(backend)

	patchJSON, err := loadPatch(*patchPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rorchestratorctl: %v\n", err)
		os.Exit(1)
	}

	catalog := plan.NewModuleCatalog()
	if err := plan.RegisterModule[string, string](catalog, "greeter", func(services any) (plan.TypedModule[string, string], error) {
		return greeterModule{}, nil
	}); err != nil {
		fmt.Fprintf(os.Stderr, "rorchestratorctl: register module: %v\n", err)
		os.Exit(1)
	}

	b := blueprint.NewBuilder(demoFlowName)
	b.Step("greet1", "greeter")
	blueprint.Join(b, "final", func(jc blueprint.JoinContext) (string, error) {
		o, _ := jc.Outcome("greet1")
		s, _ := o.Value().(string)
		return s, nil
	})
	bp, err := blueprint.Build[string](b)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rorchestratorctl: build blueprint: %v\n", err)
		os.Exit(1)
	}

	registry := plan.NewFlowRegistry()
	if err := plan.RegisterFlow[string, string](registry, demoFlowName, bp); err != nil {
		fmt.Fprintf(os.Stderr, "rorchestratorctl: register flow: %v\n", err)
		os.Exit(1)
	}

	configs := configsnap.NewStaticConfigProvider(patchJSON, time.Now().Unix())
	eng := engine.NewExecutionEngine(catalog)
	host := engine.NewFlowHost(registry, catalog, configs, eng, engine.WithHostLogger(log))

	id := *requestID
	if id == "" {
		id = uuid.NewString()
	}
	ctx, cancel := context.WithTimeout(core.WithRequestID(context.Background(), id), *deadline)
	defer cancel()

	fc := engine.NewFlowContext(ctx, nil, time.Now().Add(*deadline), engine.RequestOptions{})
	explain := engine.NewExecExplain(demoFlowName, engine.ExplainLevel(*explainLevel), engine.ExplainLevel(*explainLevel))
	fc.EnableExplain(explain)

	log.InfoWithContext(ctx, "executing demo flow", map[string]interface{}{"flow": demoFlowName, "name": *name})

	result, err := engine.Execute[string, string](host, demoFlowName, *name, fc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rorchestratorctl: execute: %v\n", err)
		os.Exit(1)
	}

	printResult(result)

	out, err := json.MarshalIndent(explain, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "rorchestratorctl: marshal explain: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func printResult(o outcome.Outcome[string]) {
	switch o.Kind() {
	case outcome.Ok:
		fmt.Printf("result: %s (ok)\n", o.Value())
	case outcome.Fallback:
		fmt.Printf("result: %s (fallback %s)\n", o.Value(), o.Code())
	default:
		fmt.Printf("result: %s %s\n", o.Kind(), o.Code())
	}
}

// loadPatch resolves the -patch flag to a JSON patch document string: empty
// uses the built-in default, "-" reads JSON from stdin, a .yaml/.yml path is
// converted via patch.ParseYAMLDocument and re-serialized to JSON, anything
// else is read as a JSON file.
func loadPatch(path string) (string, error) {
	switch path {
	case "":
		return defaultPatchJSON, nil
	case "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	default:
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			doc, err := patch.ParseYAMLDocument(b)
			if err != nil {
				return "", fmt.Errorf("parse %s: %w", path, err)
			}
			asJSON, err := json.Marshal(doc)
			if err != nil {
				return "", fmt.Errorf("re-marshal %s: %w", path, err)
			}
			return string(asJSON), nil
		default:
			return string(b), nil
		}
	}
}

// greeterModule is the demo flow's only module: it greets the request's
// name argument. A blank name is treated as a module-level input error.
type greeterModule struct{}

func (greeterModule) ExecuteAsync(mctx *plan.ModuleContext) outcome.Outcome[string] {
	name, _ := mctx.Args.(string)
	if name == "" {
		return outcome.NewError[string]("EMPTY_NAME")
	}
	return outcome.NewOk(fmt.Sprintf("Hello, %s!", name))
}
