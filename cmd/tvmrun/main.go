// tvmrun loads an IR module artifact, runs the inline/compile/link/interpret
// pipeline against it, and prints the result. It is deliberately small: no
// third-party CLI framework, matching the teacher's own cmd/mag and cmd/tt,
// which both build their flag surface on the standard library flag package.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoprint"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/arborlang/tvmcore/pkg/config"
	"github.com/arborlang/tvmcore/pkg/ir"
	"github.com/arborlang/tvmcore/pkg/kernel"
	"github.com/arborlang/tvmcore/pkg/pipeline"
	"github.com/arborlang/tvmcore/pkg/reforacle"
	"github.com/arborlang/tvmcore/pkg/tensor"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCommand(os.Args[2:])
	case "describe-attrs":
		err = describeAttrsCommand(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "tvmrun: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  tvmrun run [-trace] [-target triple] <module.cbor> <function> <arg-shape:arg-file>...\n")
	fmt.Fprintf(os.Stderr, "  tvmrun describe-attrs <attrs.pb>\n")
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	trace := fs.Bool("trace", false, "print per-instruction execution trace to stderr")
	configPath := fs.String("config", "", "path to a TOML config file (defaults applied if omitted)")
	targetOverride := fs.String("target", "", "compilation target triple, overriding the config default")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) < 2 {
		return fmt.Errorf("run requires <module.cbor> <function> [arg...]")
	}
	modulePath, funcName, argSpecs := rest[0], rest[1], rest[2:]

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = *loaded
	}
	if *targetOverride != "" {
		cfg.DefaultTarget = *targetOverride
	}

	data, err := os.ReadFile(modulePath)
	if err != nil {
		return fmt.Errorf("reading module artifact: %w", err)
	}
	module, err := ir.UnmarshalArtifact(data)
	if err != nil {
		return fmt.Errorf("decoding module artifact: %w", err)
	}

	tensorArgs := make([]tensor.Value, len(argSpecs))
	for i, spec := range argSpecs {
		v, err := loadTensorArg(spec)
		if err != nil {
			return fmt.Errorf("argument %d (%s): %w", i, spec, err)
		}
		tensorArgs[i] = v
	}

	cache, err := kernel.OpenCache(cfg.KernelCachePath)
	if err != nil {
		return fmt.Errorf("opening kernel cache: %w", err)
	}
	defer cache.Close()
	oracle := kernel.CachedOracle{Oracle: reforacle.Oracle{}, Cache: cache}

	result, err := pipeline.Build(module, oracle, kernel.Target{Triple: cfg.DefaultTarget}, cfg.StackSize, cfg.FrameStackSize)
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}
	idx, ok := result.Indices[funcName]
	if !ok {
		return fmt.Errorf("no callable function %q in module", funcName)
	}

	if *trace {
		duck, err := kernel.OpenDuckDBTrace(cfg.TraceStorePath)
		if err != nil {
			return fmt.Errorf("opening trace store: %w", err)
		}
		defer duck.Close()
		printTo := kernel.PrintTrace{Write: func(line string) { fmt.Fprintln(os.Stderr, line) }}
		result.VM.Trace = teeTrace{sinks: []kernel.TraceSink{duck, printTo}}
	}

	out, err := result.VM.Invoke(funcName, idx, tensorArgs)
	if err != nil {
		return fmt.Errorf("invoke: %w", err)
	}

	fmt.Printf("shape=%v dtype=%s data=%v\n", out.Descriptor.Shape, out.Descriptor.DType, out.Bytes())
	return nil
}

// teeTrace fans a trace event out to every sink, so -trace both persists a
// queryable DuckDB record of the run and prints a live line to stderr.
type teeTrace struct {
	sinks []kernel.TraceSink
}

func (t teeTrace) Record(ev kernel.TraceEvent) error {
	for _, s := range t.sinks {
		if err := s.Record(ev); err != nil {
			return err
		}
	}
	return nil
}

// loadTensorArg parses a "shape:path" spec (shape as comma-separated
// dimensions, empty for a scalar) and reads path as raw little-endian
// float32 data. Only float32 is supported from the command line; richer
// dtypes are reachable only via the host API's structured envelope.
func loadTensorArg(spec string) (tensor.Value, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return tensor.Value{}, fmt.Errorf("expected \"shape:path\", got %q", spec)
	}

	var shape []int64
	if parts[0] != "" {
		for _, dim := range strings.Split(parts[0], ",") {
			n, err := strconv.ParseInt(dim, 10, 64)
			if err != nil {
				return tensor.Value{}, fmt.Errorf("parsing shape dimension %q: %w", dim, err)
			}
			shape = append(shape, n)
		}
	}

	data, err := os.ReadFile(parts[1])
	if err != nil {
		return tensor.Value{}, err
	}

	descriptor := tensor.Descriptor{Shape: shape, DType: ir.Float32, Device: tensor.CPU}
	if int64(len(data)) != descriptor.ByteSize() {
		return tensor.Value{}, fmt.Errorf("file has %d bytes, want %d for shape %v float32", len(data), descriptor.ByteSize(), shape)
	}
	return tensor.FromBytes(descriptor, data), nil
}

// describeAttrsCommand prints the structpb.Struct message descriptor, the
// schema every attribute bag shares, using protoreflect's reflection-based
// descriptor printer rather than a bespoke walker over structpb.Value's
// oneof. It requires the <attrs.pb> argument but does not read the file, so
// the output is the same for every bag.
func describeAttrsCommand(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("describe-attrs requires <attrs.pb>")
	}

	md, err := desc.LoadMessageDescriptorForMessage(&structpb.Struct{})
	if err != nil {
		return fmt.Errorf("loading structpb.Struct descriptor: %w", err)
	}

	printer := protoprint.Printer{}
	text, err := printer.PrintProtoToString(md)
	if err != nil {
		return fmt.Errorf("printing descriptor: %w", err)
	}
	fmt.Print(text)
	return nil
}
