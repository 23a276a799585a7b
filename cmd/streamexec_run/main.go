// streamexec_run compiles and executes a program written in one of the two
// supported surface syntaxes and prints the results.
//
//	streamexec_run program.hlo
//	streamexec_run -inputs "1,2,3" program.mlir
//	STREAMEXEC_RUNTIME="hostgo:devices=4" streamexec_run -instances 4 program.hlo
//
// The dialect is auto-detected: textual modules start with "HloModule",
// structured ones with "module". Use "-" as the file name to read from stdin.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/streamexec/streamexec/compiler"
	"github.com/streamexec/streamexec/ir"
	"github.com/streamexec/streamexec/ir/hlotext"
	"github.com/streamexec/streamexec/ir/mhlo"
	"github.com/streamexec/streamexec/runtimes"
	_ "github.com/streamexec/streamexec/runtimes/hostgo"
	"github.com/streamexec/streamexec/types/literals"
	"github.com/streamexec/streamexec/types/shapes"
)

var (
	flagRuntime = flag.String("runtime", "", "Runtime configuration as \"<runtime_name>:<runtime_config>\", "+
		"e.g. \"hostgo:devices=4\". Defaults to the $"+runtimes.ConfigEnvVar+" environment variable, "+
		"or the first registered runtime.")
	flagInputs = flag.String("inputs", "", "Program arguments as comma-separated element lists, one list "+
		"per parameter, separated by ';'. E.g. -inputs \"1,2,3;4,5,6\" feeds two rank-1 parameters. "+
		"Elements are parsed against the parameter shapes declared by the program.")
	flagInstances = flag.Int("instances", 1, "Number of execution instances to run. All instances receive "+
		"the same -inputs values; the runtime spreads them over its devices.")
	flagDumpIR = flag.Bool("dump_ir", false, "Log the lowered program before code generation.")
	flagQuiet  = flag.Bool("quiet", false, "Print only the result values, without the summary tables.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		klog.Errorf("Expected exactly one program file (or \"-\" for stdin). See 'streamexec_run -help'.")
		os.Exit(1)
	}
	run(args[0])
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

func newPlainTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == 1 {
				s = headerRowStyle
				return
			}
			switch {
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

func readProgram(path string) string {
	if path == "-" {
		return string(must.M1(io.ReadAll(os.Stdin)))
	}
	return string(must.M1(os.ReadFile(path)))
}

// parseSource auto-detects the dialect from the first token.
func parseSource(text string) (ir.Source, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "HloModule") {
		return hlotext.Parse(text)
	}
	if strings.HasPrefix(trimmed, "module") {
		return mhlo.Parse(text)
	}
	return nil, fmt.Errorf("cannot detect dialect: program must start with %q or %q", "HloModule", "module")
}

// parseInputs builds one buffer per program parameter from -inputs.
func parseInputs(client runtimes.Client, program *ir.Program) []runtimes.Buffer {
	inputShapes := program.InputShapes()
	var lists []string
	if *flagInputs != "" {
		lists = strings.Split(*flagInputs, ";")
	}
	if len(lists) != len(inputShapes) {
		klog.Errorf("Program takes %d parameter(s) but -inputs provided %d value list(s).",
			len(inputShapes), len(lists))
		os.Exit(1)
	}
	buffers := make([]runtimes.Buffer, len(inputShapes))
	for ii, list := range lists {
		var elements []string
		for _, element := range strings.Split(list, ",") {
			elements = append(elements, strings.TrimSpace(element))
		}
		literal := must.M1(literals.FromStrings(elements, inputShapes[ii]))
		buffers[ii] = must.M1(client.BufferFromFlatData(0, literal.Flat(), literal.Shape()))
	}
	return buffers
}

func run(path string) {
	source := must.M1(parseSource(readProgram(path)))
	program := must.M1(source.LowerToProgram())

	client := must.M1(runtimesClient())
	defer client.Finalize()

	if !*flagQuiet {
		fmt.Println(titleStyle.Render("Program"))
		table := newPlainTable(false)
		table.Row("module", program.ModuleName)
		table.Row("entry", program.Entry.Name)
		table.Row("fingerprint", program.Fingerprint()[:12])
		table.Row("inputs", shapesText(program.InputShapes()))
		table.Row("outputs", shapesText(program.OutputShapes()))
		table.Row("runtime", client.Description())
		fmt.Println(table.Render())
	}

	topo := must.M1(client.TopologyDescription())
	var comp compiler.Compiler
	executable := must.M1(comp.Compile(
		runtimes.CompileOptions{DumpIR: *flagDumpIR}, program, topo, client))
	loaded := must.M1(client.Load(executable, runtimes.LoadOptions{}))
	defer loaded.Finalize()

	arguments := parseInputs(client, program)
	instances := make([][]runtimes.Buffer, *flagInstances)
	for ii := range instances {
		instances[ii] = arguments
	}
	results := must.M1(loaded.Execute(instances, runtimes.ExecuteOptions{}))

	if *flagQuiet {
		for _, instance := range results {
			for _, buffer := range instance {
				fmt.Println(must.M1(buffer.ToLiteral()))
			}
		}
		return
	}

	fmt.Println(titleStyle.Render("Results"))
	table := newPlainTable(true)
	table.Row("instance", "device", "shape", "size", "value")
	for ii, instance := range results {
		for _, buffer := range instance {
			literal := must.M1(buffer.ToLiteral())
			shape := buffer.Shape()
			table.Row(
				humanize.Comma(int64(ii)),
				fmt.Sprintf("#%d", buffer.DeviceNum()),
				shape.String(),
				humanize.IBytes(uint64(shape.Memory())),
				literal.String())
		}
	}
	fmt.Println(table.Render())
}

func runtimesClient() (runtimes.Client, error) {
	if *flagRuntime != "" {
		return runtimes.NewWithConfig(*flagRuntime)
	}
	return runtimes.New()
}

func shapesText(list []shapes.Shape) string {
	if len(list) == 0 {
		return "(none)"
	}
	texts := make([]string, len(list))
	for ii, shape := range list {
		texts[ii] = shape.String()
	}
	return strings.Join(texts, ", ")
}
