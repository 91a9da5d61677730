// Command pydec is a thin demonstration harness for the pydec library: it
// runs asmpickle's reference Disassembler over a file and renders the
// result, exercising the same pdP/pdPj/pdP? surface §6.3 describes for
// the radare2 command line without reimplementing the plugin itself.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/doyensec/r2pickledec"
	"github.com/doyensec/r2pickledec/asmpickle"
)

var (
	verbose bool
	logger  = logrus.New()
)

func main() {
	root := &cobra.Command{
		Use:   "pydec",
		Short: "Decompile a Python pickle byte stream into pseudocode or JSON",
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging and the renderer's verbose diagnostics")

	root.AddCommand(newPseudocodeCmd())
	root.AddCommand(newJSONCmd())
	root.AddCommand(newHelpTopicsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newPseudocodeCmd implements pdP: emit pseudocode.
func newPseudocodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "pdP <file>",
		Aliases: []string{"pseudocode"},
		Short:   "Emit Python-like pseudocode for a pickle file (r2's pdP)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := run(args[0])
			if err != nil {
				return err
			}
			out, err := pydec.RenderPseudocode(state, pydec.RenderOptions{Verbose: verbose})
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}

// newJSONCmd implements pdPj: emit JSON.
func newJSONCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "pdPj <file>",
		Aliases: []string{"json"},
		Short:   "Emit a JSON tree for a pickle file (r2's pdPj)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := run(args[0])
			if err != nil {
				return err
			}
			out, err := pydec.RenderJSON(state)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

// newHelpTopicsCmd implements pdP?: show help.
func newHelpTopicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pdP?",
		Short: "Show the pdP/pdPj command surface (r2's pdP?)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("pdP   emit pseudocode")
			fmt.Println("pdPj  emit JSON")
			fmt.Println("pdP?  show this help")
			return nil
		},
	}
}

func run(path string) (*pydec.State, error) {
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	asm := asmpickle.New(data)
	vm, err := pydec.NewInterpreter(asm, pydec.DefaultConfig(),
		pydec.WithHostIO(asm),
		pydec.WithLogger(logrus.NewEntry(logger)),
	)
	if err != nil {
		return nil, err
	}
	if err := vm.Run(); err != nil {
		return nil, err
	}
	return vm.State(), nil
}
