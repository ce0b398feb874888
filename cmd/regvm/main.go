// Command regvm builds and runs one of the built-in register-VM demo
// programs, optionally disassembling it instead of executing it.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"

	"regvm/vm"
)

var log = commonlog.GetLogger("regvm.cmd")

func main() {
	configPath := flag.String("config", "", "path to a regvm.toml configuration file")
	demoFlag := flag.String("demo", "", "demo to run: counting-loop, arithmetic-chain, nested-call, memory-roundtrip (overrides config)")
	disasm := flag.Bool("d", false, "disassemble the demo instead of running it")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *demoFlag != "" {
		cfg.Demo.Name = *demoFlag
	}

	opts := []vm.Option{
		vm.WithMaxMemory(cfg.Memory.MaxBytes),
		vm.WithColorDisassembly(cfg.Disasm.Colorize),
	}
	if len(cfg.Library.SearchPaths) > 0 {
		opts = append(opts, vm.WithLibrarySearchPaths(cfg.Library.SearchPaths...))
	}

	i, err := buildDemo(cfg.Demo.Name, opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer i.Close()

	if *disasm {
		fmt.Print(i.Disassemble())
		return
	}

	log.Infof("running demo %q", cfg.Demo.Name)
	result, err := i.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(result)
}
