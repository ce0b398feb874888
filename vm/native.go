package vm

import (
	"fmt"
	"os"
	"time"
)

// NativeConsoleWrite writes the byte at argument 0, truncated to a rune's
// low byte, to stdout and returns the number of bytes written in r1. It
// plays the role the original interpreter gave to its console-I/O device,
// but as an ordinary native callback rather than a port-mapped device.
func NativeConsoleWrite(i *Interpreter) error {
	v, err := i.Arg(0, Size8)
	if err != nil {
		return err
	}
	n, werr := os.Stdout.Write([]byte{byte(v)})
	if werr != nil {
		return newError(KindRuntime, "console write failed: %v", werr)
	}
	i.SetReturnValue(uint64(n))
	return nil
}

// NativeConsolePrintWord writes argument 0 to stdout as a decimal integer
// followed by a newline, and returns 0.
func NativeConsolePrintWord(i *Interpreter) error {
	v, err := i.Arg(0, Size64)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, int64(v))
	i.SetReturnValue(0)
	return nil
}

// NativeClockMillis returns the number of milliseconds since the Unix
// epoch, standing in for the original interpreter's systemTimer device
// (which measured elapsed microseconds via a channel-delivered response).
func NativeClockMillis(i *Interpreter) error {
	i.SetReturnValue(uint64(time.Now().UnixMilli()))
	return nil
}
