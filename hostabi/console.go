package hostabi

import (
	"io"
	"os"
)

// Console channel identifiers, matching the two sinks the guest's console
// driver multiplexes onto: the normal console and the xenbus debug ring.
const (
	ChanConsole = iota
	ChanXenbusDebug
)

var consoleSinks = [2]io.Writer{os.Stdout, os.Stderr}

// ConsolePrint writes buf to the named channel, the concrete
// implementation of the hypervisor's console_print. Tests may redirect a
// channel's sink with SetConsoleSink.
func ConsolePrint(chanID int, buf []byte) (int, error) {
	return consoleSinks[chanID].Write(buf)
}

// SetConsoleSink redirects a console channel to w, returning the previous
// sink so callers can restore it.
func SetConsoleSink(chanID int, w io.Writer) io.Writer {
	prev := consoleSinks[chanID]
	consoleSinks[chanID] = w
	return prev
}
