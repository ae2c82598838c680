// ABOUTME: WebSocket handshake probe for app-server endpoints
// ABOUTME: Compares upgrade requests with and without permessage-deflate to diagnose negotiation failures
package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Exit codes in compare mode. Code 3 is the interesting one: the endpoint
// accepts a plain upgrade but rejects the compression offer, which a client
// sees as a connection lost before the first frame.
const (
	exitBothOK       = 0
	exitBothFail     = 1
	exitConnectError = 2
	exitExtFail      = 3
	exitPlainFail    = 4
)

type probeResult struct {
	label       string
	statusLine  string
	headerBlock string
	ok          bool
}

func main() {
	os.Exit(run())
}

func run() int {
	host := flag.String("host", "127.0.0.1", "target host")
	port := flag.Int("port", 8080, "target port")
	path := flag.String("path", "/", "WebSocket request path")
	timeout := flag.Duration("timeout", 5*time.Second, "socket timeout")
	single := flag.Bool("single", false, "run a single probe instead of comparing without/with extensions")
	extensions := flag.Bool("extensions", false, "include Sec-WebSocket-Extensions (only with -single)")
	verbose := flag.Bool("verbose", false, "print full response header block")
	flag.Parse()

	if *port < 1 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "wsprobe: -port must be in range 1..65535")
		return exitConnectError
	}

	if *single {
		label := "no-ext"
		if *extensions {
			label = "with-ext"
		}
		result, err := runProbe(*host, *port, *path, *timeout, *extensions, label)
		if err != nil {
			fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
			return exitConnectError
		}
		printResult(result, *verbose)
		if result.ok {
			return exitBothOK
		}
		return exitBothFail
	}

	withoutExt, err := runProbe(*host, *port, *path, *timeout, false, "no-ext")
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		return exitConnectError
	}
	withExt, err := runProbe(*host, *port, *path, *timeout, true, "with-ext")
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		return exitConnectError
	}

	printResult(withoutExt, *verbose)
	printResult(withExt, *verbose)

	switch {
	case withoutExt.ok && withExt.ok:
		return exitBothOK
	case withoutExt.ok && !withExt.ok:
		return exitExtFail
	case !withoutExt.ok && withExt.ok:
		return exitPlainFail
	default:
		return exitBothFail
	}
}

// runProbe sends one handcrafted HTTP upgrade request over raw TCP and
// captures the response status line. Raw TCP keeps every header under our
// control; a WebSocket library would negotiate extensions on its own.
func runProbe(host string, port int, path string, timeout time.Duration, includeExtensions bool, label string) (probeResult, error) {
	keyBytes := make([]byte, 16)
	if _, err := rand.Read(keyBytes); err != nil {
		return probeResult{}, err
	}
	key := base64.StdEncoding.EncodeToString(keyBytes)

	hostPort := net.JoinHostPort(host, strconv.Itoa(port))
	lines := []string{
		"GET " + path + " HTTP/1.1",
		"Host: " + hostPort,
		"Upgrade: websocket",
		"Connection: Upgrade",
		"Sec-WebSocket-Key: " + key,
		"Sec-WebSocket-Version: 13",
	}
	if includeExtensions {
		lines = append(lines, "Sec-WebSocket-Extensions: permessage-deflate; client_max_window_bits")
	}
	request := strings.Join(lines, "\r\n") + "\r\n\r\n"

	conn, err := net.DialTimeout("tcp", hostPort, timeout)
	if err != nil {
		return probeResult{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return probeResult{}, err
	}
	if _, err := conn.Write([]byte(request)); err != nil {
		return probeResult{}, err
	}

	buf := make([]byte, 8192)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		return probeResult{}, err
	}
	if n == 0 {
		// Peer closed without answering; report rather than error so the
		// compare mode can still classify the pair
		return probeResult{label: label, statusLine: "<no response>"}, nil
	}

	text := string(buf[:n])
	headerBlock, _, _ := strings.Cut(text, "\r\n\r\n")
	statusLine, _, _ := strings.Cut(headerBlock, "\r\n")

	return probeResult{
		label:       label,
		statusLine:  statusLine,
		headerBlock: headerBlock,
		ok:          strings.HasPrefix(statusLine, "HTTP/1.1 101"),
	}, nil
}

func printResult(result probeResult, verbose bool) {
	fmt.Printf("[%s] %s\n", result.label, result.statusLine)
	if verbose && result.headerBlock != "" {
		fmt.Println(result.headerBlock)
		fmt.Println("---")
	}
}
