// Package plugintest provides a fake GIMP MCP plugin listening on a real
// loopback socket, for tests of the bridge and the tools built on it.
package plugintest

import (
	"encoding/json"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/ironsheep/gimp-mcp/internal/protocol"
)

// Handler computes the reply to a command. A []byte return value is written
// verbatim, nil closes the connection without replying, and anything else is
// JSON-encoded.
type Handler func(cmd protocol.Command) any

// Success builds a success reply.
func Success(result any) map[string]any {
	return map[string]any{"status": "success", "result": result}
}

// Failure builds an error reply.
func Failure(err any) map[string]any {
	return map[string]any{"status": "error", "error": err}
}

// Routes answers call_api commands by api_path. Unknown paths get an error
// reply naming the path.
func Routes(routes map[string]any) Handler {
	return func(cmd protocol.Command) any {
		path := APIPath(cmd)
		if reply, ok := routes[path]; ok {
			if h, ok := reply.(Handler); ok {
				return h(cmd)
			}
			return reply
		}
		return Failure("unknown api path " + path)
	}
}

// APIPath returns the api_path of a call_api command.
func APIPath(cmd protocol.Command) string {
	s, _ := cmd.Params["api_path"].(string)
	return s
}

// Args returns the positional arguments of a call_api command.
func Args(cmd protocol.Command) []any {
	a, _ := cmd.Params["args"].([]any)
	return a
}

// Plugin is a fake remote plugin. Each accepted connection serves exactly one
// command, like the real one.
type Plugin struct {
	ln      net.Listener
	handler Handler

	mu       sync.Mutex
	commands []protocol.Command
	raw      [][]byte
	accepts  int
	wg       sync.WaitGroup
}

// Start listens on 127.0.0.1 with an ephemeral port. The plugin is stopped
// when the test ends.
func Start(t testing.TB, h Handler) *Plugin {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	p := &Plugin{ln: ln, handler: h}
	p.wg.Add(1)
	go p.serve()
	t.Cleanup(p.Close)
	return p
}

// Addr returns host:port.
func (p *Plugin) Addr() string { return p.ln.Addr().String() }

// Port returns the listening port.
func (p *Plugin) Port() int {
	_, port, _ := net.SplitHostPort(p.Addr())
	n, _ := strconv.Atoi(port)
	return n
}

// Close stops accepting and waits for in-flight connections.
func (p *Plugin) Close() {
	_ = p.ln.Close()
	p.wg.Wait()
}

// Commands returns the commands received so far, in order.
func (p *Plugin) Commands() []protocol.Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]protocol.Command(nil), p.commands...)
}

// Raw returns the undecoded bytes of each command received so far.
func (p *Plugin) Raw() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.raw...)
}

// Accepts returns how many connections were accepted.
func (p *Plugin) Accepts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accepts
}

func (p *Plugin) serve() {
	defer p.wg.Done()
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		p.mu.Lock()
		p.accepts++
		p.mu.Unlock()

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.handle(conn)
		}()
	}
}

func (p *Plugin) handle(conn net.Conn) {
	defer conn.Close()

	msg, err := protocol.ReadMessage(conn, 1<<20)
	if err != nil {
		return
	}
	cmd, err := protocol.DecodeCommand(msg)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.commands = append(p.commands, cmd)
	p.raw = append(p.raw, msg)
	p.mu.Unlock()

	var out []byte
	switch reply := p.handler(cmd).(type) {
	case nil:
		return
	case []byte:
		out = reply
	default:
		if out, err = json.Marshal(reply); err != nil {
			return
		}
	}
	_, _ = conn.Write(out)
}
