package notify

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// STOMP 1.2 frame commands used by the push channel.
const (
	cmdConnect    = "CONNECT"
	cmdConnected  = "CONNECTED"
	cmdSubscribe  = "SUBSCRIBE"
	cmdDisconnect = "DISCONNECT"
	cmdMessage    = "MESSAGE"
	cmdError      = "ERROR"
)

var errMalformedFrame = errors.New("malformed STOMP frame")

// frame is a single STOMP frame. A frame with an empty command is a
// heart-beat.
type frame struct {
	command string
	headers map[string]string
	body    []byte
}

func newFrame(command string, kv ...string) frame {
	f := frame{command: command, headers: make(map[string]string, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		f.headers[kv[i]] = kv[i+1]
	}
	return f
}

func (f frame) header(name string) string { return f.headers[name] }

// escapes apply to every frame except CONNECT and CONNECTED.
var (
	headerEscaper   = strings.NewReplacer(`\`, `\\`, "\r", `\r`, "\n", `\n`, ":", `\c`)
	headerUnescaper = strings.NewReplacer(`\\`, `\`, `\r`, "\r", `\n`, "\n", `\c`, ":")
)

func escapesHeaders(command string) bool {
	return command != cmdConnect && command != cmdConnected
}

// encode renders f in wire form. Headers are written in name order.
func (f frame) encode() []byte {
	var b bytes.Buffer
	b.WriteString(f.command)
	b.WriteByte('\n')

	names := make([]string, 0, len(f.headers))
	for name := range f.headers {
		names = append(names, name)
	}
	sort.Strings(names)
	escape := escapesHeaders(f.command)
	for _, name := range names {
		value := f.headers[name]
		if escape {
			name, value = headerEscaper.Replace(name), headerEscaper.Replace(value)
		}
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(value)
		b.WriteByte('\n')
	}
	if len(f.body) > 0 {
		b.WriteString("content-length:")
		b.WriteString(strconv.Itoa(len(f.body)))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.Write(f.body)
	b.WriteByte(0)
	return b.Bytes()
}

// parseFrame decodes one websocket message into a frame. Messages made of
// end-of-line bytes only are heart-beats.
func parseFrame(data []byte) (frame, error) {
	data = bytes.TrimLeft(data, "\r\n")
	if len(data) == 0 {
		return frame{}, nil
	}

	line, rest, ok := cutLine(data)
	if !ok {
		return frame{}, fmt.Errorf("%w: no command line", errMalformedFrame)
	}
	f := frame{command: string(line), headers: make(map[string]string)}
	unescape := escapesHeaders(f.command)

	for {
		line, rest, ok = cutLine(rest)
		if !ok {
			return frame{}, fmt.Errorf("%w: unterminated headers", errMalformedFrame)
		}
		if len(line) == 0 {
			break
		}
		name, value, found := bytes.Cut(line, []byte(":"))
		if !found {
			return frame{}, fmt.Errorf("%w: header %q", errMalformedFrame, line)
		}
		n, v := string(name), string(value)
		if unescape {
			n, v = headerUnescaper.Replace(n), headerUnescaper.Replace(v)
		}
		// The first occurrence of a repeated header wins.
		if _, dup := f.headers[n]; !dup {
			f.headers[n] = v
		}
	}

	if cl, ok := f.headers["content-length"]; ok {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 || n > len(rest) {
			return frame{}, fmt.Errorf("%w: content-length %q", errMalformedFrame, cl)
		}
		if n == len(rest) || rest[n] != 0 {
			return frame{}, fmt.Errorf("%w: no NUL after %d byte body", errMalformedFrame, n)
		}
		f.body = rest[:n]
		return f, nil
	}
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return frame{}, fmt.Errorf("%w: missing NUL terminator", errMalformedFrame)
	}
	f.body = rest[:end]
	return f, nil
}

// cutLine splits off one LF or CRLF terminated line.
func cutLine(data []byte) (line, rest []byte, ok bool) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return nil, nil, false
	}
	line = data[:i]
	line = bytes.TrimSuffix(line, []byte("\r"))
	return line, data[i+1:], true
}
