package protocol

import (
	"bytes"
	"fmt"
	"strconv"

	"SyncIM/tools/errs"
)

// Outer command envelope understood by the transport: a redis-style
// multi-bulk array of [protocol version, command tag, body]. The version
// and the two command tags are part of the client contract and must not
// change between releases.
const (
	ProtocolVersion = "1"

	CmdMsgToClient = "im.stc.message" // data frame: batch of group messages
	CmdMsgFinish   = "im.sync.finish" // terminal frame: sync round done
)

type Command struct {
	parts [][]byte
}

func NewCommand() *Command {
	return &Command{}
}

func (c *Command) Add(p []byte) *Command {
	c.parts = append(c.parts, p)
	return c
}

func (c *Command) AddString(s string) *Command {
	return c.Add([]byte(s))
}

// Encode renders the command as a multi-bulk array:
// *<n>\r\n followed by $<len>\r\n<payload>\r\n per part.
func (c *Command) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteByte('*')
	buf.WriteString(strconv.Itoa(len(c.parts)))
	buf.WriteString("\r\n")
	for _, p := range c.parts {
		buf.WriteByte('$')
		buf.WriteString(strconv.Itoa(len(p)))
		buf.WriteString("\r\n")
		buf.Write(p)
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}

// DecodeCommand parses one encoded command. Used by tests and by client-side
// tooling; the server itself only writes.
func DecodeCommand(raw []byte) ([][]byte, error) {
	if len(raw) == 0 || raw[0] != '*' {
		return nil, errs.New("command: missing array marker")
	}
	rest := raw[1:]
	n, rest, err := readLine(rest)
	if err != nil {
		return nil, err
	}
	count, err := strconv.Atoi(string(n))
	if err != nil {
		return nil, errs.WrapMsg(err, "command: bad array length")
	}
	parts := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		if len(rest) == 0 || rest[0] != '$' {
			return nil, errs.New("command: missing bulk marker", "part", i)
		}
		var ln []byte
		ln, rest, err = readLine(rest[1:])
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(string(ln))
		if err != nil {
			return nil, errs.WrapMsg(err, "command: bad bulk length", "part", i)
		}
		if len(rest) < size+2 {
			return nil, errs.New("command: truncated bulk", "part", i)
		}
		parts = append(parts, rest[:size])
		rest = rest[size+2:]
	}
	return parts, nil
}

func readLine(b []byte) (line, rest []byte, err error) {
	idx := bytes.Index(b, []byte("\r\n"))
	if idx < 0 {
		return nil, nil, fmt.Errorf("command: missing line terminator")
	}
	return b[:idx], b[idx+2:], nil
}
