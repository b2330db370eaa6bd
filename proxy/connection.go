package proxy

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
)

// Structs

// Connection carries all information specific
// to one Dovecot process connected to the dict
// proxy socket.
type Connection struct {
	IncConn   net.Conn
	IncReader *bufio.Reader
	ClientID  string
}

// Functions

// NewConnection wraps conn for line based
// reading under the given identifier.
func NewConnection(conn net.Conn, clientID string) *Connection {

	return &Connection{
		IncConn:   conn,
		IncReader: bufio.NewReader(conn),
		ClientID:  clientID,
	}
}

// Send writes an already terminated reply to the
// connected Dovecot process.
func (c *Connection) Send(text string) error {

	_, err := fmt.Fprint(c.IncConn, text)
	if err != nil {
		return err
	}

	return nil
}

// Receive awaits text until the next newline and strips
// it. A final line without newline before EOF is returned
// together with io.EOF so the caller can still answer it.
func (c *Connection) Receive() (string, error) {

	text, err := c.IncReader.ReadString('\n')
	if err != nil {

		if err == io.EOF && text != "" {
			return text, io.EOF
		}

		return "", err
	}

	return strings.TrimSuffix(text, "\n"), nil
}

// Close terminates the underlying connection.
func (c *Connection) Close() error {
	return c.IncConn.Close()
}
