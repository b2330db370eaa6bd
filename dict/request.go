package dict

import (
	"errors"
	"fmt"
	"strings"
)

// Constants

// Command is the one-character tag every
// request line of the dict protocol starts with.
type Command byte

// Commands understood by doveauth. Dovecot's dict
// protocol knows more (transactions, atomic increments),
// none of which an authentication lookup needs.
const (
	CommandHello   Command = 'H'
	CommandLookup  Command = 'L'
	CommandIterate Command = 'I'
)

// Namespaces and lookup kinds.
const (
	NamespaceShared = "shared"
	KindUserDB      = "userdb"
	KindPassDB      = "passdb"
)

// UserDBPrefix is the iteration path under which
// all established addresses are listed.
const UserDBPrefix = NamespaceShared + "/" + KindUserDB + "/"

// Variables

var (
	// ErrMalformedRequest wraps every reason a request
	// line could not be decoded.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrUnknownCommand is returned for unsupported command tags.
	ErrUnknownCommand = errors.New("unknown command")
)

// Structs

// Request represents one decoded line sent by
// the dict client. Which fields are set depends
// on Command.
type Request struct {
	Command Command

	// Lookup requests.
	Namespace string
	Kind      string
	Args      []string

	// Iterate requests.
	Path string

	// Fields holds the raw tab-separated
	// fields following the command tag.
	Fields []string
}

// Functions

func (c Command) String() string {

	switch c {
	case CommandHello:
		return "HELLO"
	case CommandLookup:
		return "LOOKUP"
	case CommandIterate:
		return "ITERATE"
	}

	return fmt.Sprintf("UNKNOWN(%q)", byte(c))
}

// ParseRequest takes in a raw line without its line
// terminator and parses it into the request structure
// above. Every decoding failure wraps ErrMalformedRequest.
func ParseRequest(line string) (*Request, error) {

	if line == "" {
		return nil, fmt.Errorf("%w: empty line", ErrMalformedRequest)
	}

	req := &Request{
		Command: Command(line[0]),
		Fields:  strings.Split(line[1:], "\t"),
	}

	switch req.Command {

	case CommandHello:
		// Version and client name are not checked.
		return req, nil

	case CommandLookup:
		// Only the first field is the key. Later fields
		// (the username on Dovecot >= 2.3.17) are ignored.
		parts := strings.SplitN(req.Fields[0], "/", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: lookup key has no namespace/kind/args structure", ErrMalformedRequest)
		}

		args, err := SplitAndUnescape(parts[2])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
		}

		req.Namespace = parts[0]
		req.Kind = parts[1]
		req.Args = args

		return req, nil

	case CommandIterate:
		// Example: I0\t0\tshared/userdb/
		if len(req.Fields) < 3 {
			return nil, fmt.Errorf("%w: iterate request needs flags, max rows and path", ErrMalformedRequest)
		}

		req.Path = req.Fields[2]

		return req, nil
	}

	return nil, fmt.Errorf("%w: %w %q", ErrMalformedRequest, ErrUnknownCommand, line[0])
}
