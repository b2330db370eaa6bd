package dict

import (
	"encoding/json"
	"strings"
)

// Constants

// Status is the one-character tag of a reply line.
type Status byte

// Reply tags.
const (
	StatusOK       Status = 'O'
	StatusNotFound Status = 'N'
	StatusFail     Status = 'F'
)

// Structs

// UserRecord is the JSON object returned to
// Dovecot for a userdb or passdb lookup.
type UserRecord struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	Home     string `json:"home"`
	UID      string `json:"uid"`
	GID      string `json:"gid"`
}

// Reply is a single answer line.
type Reply struct {
	Status  Status
	Payload string
}

// Iteration is the answer to an iterate request:
// one line per key below Prefix, terminated by
// an empty line.
type Iteration struct {
	Prefix string
	Keys   []string
}

// Functions

// Found builds an O reply carrying rec as JSON.
func Found(rec *UserRecord) (Reply, error) {

	payload, err := json.Marshal(rec)
	if err != nil {
		return Failed(), err
	}

	return Reply{Status: StatusOK, Payload: string(payload)}, nil
}

// NotFound builds an N reply.
func NotFound() Reply {
	return Reply{Status: StatusNotFound}
}

// Failed builds an F reply.
func Failed() Reply {
	return Reply{Status: StatusFail}
}

// String encodes the reply including its terminator.
func (r Reply) String() string {
	return string(r.Status) + r.Payload + "\n"
}

// String encodes all iteration lines including
// the terminating empty line.
func (it Iteration) String() string {

	var b strings.Builder

	for _, key := range it.Keys {
		b.WriteByte(byte(StatusOK))
		b.WriteString(it.Prefix)
		b.WriteString(key)
		b.WriteString("\t\n")
	}
	b.WriteByte('\n')

	return b.String()
}
