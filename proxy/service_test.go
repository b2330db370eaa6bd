package proxy_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/ArcaneChat/chatmail/auth"
	"github.com/ArcaneChat/chatmail/proxy"
	"github.com/ArcaneChat/chatmail/utils"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Structs

// bufferConn replays fixed input and records
// everything written back to it.
type bufferConn struct {
	io.Reader
	out bytes.Buffer
}

// failingAuthenticator fails every call like
// a store whose disk went away.
type failingAuthenticator struct{}

var errDiskGone = errors.New("input/output error")

// Functions

func (c *bufferConn) Write(p []byte) (int, error)      { return c.out.Write(p) }
func (c *bufferConn) Close() error                     { return nil }
func (c *bufferConn) LocalAddr() net.Addr              { return nil }
func (c *bufferConn) RemoteAddr() net.Addr             { return nil }
func (c *bufferConn) SetDeadline(time.Time) error      { return nil }
func (c *bufferConn) SetReadDeadline(time.Time) error  { return nil }
func (c *bufferConn) SetWriteDeadline(time.Time) error { return nil }

func (failingAuthenticator) LookupUser(ctx context.Context, addr string) (*auth.Account, error) {
	return nil, errDiskGone
}

func (failingAuthenticator) LookupOrCreate(ctx context.Context, addr string, password string) (*auth.Account, error) {
	return nil, errDiskGone
}

func (failingAuthenticator) ListAddresses(ctx context.Context) ([]string, error) {
	return nil, errDiskGone
}

// newTestAuthenticator wires the file store of env.
func newTestAuthenticator(env *utils.TestEnv) *auth.Authenticator {

	logger := log.NewNopLogger()

	return auth.NewAuthenticator(
		logger,
		auth.NewFileStore(env.Config),
		auth.NewPolicy(logger, env.Config, nil),
		auth.NewBcryptHasher(bcrypt.MinCost),
		nil,
	)
}

// serve runs one connection feeding input and
// returns everything written back.
func serve(logger log.Logger, service proxy.Service, input string) string {

	conn := &bufferConn{Reader: strings.NewReader(input)}
	proxy.NewHandler(logger, service).HandleConnection(context.Background(), conn)

	return conn.out.String()
}

// TestHandlePassdbRequest checks that passwords may
// contain quotes, backslashes and slashes.
func TestHandlePassdbRequest(t *testing.T) {

	env := utils.CreateTestEnv(t.TempDir())
	service := proxy.NewService(env.Config, newTestAuthenticator(env))
	session := proxy.NewSession(log.NewNopLogger(), service)

	msg := `Lshared/passdb/laksjdlaksjdlak\\sjdlk\"12j\'3l1/k2j3123"` +
		"some42123@chat.example.org\tsome42123@chat.example.org"

	res := session.Handle(context.Background(), msg)
	require.True(t, strings.HasPrefix(res, "O"), res)
	require.True(t, strings.HasSuffix(res, "\n"), res)

	var userdata map[string]string
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(res[1:])), &userdata))

	assert.Equal(t, "some42123@chat.example.org", userdata["addr"])
	assert.True(t, strings.HasSuffix(userdata["home"], "chat.example.org/some42123@chat.example.org"))
	assert.Equal(t, "vmail", userdata["uid"])
	assert.Equal(t, "vmail", userdata["gid"])
	require.True(t, strings.HasPrefix(userdata["password"], "{BLF-CRYPT}"))

	digest := strings.TrimPrefix(userdata["password"], "{BLF-CRYPT}")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(digest), []byte(`laksjdlaksjdlak\sjdlk"12j'3l1/k2j3123`)))

	// A later login with another password sees the same record.
	again := session.Handle(context.Background(), `Lshared/passdb/otherpassword1"some42123@chat.example.org`)
	assert.Equal(t, res, again)
}

// TestHandleHelloIsSkipped checks that a handshake
// produces neither output nor log entries.
func TestHandleHelloIsSkipped(t *testing.T) {

	var logs bytes.Buffer
	logger := level.NewFilter(log.NewLogfmtLogger(&logs), level.AllowInfo())

	env := utils.CreateTestEnv(t.TempDir())
	service := proxy.NewLoggingService(proxy.NewService(env.Config, newTestAuthenticator(env)), logger)

	out := serve(logger, service, "H3\t2\t0\t\tauth\n")
	assert.Empty(t, out)
	assert.Empty(t, logs.String())
}

// TestHandleUserNotExists checks the reply for an
// unknown address behind a handshake.
func TestHandleUserNotExists(t *testing.T) {

	env := utils.CreateTestEnv(t.TempDir())
	service := proxy.NewService(env.Config, newTestAuthenticator(env))

	out := serve(log.NewNopLogger(), service,
		"H3\t2\t0\t\tauth\nLshared/userdb/foobar@chat.example.org\tfoobar@chat.example.org\n")
	assert.Equal(t, "N\n", out)
}

// TestHandleIterate lists established addresses. The
// last request line lacks its terminator.
func TestHandleIterate(t *testing.T) {

	ctx := context.Background()
	env := utils.CreateTestEnv(t.TempDir())
	authenticator := newTestAuthenticator(env)

	_, err := authenticator.LookupOrCreate(ctx, "asdf00000@chat.example.org", "q9mr3faue")
	require.NoError(t, err)
	_, err = authenticator.LookupOrCreate(ctx, "asdf11111@chat.example.org", "q9mr3faue")
	require.NoError(t, err)

	service := proxy.NewService(env.Config, authenticator)
	out := serve(log.NewNopLogger(), service, "H3\t2\t0\t\tauth\nI0\t0\tshared/userdb/")

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines, "Oshared/userdb/asdf00000@chat.example.org\t")
	assert.Contains(t, lines, "Oshared/userdb/asdf11111@chat.example.org\t")
	assert.Empty(t, lines[2])
	assert.Empty(t, lines[3])
}

// TestHandleIterateEmpty terminates an empty
// listing with the blank line alone.
func TestHandleIterateEmpty(t *testing.T) {

	env := utils.CreateTestEnv(t.TempDir())
	service := proxy.NewService(env.Config, newTestAuthenticator(env))

	out := serve(log.NewNopLogger(), service, "I0\t0\tshared/userdb/\n")
	assert.Equal(t, "\n", out)
}

// TestHandleIterateUnknownPath gets no reply
// and is noted at info level.
func TestHandleIterateUnknownPath(t *testing.T) {

	var logs bytes.Buffer
	logger := level.NewFilter(log.NewLogfmtLogger(&logs), level.AllowInfo())

	env := utils.CreateTestEnv(t.TempDir())
	service := proxy.NewLoggingService(proxy.NewService(env.Config, newTestAuthenticator(env)), logger)

	out := serve(logger, service, "I0\t0\tshared/passdb/\n")
	assert.Empty(t, out)
	assert.Contains(t, logs.String(), "ignoring iteration of unknown path")
}

var malformedRequestTests = []string{
	"",
	"X",
	"Zsomething\tother",
	"Lshared",
	"Lshared/userdb",
	"Lshared/passdb/pw\\",
	"Lshared/passdb/onlypassword",
	"Lprivate/userdb/foobar@chat.example.org",
	"Lshared/quota/foobar@chat.example.org",
	"I0\t0",
}

// TestHandleMalformed checks that every line that
// cannot be answered gets a failure reply.
func TestHandleMalformed(t *testing.T) {

	env := utils.CreateTestEnv(t.TempDir())
	service := proxy.NewService(env.Config, newTestAuthenticator(env))
	session := proxy.NewSession(log.NewNopLogger(), service)

	for _, line := range malformedRequestTests {
		assert.Equal(t, "F\n", session.Handle(context.Background(), line), "line %q", line)
	}
}

// TestHandleForeignDomain checks that addresses outside
// the mail domain are never looked up nor created.
func TestHandleForeignDomain(t *testing.T) {

	ctx := context.Background()
	env := utils.CreateTestEnv(t.TempDir())
	authenticator := newTestAuthenticator(env)
	session := proxy.NewSession(log.NewNopLogger(), proxy.NewService(env.Config, authenticator))

	assert.Equal(t, "N\n", session.Handle(ctx, "Lshared/userdb/foobar12@example.com"))
	assert.Equal(t, "N\n", session.Handle(ctx, `Lshared/passdb/q9mr3faue1"foobar12@example.com`))
	assert.Equal(t, "N\n", session.Handle(ctx, `Lshared/passdb/q9mr3faue1"foobar12@sub.chat.example.org`))

	addrs, err := authenticator.ListAddresses(ctx)
	require.NoError(t, err)
	assert.Empty(t, addrs)
}

// TestHandleRefusedCreation answers not found
// while account creation is disabled.
func TestHandleRefusedCreation(t *testing.T) {

	env := utils.CreateTestEnv(t.TempDir())
	require.NoError(t, env.DisableCreation())

	session := proxy.NewSession(log.NewNopLogger(), proxy.NewService(env.Config, newTestAuthenticator(env)))

	assert.Equal(t, "N\n", session.Handle(context.Background(), `Lshared/passdb/zequ0Aimuchoodaechik"newuser12@chat.example.org`))
	assert.Equal(t, "N\n", session.Handle(context.Background(), "Lshared/userdb/newuser12@chat.example.org"))
}

// TestHandleStoreFailure checks that storage errors
// are reported as failures, never as not found.
func TestHandleStoreFailure(t *testing.T) {

	var logs bytes.Buffer
	logger := log.NewLogfmtLogger(&logs)

	env := utils.CreateTestEnv(t.TempDir())
	service := proxy.NewLoggingService(proxy.NewService(env.Config, failingAuthenticator{}), logger)
	session := proxy.NewSession(logger, service)
	ctx := context.Background()

	assert.Equal(t, "F\n", session.Handle(ctx, "Lshared/userdb/foobar12@chat.example.org"))
	assert.Equal(t, "F\n", session.Handle(ctx, `Lshared/passdb/q9mr3faue1"foobar12@chat.example.org`))
	assert.Equal(t, "F\n", session.Handle(ctx, "I0\t0\tshared/userdb/"))

	assert.Contains(t, logs.String(), "input/output error")
	assert.NotContains(t, logs.String(), "q9mr3faue1")
}

// TestHandleMultipleRequests answers every line
// of one connection in order.
func TestHandleMultipleRequests(t *testing.T) {

	env := utils.CreateTestEnv(t.TempDir())
	service := proxy.NewService(env.Config, newTestAuthenticator(env))

	input := strings.Join([]string{
		"H3\t2\t0\t\tauth",
		`Lshared/passdb/q9mr3faue1"asdf22222@chat.example.org`,
		"Lshared/userdb/asdf22222@chat.example.org",
		"Lshared/userdb/asdf33333@chat.example.org",
		"",
		"I0\t0\tshared/userdb/",
	}, "\n") + "\n"

	out := serve(log.NewNopLogger(), service, input)
	lines := strings.Split(out, "\n")

	require.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(lines[0], `O{"addr":"asdf22222@chat.example.org"`), lines[0])
	assert.Equal(t, lines[0], lines[1])
	assert.Equal(t, "N", lines[2])
	assert.Equal(t, "F", lines[3])
	assert.Equal(t, "Oshared/userdb/asdf22222@chat.example.org\t", lines[4])
	assert.Empty(t, lines[5])
}
