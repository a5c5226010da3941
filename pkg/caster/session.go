package caster

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// writeTimeout bounds how long a session handler will wait to write a
// response line before giving up on an unresponsive client.
var writeTimeout = 5 * time.Second

// Session runs the NTRIP per-connection state machine: read request,
// branch on path, authenticate, admit or reject. A Session is stateless
// between connections; Handle is safe to call concurrently from
// multiple goroutines, one per accepted socket.
type Session struct {
	mounts      []Mountpoint
	byName      map[string]Mountpoint
	credentials Credentials
	registry    *Registry
	casterInfo  CasterInfo
	logger      logrus.FieldLogger
}

// NewSession builds a Session over a fixed, already-registered set of
// mountpoints and credentials.
func NewSession(mounts []Mountpoint, credentials Credentials, registry *Registry, info CasterInfo, logger logrus.FieldLogger) *Session {
	byName := make(map[string]Mountpoint, len(mounts))
	for _, m := range mounts {
		byName[m.Name] = m
	}
	return &Session{
		mounts:      mounts,
		byName:      byName,
		credentials: credentials,
		registry:    registry,
		casterInfo:  info,
		logger:      logger,
	}
}

// Handle runs the session state machine for one accepted connection.
// It returns once the connection has either been closed (rejection or
// source-table) or handed off to the registry as a live subscriber.
func (s *Session) Handle(conn net.Conn) {
	logger := s.logger.WithFields(logrus.Fields{
		"request_id": uuid.New().String(),
		"peer":       conn.RemoteAddr().String(),
	})

	req, err := ReadRequest(conn)
	if err != nil {
		writeStatus(conn, 400, "Bad Request", nil)
		conn.Close()
		logger.WithError(err).Debug("malformed request")
		return
	}

	logger = logger.WithFields(logrus.Fields{"method": req.Method, "path": req.Path})

	if req.Path == "/" {
		s.sendSourcetable(conn, logger)
		return
	}

	mount, ok := s.byName[strings.TrimPrefix(req.Path, "/")]
	if !ok {
		writeStatus(conn, 404, "Mountpoint not found", nil)
		conn.Close()
		logger.WithError(ErrNotFound).Info("unknown mountpoint requested")
		return
	}

	if s.credentials.Required() {
		if !req.HasAuth || !s.credentials.Verify(req.Username, req.Password) {
			writeStatus(conn, 401, "Unauthorized", map[string]string{
				"WWW-Authenticate": `Basic realm="NTRIP"`,
			})
			conn.Close()
			logger.WithError(ErrUnauthorized).WithField("username", req.Username).Info("unauthorized mountpoint request")
			return
		}
	}

	if err := writeStatus(conn, 200, "OK", map[string]string{
		"Content-Type": "gnss/data",
	}); err != nil {
		conn.Close()
		logger.WithError(err).Debug("failed to send admission response")
		return
	}

	sub := NewSubscriber(conn, mount.Name)
	s.registry.Add(sub)
	logger.WithField("mountpoint", mount.Name).Info("subscriber admitted")
}

func (s *Session) sendSourcetable(conn net.Conn, logger logrus.FieldLogger) {
	defer conn.Close()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	body := FormatSourcetable(s.casterInfo, s.mounts)
	if _, err := conn.Write([]byte(body)); err != nil {
		logger.WithError(err).Debug("failed to send sourcetable")
		return
	}
	logger.Debug("sourcetable sent")
}

// writeStatus writes "HTTP/1.1 <code> <message>" plus headers, blank
// line, and nothing else; the caller decides what (if anything) follows.
func writeStatus(conn net.Conn, code int, message string, headers map[string]string) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", code, message)
	fmt.Fprintf(&b, "Server: %s\r\n", "rtcm-caster")
	for name, value := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", name, value)
	}
	b.WriteString("\r\n")

	_, err := conn.Write([]byte(b.String()))
	return err
}
