package caster

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/fossettahq/rtcm-caster/pkg/crc24q"
	"github.com/fossettahq/rtcm-caster/pkg/rtcm3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestListener(t *testing.T) (*Listener, *Registry, string) {
	reg := NewRegistry(testLogger())
	session := NewSession(testMountpoints(), nil, reg, testCasterInfo(), testLogger())
	l := NewListener("127.0.0.1:0", session, reg, testLogger())

	errCh := make(chan error, 1)
	go func() { errCh <- l.ListenAndServe() }()

	require.Eventually(t, func() bool { return l.ln != nil }, time.Second, 10*time.Millisecond)
	addr := l.ln.Addr().String()

	t.Cleanup(func() {
		l.Stop(time.Second)
		<-errCh
	})

	return l, reg, addr
}

func dialAndAdmit(t *testing.T, addr, path string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	_, err = conn.Write([]byte("GET " + path + " HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "HTTP/1.1 200"))
	for {
		l, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimSpace(l) == "" {
			break
		}
	}
	return conn
}

func TestListenerBroadcastFanOutToTwoSubscribers(t *testing.T) {
	_, reg, addr := startTestListener(t)

	connA := dialAndAdmit(t, addr, "/BASE")
	connB := dialAndAdmit(t, addr, "/BASE")
	defer connA.Close()
	defer connB.Close()

	require.Eventually(t, func() bool { return reg.Len() == 2 }, time.Second, 10*time.Millisecond)

	good := func(payload []byte) []byte {
		header := []byte{0xD3, byte(len(payload) >> 8 & 0x03), byte(len(payload))}
		return appendCRC(append(header, payload...))
	}
	f1 := good([]byte{0x01})
	f2 := good([]byte{0x02, 0x02})

	framer := rtcm3.NewFramer()
	stream := append([]byte("garbage"), f1...)
	stream = append(stream, []byte("$GPGGA,x*00\r\n")...)
	stream = append(stream, f2...)

	for _, frame := range framer.Feed(stream) {
		reg.Broadcast(frame.Data)
	}

	wantA := readExactly(t, connA, len(f1)+len(f2))
	wantB := readExactly(t, connB, len(f1)+len(f2))

	assert.Equal(t, append(append([]byte{}, f1...), f2...), wantA)
	assert.Equal(t, wantA, wantB)
}

func TestListenerEvictsSlowSubscriberButKeepsOthers(t *testing.T) {
	_, reg, addr := startTestListener(t)

	connA := dialAndAdmit(t, addr, "/BASE")
	connSlow := dialAndAdmit(t, addr, "/BASE")
	defer connA.Close()
	defer connSlow.Close()

	require.Eventually(t, func() bool { return reg.Len() == 2 }, time.Second, 10*time.Millisecond)

	prevTimeout := SendTimeout
	SendTimeout = 50 * time.Millisecond
	defer func() { SendTimeout = prevTimeout }()

	// Large writes, so that the unread connection's socket buffers fill
	// within a bounded number of broadcasts.
	frame := make([]byte, 64*1024)

	// Drain A in the background on every broadcast; leave connSlow unread
	// so its TCP receive buffer eventually backs up past SendTimeout.
	stopDrain := make(chan struct{})
	go func() {
		buf := make([]byte, 1024)
		for {
			select {
			case <-stopDrain:
				return
			default:
				connA.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
				connA.Read(buf)
			}
		}
	}()
	defer close(stopDrain)

	require.Eventually(t, func() bool {
		reg.Broadcast(frame)
		return reg.Len() == 1
	}, 5*time.Second, 20*time.Millisecond)

	snap := reg.Snapshot()
	require.Len(t, snap, 1)
}

func TestListenerSourcetableOverRealTCP(t *testing.T) {
	_, _, addr := startTestListener(t)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	conn.Write([]byte("GET / HTTP/1.1\r\n\r\n"))

	body := readAll(t, conn)
	assert.True(t, strings.HasPrefix(body, "SOURCETABLE 200 OK\r\n"))
}

func readExactly(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := readFull(conn, buf)
	require.NoError(t, err)
	return buf
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func appendCRC(frame []byte) []byte {
	return crc24q.Append(frame)
}
