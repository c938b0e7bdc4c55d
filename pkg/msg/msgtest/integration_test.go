package msgtest

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/corosync/go-msgsvc/pkg/msg/errs"
	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
	"github.com/corosync/go-msgsvc/pkg/msg/wire"
)

// testClient wraps a raw connection into the broker with request/response
// round trips over the same framing cmd/msgharness uses.
type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, c *Cluster, node int) *testClient {
	t.Helper()
	conn := c.Dial(node)
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (tc *testClient) roundTrip(rec wire.Record) (errs.ErrorCode, []byte) {
	tc.t.Helper()
	if _, err := tc.conn.Write(wire.Encode(rec)); err != nil {
		tc.t.Fatalf("write: %v", err)
	}
	header := make([]byte, 12)
	if _, err := io.ReadFull(tc.r, header); err != nil {
		tc.t.Fatalf("read header: %v", err)
	}
	size := binary.LittleEndian.Uint32(header[0:4])
	errCode := binary.LittleEndian.Uint32(header[8:12])
	payload := make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(tc.r, payload); err != nil {
			tc.t.Fatalf("read payload: %v", err)
		}
	}
	return errs.ErrorCode(errCode), payload
}

// Scenario 1 (spec §8): simple open/close round trip.
func TestIntegration_QueueOpenCloseRoundTrip(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	c := NewCluster(t, 1)
	client := dial(t, c, 0)

	code, payload := client.roundTrip(&wire.QueueOpen{
		QueueName: name.Of("Q1"),
		OpenFlags: model.Create,
	})
	if code != errs.OK {
		t.Fatalf("open code = %v", code)
	}
	reply, err := wire.DecodeQueueOpenReply(payload)
	if err != nil || reply.QueueHandle == 0 {
		t.Fatalf("open reply = %+v, err=%v", reply, err)
	}

	code, _ = client.roundTrip(&wire.QueueClose{QueueName: name.Of("Q1")})
	if code != errs.OK {
		t.Fatalf("close code = %v", code)
	}
}

// Scenario 2 (spec §8): send followed by a get on the same queue.
func TestIntegration_MessageSendThenGet(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	c := NewCluster(t, 1)
	client := dial(t, c, 0)

	if code, _ := client.roundTrip(&wire.QueueOpen{QueueName: name.Of("Q1"), OpenFlags: model.Create}); code != errs.OK {
		t.Fatalf("open failed: %v", code)
	}
	if code, _ := client.roundTrip(&wire.MessageSend{Destination: name.Of("Q1"), Payload: []byte("hello")}); code != errs.OK {
		t.Fatalf("send failed: %v", code)
	}

	code, payload := client.roundTrip(&wire.MessageGet{QueueName: name.Of("Q1")})
	if code != errs.OK {
		t.Fatalf("get failed: %v", code)
	}
	reply, err := wire.DecodeMessageGetReply(payload)
	if err != nil || string(reply.Payload) != "hello" {
		t.Fatalf("get reply = %+v, err=%v", reply, err)
	}
}

// Scenario 3 (spec §8): queue-group round robin spreads sends across
// members.
func TestIntegration_QueueGroupRoundRobin(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	c := NewCluster(t, 1)
	client := dial(t, c, 0)

	for _, n := range []string{"Q_A", "Q_B"} {
		if code, _ := client.roundTrip(&wire.QueueOpen{QueueName: name.Of(n), OpenFlags: model.Create}); code != errs.OK {
			t.Fatalf("open %s failed: %v", n, code)
		}
	}
	if code, _ := client.roundTrip(&wire.QueueGroupCreate{GroupName: name.Of("GA"), Policy: model.RoundRobin}); code != errs.OK {
		t.Fatalf("group create failed: %v", code)
	}
	for _, n := range []string{"Q_A", "Q_B"} {
		if code, _ := client.roundTrip(&wire.QueueGroupInsert{GroupName: name.Of("GA"), QueueName: name.Of(n)}); code != errs.OK {
			t.Fatalf("insert %s failed: %v", n, code)
		}
	}

	for i := 0; i < 2; i++ {
		if code, _ := client.roundTrip(&wire.MessageSend{Destination: name.Of("GA"), Payload: []byte("x")}); code != errs.OK {
			t.Fatalf("send %d failed: %v", i, code)
		}
	}

	gotA, _ := client.roundTrip(&wire.MessageGet{QueueName: name.Of("Q_A")})
	gotB, _ := client.roundTrip(&wire.MessageGet{QueueName: name.Of("Q_B")})
	if gotA != errs.OK || gotB != errs.OK {
		t.Fatalf("round robin did not land one message on each member: A=%v B=%v", gotA, gotB)
	}
}

// Scenario 5 (spec §8): async open completes via the async-complete
// frame instead of the synchronous response.
func TestIntegration_AsyncQueueOpen(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	c := NewCluster(t, 1)
	client := dial(t, c, 0)

	if _, err := client.conn.Write(wire.Encode(&wire.QueueOpen{
		QueueName:  name.Of("Q1"),
		OpenFlags:  model.Create,
		AsyncCall:  true,
		Invocation: 99,
	})); err != nil {
		t.Fatalf("write: %v", err)
	}

	header := make([]byte, 12)
	if _, err := io.ReadFull(client.r, header); err != nil {
		t.Fatalf("read header: %v", err)
	}
	size := binary.LittleEndian.Uint32(header[0:4])
	id := binary.LittleEndian.Uint32(header[4:8])
	errCode := binary.LittleEndian.Uint32(header[8:12])
	payload := make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(client.r, payload); err != nil {
			t.Fatalf("read payload: %v", err)
		}
	}
	if id != 1 { // dispatch.KindAsyncComplete
		t.Fatalf("frame kind = %d, want async-complete", id)
	}
	if errs.ErrorCode(errCode) != errs.OK {
		t.Fatalf("async open code = %v", errs.ErrorCode(errCode))
	}
	invocation := binary.LittleEndian.Uint64(payload[0:8])
	if invocation != 99 {
		t.Fatalf("invocation = %d, want 99", invocation)
	}
}

// Cross-node visibility: a send made through node 2 (delivered over the
// shared loopback transport, as every real totem delivery would be) is
// visible to a client dialed into node 1.
func TestIntegration_CrossNodeReplication(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	c := NewCluster(t, 2)
	a := dial(t, c, 0)
	b := dial(t, c, 1)

	if code, _ := a.roundTrip(&wire.QueueOpen{QueueName: name.Of("Q1"), OpenFlags: model.Create}); code != errs.OK {
		t.Fatalf("open on node 0 failed: %v", code)
	}
	// allow the broadcast to settle on node 1 (loopback fan-out is
	// synchronous, but router decode/apply still happens on its own goroutine).
	time.Sleep(50 * time.Millisecond)

	if code, _ := b.roundTrip(&wire.MessageSend{Destination: name.Of("Q1"), Payload: []byte("cross-node")}); code != errs.OK {
		t.Fatalf("send on node 1 failed: %v", code)
	}

	code, payload := a.roundTrip(&wire.MessageGet{QueueName: name.Of("Q1")})
	if code != errs.OK {
		t.Fatalf("get on node 0 failed: %v", code)
	}
	reply, err := wire.DecodeMessageGetReply(payload)
	if err != nil || string(reply.Payload) != "cross-node" {
		t.Fatalf("get reply = %+v, err=%v", reply, err)
	}
}
