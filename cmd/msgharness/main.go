// Command msgharness is the test harness spec §6 describes: "CLI: none
// in the core. The test harness accepts flags: queue name (-c), sender
// label (-n), subscription id (-i), retention (-t seconds), replay
// count (-x), data file (-u), wait time (-w)." It opens a queue with
// CREATE, sends -x copies of -u's contents tagged with -n, waits -w
// seconds, then drains and prints whatever is pending — the same
// open/send/get loop original_source/test/publish.c and testmsg2.c
// exercise by hand against saMsg.h's C API, reimplemented against this
// package's wire protocol directly (no client library layer exists
// yet, so the harness speaks wire.Record to the IPC socket itself).
//
// Per SPEC_FULL.md §9's ambient-stack decision, this stays on the
// standard library's flag package rather than a CLI framework: the
// teacher itself has no CLI surface to imitate, and a single flat flag
// set does not need a command tree.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/corosync/go-msgsvc/pkg/msg/config"
	"github.com/corosync/go-msgsvc/pkg/msg/errs"
	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
	"github.com/corosync/go-msgsvc/pkg/msg/wire"
)

func main() {
	os.Exit(run())
}

func run() int {
	queueName := flag.String("c", "", "queue name")
	sender := flag.String("n", "msgharness", "sender label")
	subscription := flag.Int("i", 0, "subscription id (unused by a plain send/get loop, reserved for tracking runs)")
	retentionSeconds := flag.Int64("t", 0, "queue retention, seconds")
	replay := flag.Int("x", 1, "number of times to replay the payload")
	dataFile := flag.String("u", "", "path to the payload file; empty reads from stdin")
	waitSeconds := flag.Int("w", 1, "seconds to wait before draining pending messages")
	socketPath := flag.String("socket", config.DefaultSocketPath, "broker IPC socket path")
	flag.Parse()

	_ = *subscription

	if *queueName == "" {
		fmt.Fprintln(os.Stderr, "msgharness: -c (queue name) is required")
		return int(errs.InvalidParam)
	}

	payload, err := readPayload(*dataFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "msgharness: reading payload: %v\n", err)
		return int(errs.Library)
	}

	conn, err := net.Dial("unix", *socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "msgharness: dialing %s: %v\n", *socketPath, err)
		return int(errs.TryAgain)
	}
	defer conn.Close()

	c := &client{conn: conn, r: bufio.NewReader(conn)}

	queue := name.Of(*queueName)
	if _, err := c.queueOpen(queue, *retentionSeconds); err != nil {
		fmt.Fprintf(os.Stderr, "msgharness: opening %s: %v\n", *queueName, err)
		return int(errs.CodeOf(err))
	}

	senderName := name.Of(*sender)
	for i := 0; i < *replay; i++ {
		if err := c.messageSend(queue, senderName, payload); err != nil {
			fmt.Fprintf(os.Stderr, "msgharness: send %d/%d: %v\n", i+1, *replay, err)
			return int(errs.CodeOf(err))
		}
	}
	fmt.Printf("msgharness: sent %d message(s) to %s\n", *replay, *queueName)

	time.Sleep(time.Duration(*waitSeconds) * time.Second)

	for {
		entry, err := c.messageGet(queue)
		if err != nil {
			if errs.CodeOf(err) == errs.NotExist {
				break
			}
			fmt.Fprintf(os.Stderr, "msgharness: get: %v\n", err)
			return int(errs.CodeOf(err))
		}
		fmt.Printf("msgharness: received %q from %s (sender_id=%s)\n", entry.Payload, entry.SenderName.String(), entry.SenderID)
	}

	return int(errs.OK)
}

func readPayload(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// client is a minimal, synchronous, one-request-in-flight speaker of
// this service's IPC framing: write a wire.Encode'd request, read back
// one wire.EncodeResponse'd frame. It does not attempt the RECEIVE_CALLBACK
// dispatch path or async invocations; the harness only ever issues
// synchronous calls.
type client struct {
	conn net.Conn
	r    *bufio.Reader
}

func (c *client) roundTrip(rec wire.Record) ([]byte, error) {
	if _, err := c.conn.Write(wire.Encode(rec)); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	header := make([]byte, 12)
	if _, err := io.ReadFull(c.r, header); err != nil {
		return nil, fmt.Errorf("reading response header: %w", err)
	}
	size := binary.LittleEndian.Uint32(header[0:4])
	errCode := binary.LittleEndian.Uint32(header[8:12])
	payload := make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(c.r, payload); err != nil {
			return nil, fmt.Errorf("reading response payload: %w", err)
		}
	}
	if code := errs.ErrorCode(errCode); code != errs.OK {
		return nil, errs.New(code, "request failed")
	}
	return payload, nil
}

func (c *client) queueOpen(queue name.Name, retentionSeconds int64) (uint64, error) {
	req := &wire.QueueOpen{
		QueueName: queue,
		CreationAttrs: model.CreationAttrs{
			RetentionTime: retentionSeconds * int64(time.Second),
		},
		OpenFlags: model.Create,
	}
	payload, err := c.roundTrip(req)
	if err != nil {
		return 0, err
	}
	reply, err := wire.DecodeQueueOpenReply(payload)
	return reply.QueueHandle, err
}

func (c *client) messageSend(destination, sender name.Name, payload []byte) error {
	req := &wire.MessageSend{
		Destination: destination,
		SenderName:  sender,
		Priority:    model.Highest,
		Payload:     payload,
	}
	_, err := c.roundTrip(req)
	return err
}

func (c *client) messageGet(queue name.Name) (wire.MessageGetReply, error) {
	req := &wire.MessageGet{QueueName: queue}
	payload, err := c.roundTrip(req)
	if err != nil {
		return wire.MessageGetReply{}, err
	}
	return wire.DecodeMessageGetReply(payload)
}
