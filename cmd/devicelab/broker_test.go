package main

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eclipse/paho.mqtt.golang/packets"
)

// testBroker is a minimal MQTT broker that accepts any credential,
// acknowledges every request and records what clients publish. It never
// delivers messages back to subscribers.
type testBroker struct {
	ln net.Listener

	mu        sync.Mutex
	published []*packets.PublishPacket
	changed   chan struct{}
}

func startTestBroker(t *testing.T) *testBroker {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	b := &testBroker{ln: ln, changed: make(chan struct{}, 1)}
	go b.accept()
	t.Cleanup(func() { ln.Close() })
	return b
}

func (b *testBroker) endpoint() string {
	return "tcp://" + b.ln.Addr().String()
}

func (b *testBroker) accept() {
	for {
		conn, err := b.ln.Accept()
		if err != nil {
			return
		}
		go b.serve(conn)
	}
}

func (b *testBroker) serve(conn net.Conn) {
	defer conn.Close()

	for {
		cp, err := packets.ReadPacket(conn)
		if err != nil {
			return
		}

		var reply packets.ControlPacket
		switch p := cp.(type) {
		case *packets.ConnectPacket:
			reply = packets.NewControlPacket(packets.Connack)
		case *packets.SubscribePacket:
			ack := packets.NewControlPacket(packets.Suback).(*packets.SubackPacket)
			ack.MessageID = p.MessageID
			ack.ReturnCodes = p.Qoss
			reply = ack
		case *packets.UnsubscribePacket:
			ack := packets.NewControlPacket(packets.Unsuback).(*packets.UnsubackPacket)
			ack.MessageID = p.MessageID
			reply = ack
		case *packets.PublishPacket:
			b.record(p)
			if p.Qos == 1 {
				ack := packets.NewControlPacket(packets.Puback).(*packets.PubackPacket)
				ack.MessageID = p.MessageID
				reply = ack
			}
		case *packets.PingreqPacket:
			reply = packets.NewControlPacket(packets.Pingresp)
		case *packets.DisconnectPacket:
			return
		}

		if reply != nil {
			if err := reply.Write(conn); err != nil {
				return
			}
		}
	}
}

func (b *testBroker) record(p *packets.PublishPacket) {
	b.mu.Lock()
	b.published = append(b.published, p)
	b.mu.Unlock()

	select {
	case b.changed <- struct{}{}:
	default:
	}
}

// last returns the most recent payload published to topic.
func (b *testBroker) last(topic string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.published) - 1; i >= 0; i-- {
		if b.published[i].TopicName == topic {
			return string(b.published[i].Payload), true
		}
	}
	return "", false
}

// hasPrefix reports whether anything was published under prefix.
func (b *testBroker) hasPrefix(prefix string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.published {
		if strings.HasPrefix(p.TopicName, prefix) {
			return true
		}
	}
	return false
}

// waitFor polls cond until it holds or the timeout expires.
func (b *testBroker) waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	for !cond() {
		select {
		case <-b.changed:
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timeout waiting for %s", what)
		}
	}
}
