package main

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecodeMsg(t *testing.T) {
	b := EncodeMsg(REQUEST_COUNTS, "n1", []byte(`{"id":4}`))
	mType, sender, payload, err := DecodeMsg(b)
	if err != nil {
		t.Fatal(err)
	}
	if mType != REQUEST_COUNTS || sender != "000000n1" || string(payload) != `{"id":4}` {
		t.Fatalf("decoded %d %q %q", mType, sender, payload)
	}

	if _, _, _, err := DecodeMsg([]byte{REQUEST_CONFIG, 'a'}); err == nil {
		t.Fatal("short message decoded")
	}
}

func TestPadName(t *testing.T) {
	for name, want := range map[string]string{"a": "0000000a", "n7946": "000n7946", "12345678": "12345678"} {
		if got := PadName(name); got != want {
			t.Errorf("PadName(%q) = %q, want %q", name, got, want)
		}
	}
}

func testNode() *ClusterNode {
	return &ClusterNode{
		Config:   DefaultConfig(),
		name:     "test",
		pending:  make(map[uint64]chan []Entry),
		configCh: make(chan *Config, 1),
	}
}

func TestProcessResponseCounts(t *testing.T) {
	n := testNode()
	ch := make(chan []Entry, 1)
	n.pending[7] = ch

	payload, _ := json.Marshal(CountsResponseMsg{ID: 7, Entries: []Entry{{"w", 3}}})
	n.ProcessMsg(EncodeMsg(RESPONSE_COUNTS, "peer", payload))

	select {
	case got := <-ch:
		if diff := cmp.Diff([]Entry{{"w", 3}}, got); diff != "" {
			t.Fatalf("(-want +got):\n%s", diff)
		}
	default:
		t.Fatal("response not delivered")
	}

	// Unknown and duplicate responses must not block.
	late, _ := json.Marshal(CountsResponseMsg{ID: 99})
	n.ProcessMsg(EncodeMsg(RESPONSE_COUNTS, "peer", late))
	n.ProcessMsg(EncodeMsg(RESPONSE_COUNTS, "peer", payload))
	n.ProcessMsg(EncodeMsg(RESPONSE_COUNTS, "peer", payload))
}

func TestProcessResponseConfig(t *testing.T) {
	n := testNode()
	cfg := DefaultConfig()
	cfg.Capacity = 17
	n.ProcessMsg(EncodeMsg(RESPONSE_CONFIG, "seed", cfg.SerializeConfig()))

	select {
	case got := <-n.configCh:
		if got.Capacity != 17 {
			t.Fatalf("capacity %d", got.Capacity)
		}
	default:
		t.Fatal("config not delivered")
	}

	n.ProcessMsg(EncodeMsg(RESPONSE_CONFIG, "seed", []byte("garbage")))
	select {
	case <-n.configCh:
		t.Fatal("garbage config delivered")
	default:
	}
}
