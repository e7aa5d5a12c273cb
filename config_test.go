package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wordfreq.yaml")
	content := `
capacity: 128
hasher: xxhash
cluster:
  name: alpha
  bind_port: 8000
  seeds: ["10.0.0.1:7946", "10.0.0.2:7946"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	want := DefaultConfig()
	want.Capacity = 128
	want.Hasher = HasherXX
	want.Cluster.Name = "alpha"
	want.Cluster.BindPort = 8000
	want.Cluster.Seeds = []string{"10.0.0.1:7946", "10.0.0.2:7946"}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file loaded")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("capacity: [1"), 0o644)
	if _, err := LoadConfig(path); err == nil {
		t.Error("malformed file loaded")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	c := DefaultConfig()
	c.Capacity = 0
	c.Hasher = "crc"
	c.LogLevel = "loud"
	c.Cluster.Name = "much-too-long"
	c.Cluster.TimeoutMS = -1

	err := c.Validate()
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		t.Fatalf("err = %v, want a multierror", err)
	}
	if len(merr.Errors) != 5 {
		t.Fatalf("%d errors, want 5: %v", len(merr.Errors), err)
	}
	if !errors.Is(merr.Errors[0], ErrInvalidCapacity) {
		t.Errorf("first error %v, want ErrInvalidCapacity", merr.Errors[0])
	}
	if !strings.Contains(err.Error(), "much-too-long") {
		t.Errorf("error does not name the node: %v", err)
	}
}

func TestConfigTimeout(t *testing.T) {
	c := DefaultConfig()
	c.Cluster.TimeoutMS = 0
	if c.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v", c.Timeout())
	}
	c.Cluster.TimeoutMS = 250
	if c.Timeout() != 250*time.Millisecond {
		t.Errorf("Timeout() = %v", c.Timeout())
	}
}

func TestSerializeConfig(t *testing.T) {
	c := DefaultConfig()
	c.Capacity = 99
	c.Cluster.Seeds = []string{"a:1"}

	got, err := DeserializeConfig(c.SerializeConfig())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(c, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if _, err := DeserializeConfig([]byte("null")); err == nil {
		t.Error("null config accepted")
	}
}

func TestAdoptTableSettings(t *testing.T) {
	c := DefaultConfig()
	c.Cluster.Name = "mine"
	other := DefaultConfig()
	other.Capacity = 7
	other.Threshold = 3
	other.Hasher = HasherXX
	other.Cluster.Name = "theirs"

	c.AdoptTableSettings(other)
	if c.Capacity != 7 || c.Threshold != 3 || c.Hasher != HasherXX {
		t.Errorf("table settings not adopted: %+v", c)
	}
	if c.Cluster.Name != "mine" {
		t.Errorf("node name overwritten: %s", c.Cluster.Name)
	}
}

func TestValidateRejectsZeroPrefixedName(t *testing.T) {
	for _, name := range []string{"0a", "0", "007"} {
		c := DefaultConfig()
		c.Cluster.Name = name
		if err := c.Validate(); err == nil {
			t.Errorf("name %q accepted", name)
		}
	}
	// "a" pads to "0000000a"; were "0a" allowed it would pad the same.
	if PadName("a") != PadName("0a") {
		t.Fatal("padding no longer collides, update the name rule")
	}
	c := DefaultConfig()
	c.Cluster.Name = "a0"
	if err := c.Validate(); err != nil {
		t.Errorf("name a0 rejected: %v", err)
	}
}
