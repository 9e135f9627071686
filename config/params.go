// Package config loads the PARAMS section of a simulation's configuration:
// the modelnet scheduler selection and packet size, each optionally
// qualified by a per-LP annotation, with the unannotated entry as fallback -
// the Go rendering of model_net_base_configure/base_read_config's
// annotation-keyed parameter tables (CODES model-net-lp.c).
package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Scheduler is the modelnet_scheduler PARAMS choice.
type Scheduler int

const (
	SchedFCFS Scheduler = iota
	SchedFCFSFull
)

func (s Scheduler) String() string {
	switch s {
	case SchedFCFS:
		return "fcfs"
	case SchedFCFSFull:
		return "fcfs-full"
	default:
		return fmt.Sprintf("Scheduler(%d)", int(s))
	}
}

// ParseScheduler resolves a PARAMS:modelnet_scheduler string, failing the
// way base_read_config's tw_error does on an unrecognized value.
func ParseScheduler(name string) (Scheduler, error) {
	switch name {
	case "", "fcfs":
		return SchedFCFS, nil
	case "fcfs-full":
		return SchedFCFSFull, nil
	default:
		return 0, fmt.Errorf("config: unknown value for PARAMS:modelnet_scheduler: %q", name)
	}
}

// BaseParams is one annotation's resolved model_net_base_params.
type BaseParams struct {
	SchedulerKind Scheduler
	// PacketSize is forced to hugePacketSize when SchedulerKind is
	// SchedFCFSFull, so the whole message is always exactly one packet.
	PacketSize uint64
}

// hugePacketSize mirrors base_read_config's `1ull << 62`: large enough that
// no realistic request ever exceeds it, so FCFS_FULL always sees one packet
// per request without risking arithmetic overflow downstream.
const hugePacketSize = uint64(1) << 62

// defaultPacketSize is used when packet_size is unset and the scheduler is
// not FCFS_FULL, matching base_read_config's warning-and-default behavior.
const defaultPacketSize = 512

// rawEntry is one annotation's entry in the PARAMS section, as written in
// the yaml configuration document.
type rawEntry struct {
	Scheduler  string `yaml:"modelnet_scheduler"`
	PacketSize uint64 `yaml:"packet_size"`
}

// Document is the PARAMS section of a configuration file, keyed by
// annotation ("" denotes the unannotated fallback entry).
type Document struct {
	Params map[string]rawEntry `yaml:"params"`
}

// Loader resolves annotation-qualified PARAMS values.
type Loader struct {
	doc Document
}

// Load parses yaml configuration bytes into a Loader.
func Load(data []byte) (*Loader, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parsing PARAMS: %w", err)
	}
	return &Loader{doc: doc}, nil
}

// Empty returns a Loader with no PARAMS entries at all, so every
// annotation resolves to scheduler defaults - useful for tests and for a
// CLI run with no config file.
func Empty() *Loader {
	return &Loader{doc: Document{Params: map[string]rawEntry{}}}
}

// ResolveBaseParams resolves model_net_base_params for the given
// annotation, applying the FCFS_FULL packet-size-override invariant and the
// unset-packet-size default, exactly as base_read_config does. An
// annotation with no entry of its own falls back to the unannotated ("")
// entry, and to scheduler defaults when that is absent too.
func (l *Loader) ResolveBaseParams(anno string) (BaseParams, error) {
	raw, ok := l.doc.Params[anno]
	if !ok {
		raw, ok = l.doc.Params[""]
	}
	if !ok {
		return BaseParams{SchedulerKind: SchedFCFS, PacketSize: defaultPacketSize}, nil
	}

	kind, err := ParseScheduler(raw.Scheduler)
	if err != nil {
		return BaseParams{}, err
	}

	packetSize := raw.PacketSize
	switch {
	case kind == SchedFCFSFull:
		packetSize = hugePacketSize
	case packetSize == 0:
		logrus.Warnf("config: no packet size specified for annotation %q, defaulting to %d", anno, defaultPacketSize)
		packetSize = defaultPacketSize
	}

	return BaseParams{SchedulerKind: kind, PacketSize: packetSize}, nil
}
