//go:build !(rp2040 || rp2350)

package config

import (
	"bytes"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"powernode-go/errcode"
)

// LoadFile starts from the embedded config for device, when there is one,
// overlays the YAML file at path, then normalizes and validates.
func LoadFile(device, path string) (Node, error) {
	var n Node
	if raw, ok := EmbeddedConfigLookup(device); ok {
		var err error
		if n, err = Decode(raw); err != nil {
			return Node{}, err
		}
	}
	if path != "" {
		if err := decodeYAMLFile(path, &n); err != nil {
			return Node{}, err
		}
	}
	if n.Device == "" {
		n.Device = device
	}
	n.Normalize()
	if err := n.Validate(); err != nil {
		return Node{}, err
	}
	return n, nil
}

func decodeYAMLFile(path string, into any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "config.read", Msg: path, Err: err}
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(into); err != nil && !errors.Is(err, io.EOF) {
		return &errcode.E{C: errcode.InvalidParams, Op: "config.yaml", Msg: path + ": " + err.Error(), Err: err}
	}
	return nil
}
