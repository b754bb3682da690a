// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package machine

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Parse strips JSONC comments and trailing commas from data and
// decodes the result into a validated Machine:
//
//	{
//	  "id": "dev-machine",
//	  "workspace_id": "workspace-1",
//	  "kind": "docker",
//	  "runtime": {
//	    "servers": {
//	      // workspace agent
//	      "4401/tcp": {
//	        "protocol": "http",
//	        "address": "localhost:32768",
//	        "properties": {"internal_url": "http://172.17.0.2:4401/api"},
//	      },
//	    },
//	  },
//	}
func Parse(data []byte) (*Machine, error) {
	var machine Machine
	if err := json.Unmarshal(jsonc.ToJSON(data), &machine); err != nil {
		return nil, fmt.Errorf("parsing machine descriptor: %w", err)
	}
	if err := machine.Validate(); err != nil {
		return nil, err
	}
	return &machine, nil
}

// LoadFile reads and parses a JSONC machine descriptor.
func LoadFile(path string) (*Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	machine, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return machine, nil
}
