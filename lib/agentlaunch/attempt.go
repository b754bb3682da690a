// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentlaunch

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/zeebo/blake3"
)

// attemptDomainKey separates attempt IDs from any other BLAKE3 keyed
// hash. ASCII "wsmaster.agentlaunch.attempt", zero-padded to 32 bytes.
var attemptDomainKey = [32]byte{
	'w', 's', 'm', 'a', 's', 't', 'e', 'r', '.', 'a', 'g', 'e', 'n', 't', 'l', 'a',
	'u', 'n', 'c', 'h', '.', 'a', 't', 't', 'e', 'm', 'p', 't', 0, 0, 0, 0,
}

// AttemptID identifies one launch attempt in logs. It is a keyed hash
// of the workspace, machine, final command line, and start time,
// truncated to 16 bytes and hex encoded. Two attempts with identical
// inputs at the same instant share an ID.
func AttemptID(workspaceID, machineID, commandLine string, start time.Time) string {
	hasher, err := blake3.NewKeyed(attemptDomainKey[:])
	if err != nil {
		// NewKeyed only fails on a key that is not 32 bytes.
		panic("agentlaunch: invalid attempt domain key: " + err.Error())
	}

	// Length prefixes keep ("ab", "c") and ("a", "bc") distinct.
	var prefix [8]byte
	for _, field := range []string{workspaceID, machineID, commandLine} {
		binary.BigEndian.PutUint64(prefix[:], uint64(len(field)))
		hasher.Write(prefix[:])
		hasher.Write([]byte(field))
	}
	binary.BigEndian.PutUint64(prefix[:], uint64(start.UnixNano()))
	hasher.Write(prefix[:])

	sum := hasher.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
