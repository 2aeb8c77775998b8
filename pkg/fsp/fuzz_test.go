// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fsp

import (
	"math/rand"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

var fuzzCommands = []string{"ID", "NI", "NN", "CH", "WD", "SA", "-L", "/L", "RS", "RA", "XX", ""}

// buildRandomLine assembles something that looks like a response line
func buildRandomLine(rng *rand.Rand) string {
	var sb strings.Builder
	sb.WriteString(fuzzCommands[rng.Intn(len(fuzzCommands))])
	if rng.Intn(4) == 0 {
		sb.WriteByte('@')
		sb.WriteString(strconv.FormatUint(uint64(rng.Intn(0x1000)), 16))
	}
	if rng.Intn(10) != 0 {
		sb.WriteByte(':')
	}
	for i, n := 0, rng.Intn(12); i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		switch rng.Intn(4) {
		case 0:
			sb.WriteString(strconv.FormatUint(rng.Uint64()>>rng.Intn(64), 16))
		case 1:
			sb.WriteString(strconv.Itoa(rng.Intn(300)))
		case 2:
			sb.WriteString([]string{"P", "F", "X"}[rng.Intn(3)])
		case 3:
			for j, m := 0, rng.Intn(8); j < m; j++ {
				sb.WriteByte(byte(0x20 + rng.Intn(0x5F)))
			}
		}
	}
	return sb.String()
}

// ============================================================
// Parser Fuzz Tests
// ============================================================

func TestFuzz_ParseLine_RandomLines(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		line := buildRandomLine(rng)
		resp, err := ParseLine(line)
		if err == nil && resp == nil {
			t.Fatalf("Round %d: nil response without error for %q", i, line)
		}
		if err != nil && resp != nil {
			t.Fatalf("Round %d: response and error both set for %q", i, line)
		}
		if resp != nil {
			again, _ := ParseLine(line)
			if again != resp {
				t.Fatalf("Round %d: decoding %q is not deterministic", i, line)
			}
		}
	}
}

// ============================================================
// Decoder Fuzz Tests
// ============================================================

func TestFuzz_Decoder_RandomBytes(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	d := NewDecoder()

	for i := 0; i < rounds; i++ {
		chunk := make([]byte, rng.Intn(64))
		rng.Read(chunk)
		d.Decode(chunk)
		if len(d.Pending()) > MaxLineLength {
			t.Fatalf("Round %d: pending buffer grew to %d bytes", i, len(d.Pending()))
		}
	}
}

func TestFuzz_Decoder_ChunkBoundaries(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		count := 1 + rng.Intn(5)
		var stream strings.Builder
		for j := 0; j < count; j++ {
			stream.WriteString("-L:")
			stream.WriteString(strconv.FormatUint(uint64(rng.Intn(0x80)), 16))
			stream.WriteByte('\r')
		}
		data := []byte(stream.String())

		// Same stream, random split point
		split := rng.Intn(len(data) + 1)
		d := NewDecoder()
		first, _ := d.Decode(data[:split])
		second, _ := d.Decode(data[split:])

		if got := len(first) + len(second); got != count {
			t.Fatalf("Round %d: split at %d produced %d frames, expected %d", i, split, got, count)
		}
	}
}
