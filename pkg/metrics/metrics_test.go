// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMustRegisterCounterVec(t *testing.T) {
	c := MustRegisterCounterVec("test", "lines_total", "Lines seen per bus", "bus")
	c.WithLabelValues("io").Inc()
	c.WithLabelValues("io").Inc()
	c.WithLabelValues("exp").Inc()

	if got := testutil.ToFloat64(c.WithLabelValues("io")); got != 2 {
		t.Errorf("io counter = %v, expected 2", got)
	}

	expected := `
# HELP pinbus_test_lines_total Lines seen per bus
# TYPE pinbus_test_lines_total counter
pinbus_test_lines_total{bus="exp"} 1
pinbus_test_lines_total{bus="io"} 2
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected)); err != nil {
		t.Errorf("Unexpected collection: %v", err)
	}
}

func TestMustRegisterGauge(t *testing.T) {
	g := MustRegisterGauge("test", "connected", "Connection state")
	g.Set(1)
	if got := testutil.ToFloat64(g); got != 1 {
		t.Errorf("gauge = %v, expected 1", got)
	}
}

func TestMustRegister_DuplicatePanics(t *testing.T) {
	MustRegisterCounter("test", "dup_total", "first")
	defer func() {
		if recover() == nil {
			t.Error("Registering the same name twice should panic")
		}
	}()
	MustRegisterCounter("test", "dup_total", "first")
}

func TestMustRegisterGaugeVec(t *testing.T) {
	g := MustRegisterGaugeVec("test", "state", "State per bus", "bus")
	g.WithLabelValues("io").Set(3)
	var _ prometheus.Collector = g
	if got := testutil.ToFloat64(g.WithLabelValues("io")); got != 3 {
		t.Errorf("gauge = %v, expected 3", got)
	}
}
