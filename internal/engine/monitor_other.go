// SPDX-License-Identifier: MIT

//go:build !windows

package engine

import "fmt"

func init() {
	collectMetrics = collectMetricsUnsupported
}

// collectMetricsUnsupported stands in for collectMetricsWindows on
// non-Windows build targets, used only so the package and its tests build
// on the development machine; the core only ever runs on Windows (spec §1).
func collectMetricsUnsupported(pid int) (*ResourceMetrics, error) {
	return nil, fmt.Errorf("pid %d: resource monitoring is only implemented on windows", pid)
}
