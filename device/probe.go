package device

import (
	"fmt"
	"io"
	"sort"
)

// ProbeAll sorts the supplied driver list by detection order, runs the
// probe function of each entry and initializes every driver that was
// detected. Driver output is written to w with each line prefixed by the
// driver name and version. The successfully initialized drivers are returned
// in initialization order.
func ProbeAll(w io.Writer, list DriverInfoList) []Driver {
	sort.Stable(list)

	var (
		pw     = PrefixWriter{Sink: w}
		active []Driver
	)

	for _, info := range list {
		drv := info.Probe()
		if drv == nil {
			continue
		}

		major, minor, patch := drv.DriverVersion()
		pw.Prefix = []byte(fmt.Sprintf("[%s(%d.%d.%d)] ", drv.DriverName(), major, minor, patch))
		pw.Reset()

		if err := drv.DriverInit(&pw); err != nil {
			fmt.Fprintf(&pw, "init failed: %v\n", err)
			continue
		}

		fmt.Fprintf(&pw, "initialized\n")
		active = append(active, drv)
	}

	return active
}
