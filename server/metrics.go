package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luhtfiimanal/go-ssr"
)

// newMetrics registers collectors that read the device counters on scrape.
func newMetrics(dev *ssr.LogicalDevice) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"device": dev.ID().String()}

	counter := func(name, help string, get func(ssr.Stats) uint64) {
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   "ssr",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return float64(get(dev.GetStats())) }))
	}

	counter("sector_reads_total", "Logical sectors read.", func(s ssr.Stats) uint64 { return s.Reads })
	counter("sector_writes_total", "Logical sectors written.", func(s ssr.Stats) uint64 { return s.Writes })
	counter("checksum_mismatches_total", "Mirror copies that failed checksum verification.", func(s ssr.Stats) uint64 { return s.ChecksumMismatches })
	counter("repairs_total", "Mirror copies rewritten from the verified copy.", func(s ssr.Stats) uint64 { return s.Repairs })
	counter("repair_failures_total", "Repairs whose write failed.", func(s ssr.Stats) uint64 { return s.RepairFailures })
	counter("repairs_skipped_total", "Repairs skipped because the target mirror was unreadable.", func(s ssr.Stats) uint64 { return s.RepairsSkipped })
	counter("unrecoverable_total", "Reads where neither mirror verified.", func(s ssr.Stats) uint64 { return s.Unrecoverable })
	counter("mirror_write_failures_total", "Sector writes rejected by one mirror.", func(s ssr.Stats) uint64 { return s.WriteFailures })
	counter("divergent_total", "Reads where both mirrors verified but differed.", func(s ssr.Stats) uint64 { return s.Divergent })

	for i := range [2]struct{}{} {
		m := ssr.MirrorID(i)
		ml := prometheus.Labels{"device": dev.ID().String(), "mirror": m.String()}
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   "ssr",
			Name:        "mirror_io_errors_total",
			Help:        "I/O errors returned by a backing device.",
			ConstLabels: ml,
		}, func() float64 { return float64(dev.GetStats().Mirrors[m].IOErrors) }))
	}

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "ssr",
		Name:        "capacity_sectors",
		Help:        "Logical capacity in sectors.",
		ConstLabels: labels,
	}, func() float64 { return float64(dev.Capacity()) }))
	return reg
}
