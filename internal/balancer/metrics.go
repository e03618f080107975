/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package balancer

import (
	"net/netip"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	useCountDesc = prometheus.NewDesc(
		"socks5mux_source_use_count",
		"Outstanding acquired tokens currently bound to this source address.",
		[]string{"address", "family"}, nil,
	)
	metricDesc = prometheus.NewDesc(
		"socks5mux_source_metric",
		"Operator-configured weight of this source address.",
		[]string{"address", "family"}, nil,
	)
)

// Describe implements prometheus.Collector. The balancer can be registered
// directly against a host process's own prometheus.Registerer; it opens no
// listener of its own (see SPEC_FULL.md, domain stack).
func (b *Balancer) Describe(ch chan<- *prometheus.Desc) {
	ch <- useCountDesc
	ch <- metricDesc
}

// Collect implements prometheus.Collector, taking the balancer's mutex for
// the duration of the snapshot - the same narrow critical section Take and
// Token.Release use.
func (b *Balancer) Collect(ch chan<- prometheus.Metric) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.v4.h.Range(func(addr netip.Addr, rec metricRecord) {
		ch <- prometheus.MustNewConstMetric(useCountDesc, prometheus.GaugeValue, float64(rec.UseCount), addr.String(), "ipv4")
		ch <- prometheus.MustNewConstMetric(metricDesc, prometheus.GaugeValue, float64(rec.Metric), addr.String(), "ipv4")
	})
	b.v6.h.Range(func(addr netip.Addr, rec metricRecord) {
		ch <- prometheus.MustNewConstMetric(useCountDesc, prometheus.GaugeValue, float64(rec.UseCount), addr.String(), "ipv6")
		ch <- prometheus.MustNewConstMetric(metricDesc, prometheus.GaugeValue, float64(rec.Metric), addr.String(), "ipv6")
	})
}

var _ prometheus.Collector = (*Balancer)(nil)
