package controller

import gometrics "github.com/rcrowley/go-metrics"

type metrics struct {
	switches  gometrics.Counter
	dropped   gometrics.Counter
	failed    gometrics.Counter
	rotations gometrics.Counter
}

func newMetrics(r gometrics.Registry) *metrics {
	return &metrics{
		switches:  gometrics.GetOrRegisterCounter("polarmap.switch.total", r),
		dropped:   gometrics.GetOrRegisterCounter("polarmap.switch.dropped", r),
		failed:    gometrics.GetOrRegisterCounter("polarmap.switch.failed", r),
		rotations: gometrics.GetOrRegisterCounter("polarmap.rotate.total", r),
	}
}
