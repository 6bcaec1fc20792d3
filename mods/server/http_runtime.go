package server

import (
	"runtime"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// gatherRuntime refreshes the process gauges right before they are reported.
func (svr *Server) gatherRuntime() {
	ms := runtime.MemStats{}
	runtime.ReadMemStats(&ms)
	gometrics.GetOrRegisterGauge("runtime.goroutines", svr.metrics).Update(int64(runtime.NumGoroutine()))
	gometrics.GetOrRegisterGauge("runtime.heap_inuse", svr.metrics).Update(int64(ms.HeapInuse))
	gometrics.GetOrRegisterGauge("polarmap.session.active", svr.metrics).Update(int64(svr.sessions.Len()))

	if cpuPercent, err := cpu.Percent(0, false); err != nil {
		svr.log.Debugf("cpu percent, %s", err.Error())
	} else if len(cpuPercent) > 0 {
		gometrics.GetOrRegisterGaugeFloat64("ps.cpu_percent", svr.metrics).Update(cpuPercent[0])
	}
	if memStat, err := mem.VirtualMemory(); err != nil {
		svr.log.Debugf("memory percent, %s", err.Error())
	} else {
		gometrics.GetOrRegisterGaugeFloat64("ps.mem_percent", svr.metrics).Update(memStat.UsedPercent)
	}
}
