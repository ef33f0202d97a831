// Package capture records an i915 trace with trace-cmd while an application runs.
//
// The sequence is: list the i915 tracepoints, reset, start with every selected
// event enabled, run the application, stop, extract trace.dat, reset, and
// write the text report to drm_<time>.log. trace-cmd control commands run
// under sudo unless the process already has an effective uid of 0.
package capture
