// Workflow runs one unattended maintenance pass over the host: refresh the
// package index, upgrade, clean up, then deal with any pending reboot, either
// by scheduling a deferred reboot or by restarting a fixed list of services.
//
// Every step reports exactly one event before the next begins. The update,
// upgrade and cleanup steps are fatal: their failure is reported and the run
// stops with a non-zero exit code. Nothing after cleanup can fail the run.
package workflow
