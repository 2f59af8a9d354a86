// Package orchestration runs one convergence controller per selected sample
// policy, times each trial and compares the outcomes. It decouples the
// integration from presentation via the ProgressReporter and ResultPresenter
// interfaces.
package orchestration
