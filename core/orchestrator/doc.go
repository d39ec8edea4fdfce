// Package orchestrator drives one planning/run cycle:
//
//	idle -> planning -> data-selection -> running -> idle
//
// [Orchestrator.Plan] asks the architect model for a plan and suggested
// inputs, normalizes them and builds the execution graph. [Orchestrator.SetPlan]
// installs a caller-supplied plan instead. [Orchestrator.SelectData] picks the
// data entries and [Orchestrator.Run] executes the plan with the staged
// engine, optionally followed by a conclusion call.
//
// Calls that do not fit the current stage fail with [ErrInvalidTransition].
package orchestrator
