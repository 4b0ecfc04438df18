// Package harness runs declarative shop-floor scenarios for testing.
//
// A scenario is a YAML file: a seed (cells, jobs with parts and operations,
// scrap reasons) and a flow of operator actions (advance, complete, pause,
// resume, record, wip, totals). Running a scenario produces a deterministic
// trace of step outcomes, compared against golden files so behavior changes
// show up as reviewable diffs rather than silently shifting assertions.
package harness
