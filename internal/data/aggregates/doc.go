// Package aggregates implements the write-side aggregates declared in
// internal/domain/aggregates.
//
// Each write operation owns one transaction, composes the table repos from
// internal/data/repos, and guards status transitions with compare-and-set so
// concurrent callers cannot both win.
package aggregates
