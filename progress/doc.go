// Package progress tracks per-session progress of document processing runs.
//
// A Tracker holds one session per caller-supplied ID. Sessions record chunk
// and embedding counts, the current stage and any errors, and log the 10, 25,
// 50, 75, 90 and 100 percent milestones once each. Completed, cancelled and
// idle sessions are removed.
//
// A session expects a single writer. Counts only move forward: an update
// that reports fewer processed chunks than already recorded is ignored for
// that field.
package progress
