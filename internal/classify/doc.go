// Package classify decides whether a syslog line proves the scheduled job ran,
// reports a failure, or can be ignored.
//
// The touch marker is checked first: cron logs "CMD (touch <file> # <tag>)",
// and TouchMarker builds the "(touch <file> # <tag>)" part of it. Lines
// without the marker are then checked for the failure keywords (ERROR,
// WARNING, WARN by default). Matching is case-sensitive substring containment.
package classify
