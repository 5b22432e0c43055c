// Package stores provides the SQLite scan journal for resrules. The journal
// records what each directory scan found: which executables were probed, what
// happened to each resource rule and why rejected ones were dropped. It never
// holds agent metadata, so every scan still probes every agent.
package stores
