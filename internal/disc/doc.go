// Package disc reconciles the two independent views of "which drive holds
// which disc": the operating system's drive-letter enumeration and MakeMKV's
// internal disc-index table.
//
// The Enumerator produces a canonical, per-scan immutable list of drives
// with confirmed media; drives MakeMKV fails to report are kept with a
// fallback index and an advisory warning rather than dropped. Detection
// failures never abort a scan.
package disc
