// Package source declares the collaborators the refresh loop consumes: the
// container reader, the ordering source and the dirty notifier.
//
// Implementations decode whatever the live process exposes (memory, packets,
// sort files) behind these interfaces; nothing past this boundary knows how
// slot contents were obtained.
package source
