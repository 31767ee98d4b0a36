// Package ssr provides a logical block device mirrored over two backing
// devices, with a CRC-32 per sector stored in a checksum region after the
// data region of each mirror. Reads verify both mirrors, serve a verified
// copy and rewrite the copy that failed verification.
//
// The library is organised into several files for clarity:
//
//	options.go     – configuration struct & defaults
//	config.go      – persisted geometry
//	identity.go    – persisted device UUID
//	geometry.go    – sector to mirror offset translation
//	checksum.go    – CRC-32 helpers
//	errors.go      – error taxonomy
//	device.go      – BlockDevice, Opener & FileOpener
//	memdevice.go   – in-memory BlockDevice with fault injection
//	mirror.go      – aligned I/O against one mirror
//	coordinator.go – mirrored write, verified read & repair
//	buffer.go      – pooled buffer & lock helpers
//	queue.go       – Dispatcher & WorkerPool
//	request.go     – Request type
//	ssr.go         – constructors & request submission
//	format.go      – mirror initialisation
//	scrub.go       – full-device verification pass
//	journal.go     – integrity event journal interface
//	stats.go       – lightweight stats accessors
//	flush_close.go – flush & close helpers
//
// Subpackages provide a pebble-backed Journal (journal), a SQLite device
// name registry (registry) and an HTTP surface (server).
package ssr
