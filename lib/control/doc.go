// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package control is the local control surface of the nodescope
// daemon: a CBOR request-response protocol on a Unix socket.
//
// Each connection carries one request. The client writes a CBOR map
// with an "action" field plus action-specific fields; the server
// writes one [Response] and closes. Streaming actions instead write a
// [StreamAck] followed by [Frame] values until either side goes away.
//
// [SocketServer] is the generic transport, [Service] binds the
// debugger's operations to action names, and [Client] is the caller
// side used by the nodescope CLI.
//
// Actions:
//
//	status                         debugger status and build info
//	enable   {port?}               start listening (0 or absent: configured port)
//	disable                        stop listening without waiting
//	query    {uid, at?}            latest state, or state as of at
//	history  {uid, from?, to?}     timeline entries in [from, to]
//	entities                       one summary per entity
//	mode     {mode?}               set (or with no mode, read) the display mode
//	reset                          discard every timeline
//	watch    {uids?, buffer?}      stream of event and heartbeat frames
package control
