// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the remote debug packet format: a zlib
// stream carrying a text concatenation of packets delimited by literal
// marker tokens.
//
// A decompressed payload looks like:
//
//	[pkt][id]7[t]1.5[m]hello[m][ts]7,1,running[pkt][id]9[t]1.6[m]...
//
// Each packet must carry one [id] (positive integer entity id) and one
// [t] (finite float time mark) in the [m]-separated fields that precede
// its messages. Marker values run to the next '[' or the end of the
// field. Messages after the mandatory fields are either plain text or,
// when they contain [ts], a "uid,state[,text]" state triple.
//
// Parsing is best effort. [Parse] never fails: an undecodable stream
// yields an empty [Batch], a packet missing its id or time is dropped
// without affecting its neighbours, and a malformed state triple is
// kept with Valid=false so the consumer can decide what to do with it.
// [Decode] is the same operation but also reports why a stream could
// not be inflated, for logging.
//
// The encoding side ([Packet], [Encode], [Compress]) exists for
// clients: the nodescope CLI's "send" command and tests.
package wire
