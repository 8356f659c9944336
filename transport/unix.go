// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
)

// ListenUnix listens on a Unix stream socket at path with file mode
// perm. A leftover socket file from a crashed process is replaced;
// any other kind of file at path is an error. Closing the listener
// removes the socket file.
func ListenUnix(path string, perm fs.FileMode) (net.Listener, error) {
	info, err := os.Lstat(path)
	switch {
	case err == nil && info.Mode().Type() != fs.ModeSocket:
		return nil, fmt.Errorf("%s exists and is not a socket", path)
	case err == nil:
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("removing stale socket %s: %w", path, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	address := &net.UnixAddr{Name: path, Net: "unix"}
	listener, err := net.ListenUnix("unix", address)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}
	// net removes the file itself on Close.
	listener.SetUnlinkOnClose(true)

	if err := os.Chmod(path, perm); err != nil {
		listener.Close()
		return nil, fmt.Errorf("setting mode on %s: %w", path, err)
	}
	return listener, nil
}
