package server

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// MakeListener listens on "tcp://host:port", "unix://path" or a bare "host:port".
func MakeListener(addr string) (net.Listener, error) {
	switch {
	case strings.HasPrefix(addr, "unix://"):
		path := addr[len("unix://"):]
		if !filepath.IsAbs(path) {
			pwd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(pwd, path)
		}
		// delete existing .sock file
		if _, err := os.Stat(path); err == nil {
			os.Remove(path)
		}
		return net.Listen("unix", path)
	case strings.HasPrefix(addr, "tcp://"):
		return net.Listen("tcp", addr[len("tcp://"):])
	case strings.Contains(addr, "://"):
		return nil, fmt.Errorf("unsupported listen scheme %s", addr)
	default:
		return net.Listen("tcp", addr)
	}
}
