package p2p

import (
	"bufio"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ListPeers reads one peer address per line from path. A missing file is an
// empty peer list. Blank lines and lines starting with '#' are skipped.
func ListPeers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.Wrap(err, "open peers file")
	}
	defer f.Close()

	peers := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		peers = append(peers, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read peers file")
	}
	return peers, nil
}

// PeerAddress returns peer as a dialable host:port, adding port when the
// entry is a bare host.
func PeerAddress(peer string, port int) string {
	if _, _, err := net.SplitHostPort(peer); err == nil {
		return peer
	}
	return net.JoinHostPort(strings.Trim(peer, "[]"), strconv.Itoa(port))
}

// RemoteHost strips the port from a connection's remote address.
func RemoteHost(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
